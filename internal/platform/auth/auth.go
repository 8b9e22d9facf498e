package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAuthor   = "author"
	RoleReviewer = "reviewer"
	RoleAdmin    = "admin"
)

var (
	ErrNoIdentity   = errors.New("request carries no identity")
	ErrInvalidToken = errors.New("bearer token is invalid")
)

// Identity is the authenticated caller attached to each request.
type Identity struct {
	UserID string
	Role   string
}

// Verifier resolves request identity from a signed bearer token, with a
// plain header fallback for internal tooling and tests.
type Verifier struct {
	Secret string
}

func NewVerifier(secret string) Verifier {
	return Verifier{Secret: strings.TrimSpace(secret)}
}

// FromRequest extracts the caller identity. A Bearer token wins over the
// fallback headers; a present but unverifiable token is rejected rather
// than silently downgraded.
func (v Verifier) FromRequest(r *http.Request) (Identity, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header != "" {
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			return Identity{}, ErrInvalidToken
		}
		return v.fromToken(strings.TrimSpace(raw))
	}

	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		return Identity{}, ErrNoIdentity
	}
	role := strings.TrimSpace(r.Header.Get("X-User-Role"))
	if role == "" {
		role = RoleAuthor
	}
	return Identity{UserID: userID, Role: role}, nil
}

func (v Verifier) fromToken(raw string) (Identity, error) {
	if raw == "" || v.Secret == "" {
		return Identity{}, ErrInvalidToken
	}

	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(v.Secret), nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	userID, _ := claims["user_id"].(string)
	if strings.TrimSpace(userID) == "" {
		return Identity{}, ErrInvalidToken
	}
	role, _ := claims["role"].(string)
	if strings.TrimSpace(role) == "" {
		role = RoleAuthor
	}
	return Identity{UserID: userID, Role: role}, nil
}

// IssueToken signs a short-lived token for the given identity. Used by
// operational tooling and tests rather than a public login flow.
func (v Verifier) IssueToken(identity Identity, ttl time.Duration) (string, error) {
	if v.Secret == "" {
		return "", errors.New("jwt secret is required")
	}
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": identity.UserID,
		"role":    identity.Role,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	})
	return token.SignedString([]byte(v.Secret))
}
