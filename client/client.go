package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pressroom/client/querycache"
)

const (
	// DefaultConfirmDelay keeps a confirmed optimistic vote on screen for a
	// beat before the affected regions are marked for refetch.
	DefaultConfirmDelay = 1500 * time.Millisecond

	// DefaultCacheTTL bounds how long a cached read is served without a
	// background refresh.
	DefaultCacheTTL = 30 * time.Second

	defaultTimeout = 15 * time.Second
)

// Notifier surfaces operation outcomes to the user, the SDK analogue of a
// toast. Implementations must be safe for concurrent use.
type Notifier interface {
	Info(message string)
	Error(message string)
}

type logNotifier struct {
	logger *slog.Logger
}

func (n logNotifier) Info(message string) {
	n.logger.Info(message, "event", "client_notice")
}

func (n logNotifier) Error(message string) {
	n.logger.Error(message, "event", "client_notice")
}

// APIError is a structured server rejection decoded from the wire envelope
// {"error": {"code", "message"}}.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

type Config struct {
	BaseURL    string
	HTTPClient *http.Client

	// Token authenticates requests as a JWT bearer. When empty, UserID and
	// UserRole are sent as identity headers instead.
	Token    string
	UserID   string
	UserRole string

	Notifier Notifier
	Logger   *slog.Logger

	ConfirmDelay time.Duration
	CacheTTL     time.Duration
}

// Client is the SDK entry point. All reads flow through Cache so optimistic
// vote writes, rollbacks, and workflow invalidations land on the same
// regions the fetchers fill.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	token        string
	userID       string
	userRole     string
	notifier     Notifier
	logger       *slog.Logger
	confirmDelay time.Duration
	cacheTTL     time.Duration

	Cache *querycache.Store

	gateMu    sync.Mutex
	voteGates map[string]*sync.Mutex
}

func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("client: base url is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = logNotifier{logger: logger}
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	confirmDelay := cfg.ConfirmDelay
	if confirmDelay <= 0 {
		confirmDelay = DefaultConfirmDelay
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}

	return &Client{
		baseURL:      baseURL,
		httpClient:   httpClient,
		token:        strings.TrimSpace(cfg.Token),
		userID:       strings.TrimSpace(cfg.UserID),
		userRole:     strings.TrimSpace(cfg.UserRole),
		notifier:     notifier,
		logger:       logger,
		confirmDelay: confirmDelay,
		cacheTTL:     cacheTTL,
		Cache:        querycache.NewStore(),
		voteGates:    make(map[string]*sync.Mutex),
	}, nil
}

// do issues one request and decodes the response into out. Mutations are
// never retried; a failure is reported exactly once to the caller.
func (c *Client) do(ctx context.Context, method string, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeAPIError(resp.StatusCode, payload)
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
		return
	}
	if c.userID != "" {
		req.Header.Set("X-User-Id", c.userID)
		if c.userRole != "" {
			req.Header.Set("X-User-Role", c.userRole)
		}
	}
}

// voteGate serializes casts per entity so a second vote waits for the first
// response instead of racing it on the cache.
func (c *Client) voteGate(entityType string, entityID string) *sync.Mutex {
	c.gateMu.Lock()
	defer c.gateMu.Unlock()

	key := entityType + "/" + entityID
	gate, ok := c.voteGates[key]
	if !ok {
		gate = &sync.Mutex{}
		c.voteGates[key] = gate
	}
	return gate
}

func decodeAPIError(status int, payload []byte) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	apiErr := &APIError{Status: status, Code: "unexpected_error"}
	if err := json.Unmarshal(payload, &envelope); err == nil && envelope.Error.Code != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(payload))
	return apiErr
}
