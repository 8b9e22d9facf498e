package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestAuthorizationHeaders(t *testing.T) {
	var gotAuth, gotUser, gotRole string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUser = r.Header.Get("X-User-Id")
		gotRole = r.Header.Get("X-User-Role")
		_ = json.NewEncoder(w).Encode([]Suggestion{})
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	withToken, err := New(Config{BaseURL: server.URL, Token: "jwt-token", UserID: "ignored"})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if _, err := withToken.Suggestions(context.Background()); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if gotAuth != "Bearer jwt-token" || gotUser != "" {
		t.Fatalf("expected bearer auth only, got auth=%q user=%q", gotAuth, gotUser)
	}

	withHeaders, err := New(Config{BaseURL: server.URL, UserID: "user-1", UserRole: "reviewer"})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if _, err := withHeaders.Suggestions(context.Background()); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if gotAuth != "" || gotUser != "user-1" || gotRole != "reviewer" {
		t.Fatalf("expected identity headers, got auth=%q user=%q role=%q", gotAuth, gotUser, gotRole)
	}
}

func TestMutationsCarryIdempotencyKey(t *testing.T) {
	keys := make(map[string]string)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys[r.Method] = r.Header.Get("Idempotency-Key")
		switch r.Method {
		case http.MethodPost:
			_ = json.NewEncoder(w).Encode(Suggestion{ID: "1"})
		default:
			_ = json.NewEncoder(w).Encode([]Suggestion{})
		}
	})
	c, _ := newTestClient(t, handler)

	if _, err := c.CreateSuggestion(context.Background(), "title", "body"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := c.Suggestions(context.Background()); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if keys[http.MethodPost] == "" {
		t.Fatal("expected an Idempotency-Key on the mutation")
	}
	if keys[http.MethodGet] != "" {
		t.Fatal("reads must not carry an Idempotency-Key")
	}
}

func TestAPIErrorDecodeFallsBackToRawBody(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("upstream exploded"))
	})
	c, _ := newTestClient(t, handler)

	_, err := c.CreateSuggestion(context.Background(), "title", "body")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusInternalServerError || apiErr.Code != "unexpected_error" {
		t.Fatalf("unexpected decode %+v", apiErr)
	}
	if apiErr.Message != "upstream exploded" {
		t.Fatalf("expected raw body as message, got %q", apiErr.Message)
	}
}

func TestReadsRetryThroughCache(t *testing.T) {
	var hits atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode([]Suggestion{{ID: "42", Upvotes: 5}})
	})
	c, _ := newTestClient(t, handler)

	items, err := c.Suggestions(context.Background())
	if err != nil {
		t.Fatalf("expected retries to recover, got %v", err)
	}
	if len(items) != 1 || items[0].ID != "42" {
		t.Fatalf("unexpected payload %+v", items)
	}
	if hits.Load() != 3 {
		t.Fatalf("expected three attempts, got %d", hits.Load())
	}
}

func TestMutationsAreNotRetried(t *testing.T) {
	var hits atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	c, _ := newTestClient(t, handler)

	if _, err := c.CreateSuggestion(context.Background(), "title", "body"); err == nil {
		t.Fatal("expected mutation failure")
	}
	if hits.Load() != 1 {
		t.Fatalf("mutations must be sent exactly once, got %d attempts", hits.Load())
	}
}
