package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pressroom/client/querycache"
)

type recordingNotifier struct {
	mu    sync.Mutex
	infos []string
	errs  []string
}

func (n *recordingNotifier) Info(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.infos = append(n.infos, message)
}

func (n *recordingNotifier) Error(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = append(n.errs, message)
}

func (n *recordingNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.infos), len(n.errs)
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *recordingNotifier) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	notifier := &recordingNotifier{}
	c, err := New(Config{
		BaseURL:      server.URL,
		UserID:       "user-1",
		UserRole:     "author",
		Notifier:     notifier,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		ConfirmDelay: 30 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	return c, notifier
}

func voteEndpoint(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/votes" {
			http.NotFound(w, r)
			return
		}
		var req castVoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad vote body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(VoteRecord{
			EntityType: req.EntityType,
			EntityID:   req.EntityID,
			VoteType:   req.VoteType,
		})
	})
}

func seedSuggestionViews(c *Client, id string, upvotes int, voted bool) {
	item := Suggestion{ID: id, Title: "seeded", Upvotes: upvotes, UserHasVoted: voted}
	other := Suggestion{ID: "other", Title: "other", Upvotes: 9}
	c.Cache.Set(querycache.Key{"suggestions", "list"}, []Suggestion{item, other}, time.Minute)
	c.Cache.Set(querycache.Key{"suggestions", "paginated", "20", "0"},
		SuggestionPage{Items: []Suggestion{item, other}, Total: 2, Limit: 20, Offset: 0}, time.Minute)
	c.Cache.Set(querycache.Key{"suggestions", "detail", id}, item, time.Minute)
}

func suggestionViews(t *testing.T, c *Client, id string) (Suggestion, Suggestion, Suggestion) {
	t.Helper()
	listEntry, ok := c.Cache.Peek(querycache.Key{"suggestions", "list"})
	if !ok {
		t.Fatal("list region missing")
	}
	var fromList Suggestion
	for _, item := range listEntry.Value.([]Suggestion) {
		if item.ID == id {
			fromList = item
		}
	}
	pageEntry, ok := c.Cache.Peek(querycache.Key{"suggestions", "paginated", "20", "0"})
	if !ok {
		t.Fatal("paginated region missing")
	}
	var fromPage Suggestion
	for _, item := range pageEntry.Value.(SuggestionPage).Items {
		if item.ID == id {
			fromPage = item
		}
	}
	detailEntry, ok := c.Cache.Peek(querycache.Key{"suggestions", "detail", id})
	if !ok {
		t.Fatal("detail region missing")
	}
	return fromList, fromPage, detailEntry.Value.(Suggestion)
}

func assertSuggestionState(t *testing.T, c *Client, id string, upvotes int, voted bool) {
	t.Helper()
	fromList, fromPage, fromDetail := suggestionViews(t, c, id)
	for _, view := range []Suggestion{fromList, fromPage, fromDetail} {
		if view.Upvotes != upvotes || view.UserHasVoted != voted {
			t.Fatalf("expected upvotes=%d voted=%v in every view, got %+v", upvotes, voted, view)
		}
	}
}

func TestCastVoteSuggestionToggle(t *testing.T) {
	c, _ := newTestClient(t, voteEndpoint(t))
	seedSuggestionViews(c, "42", 5, false)

	if _, err := c.CastVote(context.Background(), EntityTypeSuggestion, "42", VoteUp); err != nil {
		t.Fatalf("cast up failed: %v", err)
	}
	assertSuggestionState(t, c, "42", 6, true)

	if _, err := c.CastVote(context.Background(), EntityTypeSuggestion, "42", VoteNone); err != nil {
		t.Fatalf("cast none failed: %v", err)
	}
	assertSuggestionState(t, c, "42", 5, false)
}

func TestCastVoteCommunityPostSwitchesStance(t *testing.T) {
	c, _ := newTestClient(t, voteEndpoint(t))
	post := CommunityPost{ID: "7", Title: "seeded", Upvotes: 3, Downvotes: 1}
	c.Cache.Set(querycache.Key{"community-posts", "list"}, []CommunityPost{post}, time.Minute)
	c.Cache.Set(querycache.Key{"community-posts", "detail", "7"}, post, time.Minute)

	if _, err := c.CastVote(context.Background(), EntityTypeCommunityPost, "7", VoteDown); err != nil {
		t.Fatalf("cast down failed: %v", err)
	}
	entry, _ := c.Cache.Peek(querycache.Key{"community-posts", "detail", "7"})
	got := entry.Value.(CommunityPost)
	if got.Upvotes != 3 || got.Downvotes != 2 || got.UserVote == nil || *got.UserVote != VoteDown {
		t.Fatalf("expected 3/2/down, got %+v", got)
	}

	if _, err := c.CastVote(context.Background(), EntityTypeCommunityPost, "7", VoteUp); err != nil {
		t.Fatalf("cast up failed: %v", err)
	}
	entry, _ = c.Cache.Peek(querycache.Key{"community-posts", "list"})
	fromList := entry.Value.([]CommunityPost)[0]
	if fromList.Upvotes != 4 || fromList.Downvotes != 1 || fromList.UserVote == nil || *fromList.UserVote != VoteUp {
		t.Fatalf("expected 4/1/up, got %+v", fromList)
	}
}

func TestCastVoteRollsBackEveryViewOnFailure(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":{"code":"conflict","message":"vote raced a concurrent mutation"}}`))
	})
	c, notifier := newTestClient(t, handler)
	seedSuggestionViews(c, "42", 5, false)

	_, err := c.CastVote(context.Background(), EntityTypeSuggestion, "42", VoteUp)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict || apiErr.Code != "conflict" {
		t.Fatalf("expected conflict APIError, got %v", err)
	}

	assertSuggestionState(t, c, "42", 5, false)
	if infos, errs := notifier.counts(); errs != 1 || infos != 0 {
		t.Fatalf("expected a single error notice, got infos=%d errs=%d", infos, errs)
	}
}

func TestCastVoteSuccessDelaysStaleMarking(t *testing.T) {
	c, notifier := newTestClient(t, voteEndpoint(t))
	seedSuggestionViews(c, "42", 5, false)
	c.Cache.Set(querycache.Key{"suggestions", "detail", "other"}, Suggestion{ID: "other", Upvotes: 9}, time.Minute)
	c.Cache.Set(querycache.Key{"polls", "list"}, []Poll{{ID: "p1", Upvotes: 2}}, time.Minute)

	if _, err := c.CastVote(context.Background(), EntityTypeSuggestion, "42", VoteUp); err != nil {
		t.Fatalf("cast failed: %v", err)
	}

	// The optimistic value stays on screen; nothing is stale yet.
	assertSuggestionState(t, c, "42", 6, true)
	for _, key := range []querycache.Key{
		{"suggestions", "list"},
		{"suggestions", "paginated", "20", "0"},
		{"suggestions", "detail", "42"},
	} {
		entry, _ := c.Cache.Peek(key)
		if entry.Stale {
			t.Fatalf("region %s marked stale before the confirm delay", key)
		}
	}

	time.Sleep(100 * time.Millisecond)
	for _, key := range []querycache.Key{
		{"suggestions", "list"},
		{"suggestions", "paginated", "20", "0"},
		{"suggestions", "detail", "42"},
	} {
		entry, _ := c.Cache.Peek(key)
		if !entry.Stale {
			t.Fatalf("region %s not marked stale after the confirm delay", key)
		}
	}

	// Views outside the entity's region set are untouched.
	otherDetail, _ := c.Cache.Peek(querycache.Key{"suggestions", "detail", "other"})
	if otherDetail.Stale {
		t.Fatal("unrelated detail region was marked stale")
	}
	pollList, _ := c.Cache.Peek(querycache.Key{"polls", "list"})
	if pollList.Stale || pollList.Value.([]Poll)[0].Upvotes != 2 {
		t.Fatal("poll region was touched by a suggestion vote")
	}

	if infos, _ := notifier.counts(); infos != 1 {
		t.Fatalf("expected one confirmation notice, got %d", infos)
	}
}

func TestCastVoteNeverRendersNegativeCounters(t *testing.T) {
	c, _ := newTestClient(t, voteEndpoint(t))
	down := VoteDown
	post := CommunityPost{ID: "7", Upvotes: 0, Downvotes: 0, UserVote: &down}
	c.Cache.Set(querycache.Key{"community-posts", "list"}, []CommunityPost{post}, time.Minute)
	c.Cache.Set(querycache.Key{"suggestions", "list"},
		[]Suggestion{{ID: "42", Upvotes: 0, UserHasVoted: true}}, time.Minute)

	if _, err := c.CastVote(context.Background(), EntityTypeCommunityPost, "7", VoteNone); err != nil {
		t.Fatalf("cast none failed: %v", err)
	}
	entry, _ := c.Cache.Peek(querycache.Key{"community-posts", "list"})
	got := entry.Value.([]CommunityPost)[0]
	if got.Upvotes != 0 || got.Downvotes != 0 || got.UserVote != nil {
		t.Fatalf("expected clamped 0/0/nil, got %+v", got)
	}

	if _, err := c.CastVote(context.Background(), EntityTypeSuggestion, "42", VoteNone); err != nil {
		t.Fatalf("cast none failed: %v", err)
	}
	listEntry, _ := c.Cache.Peek(querycache.Key{"suggestions", "list"})
	suggestion := listEntry.Value.([]Suggestion)[0]
	if suggestion.Upvotes != 0 || suggestion.UserHasVoted {
		t.Fatalf("expected clamped 0/false, got %+v", suggestion)
	}
}

func TestCastVoteValidatesInput(t *testing.T) {
	var hits atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})
	c, _ := newTestClient(t, handler)

	if _, err := c.CastVote(context.Background(), EntityTypeSuggestion, "42", "sideways"); err == nil {
		t.Fatal("expected unknown vote type to be rejected")
	}
	if _, err := c.CastVote(context.Background(), "article", "42", VoteUp); err == nil {
		t.Fatal("expected unknown entity type to be rejected")
	}
	if _, err := c.CastVote(context.Background(), EntityTypeSuggestion, "42", VoteDown); err == nil {
		t.Fatal("expected downvote on suggestion to be rejected")
	}
	if _, err := c.CastVote(context.Background(), EntityTypeSuggestion, "  ", VoteUp); err == nil {
		t.Fatal("expected blank entity id to be rejected")
	}
	if hits.Load() != 0 {
		t.Fatalf("validation errors must not reach the network, got %d requests", hits.Load())
	}
}

func TestCastVoteSerializesSameEntity(t *testing.T) {
	var inFlight atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inFlight.Add(1) > 1 {
			t.Error("two votes for the same entity were in flight together")
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		_ = json.NewEncoder(w).Encode(VoteRecord{})
	})
	c, _ := newTestClient(t, handler)
	seedSuggestionViews(c, "42", 5, false)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.CastVote(context.Background(), EntityTypeSuggestion, "42", VoteUp); err != nil {
				t.Errorf("cast failed: %v", err)
			}
		}()
	}
	wg.Wait()
}
