package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"pressroom/client/querycache"
)

func TestLegalActionsTable(t *testing.T) {
	cases := []struct {
		name         string
		status       string
		reviewStatus string
		want         []WorkflowAction
	}{
		{"fresh draft", "draft", "draft", []WorkflowAction{ActionSubmitForReview, ActionArchive}},
		{"under review", "draft", "under_review", []WorkflowAction{ActionApprove, ActionReject, ActionArchive}},
		{"approved", "draft", "approved", []WorkflowAction{ActionSchedule, ActionArchive}},
		{"scheduled", "scheduled", "scheduled", []WorkflowAction{ActionPublishNow, ActionSchedule, ActionArchive}},
		{"published", "published", "approved", []WorkflowAction{ActionUnpublish, ActionArchive}},
		{"rejected", "draft", "rejected", []WorkflowAction{ActionArchive}},
		{"changes requested", "draft", "changes_requested", []WorkflowAction{ActionArchive}},
		{"archived", "archived", "approved", []WorkflowAction{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := LegalActions(tc.status, tc.reviewStatus)
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("expected %v, got %v", tc.want, got)
				}
			}
		})
	}
}

func TestDispatchPublicationActionInvalidatesDependentRegions(t *testing.T) {
	var body map[string]any
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/publication-actions" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad action body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(PublicationResult{
			Success: true,
			Review:  Review{ID: "r1", Status: "draft", ReviewStatus: "approved"},
			Message: "review approved",
		})
	})
	c, notifier := newTestClient(t, handler)

	c.Cache.Set(querycache.Key{"reviews", "queue"}, ReviewQueue{Total: 2}, time.Minute)
	c.Cache.Set(querycache.Key{"reviews", "queue", "review_status=under_review"}, ReviewQueue{Total: 1}, time.Minute)
	c.Cache.Set(querycache.Key{"reviews", "detail", "r1"}, Review{ID: "r1"}, time.Minute)
	c.Cache.Set(querycache.Key{"reviews", "detail", "r2"}, Review{ID: "r2"}, time.Minute)

	result, err := c.DispatchPublicationAction(context.Background(), PublicationAction{
		ReviewID: "r1",
		Action:   ActionApprove,
		Notes:    "reads well",
	})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if !result.Success || result.Review.ReviewStatus != "approved" {
		t.Fatalf("unexpected result %+v", result)
	}

	if body["review_id"] != "r1" || body["action"] != "approve" || body["notes"] != "reads well" {
		t.Fatalf("unexpected wire body %v", body)
	}
	if _, ok := body["scheduled_date"]; ok {
		t.Fatal("scheduled_date must be omitted when unset")
	}

	for _, key := range []querycache.Key{
		{"reviews", "queue"},
		{"reviews", "queue", "review_status=under_review"},
		{"reviews", "detail", "r1"},
	} {
		entry, _ := c.Cache.Peek(key)
		if !entry.Stale {
			t.Fatalf("region %s should be stale after the action", key)
		}
	}
	other, _ := c.Cache.Peek(querycache.Key{"reviews", "detail", "r2"})
	if other.Stale {
		t.Fatal("unrelated review detail was invalidated")
	}

	if infos, errs := notifier.counts(); infos != 1 || errs != 0 {
		t.Fatalf("expected one info notice, got infos=%d errs=%d", infos, errs)
	}
}

func TestDispatchGuardsNotesAndVocabulary(t *testing.T) {
	var hits atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})
	c, _ := newTestClient(t, handler)

	if _, err := c.DispatchPublicationAction(context.Background(), PublicationAction{
		ReviewID: "r1",
		Action:   ActionApprove,
	}); err == nil {
		t.Fatal("expected approve without notes to be rejected")
	}
	if _, err := c.DispatchPublicationAction(context.Background(), PublicationAction{
		ReviewID: "r1",
		Action:   ActionReject,
		Notes:    "   ",
	}); err == nil {
		t.Fatal("expected reject with blank notes to be rejected")
	}
	if _, err := c.DispatchPublicationAction(context.Background(), PublicationAction{
		ReviewID: "r1",
		Action:   WorkflowAction("promote"),
	}); err == nil {
		t.Fatal("expected unknown action to be rejected")
	}
	if _, err := c.DispatchPublicationAction(context.Background(), PublicationAction{
		Action: ActionArchive,
	}); err == nil {
		t.Fatal("expected missing review id to be rejected")
	}
	if hits.Load() != 0 {
		t.Fatalf("client-side guards must not reach the network, got %d requests", hits.Load())
	}
}

func TestDispatchFailureLeavesCacheUntouched(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":{"code":"invalid_transition","message":"action not legal for current review state"}}`))
	})
	c, notifier := newTestClient(t, handler)
	c.Cache.Set(querycache.Key{"reviews", "queue"}, ReviewQueue{Total: 2}, time.Minute)

	_, err := c.DispatchPublicationAction(context.Background(), PublicationAction{
		ReviewID: "r1",
		Action:   ActionPublishNow,
	})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "invalid_transition" {
		t.Fatalf("expected invalid_transition APIError, got %v", err)
	}

	entry, _ := c.Cache.Peek(querycache.Key{"reviews", "queue"})
	if entry.Stale || entry.Value.(ReviewQueue).Total != 2 {
		t.Fatal("failed action must leave the queue region untouched")
	}
	if infos, errs := notifier.counts(); errs != 1 || infos != 0 {
		t.Fatalf("expected one error notice, got infos=%d errs=%d", infos, errs)
	}
}

func TestReviewQueueCachesPerFilterWindow(t *testing.T) {
	var hits atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(ReviewQueue{
			Items: []Review{{ID: "r1"}},
			Total: 1,
		})
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c, err := New(Config{BaseURL: server.URL, UserID: "admin-1", UserRole: "admin"})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}

	filter := ReviewQueueFilter{ReviewStatus: "under_review", Limit: 10}
	if _, err := c.ReviewQueue(context.Background(), filter); err != nil {
		t.Fatalf("queue fetch failed: %v", err)
	}
	if _, err := c.ReviewQueue(context.Background(), filter); err != nil {
		t.Fatalf("cached queue fetch failed: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected a single network read for the cached window, got %d", hits.Load())
	}

	if _, err := c.ReviewQueue(context.Background(), ReviewQueueFilter{}); err != nil {
		t.Fatalf("unfiltered queue fetch failed: %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected a second read for a different window, got %d", hits.Load())
	}
}
