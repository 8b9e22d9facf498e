package publicationservice

import (
	"context"
	"errors"
	"testing"
	"time"

	httpadapter "pressroom/contexts/editorial-pipeline/publication-service/adapters/http"
	domainerrors "pressroom/contexts/editorial-pipeline/publication-service/domain/errors"
	httptransport "pressroom/contexts/editorial-pipeline/publication-service/transport/http"
)

func createDraft(t *testing.T, module Module, authorID string, title string) httptransport.ReviewResponse {
	t.Helper()
	review, err := module.Handler.CreateReviewHandler(context.Background(), authorID, httptransport.CreateReviewRequest{
		Title: title,
		Body:  "body of " + title,
	})
	if err != nil {
		t.Fatalf("create review failed: %v", err)
	}
	return review
}

func dispatch(
	t *testing.T,
	module Module,
	actorID string,
	actorRole string,
	req httptransport.PublicationActionRequest,
) httptransport.PublicationActionResponse {
	t.Helper()
	resp, err := module.Handler.PublicationActionHandler(context.Background(), actorID, actorRole, "", req)
	if err != nil {
		t.Fatalf("action %s failed: %v", req.Action, err)
	}
	return resp
}

func assertActions(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected actions %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected actions %v, got %v", want, got)
		}
	}
}

func TestWorkflowHappyPathActions(t *testing.T) {
	module := NewInMemoryModule(nil)
	draft := createDraft(t, module, "author-1", "launch plan")
	assertActions(t, draft.AvailableActions, "submit_for_review", "archive")

	submitted := dispatch(t, module, "author-1", "author", httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "submit_for_review",
	})
	if submitted.Review.ReviewStatus != "under_review" {
		t.Fatalf("expected under_review, got %q", submitted.Review.ReviewStatus)
	}
	assertActions(t, submitted.Review.AvailableActions, "approve", "reject", "archive")

	approved := dispatch(t, module, "reviewer-1", "reviewer", httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "approve",
		Notes:    "reads well",
	})
	if approved.Review.ReviewStatus != "approved" {
		t.Fatalf("expected approved, got %q", approved.Review.ReviewStatus)
	}
	if approved.Review.ReviewedAt == nil {
		t.Fatal("expected reviewed_at to be set on approve")
	}
	if approved.Review.PublicationNotes != "reads well" {
		t.Fatalf("expected notes persisted, got %q", approved.Review.PublicationNotes)
	}
	assertActions(t, approved.Review.AvailableActions, "schedule", "archive")

	publishAt := time.Now().UTC().Add(2 * time.Hour)
	scheduled := dispatch(t, module, "admin-1", "admin", httptransport.PublicationActionRequest{
		ReviewID:      draft.ID,
		Action:        "schedule",
		ScheduledDate: &publishAt,
	})
	if scheduled.Review.Status != "scheduled" || scheduled.Review.ReviewStatus != "scheduled" {
		t.Fatalf("expected scheduled/scheduled, got %s/%s", scheduled.Review.Status, scheduled.Review.ReviewStatus)
	}
	if scheduled.Review.ScheduledPublishAt == nil {
		t.Fatal("expected scheduled_publish_at to be set")
	}
	assertActions(t, scheduled.Review.AvailableActions, "publish_now", "schedule", "archive")

	published := dispatch(t, module, "admin-1", "admin", httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "publish_now",
	})
	if published.Review.Status != "published" {
		t.Fatalf("expected published, got %q", published.Review.Status)
	}
	if published.Review.PublishedAt == nil {
		t.Fatal("expected published_at to be set")
	}
	if published.Review.ScheduledPublishAt != nil {
		t.Fatal("expected scheduled_publish_at cleared on publish")
	}
	assertActions(t, published.Review.AvailableActions, "unpublish", "archive")

	archived := dispatch(t, module, "admin-1", "admin", httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "archive",
	})
	if archived.Review.Status != "archived" {
		t.Fatalf("expected archived, got %q", archived.Review.Status)
	}
	assertActions(t, archived.Review.AvailableActions)
}

func TestApproveOnDraftIsDomainError(t *testing.T) {
	module := NewInMemoryModule(nil)
	draft := createDraft(t, module, "author-1", "not yet submitted")

	_, err := module.Handler.PublicationActionHandler(context.Background(), "reviewer-1", "reviewer", "", httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "approve",
		Notes:    "forced",
	})
	if !errors.Is(err, domainerrors.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestApproveAndRejectRequireNotes(t *testing.T) {
	module := NewInMemoryModule(nil)
	draft := createDraft(t, module, "author-1", "needs notes")
	dispatch(t, module, "author-1", "author", httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "submit_for_review",
	})

	_, err := module.Handler.PublicationActionHandler(context.Background(), "reviewer-1", "reviewer", "", httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "approve",
	})
	if !errors.Is(err, domainerrors.ErrNotesRequired) {
		t.Fatalf("expected ErrNotesRequired for approve, got %v", err)
	}
	_, err = module.Handler.PublicationActionHandler(context.Background(), "reviewer-1", "reviewer", "", httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "reject",
		Notes:    "   ",
	})
	if !errors.Is(err, domainerrors.ErrNotesRequired) {
		t.Fatalf("expected ErrNotesRequired for blank reject notes, got %v", err)
	}
}

func TestScheduleRequiresFutureDate(t *testing.T) {
	module := NewInMemoryModule(nil)
	draft := createDraft(t, module, "author-1", "schedule me")
	dispatch(t, module, "author-1", "author", httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "submit_for_review",
	})
	dispatch(t, module, "reviewer-1", "reviewer", httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "approve",
		Notes:    "ok",
	})

	past := time.Now().UTC().Add(-time.Minute)
	_, err := module.Handler.PublicationActionHandler(context.Background(), "admin-1", "admin", "", httptransport.PublicationActionRequest{
		ReviewID:      draft.ID,
		Action:        "schedule",
		ScheduledDate: &past,
	})
	if !errors.Is(err, domainerrors.ErrInvalidScheduleDate) {
		t.Fatalf("expected ErrInvalidScheduleDate, got %v", err)
	}
	_, err = module.Handler.PublicationActionHandler(context.Background(), "admin-1", "admin", "", httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "schedule",
	})
	if !errors.Is(err, domainerrors.ErrInvalidScheduleDate) {
		t.Fatalf("expected ErrInvalidScheduleDate when date omitted, got %v", err)
	}
}

func TestActionRoleMatrix(t *testing.T) {
	module := NewInMemoryModule(nil)
	draft := createDraft(t, module, "author-1", "role checks")

	_, err := module.Handler.PublicationActionHandler(context.Background(), "author-2", "author", "", httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "submit_for_review",
	})
	if !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign author submit, got %v", err)
	}

	dispatch(t, module, "author-1", "author", httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "submit_for_review",
	})
	_, err = module.Handler.PublicationActionHandler(context.Background(), "author-1", "author", "", httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "approve",
		Notes:    "self approval",
	})
	if !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for author approve, got %v", err)
	}

	dispatch(t, module, "reviewer-1", "reviewer", httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "approve",
		Notes:    "fine",
	})
	_, err = module.Handler.PublicationActionHandler(context.Background(), "reviewer-1", "reviewer", "", httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "publish_now",
	})
	if !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for reviewer publish, got %v", err)
	}
}

func TestUnpublishReturnsToApprovedDraft(t *testing.T) {
	module := NewInMemoryModule(nil)
	draft := createDraft(t, module, "author-1", "unpublish me")
	dispatch(t, module, "author-1", "author", httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "submit_for_review",
	})
	dispatch(t, module, "reviewer-1", "reviewer", httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "approve",
		Notes:    "good",
	})
	dispatch(t, module, "admin-1", "admin", httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "publish_now",
	})

	unpublished := dispatch(t, module, "admin-1", "admin", httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "unpublish",
	})
	if unpublished.Review.Status != "draft" || unpublished.Review.ReviewStatus != "approved" {
		t.Fatalf("expected draft/approved after unpublish, got %s/%s",
			unpublished.Review.Status, unpublished.Review.ReviewStatus)
	}
	assertActions(t, unpublished.Review.AvailableActions, "schedule", "archive")
}

func TestRequestChangesAllowsEditAndResubmit(t *testing.T) {
	module := NewInMemoryModule(nil)
	draft := createDraft(t, module, "author-1", "needs changes")
	dispatch(t, module, "author-1", "author", httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "submit_for_review",
	})
	changes := dispatch(t, module, "reviewer-1", "reviewer", httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "request_changes",
		Notes:    "tighten the intro",
	})
	if changes.Review.ReviewStatus != "changes_requested" {
		t.Fatalf("expected changes_requested, got %q", changes.Review.ReviewStatus)
	}

	updated, err := module.Handler.UpdateReviewHandler(context.Background(), draft.ID, "author-1", "author", httptransport.UpdateReviewRequest{
		Title: "needs changes",
		Body:  "tightened intro",
	})
	if err != nil {
		t.Fatalf("edit after changes_requested failed: %v", err)
	}
	if updated.Body != "tightened intro" {
		t.Fatalf("expected edited body, got %q", updated.Body)
	}

	resubmitted := dispatch(t, module, "author-1", "author", httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "submit_for_review",
	})
	if resubmitted.Review.ReviewStatus != "under_review" {
		t.Fatalf("expected under_review after resubmit, got %q", resubmitted.Review.ReviewStatus)
	}
}

func TestUpdateReviewGuards(t *testing.T) {
	module := NewInMemoryModule(nil)
	draft := createDraft(t, module, "author-1", "guarded edits")

	_, err := module.Handler.UpdateReviewHandler(context.Background(), draft.ID, "author-2", "author", httptransport.UpdateReviewRequest{
		Title: "hijack",
		Body:  "hijack",
	})
	if !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign edit, got %v", err)
	}

	dispatch(t, module, "author-1", "author", httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "submit_for_review",
	})
	_, err = module.Handler.UpdateReviewHandler(context.Background(), draft.ID, "author-1", "author", httptransport.UpdateReviewRequest{
		Title: "too late",
		Body:  "too late",
	})
	if !errors.Is(err, domainerrors.ErrNotEditable) {
		t.Fatalf("expected ErrNotEditable during review, got %v", err)
	}
}

func TestPublicationActionIdempotentReplay(t *testing.T) {
	module := NewInMemoryModule(nil)
	draft := createDraft(t, module, "author-1", "replay safe")
	dispatch(t, module, "author-1", "author", httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "submit_for_review",
	})

	req := httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "approve",
		Notes:    "solid",
	}
	first, err := module.Handler.PublicationActionHandler(context.Background(), "reviewer-1", "reviewer", "key-1", req)
	if err != nil {
		t.Fatalf("first approve failed: %v", err)
	}
	second, err := module.Handler.PublicationActionHandler(context.Background(), "reviewer-1", "reviewer", "key-1", req)
	if err != nil {
		t.Fatalf("replayed approve failed: %v", err)
	}
	if first.Review.ReviewStatus != second.Review.ReviewStatus {
		t.Fatalf("replay changed state: %q vs %q", first.Review.ReviewStatus, second.Review.ReviewStatus)
	}

	audits, err := module.Store.ListAudits(context.Background(), draft.ID)
	if err != nil {
		t.Fatalf("list audits failed: %v", err)
	}
	approveCount := 0
	for _, audit := range audits {
		if audit.Action == "approve" {
			approveCount++
		}
	}
	if approveCount != 1 {
		t.Fatalf("expected one approve audit, got %d", approveCount)
	}

	_, err = module.Handler.PublicationActionHandler(context.Background(), "reviewer-1", "reviewer", "key-1", httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "reject",
		Notes:    "changed my mind",
	})
	if !errors.Is(err, domainerrors.ErrIdempotencyConflict) {
		t.Fatalf("expected ErrIdempotencyConflict for reused key, got %v", err)
	}
}

func TestQueueFiltersAndSearch(t *testing.T) {
	module := NewInMemoryModule(nil)
	first := createDraft(t, module, "author-1", "alpha release notes")
	createDraft(t, module, "author-2", "beta roadmap")
	dispatch(t, module, "author-1", "author", httptransport.PublicationActionRequest{
		ReviewID:   first.ID,
		Action:     "submit_for_review",
		ReviewerID: "reviewer-1",
	})

	queue, err := module.Handler.QueueHandler(context.Background(), httpadapter.QueueFilter{ReviewStatus: "under_review"})
	if err != nil {
		t.Fatalf("queue failed: %v", err)
	}
	if queue.Total != 1 || len(queue.Items) != 1 {
		t.Fatalf("expected one under_review item, got total=%d len=%d", queue.Total, len(queue.Items))
	}
	if queue.Items[0].ID != first.ID {
		t.Fatalf("expected %q, got %q", first.ID, queue.Items[0].ID)
	}
	if queue.Items[0].ReviewerID != "reviewer-1" {
		t.Fatalf("expected assigned reviewer, got %q", queue.Items[0].ReviewerID)
	}

	search, err := module.Handler.QueueHandler(context.Background(), httpadapter.QueueFilter{Search: "ROADMAP"})
	if err != nil {
		t.Fatalf("queue search failed: %v", err)
	}
	if search.Total != 1 || search.Items[0].Title != "beta roadmap" {
		t.Fatalf("expected case-insensitive title match, got %+v", search.Items)
	}

	byAuthor, err := module.Handler.QueueHandler(context.Background(), httpadapter.QueueFilter{AuthorID: "author-2"})
	if err != nil {
		t.Fatalf("queue by author failed: %v", err)
	}
	if byAuthor.Total != 1 {
		t.Fatalf("expected one review by author-2, got %d", byAuthor.Total)
	}

	_, err = module.Handler.QueueHandler(context.Background(), httpadapter.QueueFilter{Status: "bogus"})
	if !errors.Is(err, domainerrors.ErrInvalidReviewInput) {
		t.Fatalf("expected ErrInvalidReviewInput for bad status, got %v", err)
	}
}

func TestReviewHistoryRecordsTransitions(t *testing.T) {
	module := NewInMemoryModule(nil)
	draft := createDraft(t, module, "author-1", "audited")
	dispatch(t, module, "author-1", "author", httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "submit_for_review",
	})
	dispatch(t, module, "reviewer-1", "reviewer", httptransport.PublicationActionRequest{
		ReviewID: draft.ID,
		Action:   "approve",
		Notes:    "ship it",
	})

	history, err := module.Handler.ReviewHistoryHandler(context.Background(), draft.ID)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected two audit entries, got %d", len(history))
	}
	if history[0].Action != "submit_for_review" || history[1].Action != "approve" {
		t.Fatalf("unexpected audit order: %q then %q", history[0].Action, history[1].Action)
	}
	if history[1].OldReviewStatus != "under_review" || history[1].NewReviewStatus != "approved" {
		t.Fatalf("expected under_review->approved, got %s->%s",
			history[1].OldReviewStatus, history[1].NewReviewStatus)
	}
	if history[1].ActorRole != "reviewer" {
		t.Fatalf("expected reviewer actor, got %q", history[1].ActorRole)
	}

	_, err = module.Handler.ReviewHistoryHandler(context.Background(), "missing")
	if !errors.Is(err, domainerrors.ErrReviewNotFound) {
		t.Fatalf("expected ErrReviewNotFound, got %v", err)
	}
}
