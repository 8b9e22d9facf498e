package boardservice

import (
	"context"
	"errors"
	"testing"
	"time"

	domainerrors "pressroom/contexts/community-engagement/board-service/domain/errors"
	httptransport "pressroom/contexts/community-engagement/board-service/transport/http"
)

func TestCreateSuggestionAppendsCreatedEvent(t *testing.T) {
	module := NewInMemoryModule(nil)

	created, err := module.Handler.CreateSuggestionHandler(context.Background(), "author-1", httptransport.CreateSuggestionRequest{
		Title: "Add dark mode",
		Body:  "The late shift keeps asking for it.",
	})
	if err != nil {
		t.Fatalf("create suggestion failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated suggestion id")
	}
	if created.AuthorID != "author-1" {
		t.Fatalf("expected author-1, got %q", created.AuthorID)
	}
	if created.Upvotes != 0 || created.UserHasVoted {
		t.Fatalf("expected fresh suggestion with zero vote state, got %d/%v", created.Upvotes, created.UserHasVoted)
	}

	pending, err := module.Store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one outbox row, got %d", len(pending))
	}
	if pending[0].EventType != "suggestion.created" {
		t.Fatalf("expected suggestion.created event, got %q", pending[0].EventType)
	}
	if pending[0].PartitionKey != created.ID {
		t.Fatalf("expected partition key %q, got %q", created.ID, pending[0].PartitionKey)
	}
}

func TestCreateSuggestionRejectsBlankFields(t *testing.T) {
	module := NewInMemoryModule(nil)

	_, err := module.Handler.CreateSuggestionHandler(context.Background(), "author-1", httptransport.CreateSuggestionRequest{
		Title: "   ",
		Body:  "body",
	})
	if !errors.Is(err, domainerrors.ErrInvalidContentInput) {
		t.Fatalf("expected ErrInvalidContentInput, got %v", err)
	}
}

func TestCreatePollValidation(t *testing.T) {
	module := NewInMemoryModule(nil)

	_, err := module.Handler.CreatePollHandler(context.Background(), "author-2", httptransport.CreatePollRequest{
		Question: "Best release day?",
		Options:  []string{"Friday", "   "},
	})
	if !errors.Is(err, domainerrors.ErrInvalidContentInput) {
		t.Fatalf("expected rejection with fewer than two usable options, got %v", err)
	}

	past := time.Now().UTC().Add(-time.Hour)
	_, err = module.Handler.CreatePollHandler(context.Background(), "author-2", httptransport.CreatePollRequest{
		Question: "Best release day?",
		Options:  []string{"Friday", "Monday"},
		ClosesAt: &past,
	})
	if !errors.Is(err, domainerrors.ErrInvalidContentInput) {
		t.Fatalf("expected rejection of past close date, got %v", err)
	}

	future := time.Now().UTC().Add(48 * time.Hour)
	poll, err := module.Handler.CreatePollHandler(context.Background(), "author-2", httptransport.CreatePollRequest{
		Question: "Best release day?",
		Options:  []string{"Friday", " Monday "},
		ClosesAt: &future,
	})
	if err != nil {
		t.Fatalf("create poll failed: %v", err)
	}
	if len(poll.Options) != 2 || poll.Options[1] != "Monday" {
		t.Fatalf("expected trimmed options, got %v", poll.Options)
	}
	if poll.UserVote != nil {
		t.Fatalf("expected null user_vote on fresh poll, got %q", *poll.UserVote)
	}
}

func TestSuggestionViewsJoinVoteState(t *testing.T) {
	module := NewInMemoryModule(nil)

	created, err := module.Handler.CreateSuggestionHandler(context.Background(), "author-1", httptransport.CreateSuggestionRequest{
		Title: "Add dark mode",
		Body:  "The late shift keeps asking for it.",
	})
	if err != nil {
		t.Fatalf("create suggestion failed: %v", err)
	}
	module.Store.SetVoteCounters("suggestion", created.ID, 5, 0)
	module.Store.SetUserVote("suggestion", created.ID, "user-1", "up")

	list, err := module.Handler.ListSuggestionsHandler(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list suggestions failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one suggestion, got %d", len(list))
	}
	if list[0].Upvotes != 5 || !list[0].UserHasVoted {
		t.Fatalf("expected 5 upvotes with caller vote, got %d/%v", list[0].Upvotes, list[0].UserHasVoted)
	}

	anonymous, err := module.Handler.GetSuggestionHandler(context.Background(), created.ID, "")
	if err != nil {
		t.Fatalf("get suggestion failed: %v", err)
	}
	if anonymous.UserHasVoted {
		t.Fatal("expected anonymous caller without vote state")
	}
}

func TestPostViewsCarryTriStateUserVote(t *testing.T) {
	module := NewInMemoryModule(nil)

	created, err := module.Handler.CreatePostHandler(context.Background(), "author-2", httptransport.CreatePostRequest{
		Title: "Launch notes",
		Body:  "Everything that changed this week.",
	})
	if err != nil {
		t.Fatalf("create post failed: %v", err)
	}
	module.Store.SetVoteCounters("community_post", created.ID, 3, 1)
	module.Store.SetUserVote("community_post", created.ID, "user-1", "down")

	view, err := module.Handler.GetPostHandler(context.Background(), created.ID, "user-1")
	if err != nil {
		t.Fatalf("get post failed: %v", err)
	}
	if view.Upvotes != 3 || view.Downvotes != 1 {
		t.Fatalf("expected counters 3/1, got %d/%d", view.Upvotes, view.Downvotes)
	}
	if view.UserVote == nil || *view.UserVote != "down" {
		t.Fatalf("expected user_vote down, got %v", view.UserVote)
	}

	neutral, err := module.Handler.GetPostHandler(context.Background(), created.ID, "user-2")
	if err != nil {
		t.Fatalf("get post failed: %v", err)
	}
	if neutral.UserVote != nil {
		t.Fatalf("expected null user_vote for non-voter, got %q", *neutral.UserVote)
	}
}

func TestPaginatedSuggestionsEchoNormalizedPaging(t *testing.T) {
	module := NewInMemoryModule(nil)

	for _, title := range []string{"first", "second", "third"} {
		if _, err := module.Handler.CreateSuggestionHandler(context.Background(), "author-1", httptransport.CreateSuggestionRequest{
			Title: title,
			Body:  "body for " + title,
		}); err != nil {
			t.Fatalf("create suggestion failed: %v", err)
		}
	}

	page, err := module.Handler.SuggestionsPageHandler(context.Background(), "", 2, 0)
	if err != nil {
		t.Fatalf("page suggestions failed: %v", err)
	}
	if page.Total != 3 {
		t.Fatalf("expected total 3, got %d", page.Total)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected two items on page, got %d", len(page.Items))
	}
	if page.Limit != 2 || page.Offset != 0 {
		t.Fatalf("expected echoed paging 2/0, got %d/%d", page.Limit, page.Offset)
	}

	defaulted, err := module.Handler.SuggestionsPageHandler(context.Background(), "", 0, -5)
	if err != nil {
		t.Fatalf("page suggestions failed: %v", err)
	}
	if defaulted.Limit != 20 || defaulted.Offset != 0 {
		t.Fatalf("expected normalized paging 20/0, got %d/%d", defaulted.Limit, defaulted.Offset)
	}
}

func TestGetSuggestionNotFound(t *testing.T) {
	module := NewInMemoryModule(nil)

	_, err := module.Handler.GetSuggestionHandler(context.Background(), "missing", "")
	if !errors.Is(err, domainerrors.ErrSuggestionNotFound) {
		t.Fatalf("expected ErrSuggestionNotFound, got %v", err)
	}
}
