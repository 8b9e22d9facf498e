package workers

import (
	"context"
	"testing"
	"time"

	"pressroom/contexts/editorial-pipeline/publication-service/adapters/memory"
	"pressroom/contexts/editorial-pipeline/publication-service/application/commands"
	"pressroom/contexts/editorial-pipeline/publication-service/domain/entities"
	"pressroom/contexts/editorial-pipeline/publication-service/ports"
)

type capturingPublisher struct {
	topics []string
	events []ports.EventEnvelope
}

func (p *capturingPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func scheduledReview(id string, publishAt time.Time) entities.Review {
	created := publishAt.Add(-24 * time.Hour)
	at := publishAt
	return entities.Review{
		ReviewID:           id,
		Title:              "scheduled " + id,
		Body:               "body",
		AuthorID:           "author-1",
		ReviewerID:         "reviewer-1",
		Status:             entities.StatusScheduled,
		ReviewStatus:       entities.ReviewStatusScheduled,
		ScheduledPublishAt: &at,
		CreatedAt:          created,
		UpdatedAt:          created,
	}
}

func TestPublishDueJobPublishesDueReviews(t *testing.T) {
	store := memory.NewStore()
	now := time.Now().UTC()
	store.SetReview(scheduledReview("review-due", now.Add(-time.Minute)))
	store.SetReview(scheduledReview("review-later", now.Add(time.Hour)))

	actions := commands.ReviewUseCase{Reviews: store, Clock: store, IDGen: store}
	job := PublishDueJob{Reviews: store, Actions: actions, Clock: store, BatchSize: 10}
	if err := job.RunOnce(context.Background()); err != nil {
		t.Fatalf("publish due run failed: %v", err)
	}

	due, err := store.GetReview(context.Background(), "review-due")
	if err != nil {
		t.Fatalf("get review failed: %v", err)
	}
	if due.Status != entities.StatusPublished {
		t.Fatalf("expected published, got %q", due.Status)
	}
	if due.PublishedAt == nil {
		t.Fatal("expected published_at set")
	}
	if due.ScheduledPublishAt != nil {
		t.Fatal("expected scheduled_publish_at cleared")
	}

	later, err := store.GetReview(context.Background(), "review-later")
	if err != nil {
		t.Fatalf("get review failed: %v", err)
	}
	if later.Status != entities.StatusScheduled {
		t.Fatalf("expected future review untouched, got %q", later.Status)
	}

	audits, err := store.ListAudits(context.Background(), "review-due")
	if err != nil {
		t.Fatalf("list audits failed: %v", err)
	}
	if len(audits) != 1 || audits[0].Action != "publish_now" {
		t.Fatalf("expected one publish_now audit, got %+v", audits)
	}
	if audits[0].ActorID != "system" || audits[0].ActorRole != "system" {
		t.Fatalf("expected system actor, got %s/%s", audits[0].ActorID, audits[0].ActorRole)
	}
}

func TestPublishDueJobDisabled(t *testing.T) {
	store := memory.NewStore()
	store.SetReview(scheduledReview("review-due", time.Now().UTC().Add(-time.Minute)))

	actions := commands.ReviewUseCase{Reviews: store, Clock: store, IDGen: store}
	job := PublishDueJob{Reviews: store, Actions: actions, Disabled: true}
	if err := job.RunOnce(context.Background()); err != nil {
		t.Fatalf("disabled run failed: %v", err)
	}

	review, err := store.GetReview(context.Background(), "review-due")
	if err != nil {
		t.Fatalf("get review failed: %v", err)
	}
	if review.Status != entities.StatusScheduled {
		t.Fatalf("expected review untouched when disabled, got %q", review.Status)
	}
}

func TestOutboxRelayPublishesTransitionEvents(t *testing.T) {
	store := memory.NewStore()
	store.SetReview(scheduledReview("review-due", time.Now().UTC().Add(-time.Minute)))

	actions := commands.ReviewUseCase{Reviews: store, Clock: store, IDGen: store}
	job := PublishDueJob{Reviews: store, Actions: actions, Clock: store, BatchSize: 10}
	if err := job.RunOnce(context.Background()); err != nil {
		t.Fatalf("publish due run failed: %v", err)
	}

	publisher := &capturingPublisher{}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, BatchSize: 10}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay run failed: %v", err)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected one published event, got %d", len(publisher.events))
	}
	if publisher.topics[0] != "review.transitioned" {
		t.Fatalf("expected topic review.transitioned, got %s", publisher.topics[0])
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected outbox drained, got %d pending rows", len(pending))
	}
}
