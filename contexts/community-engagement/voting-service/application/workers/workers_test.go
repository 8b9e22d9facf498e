package workers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"pressroom/contexts/community-engagement/voting-service/adapters/memory"
	"pressroom/contexts/community-engagement/voting-service/domain/entities"
	"pressroom/contexts/community-engagement/voting-service/ports"
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

type recordingSubscriber struct {
	handlers map[string]func(context.Context, ports.EventEnvelope) error
}

func (s *recordingSubscriber) Subscribe(
	_ context.Context,
	topic string,
	_ string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	if s.handlers == nil {
		s.handlers = make(map[string]func(context.Context, ports.EventEnvelope) error)
	}
	s.handlers[topic] = handler
	return nil
}

func TestOutboxRelayPublishesPendingRows(t *testing.T) {
	store := memory.NewStore(nil)
	payload, _ := json.Marshal(map[string]any{"entity_id": "7"})
	envelope := ports.EventEnvelope{
		EventID:       "event-1",
		EventType:     "vote.cast",
		OccurredAt:    time.Now().UTC(),
		SourceService: "voting-service",
		SchemaVersion: 1,
		PartitionKey:  "7",
		Data:          payload,
	}
	if err := store.AppendOutbox(context.Background(), envelope); err != nil {
		t.Fatalf("append outbox failed: %v", err)
	}

	publisher := &capturingPublisher{}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, BatchSize: 10}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay run failed: %v", err)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected one published event, got %d", len(publisher.events))
	}
	if publisher.topics[0] != "vote.cast" {
		t.Fatalf("expected topic vote.cast, got %s", publisher.topics[0])
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected outbox drained, got %d pending rows", len(pending))
	}
}

func TestBoardContentConsumerProjectsOnce(t *testing.T) {
	store := memory.NewStore(nil)
	subscriber := &recordingSubscriber{}
	consumer := BoardContentConsumer{
		Subscriber:  subscriber,
		Dedup:       store,
		Projections: store,
	}
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("consumer start failed: %v", err)
	}
	handler, ok := subscriber.handlers["suggestion.created"]
	if !ok {
		t.Fatalf("expected subscription to suggestion.created")
	}

	payload, _ := json.Marshal(map[string]any{
		"entity_type": "suggestion",
		"entity_id":   "42",
		"author_id":   "author-1",
	})
	event := ports.EventEnvelope{
		EventID:       "event-1",
		EventType:     "suggestion.created",
		OccurredAt:    time.Now().UTC(),
		SourceService: "board-service",
		SchemaVersion: 1,
		PartitionKey:  "42",
		Data:          payload,
	}

	if err := handler(context.Background(), event); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if err := handler(context.Background(), event); err != nil {
		t.Fatalf("replayed delivery failed: %v", err)
	}

	projection, found, err := store.GetProjection(context.Background(), entities.EntityTypeSuggestion, "42")
	if err != nil {
		t.Fatalf("get projection failed: %v", err)
	}
	if !found {
		t.Fatalf("expected projection saved")
	}
	if projection.AuthorID != "author-1" {
		t.Fatalf("expected author-1, got %s", projection.AuthorID)
	}
}
