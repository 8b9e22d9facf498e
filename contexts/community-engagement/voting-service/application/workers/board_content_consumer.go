package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "pressroom/contexts/community-engagement/voting-service/application"
	"pressroom/contexts/community-engagement/voting-service/domain/entities"
	"pressroom/contexts/community-engagement/voting-service/ports"
)

const (
	suggestionCreatedTopic    = "suggestion.created"
	communityPostCreatedTopic = "community_post.created"
	pollCreatedTopic          = "poll.created"
	defaultBoardContentCG     = "voting-service-board-cg"
)

// BoardContentConsumer projects board-created entities into the local
// votable projection table so vote casts can verify the target exists.
type BoardContentConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Projections   ports.ProjectionRepository
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

// Start subscribes to board content creation events with dedupe semantics.
func (c BoardContentConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultBoardContentCG
	}
	topics := []string{suggestionCreatedTopic, communityPostCreatedTopic, pollCreatedTopic}
	for _, topic := range topics {
		if err := c.Subscriber.Subscribe(ctx, topic, group, c.handleContentCreated); err != nil {
			logger.Error("board content consumer subscribe failed",
				"event", "engagement_board_consumer_subscribe_failed",
				"module", "community-engagement/voting-service",
				"layer", "worker",
				"topic", topic,
				"consumer_group", group,
				"error", err.Error(),
			)
			return err
		}
	}
	logger.Info("board content consumer subscriptions active",
		"event", "engagement_board_consumer_started",
		"module", "community-engagement/voting-service",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

func (c BoardContentConsumer) handleContentCreated(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	if alreadyProcessed, err := c.reserveEvent(ctx, event); err != nil {
		return err
	} else if alreadyProcessed {
		logger.Debug("board content event replay skipped",
			"event", "engagement_board_consumer_replayed",
			"module", "community-engagement/voting-service",
			"layer", "worker",
			"event_id", event.EventID,
			"event_type", event.EventType,
		)
		return nil
	}

	var payload struct {
		EntityType string `json:"entity_type"`
		EntityID   string `json:"entity_id"`
		AuthorID   string `json:"author_id"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("board content payload decode failed",
			"event", "engagement_board_consumer_decode_failed",
			"module", "community-engagement/voting-service",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}

	projection := ports.VotableProjection{
		EntityType: entities.EntityType(strings.TrimSpace(payload.EntityType)),
		EntityID:   strings.TrimSpace(payload.EntityID),
		AuthorID:   strings.TrimSpace(payload.AuthorID),
		CreatedAt:  event.OccurredAt.UTC(),
	}
	if err := c.Projections.SaveProjection(ctx, projection); err != nil {
		logger.Error("board content projection save failed",
			"event", "engagement_board_consumer_projection_failed",
			"module", "community-engagement/voting-service",
			"layer", "worker",
			"event_id", event.EventID,
			"entity_type", string(projection.EntityType),
			"entity_id", projection.EntityID,
			"error", err.Error(),
		)
		return err
	}

	logger.Info("board content event consumed",
		"event", "engagement_board_consumer_consumed",
		"module", "community-engagement/voting-service",
		"layer", "worker",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"entity_type", string(projection.EntityType),
		"entity_id", projection.EntityID,
	)
	return nil
}

func (c BoardContentConsumer) reserveEvent(ctx context.Context, event ports.EventEnvelope) (bool, error) {
	// ReserveEvent is used as dedupe gate for at-least-once delivery semantics.
	logger := application.ResolveLogger(c.Logger)
	alreadyProcessed, err := c.Dedup.ReserveEvent(ctx, event.EventID, hashPayload(event.Data), c.now().Add(c.dedupTTL()))
	if err != nil {
		logger.Error("board content event dedupe failed",
			"event", "engagement_board_consumer_dedupe_failed",
			"module", "community-engagement/voting-service",
			"layer", "worker",
			"event_id", event.EventID,
			"event_type", event.EventType,
			"error", err.Error(),
		)
		return false, err
	}
	return alreadyProcessed, nil
}

func (c BoardContentConsumer) now() time.Time {
	now := time.Now().UTC()
	if c.Clock != nil {
		now = c.Clock.Now().UTC()
	}
	return now
}

func (c BoardContentConsumer) dedupTTL() time.Duration {
	if c.DedupTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return c.DedupTTL
}
