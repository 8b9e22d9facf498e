package ports

import (
	"context"
	"time"

	"pressroom/contexts/community-engagement/voting-service/domain/entities"
	contractsv1 "pressroom/contracts/gen/events/v1"
)

// VoteRepository owns vote rows and the per-entity counter summaries.
type VoteRepository interface {
	// GetVoteByIdentity returns the caller's current vote on an entity, if any.
	GetVoteByIdentity(ctx context.Context, entityType entities.EntityType, entityID string, userID string) (entities.Vote, bool, error)
	// ApplyVote must atomically upsert (or, for a none vote, delete) the vote
	// row and adjust the summary counters, returning the summary after the
	// change.
	ApplyVote(ctx context.Context, vote entities.Vote, previous entities.VoteType) (entities.VoteSummary, error)
	GetSummary(ctx context.Context, entityType entities.EntityType, entityID string) (entities.VoteSummary, error)
}

// VotableProjection is the locally-owned view of a votable entity published
// by the board service. Votes are only accepted for projected entities.
type VotableProjection struct {
	EntityType entities.EntityType
	EntityID   string
	AuthorID   string
	CreatedAt  time.Time
}

type ProjectionRepository interface {
	GetProjection(ctx context.Context, entityType entities.EntityType, entityID string) (VotableProjection, bool, error)
	SaveProjection(ctx context.Context, projection VotableProjection) error
}

// IdempotencyRecord captures dedupe metadata for mutating requests.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	EntityType  entities.EntityType
	EntityID    string
	VoteType    entities.VoteType
	ExpiresAt   time.Time
}

// IdempotencyStore abstracts idempotency persistence with TTL handling.
type IdempotencyStore interface {
	Get(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	Put(ctx context.Context, record IdempotencyRecord) error
}

// Clock allows deterministic testing of TTL/expiry rules.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts vote/event identifier generation.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// OutboxWriter appends integration events for the relay to publish.
type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

// OutboxMessage is a row ready to relay from the module outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// EventDedupStore provides idempotent processing guarantees for consumed events.
type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}

// EventEnvelope reuses the canonical cross-runtime envelope contract.
type EventEnvelope = contractsv1.Envelope

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// EventSubscriber registers a topic consumer callback.
type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}
