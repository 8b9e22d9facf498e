package ports

import (
	"context"
	"time"

	"pressroom/contexts/editorial-pipeline/publication-service/domain/entities"
	contractsv1 "pressroom/contracts/gen/events/v1"
)

// ReviewFilter narrows the content queue. Zero-value fields are ignored;
// Search matches review titles.
type ReviewFilter struct {
	Status       string
	ReviewStatus string
	Search       string
	AuthorID     string
	ReviewerID   string
	Limit        int
	Offset       int
}

// ReviewRepository owns reviews, their transition audits, and the module
// outbox. Creates and transitions write their event in the same
// transaction as the row mutation.
type ReviewRepository interface {
	// CreateReview inserts the review and its created event atomically.
	CreateReview(ctx context.Context, review entities.Review, envelope EventEnvelope) error

	// UpdateReviewContent persists author edits to title and body.
	UpdateReviewContent(ctx context.Context, review entities.Review) error

	GetReview(ctx context.Context, reviewID string) (entities.Review, error)
	ListReviews(ctx context.Context, filter ReviewFilter) ([]entities.Review, int, error)

	// ListDueScheduled returns scheduled reviews whose publish time has
	// passed, oldest first.
	ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]entities.Review, error)

	// ApplyTransition persists the transitioned review, its audit row, and
	// the transition event atomically. It fails with a conflict when the
	// persisted state no longer matches the audit's old status fields.
	ApplyTransition(ctx context.Context, review entities.Review, audit entities.PublicationAudit, envelope EventEnvelope) error

	ListAudits(ctx context.Context, reviewID string) ([]entities.PublicationAudit, error)
}

// IdempotencyRecord pins one processed publication action to its request
// hash so replays return the recorded outcome.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	ReviewID    string
	Action      string
	ExpiresAt   time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	Put(ctx context.Context, record IdempotencyRecord) error
}

// Clock allows deterministic testing of transition timestamps.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts review/audit/event identifier generation.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
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

// EventEnvelope reuses the canonical cross-runtime envelope contract.
type EventEnvelope = contractsv1.Envelope

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
