package ports

import (
	"context"
	"time"

	"pressroom/contexts/community-engagement/board-service/domain/entities"
	contractsv1 "pressroom/contracts/gen/events/v1"
)

// BoardRepository owns the three votable content catalogs.
type BoardRepository interface {
	SaveSuggestion(ctx context.Context, suggestion entities.Suggestion) error
	GetSuggestion(ctx context.Context, suggestionID string) (entities.Suggestion, error)
	ListSuggestions(ctx context.Context) ([]entities.Suggestion, error)
	ListSuggestionsPage(ctx context.Context, limit int, offset int) ([]entities.Suggestion, int, error)

	SavePost(ctx context.Context, post entities.CommunityPost) error
	GetPost(ctx context.Context, postID string) (entities.CommunityPost, error)
	ListPosts(ctx context.Context) ([]entities.CommunityPost, error)
	ListPostsPage(ctx context.Context, limit int, offset int) ([]entities.CommunityPost, int, error)

	SavePoll(ctx context.Context, poll entities.Poll) error
	GetPoll(ctx context.Context, pollID string) (entities.Poll, error)
	ListPolls(ctx context.Context) ([]entities.Poll, error)
	ListPollsPage(ctx context.Context, limit int, offset int) ([]entities.Poll, int, error)
}

// VoteState is the voting context's view of one entity as read by this
// module. UserVote is "up", "down", or empty when the caller has no vote.
type VoteState struct {
	Upvotes   int
	Downvotes int
	UserVote  string
}

// VoteStateReader resolves vote counters and the caller's stance for a set
// of entities of one shape. Missing entities map to the zero VoteState.
type VoteStateReader interface {
	GetVoteStates(ctx context.Context, entityType string, entityIDs []string, userID string) (map[string]VoteState, error)
}

// Clock allows deterministic testing of timestamps.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts content/event identifier generation.
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

// EventEnvelope reuses the canonical cross-runtime envelope contract.
type EventEnvelope = contractsv1.Envelope

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
