package entities

import "time"

type VoteType string

const (
	VoteTypeUp   VoteType = "up"
	VoteTypeDown VoteType = "down"
	VoteTypeNone VoteType = "none"
)

func (t VoteType) Valid() bool {
	switch t {
	case VoteTypeUp, VoteTypeDown, VoteTypeNone:
		return true
	default:
		return false
	}
}

type EntityType string

const (
	EntityTypeSuggestion    EntityType = "suggestion"
	EntityTypeCommunityPost EntityType = "community_post"
	EntityTypePoll          EntityType = "poll"
)

func (t EntityType) Valid() bool {
	switch t {
	case EntityTypeSuggestion, EntityTypeCommunityPost, EntityTypePoll:
		return true
	default:
		return false
	}
}

// AllowsDownvotes reports whether the entity shape carries a downvote
// counter. Suggestions only support upvote/retract.
func (t EntityType) AllowsDownvotes() bool {
	return t == EntityTypeCommunityPost || t == EntityTypePoll
}

// Vote is one user's current stance on a votable entity. Retraction is
// modelled as row absence, so persisted votes are always up or down.
type Vote struct {
	VoteID     string
	EntityType EntityType
	EntityID   string
	UserID     string
	VoteType   VoteType
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// VoteSummary is the aggregate counter pair maintained alongside vote rows.
type VoteSummary struct {
	EntityType EntityType
	EntityID   string
	Upvotes    int
	Downvotes  int
	UpdatedAt  time.Time
}

// Apply moves the summary from one per-user vote state to the next.
// Counters never drop below zero even if the stored summary drifted.
func (s VoteSummary) Apply(previous VoteType, next VoteType) VoteSummary {
	if previous == next {
		return s
	}
	switch previous {
	case VoteTypeUp:
		s.Upvotes--
	case VoteTypeDown:
		s.Downvotes--
	}
	switch next {
	case VoteTypeUp:
		s.Upvotes++
	case VoteTypeDown:
		s.Downvotes++
	}
	if s.Upvotes < 0 {
		s.Upvotes = 0
	}
	if s.Downvotes < 0 {
		s.Downvotes = 0
	}
	return s
}
