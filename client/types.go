package client

import "time"

// Suggestion is the suggestion read model. Vote state is a single boolean
// because suggestions have no downvote dimension.
type Suggestion struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	AuthorID     string    `json:"author_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Upvotes      int       `json:"upvotes"`
	UserHasVoted bool      `json:"user_has_voted"`
}

// CommunityPost carries both counters plus the caller's stance. UserVote is
// "up", "down", or nil when the caller has no vote.
type CommunityPost struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
	UserVote  *string   `json:"user_vote"`
}

type Poll struct {
	ID        string     `json:"id"`
	Question  string     `json:"question"`
	Options   []string   `json:"options"`
	AuthorID  string     `json:"author_id"`
	ClosesAt  *time.Time `json:"closes_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Upvotes   int        `json:"upvotes"`
	Downvotes int        `json:"downvotes"`
	UserVote  *string    `json:"user_vote"`
}

type SuggestionPage struct {
	Items  []Suggestion `json:"items"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

type CommunityPostPage struct {
	Items  []CommunityPost `json:"items"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type PollPage struct {
	Items  []Poll `json:"items"`
	Total  int    `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// VoteRecord is the authoritative vote state returned by the cast endpoint.
type VoteRecord struct {
	EntityType   string  `json:"entity_type"`
	EntityID     string  `json:"entity_id"`
	UserID       string  `json:"user_id"`
	VoteType     string  `json:"vote_type"`
	Upvotes      int     `json:"upvotes"`
	Downvotes    int     `json:"downvotes"`
	UserHasVoted *bool   `json:"user_has_voted,omitempty"`
	UserVote     *string `json:"user_vote,omitempty"`
	Replayed     bool    `json:"replayed"`
}

// Review mirrors the publication read model, including the actions legal
// from its current state.
type Review struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Body               string     `json:"body"`
	AuthorID           string     `json:"author_id"`
	ReviewerID         string     `json:"reviewer_id,omitempty"`
	Status             string     `json:"status"`
	ReviewStatus       string     `json:"review_status"`
	ScheduledPublishAt *time.Time `json:"scheduled_publish_at,omitempty"`
	PublishedAt        *time.Time `json:"published_at,omitempty"`
	ReviewedAt         *time.Time `json:"reviewed_at,omitempty"`
	PublicationNotes   string     `json:"publication_notes,omitempty"`
	AvailableActions   []string   `json:"available_actions"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type ReviewQueue struct {
	Items  []Review `json:"items"`
	Total  int      `json:"total"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
}

// PublicationResult is the consolidated action endpoint's response.
type PublicationResult struct {
	Success bool   `json:"success"`
	Review  Review `json:"review"`
	Message string `json:"message"`
}

// ReviewAudit is one recorded workflow transition.
type ReviewAudit struct {
	Action          string    `json:"action"`
	ActorID         string    `json:"actor_id"`
	ActorRole       string    `json:"actor_role"`
	Notes           string    `json:"notes,omitempty"`
	OldStatus       string    `json:"old_status"`
	NewStatus       string    `json:"new_status"`
	OldReviewStatus string    `json:"old_review_status"`
	NewReviewStatus string    `json:"new_review_status"`
	CreatedAt       time.Time `json:"created_at"`
}

// EntityVotes is the authoritative counter read for one entity.
type EntityVotes struct {
	EntityType   string  `json:"entity_type"`
	EntityID     string  `json:"entity_id"`
	Upvotes      int     `json:"upvotes"`
	Downvotes    int     `json:"downvotes"`
	UserHasVoted *bool   `json:"user_has_voted,omitempty"`
	UserVote     *string `json:"user_vote,omitempty"`
}
