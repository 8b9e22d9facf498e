package entities

import "time"

// Wire identifiers for the votable entity shapes this module publishes.
const (
	EntityTypeSuggestion    = "suggestion"
	EntityTypeCommunityPost = "community_post"
	EntityTypePoll          = "poll"
)

// Suggestion is a lightweight community idea that supports upvote/retract.
type Suggestion struct {
	SuggestionID string
	Title        string
	Body         string
	AuthorID     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CommunityPost is a discussion entry with up and down votes.
type CommunityPost struct {
	PostID    string
	Title     string
	Body      string
	AuthorID  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Poll is a question with a fixed option list. Votes on the poll itself use
// the shared up/down mechanics; option tallies are out of scope here.
type Poll struct {
	PollID    string
	Question  string
	Options   []string
	AuthorID  string
	ClosesAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
