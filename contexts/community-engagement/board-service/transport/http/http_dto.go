package http

import "time"

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the wire error envelope: {"error": {"code", "message"}}.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type CreateSuggestionRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type CreatePostRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type CreatePollRequest struct {
	Question string     `json:"question"`
	Options  []string   `json:"options"`
	ClosesAt *time.Time `json:"closes_at,omitempty"`
}

// SuggestionResponse is the suggestion read model. Suggestions have no
// downvote dimension, so the vote state is a single boolean.
type SuggestionResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	AuthorID     string    `json:"author_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Upvotes      int       `json:"upvotes"`
	UserHasVoted bool      `json:"user_has_voted"`
}

// CommunityPostResponse carries both counters plus the caller's stance.
// user_vote is "up", "down", or null when the caller has no vote.
type CommunityPostResponse struct {
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

type PollResponse struct {
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

// Page responses wrap the paginated region; plain list endpoints return a
// bare JSON array instead.
type SuggestionPageResponse struct {
	Items  []SuggestionResponse `json:"items"`
	Total  int                  `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

type CommunityPostPageResponse struct {
	Items  []CommunityPostResponse `json:"items"`
	Total  int                     `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
}

type PollPageResponse struct {
	Items  []PollResponse `json:"items"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}
