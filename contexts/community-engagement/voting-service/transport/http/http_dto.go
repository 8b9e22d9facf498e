package http

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the wire error envelope: {"error": {"code", "message"}}.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type CastVoteRequest struct {
	EntityID   string `json:"entity_id"`
	VoteType   string `json:"vote_type"`
	EntityType string `json:"entity_type"`
}

// VoteRecordResponse carries the updated counters and the caller's vote
// state. user_has_voted is set for suggestions; user_vote for posts/polls.
type VoteRecordResponse struct {
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

type EntityVotesResponse struct {
	EntityType   string  `json:"entity_type"`
	EntityID     string  `json:"entity_id"`
	Upvotes      int     `json:"upvotes"`
	Downvotes    int     `json:"downvotes"`
	UserHasVoted *bool   `json:"user_has_voted,omitempty"`
	UserVote     *string `json:"user_vote,omitempty"`
}
