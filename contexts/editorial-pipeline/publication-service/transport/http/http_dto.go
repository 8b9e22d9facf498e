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

type CreateReviewRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type UpdateReviewRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// PublicationActionRequest is the consolidated transition request body.
type PublicationActionRequest struct {
	ReviewID      string     `json:"review_id"`
	Action        string     `json:"action"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	ReviewerID    string     `json:"reviewer_id,omitempty"`
}

// ReviewResponse carries both status dimensions plus the actions currently
// legal for the review, so clients never derive the table themselves.
type ReviewResponse struct {
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

type PublicationActionResponse struct {
	Success bool           `json:"success"`
	Review  ReviewResponse `json:"review"`
	Message string         `json:"message"`
}

type ReviewQueueResponse struct {
	Items  []ReviewResponse `json:"items"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

type AuditResponse struct {
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
