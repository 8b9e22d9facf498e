package entities

import "time"

// Status is the review lifecycle dimension.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusScheduled, StatusPublished, StatusArchived:
		return true
	default:
		return false
	}
}

// ReviewStatus is the editorial dimension. The two dimensions together
// determine which workflow actions are legal.
type ReviewStatus string

const (
	ReviewStatusDraft            ReviewStatus = "draft"
	ReviewStatusUnderReview      ReviewStatus = "under_review"
	ReviewStatusApproved         ReviewStatus = "approved"
	ReviewStatusRejected         ReviewStatus = "rejected"
	ReviewStatusChangesRequested ReviewStatus = "changes_requested"
	ReviewStatusScheduled        ReviewStatus = "scheduled"
)

func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewStatusDraft, ReviewStatusUnderReview, ReviewStatusApproved,
		ReviewStatusRejected, ReviewStatusChangesRequested, ReviewStatusScheduled:
		return true
	default:
		return false
	}
}

// Review is the publishable content unit. Timestamps other than
// CreatedAt/UpdatedAt are set by workflow transitions, never directly.
type Review struct {
	ReviewID           string
	Title              string
	Body               string
	AuthorID           string
	ReviewerID         string
	Status             Status
	ReviewStatus       ReviewStatus
	ScheduledPublishAt *time.Time
	PublishedAt        *time.Time
	ReviewedAt         *time.Time
	PublicationNotes   string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Editable reports whether the author may still change title and body.
func (r Review) Editable() bool {
	if r.Status != StatusDraft {
		return false
	}
	return r.ReviewStatus == ReviewStatusDraft || r.ReviewStatus == ReviewStatusChangesRequested
}

// PublicationAudit records one applied workflow transition.
type PublicationAudit struct {
	AuditID         string
	ReviewID        string
	Action          string
	ActorID         string
	ActorRole       string
	Notes           string
	OldStatus       string
	NewStatus       string
	OldReviewStatus string
	NewReviewStatus string
	CreatedAt       time.Time
}
