package entities

import (
	"time"

	domainerrors "pressroom/contexts/editorial-pipeline/publication-service/domain/errors"
)

// WorkflowAction is the closed vocabulary accepted by the publication
// action endpoint. Unknown strings never reach transition logic.
type WorkflowAction string

const (
	ActionSubmitForReview WorkflowAction = "submit_for_review"
	ActionApprove         WorkflowAction = "approve"
	ActionReject          WorkflowAction = "reject"
	ActionRequestChanges  WorkflowAction = "request_changes"
	ActionSchedule        WorkflowAction = "schedule"
	ActionPublishNow      WorkflowAction = "publish_now"
	ActionUnpublish       WorkflowAction = "unpublish"
	ActionArchive         WorkflowAction = "archive"
)

func ParseWorkflowAction(raw string) (WorkflowAction, bool) {
	action := WorkflowAction(raw)
	switch action {
	case ActionSubmitForReview, ActionApprove, ActionReject, ActionRequestChanges,
		ActionSchedule, ActionPublishNow, ActionUnpublish, ActionArchive:
		return action, true
	default:
		return "", false
	}
}

// LegalActions is the advertised action set for a review's current state.
// The transition matrix in ApplyAction accepts a slightly wider set
// (resubmission after requested changes, reviewer change requests); what is
// advertised here is the stable client-facing table.
func LegalActions(review Review) []WorkflowAction {
	if review.Status == StatusArchived {
		return []WorkflowAction{}
	}
	if review.Status == StatusPublished {
		return []WorkflowAction{ActionUnpublish, ActionArchive}
	}
	actions := make([]WorkflowAction, 0, 3)
	switch review.ReviewStatus {
	case ReviewStatusDraft:
		actions = append(actions, ActionSubmitForReview)
	case ReviewStatusUnderReview:
		actions = append(actions, ActionApprove, ActionReject)
	case ReviewStatusApproved:
		actions = append(actions, ActionSchedule)
	case ReviewStatusScheduled:
		actions = append(actions, ActionPublishNow, ActionSchedule)
	}
	return append(actions, ActionArchive)
}

// TransitionInput carries the caller-supplied fields a transition may
// consume. Now is the transition timestamp.
type TransitionInput struct {
	ReviewerID    string
	Notes         string
	ScheduledDate *time.Time
	Now           time.Time
}

// ApplyAction validates the action against the review's persisted state and
// returns the transitioned review. The receiver value is never mutated.
func ApplyAction(review Review, action WorkflowAction, in TransitionInput) (Review, error) {
	now := in.Now.UTC()

	switch action {
	case ActionSubmitForReview:
		if review.Status != StatusDraft {
			return Review{}, domainerrors.ErrInvalidTransition
		}
		if review.ReviewStatus != ReviewStatusDraft && review.ReviewStatus != ReviewStatusChangesRequested {
			return Review{}, domainerrors.ErrInvalidTransition
		}
		review.ReviewStatus = ReviewStatusUnderReview
		if in.ReviewerID != "" {
			review.ReviewerID = in.ReviewerID
		}

	case ActionApprove:
		if review.Status != StatusDraft || review.ReviewStatus != ReviewStatusUnderReview {
			return Review{}, domainerrors.ErrInvalidTransition
		}
		if in.Notes == "" {
			return Review{}, domainerrors.ErrNotesRequired
		}
		review.ReviewStatus = ReviewStatusApproved
		review.ReviewedAt = &now
		review.PublicationNotes = in.Notes

	case ActionReject:
		if review.Status != StatusDraft || review.ReviewStatus != ReviewStatusUnderReview {
			return Review{}, domainerrors.ErrInvalidTransition
		}
		if in.Notes == "" {
			return Review{}, domainerrors.ErrNotesRequired
		}
		review.ReviewStatus = ReviewStatusRejected
		review.ReviewedAt = &now
		review.PublicationNotes = in.Notes

	case ActionRequestChanges:
		if review.Status != StatusDraft || review.ReviewStatus != ReviewStatusUnderReview {
			return Review{}, domainerrors.ErrInvalidTransition
		}
		review.ReviewStatus = ReviewStatusChangesRequested
		review.ReviewedAt = &now
		if in.Notes != "" {
			review.PublicationNotes = in.Notes
		}

	case ActionSchedule:
		if review.Status != StatusDraft && review.Status != StatusScheduled {
			return Review{}, domainerrors.ErrInvalidTransition
		}
		if review.ReviewStatus != ReviewStatusApproved && review.ReviewStatus != ReviewStatusScheduled {
			return Review{}, domainerrors.ErrInvalidTransition
		}
		if in.ScheduledDate == nil || !in.ScheduledDate.UTC().After(now) {
			return Review{}, domainerrors.ErrInvalidScheduleDate
		}
		scheduledAt := in.ScheduledDate.UTC()
		review.Status = StatusScheduled
		review.ReviewStatus = ReviewStatusScheduled
		review.ScheduledPublishAt = &scheduledAt

	case ActionPublishNow:
		if review.Status == StatusArchived || review.Status == StatusPublished {
			return Review{}, domainerrors.ErrInvalidTransition
		}
		if review.Status != StatusScheduled && review.ReviewStatus != ReviewStatusApproved {
			return Review{}, domainerrors.ErrInvalidTransition
		}
		review.Status = StatusPublished
		review.PublishedAt = &now
		review.ScheduledPublishAt = nil

	case ActionUnpublish:
		if review.Status != StatusPublished {
			return Review{}, domainerrors.ErrInvalidTransition
		}
		review.Status = StatusDraft
		review.ReviewStatus = ReviewStatusApproved

	case ActionArchive:
		if review.Status == StatusArchived {
			return Review{}, domainerrors.ErrInvalidTransition
		}
		review.Status = StatusArchived

	default:
		return Review{}, domainerrors.ErrInvalidAction
	}

	review.UpdatedAt = now
	return review, nil
}
