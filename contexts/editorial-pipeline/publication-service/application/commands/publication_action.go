package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	application "pressroom/contexts/editorial-pipeline/publication-service/application"
	"pressroom/contexts/editorial-pipeline/publication-service/domain/entities"
	domainerrors "pressroom/contexts/editorial-pipeline/publication-service/domain/errors"
	"pressroom/contexts/editorial-pipeline/publication-service/ports"
)

// PublicationActionCommand is the consolidated transition request. Action
// is parsed against the closed vocabulary before any state is read.
type PublicationActionCommand struct {
	ActorID        string
	ActorRole      string
	IdempotencyKey string
	ReviewID       string
	Action         string
	ScheduledDate  *time.Time
	Notes          string
	ReviewerID     string
}

type PublicationActionResult struct {
	Review   entities.Review
	Message  string
	Replayed bool
}

// ExecuteAction authorizes the caller, validates the action against the
// persisted review state, and applies status, timestamp, audit, and event
// effects atomically.
func (uc ReviewUseCase) ExecuteAction(ctx context.Context, cmd PublicationActionCommand) (PublicationActionResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("publication action processing started",
		"event", "publication_action_started",
		"module", "editorial-pipeline/publication-service",
		"layer", "application",
		"review_id", strings.TrimSpace(cmd.ReviewID),
		"action", strings.TrimSpace(cmd.Action),
		"actor_id", strings.TrimSpace(cmd.ActorID),
		"actor_role", strings.TrimSpace(cmd.ActorRole),
	)

	if strings.TrimSpace(cmd.ReviewID) == "" || strings.TrimSpace(cmd.ActorID) == "" {
		return PublicationActionResult{}, domainerrors.ErrInvalidReviewInput
	}
	action, ok := entities.ParseWorkflowAction(strings.TrimSpace(cmd.Action))
	if !ok {
		logger.Warn("publication action unknown",
			"event", "publication_action_unknown",
			"module", "editorial-pipeline/publication-service",
			"layer", "application",
			"review_id", strings.TrimSpace(cmd.ReviewID),
			"action", strings.TrimSpace(cmd.Action),
		)
		return PublicationActionResult{}, domainerrors.ErrInvalidAction
	}

	now := uc.now()
	requestHash := hashPublicationActionCommand(cmd)
	idempotencyKey := strings.TrimSpace(cmd.IdempotencyKey)
	if idempotencyKey != "" && uc.Idempotency != nil {
		record, found, err := uc.Idempotency.Get(ctx, idempotencyKey, now)
		if err != nil {
			logger.Error("publication action idempotency lookup failed",
				"event", "publication_action_idempotency_lookup_failed",
				"module", "editorial-pipeline/publication-service",
				"layer", "application",
				"review_id", strings.TrimSpace(cmd.ReviewID),
				"error", err.Error(),
			)
			return PublicationActionResult{}, err
		}
		if found {
			if record.RequestHash != requestHash {
				logger.Warn("publication action idempotency conflict",
					"event", "publication_action_idempotency_conflict",
					"module", "editorial-pipeline/publication-service",
					"layer", "application",
					"review_id", strings.TrimSpace(cmd.ReviewID),
				)
				return PublicationActionResult{}, domainerrors.ErrIdempotencyConflict
			}
			review, err := uc.Reviews.GetReview(ctx, record.ReviewID)
			if err != nil {
				return PublicationActionResult{}, err
			}
			logger.Info("publication action replayed",
				"event", "publication_action_replayed",
				"module", "editorial-pipeline/publication-service",
				"layer", "application",
				"review_id", record.ReviewID,
				"action", record.Action,
			)
			return PublicationActionResult{
				Review:   review,
				Message:  actionMessage(entities.WorkflowAction(record.Action)),
				Replayed: true,
			}, nil
		}
	}

	review, err := uc.Reviews.GetReview(ctx, strings.TrimSpace(cmd.ReviewID))
	if err != nil {
		return PublicationActionResult{}, err
	}

	if err := authorizeAction(action, cmd, review); err != nil {
		logger.Warn("publication action forbidden",
			"event", "publication_action_forbidden",
			"module", "editorial-pipeline/publication-service",
			"layer", "application",
			"review_id", review.ReviewID,
			"action", string(action),
			"actor_id", strings.TrimSpace(cmd.ActorID),
			"actor_role", strings.TrimSpace(cmd.ActorRole),
		)
		return PublicationActionResult{}, err
	}

	transitioned, err := entities.ApplyAction(review, action, entities.TransitionInput{
		ReviewerID:    strings.TrimSpace(cmd.ReviewerID),
		Notes:         strings.TrimSpace(cmd.Notes),
		ScheduledDate: cmd.ScheduledDate,
		Now:           now,
	})
	if err != nil {
		logger.Warn("publication action rejected",
			"event", "publication_action_rejected",
			"module", "editorial-pipeline/publication-service",
			"layer", "application",
			"review_id", review.ReviewID,
			"action", string(action),
			"status", string(review.Status),
			"review_status", string(review.ReviewStatus),
			"error", err.Error(),
		)
		return PublicationActionResult{}, err
	}

	auditID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return PublicationActionResult{}, err
	}
	audit := entities.PublicationAudit{
		AuditID:         auditID,
		ReviewID:        review.ReviewID,
		Action:          string(action),
		ActorID:         strings.TrimSpace(cmd.ActorID),
		ActorRole:       strings.TrimSpace(cmd.ActorRole),
		Notes:           strings.TrimSpace(cmd.Notes),
		OldStatus:       string(review.Status),
		NewStatus:       string(transitioned.Status),
		OldReviewStatus: string(review.ReviewStatus),
		NewReviewStatus: string(transitioned.ReviewStatus),
		CreatedAt:       now,
	}

	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return PublicationActionResult{}, err
	}
	envelope, err := newPublicationEnvelope(eventID, "review.transitioned", review.ReviewID, now, map[string]any{
		"review_id":         review.ReviewID,
		"action":            string(action),
		"actor_id":          strings.TrimSpace(cmd.ActorID),
		"old_status":        string(review.Status),
		"new_status":        string(transitioned.Status),
		"old_review_status": string(review.ReviewStatus),
		"new_review_status": string(transitioned.ReviewStatus),
		"occurred_at":       now.Format(time.RFC3339),
	})
	if err != nil {
		return PublicationActionResult{}, err
	}

	if err := uc.Reviews.ApplyTransition(ctx, transitioned, audit, envelope); err != nil {
		logger.Error("publication action persistence failed",
			"event", "publication_action_persist_failed",
			"module", "editorial-pipeline/publication-service",
			"layer", "application",
			"review_id", review.ReviewID,
			"action", string(action),
			"error", err.Error(),
		)
		return PublicationActionResult{}, err
	}

	if idempotencyKey != "" && uc.Idempotency != nil {
		if err := uc.Idempotency.Put(ctx, ports.IdempotencyRecord{
			Key:         idempotencyKey,
			RequestHash: requestHash,
			ReviewID:    review.ReviewID,
			Action:      string(action),
			ExpiresAt:   now.Add(uc.resolveIdempotencyTTL()),
		}); err != nil {
			return PublicationActionResult{}, err
		}
	}

	logger.Info("publication action applied",
		"event", "publication_action_applied",
		"module", "editorial-pipeline/publication-service",
		"layer", "application",
		"review_id", review.ReviewID,
		"action", string(action),
		"old_status", string(review.Status),
		"new_status", string(transitioned.Status),
		"old_review_status", string(review.ReviewStatus),
		"new_review_status", string(transitioned.ReviewStatus),
	)
	return PublicationActionResult{
		Review:  transitioned,
		Message: actionMessage(action),
	}, nil
}

// authorizeAction enforces the role matrix: authors submit their own work,
// reviewers decide on it, admins run the publication lifecycle. The system
// role drives scheduled publishing from the worker.
func authorizeAction(action entities.WorkflowAction, cmd PublicationActionCommand, review entities.Review) error {
	role := strings.TrimSpace(cmd.ActorRole)
	actorID := strings.TrimSpace(cmd.ActorID)
	if role == RoleAdmin {
		return nil
	}

	switch action {
	case entities.ActionSubmitForReview:
		if role == RoleAuthor && review.AuthorID == actorID {
			return nil
		}
	case entities.ActionApprove, entities.ActionReject, entities.ActionRequestChanges:
		if role == RoleReviewer {
			return nil
		}
	case entities.ActionPublishNow:
		if role == RoleSystem {
			return nil
		}
	}
	return domainerrors.ErrForbidden
}

func actionMessage(action entities.WorkflowAction) string {
	switch action {
	case entities.ActionSubmitForReview:
		return "review submitted for review"
	case entities.ActionApprove:
		return "review approved"
	case entities.ActionReject:
		return "review rejected"
	case entities.ActionRequestChanges:
		return "changes requested"
	case entities.ActionSchedule:
		return "review scheduled"
	case entities.ActionPublishNow:
		return "review published"
	case entities.ActionUnpublish:
		return "review unpublished"
	case entities.ActionArchive:
		return "review archived"
	default:
		return "action applied"
	}
}

func hashPublicationActionCommand(cmd PublicationActionCommand) string {
	scheduled := ""
	if cmd.ScheduledDate != nil {
		scheduled = cmd.ScheduledDate.UTC().Format(time.RFC3339)
	}
	payload, _ := json.Marshal(map[string]string{
		"op":             "publication_action",
		"actor_id":       strings.TrimSpace(cmd.ActorID),
		"review_id":      strings.TrimSpace(cmd.ReviewID),
		"action":         strings.TrimSpace(cmd.Action),
		"notes":          strings.TrimSpace(cmd.Notes),
		"scheduled_date": scheduled,
		"reviewer_id":    strings.TrimSpace(cmd.ReviewerID),
	})
	digest := sha256.Sum256(payload)
	return hex.EncodeToString(digest[:])
}
