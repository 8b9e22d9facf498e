package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "pressroom/contexts/editorial-pipeline/publication-service/application"
	"pressroom/contexts/editorial-pipeline/publication-service/domain/entities"
	domainerrors "pressroom/contexts/editorial-pipeline/publication-service/domain/errors"
	"pressroom/contexts/editorial-pipeline/publication-service/ports"
)

// Actor roles as carried on requests. Values match the platform identity
// roles; "system" marks worker-driven transitions.
const (
	RoleAuthor   = "author"
	RoleReviewer = "reviewer"
	RoleAdmin    = "admin"
	RoleSystem   = "system"
)

type CreateReviewCommand struct {
	AuthorID string
	Title    string
	Body     string
}

type UpdateReviewCommand struct {
	ReviewID  string
	ActorID   string
	ActorRole string
	Title     string
	Body      string
}

// ReviewUseCase is the write model for reviews: draft creation, author
// edits, and the consolidated workflow action endpoint.
type ReviewUseCase struct {
	Reviews        ports.ReviewRepository
	Idempotency    ports.IdempotencyStore
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// CreateReview opens a new draft in both dimensions.
func (uc ReviewUseCase) CreateReview(ctx context.Context, cmd CreateReviewCommand) (entities.Review, error) {
	logger := application.ResolveLogger(uc.Logger)
	if strings.TrimSpace(cmd.AuthorID) == "" ||
		strings.TrimSpace(cmd.Title) == "" ||
		strings.TrimSpace(cmd.Body) == "" {
		logger.Warn("review create validation failed",
			"event", "publication_review_create_validation_failed",
			"module", "editorial-pipeline/publication-service",
			"layer", "application",
			"author_id", strings.TrimSpace(cmd.AuthorID),
		)
		return entities.Review{}, domainerrors.ErrInvalidReviewInput
	}

	now := uc.now()
	reviewID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Review{}, err
	}
	review := entities.Review{
		ReviewID:     reviewID,
		Title:        strings.TrimSpace(cmd.Title),
		Body:         strings.TrimSpace(cmd.Body),
		AuthorID:     strings.TrimSpace(cmd.AuthorID),
		Status:       entities.StatusDraft,
		ReviewStatus: entities.ReviewStatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Review{}, err
	}
	envelope, err := newPublicationEnvelope(eventID, "review.created", review.ReviewID, now, map[string]any{
		"review_id":   review.ReviewID,
		"author_id":   review.AuthorID,
		"title":       review.Title,
		"occurred_at": now.Format(time.RFC3339),
	})
	if err != nil {
		return entities.Review{}, err
	}
	if err := uc.Reviews.CreateReview(ctx, review, envelope); err != nil {
		return entities.Review{}, err
	}

	logger.Info("review created",
		"event", "publication_review_created",
		"module", "editorial-pipeline/publication-service",
		"layer", "application",
		"review_id", review.ReviewID,
		"author_id", review.AuthorID,
	)
	return review, nil
}

// UpdateReview applies author edits while the review is still editable.
func (uc ReviewUseCase) UpdateReview(ctx context.Context, cmd UpdateReviewCommand) (entities.Review, error) {
	logger := application.ResolveLogger(uc.Logger)
	if strings.TrimSpace(cmd.ReviewID) == "" ||
		strings.TrimSpace(cmd.Title) == "" ||
		strings.TrimSpace(cmd.Body) == "" {
		return entities.Review{}, domainerrors.ErrInvalidReviewInput
	}

	review, err := uc.Reviews.GetReview(ctx, strings.TrimSpace(cmd.ReviewID))
	if err != nil {
		return entities.Review{}, err
	}
	if cmd.ActorRole != RoleAdmin && review.AuthorID != strings.TrimSpace(cmd.ActorID) {
		logger.Warn("review edit forbidden",
			"event", "publication_review_update_forbidden",
			"module", "editorial-pipeline/publication-service",
			"layer", "application",
			"review_id", review.ReviewID,
			"actor_id", strings.TrimSpace(cmd.ActorID),
		)
		return entities.Review{}, domainerrors.ErrForbidden
	}
	if !review.Editable() {
		return entities.Review{}, domainerrors.ErrNotEditable
	}

	review.Title = strings.TrimSpace(cmd.Title)
	review.Body = strings.TrimSpace(cmd.Body)
	review.UpdatedAt = uc.now()
	if err := uc.Reviews.UpdateReviewContent(ctx, review); err != nil {
		return entities.Review{}, err
	}

	logger.Info("review content updated",
		"event", "publication_review_updated",
		"module", "editorial-pipeline/publication-service",
		"layer", "application",
		"review_id", review.ReviewID,
		"actor_id", strings.TrimSpace(cmd.ActorID),
	)
	return review, nil
}

func (uc ReviewUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func (uc ReviewUseCase) resolveIdempotencyTTL() time.Duration {
	if uc.IdempotencyTTL > 0 {
		return uc.IdempotencyTTL
	}
	return 7 * 24 * time.Hour
}
