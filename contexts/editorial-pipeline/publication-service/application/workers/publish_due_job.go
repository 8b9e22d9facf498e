package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	application "pressroom/contexts/editorial-pipeline/publication-service/application"
	"pressroom/contexts/editorial-pipeline/publication-service/application/commands"
	"pressroom/contexts/editorial-pipeline/publication-service/domain/entities"
	domainerrors "pressroom/contexts/editorial-pipeline/publication-service/domain/errors"
	"pressroom/contexts/editorial-pipeline/publication-service/ports"
)

// PublishDueJob publishes scheduled reviews whose publish time has passed,
// applying the same transition the publish_now action performs.
type PublishDueJob struct {
	Reviews   ports.ReviewRepository
	Actions   commands.ReviewUseCase
	Clock     ports.Clock
	BatchSize int
	Disabled  bool
	Logger    *slog.Logger
}

func (j PublishDueJob) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(j.Logger)
	if j.Disabled {
		logger.Info("scheduled publish job disabled by feature flag",
			"event", "publication_publish_due_disabled",
			"module", "editorial-pipeline/publication-service",
			"layer", "worker",
		)
		return nil
	}

	now := time.Now().UTC()
	if j.Clock != nil {
		now = j.Clock.Now().UTC()
	}
	limit := j.BatchSize
	if limit <= 0 {
		limit = 100
	}

	due, err := j.Reviews.ListDueScheduled(ctx, now, limit)
	if err != nil {
		logger.Error("scheduled publish list failed",
			"event", "publication_publish_due_list_failed",
			"module", "editorial-pipeline/publication-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	published := 0
	for _, review := range due {
		_, err := j.Actions.ExecuteAction(ctx, commands.PublicationActionCommand{
			ActorID:   "system",
			ActorRole: commands.RoleSystem,
			ReviewID:  review.ReviewID,
			Action:    string(entities.ActionPublishNow),
		})
		if err != nil {
			// A concurrent transition already moved the review; the row is
			// no longer due and the batch keeps going.
			if errors.Is(err, domainerrors.ErrInvalidTransition) || errors.Is(err, domainerrors.ErrConflict) {
				logger.Warn("scheduled publish skipped moved review",
					"event", "publication_publish_due_skipped",
					"module", "editorial-pipeline/publication-service",
					"layer", "worker",
					"review_id", review.ReviewID,
					"error", err.Error(),
				)
				continue
			}
			logger.Error("scheduled publish failed",
				"event", "publication_publish_due_failed",
				"module", "editorial-pipeline/publication-service",
				"layer", "worker",
				"review_id", review.ReviewID,
				"error", err.Error(),
			)
			return err
		}
		published++
	}

	if published > 0 {
		logger.Info("scheduled publish cycle completed",
			"event", "publication_publish_due_completed",
			"module", "editorial-pipeline/publication-service",
			"layer", "worker",
			"published_count", published,
		)
	}
	return nil
}
