package queries

import (
	"context"
	"strings"

	"pressroom/contexts/editorial-pipeline/publication-service/domain/entities"
	domainerrors "pressroom/contexts/editorial-pipeline/publication-service/domain/errors"
	"pressroom/contexts/editorial-pipeline/publication-service/ports"
)

const (
	defaultQueueLimit = 20
	maxQueueLimit     = 100
)

// QueueResult is one page of the content queue plus the unpaged total.
type QueueResult struct {
	Items []entities.Review
	Total int
}

type ReviewQueryUseCase struct {
	Reviews ports.ReviewRepository
}

// Queue lists reviews for the admin queue, filterable by both status
// dimensions, title search, author, and reviewer.
func (uc ReviewQueryUseCase) Queue(ctx context.Context, filter ports.ReviewFilter) (QueueResult, error) {
	filter.Status = strings.TrimSpace(filter.Status)
	filter.ReviewStatus = strings.TrimSpace(filter.ReviewStatus)
	filter.Search = strings.TrimSpace(filter.Search)
	filter.AuthorID = strings.TrimSpace(filter.AuthorID)
	filter.ReviewerID = strings.TrimSpace(filter.ReviewerID)
	if filter.Status != "" && !entities.Status(filter.Status).Valid() {
		return QueueResult{}, domainerrors.ErrInvalidReviewInput
	}
	if filter.ReviewStatus != "" && !entities.ReviewStatus(filter.ReviewStatus).Valid() {
		return QueueResult{}, domainerrors.ErrInvalidReviewInput
	}
	filter.Limit, filter.Offset = NormalizePage(filter.Limit, filter.Offset)

	items, total, err := uc.Reviews.ListReviews(ctx, filter)
	if err != nil {
		return QueueResult{}, err
	}
	return QueueResult{Items: items, Total: total}, nil
}

func (uc ReviewQueryUseCase) Detail(ctx context.Context, reviewID string) (entities.Review, error) {
	reviewID = strings.TrimSpace(reviewID)
	if reviewID == "" {
		return entities.Review{}, domainerrors.ErrInvalidReviewInput
	}
	return uc.Reviews.GetReview(ctx, reviewID)
}

// History returns the review's transition audit trail, oldest first.
func (uc ReviewQueryUseCase) History(ctx context.Context, reviewID string) ([]entities.PublicationAudit, error) {
	reviewID = strings.TrimSpace(reviewID)
	if reviewID == "" {
		return nil, domainerrors.ErrInvalidReviewInput
	}
	if _, err := uc.Reviews.GetReview(ctx, reviewID); err != nil {
		return nil, err
	}
	return uc.Reviews.ListAudits(ctx, reviewID)
}

// NormalizePage applies the shared paging defaults so transports can echo
// the effective limit and offset back to callers.
func NormalizePage(limit int, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultQueueLimit
	}
	if limit > maxQueueLimit {
		limit = maxQueueLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
