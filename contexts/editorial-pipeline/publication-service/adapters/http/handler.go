package httpadapter

import (
	"context"
	"log/slog"

	"pressroom/contexts/editorial-pipeline/publication-service/application/commands"
	"pressroom/contexts/editorial-pipeline/publication-service/application/queries"
	"pressroom/contexts/editorial-pipeline/publication-service/domain/entities"
	"pressroom/contexts/editorial-pipeline/publication-service/ports"
	httptransport "pressroom/contexts/editorial-pipeline/publication-service/transport/http"
)

// QueueFilter mirrors the queue endpoint's query parameters.
type QueueFilter struct {
	Status       string
	ReviewStatus string
	Search       string
	AuthorID     string
	ReviewerID   string
	Limit        int
	Offset       int
}

type Handler struct {
	Reviews commands.ReviewUseCase
	Queries queries.ReviewQueryUseCase
	Logger  *slog.Logger
}

func (h Handler) CreateReviewHandler(
	ctx context.Context,
	authorID string,
	req httptransport.CreateReviewRequest,
) (httptransport.ReviewResponse, error) {
	review, err := h.Reviews.CreateReview(ctx, commands.CreateReviewCommand{
		AuthorID: authorID,
		Title:    req.Title,
		Body:     req.Body,
	})
	if err != nil {
		return httptransport.ReviewResponse{}, err
	}
	return reviewResponse(review), nil
}

func (h Handler) UpdateReviewHandler(
	ctx context.Context,
	reviewID string,
	actorID string,
	actorRole string,
	req httptransport.UpdateReviewRequest,
) (httptransport.ReviewResponse, error) {
	review, err := h.Reviews.UpdateReview(ctx, commands.UpdateReviewCommand{
		ReviewID:  reviewID,
		ActorID:   actorID,
		ActorRole: actorRole,
		Title:     req.Title,
		Body:      req.Body,
	})
	if err != nil {
		return httptransport.ReviewResponse{}, err
	}
	return reviewResponse(review), nil
}

func (h Handler) PublicationActionHandler(
	ctx context.Context,
	actorID string,
	actorRole string,
	idempotencyKey string,
	req httptransport.PublicationActionRequest,
) (httptransport.PublicationActionResponse, error) {
	result, err := h.Reviews.ExecuteAction(ctx, commands.PublicationActionCommand{
		ActorID:        actorID,
		ActorRole:      actorRole,
		IdempotencyKey: idempotencyKey,
		ReviewID:       req.ReviewID,
		Action:         req.Action,
		ScheduledDate:  req.ScheduledDate,
		Notes:          req.Notes,
		ReviewerID:     req.ReviewerID,
	})
	if err != nil {
		return httptransport.PublicationActionResponse{}, err
	}
	return httptransport.PublicationActionResponse{
		Success: true,
		Review:  reviewResponse(result.Review),
		Message: result.Message,
	}, nil
}

func (h Handler) QueueHandler(ctx context.Context, filter QueueFilter) (httptransport.ReviewQueueResponse, error) {
	limit, offset := queries.NormalizePage(filter.Limit, filter.Offset)
	result, err := h.Queries.Queue(ctx, ports.ReviewFilter{
		Status:       filter.Status,
		ReviewStatus: filter.ReviewStatus,
		Search:       filter.Search,
		AuthorID:     filter.AuthorID,
		ReviewerID:   filter.ReviewerID,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return httptransport.ReviewQueueResponse{}, err
	}
	items := make([]httptransport.ReviewResponse, 0, len(result.Items))
	for _, review := range result.Items {
		items = append(items, reviewResponse(review))
	}
	return httptransport.ReviewQueueResponse{
		Items:  items,
		Total:  result.Total,
		Limit:  limit,
		Offset: offset,
	}, nil
}

func (h Handler) ReviewDetailHandler(ctx context.Context, reviewID string) (httptransport.ReviewResponse, error) {
	review, err := h.Queries.Detail(ctx, reviewID)
	if err != nil {
		return httptransport.ReviewResponse{}, err
	}
	return reviewResponse(review), nil
}

func (h Handler) ReviewHistoryHandler(ctx context.Context, reviewID string) ([]httptransport.AuditResponse, error) {
	audits, err := h.Queries.History(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	items := make([]httptransport.AuditResponse, 0, len(audits))
	for _, audit := range audits {
		items = append(items, httptransport.AuditResponse{
			Action:          audit.Action,
			ActorID:         audit.ActorID,
			ActorRole:       audit.ActorRole,
			Notes:           audit.Notes,
			OldStatus:       audit.OldStatus,
			NewStatus:       audit.NewStatus,
			OldReviewStatus: audit.OldReviewStatus,
			NewReviewStatus: audit.NewReviewStatus,
			CreatedAt:       audit.CreatedAt,
		})
	}
	return items, nil
}

func reviewResponse(review entities.Review) httptransport.ReviewResponse {
	legal := entities.LegalActions(review)
	actions := make([]string, 0, len(legal))
	for _, action := range legal {
		actions = append(actions, string(action))
	}
	return httptransport.ReviewResponse{
		ID:                 review.ReviewID,
		Title:              review.Title,
		Body:               review.Body,
		AuthorID:           review.AuthorID,
		ReviewerID:         review.ReviewerID,
		Status:             string(review.Status),
		ReviewStatus:       string(review.ReviewStatus),
		ScheduledPublishAt: review.ScheduledPublishAt,
		PublishedAt:        review.PublishedAt,
		ReviewedAt:         review.ReviewedAt,
		PublicationNotes:   review.PublicationNotes,
		AvailableActions:   actions,
		CreatedAt:          review.CreatedAt,
		UpdatedAt:          review.UpdatedAt,
	}
}
