package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "pressroom/contexts/community-engagement/board-service/application"
	"pressroom/contexts/community-engagement/board-service/domain/entities"
	domainerrors "pressroom/contexts/community-engagement/board-service/domain/errors"
	"pressroom/contexts/community-engagement/board-service/ports"
)

type CreateSuggestionCommand struct {
	AuthorID string
	Title    string
	Body     string
}

type CreatePostCommand struct {
	AuthorID string
	Title    string
	Body     string
}

type CreatePollCommand struct {
	AuthorID string
	Question string
	Options  []string
	ClosesAt *time.Time
}

// BoardUseCase orchestrates content creation and publishes created events
// so downstream services can project the new votable entities.
type BoardUseCase struct {
	Repository ports.BoardRepository
	Outbox     ports.OutboxWriter
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func (uc BoardUseCase) CreateSuggestion(ctx context.Context, cmd CreateSuggestionCommand) (entities.Suggestion, error) {
	logger := application.ResolveLogger(uc.Logger)
	if strings.TrimSpace(cmd.AuthorID) == "" ||
		strings.TrimSpace(cmd.Title) == "" ||
		strings.TrimSpace(cmd.Body) == "" {
		logger.Warn("suggestion create validation failed",
			"event", "board_suggestion_create_validation_failed",
			"module", "community-engagement/board-service",
			"layer", "application",
			"author_id", strings.TrimSpace(cmd.AuthorID),
		)
		return entities.Suggestion{}, domainerrors.ErrInvalidContentInput
	}

	now := uc.now()
	suggestionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Suggestion{}, err
	}
	suggestion := entities.Suggestion{
		SuggestionID: suggestionID,
		Title:        strings.TrimSpace(cmd.Title),
		Body:         strings.TrimSpace(cmd.Body),
		AuthorID:     strings.TrimSpace(cmd.AuthorID),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.Repository.SaveSuggestion(ctx, suggestion); err != nil {
		return entities.Suggestion{}, err
	}
	if err := uc.appendCreatedEvent(ctx, entities.EntityTypeSuggestion, suggestion.SuggestionID, suggestion.AuthorID, now); err != nil {
		return entities.Suggestion{}, err
	}
	logger.Info("suggestion created",
		"event", "board_suggestion_created",
		"module", "community-engagement/board-service",
		"layer", "application",
		"suggestion_id", suggestion.SuggestionID,
		"author_id", suggestion.AuthorID,
	)
	return suggestion, nil
}

func (uc BoardUseCase) CreatePost(ctx context.Context, cmd CreatePostCommand) (entities.CommunityPost, error) {
	logger := application.ResolveLogger(uc.Logger)
	if strings.TrimSpace(cmd.AuthorID) == "" ||
		strings.TrimSpace(cmd.Title) == "" ||
		strings.TrimSpace(cmd.Body) == "" {
		logger.Warn("community post create validation failed",
			"event", "board_post_create_validation_failed",
			"module", "community-engagement/board-service",
			"layer", "application",
			"author_id", strings.TrimSpace(cmd.AuthorID),
		)
		return entities.CommunityPost{}, domainerrors.ErrInvalidContentInput
	}

	now := uc.now()
	postID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.CommunityPost{}, err
	}
	post := entities.CommunityPost{
		PostID:    postID,
		Title:     strings.TrimSpace(cmd.Title),
		Body:      strings.TrimSpace(cmd.Body),
		AuthorID:  strings.TrimSpace(cmd.AuthorID),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.Repository.SavePost(ctx, post); err != nil {
		return entities.CommunityPost{}, err
	}
	if err := uc.appendCreatedEvent(ctx, entities.EntityTypeCommunityPost, post.PostID, post.AuthorID, now); err != nil {
		return entities.CommunityPost{}, err
	}
	logger.Info("community post created",
		"event", "board_post_created",
		"module", "community-engagement/board-service",
		"layer", "application",
		"post_id", post.PostID,
		"author_id", post.AuthorID,
	)
	return post, nil
}

func (uc BoardUseCase) CreatePoll(ctx context.Context, cmd CreatePollCommand) (entities.Poll, error) {
	logger := application.ResolveLogger(uc.Logger)
	options := normalizeOptions(cmd.Options)
	now := uc.now()
	if strings.TrimSpace(cmd.AuthorID) == "" ||
		strings.TrimSpace(cmd.Question) == "" ||
		len(options) < 2 {
		logger.Warn("poll create validation failed",
			"event", "board_poll_create_validation_failed",
			"module", "community-engagement/board-service",
			"layer", "application",
			"author_id", strings.TrimSpace(cmd.AuthorID),
			"option_count", len(options),
		)
		return entities.Poll{}, domainerrors.ErrInvalidContentInput
	}
	if cmd.ClosesAt != nil && !cmd.ClosesAt.UTC().After(now) {
		logger.Warn("poll create close date in the past",
			"event", "board_poll_create_close_date_invalid",
			"module", "community-engagement/board-service",
			"layer", "application",
			"author_id", strings.TrimSpace(cmd.AuthorID),
		)
		return entities.Poll{}, domainerrors.ErrInvalidContentInput
	}

	pollID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Poll{}, err
	}
	poll := entities.Poll{
		PollID:    pollID,
		Question:  strings.TrimSpace(cmd.Question),
		Options:   options,
		AuthorID:  strings.TrimSpace(cmd.AuthorID),
		ClosesAt:  normalizeOptionalTime(cmd.ClosesAt),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.Repository.SavePoll(ctx, poll); err != nil {
		return entities.Poll{}, err
	}
	if err := uc.appendCreatedEvent(ctx, entities.EntityTypePoll, poll.PollID, poll.AuthorID, now); err != nil {
		return entities.Poll{}, err
	}
	logger.Info("poll created",
		"event", "board_poll_created",
		"module", "community-engagement/board-service",
		"layer", "application",
		"poll_id", poll.PollID,
		"author_id", poll.AuthorID,
		"option_count", len(poll.Options),
	)
	return poll, nil
}

func (uc BoardUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func (uc BoardUseCase) appendCreatedEvent(
	ctx context.Context,
	entityType string,
	entityID string,
	authorID string,
	occurredAt time.Time,
) error {
	// A nil outbox skips event emission.
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newBoardEnvelope(eventID, entityType+".created", entityID, occurredAt, map[string]any{
		"entity_type": entityType,
		"entity_id":   entityID,
		"author_id":   authorID,
		"occurred_at": occurredAt.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

func normalizeOptions(options []string) []string {
	normalized := make([]string, 0, len(options))
	for _, option := range options {
		option = strings.TrimSpace(option)
		if option != "" {
			normalized = append(normalized, option)
		}
	}
	return normalized
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}
