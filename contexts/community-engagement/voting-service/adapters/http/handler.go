package httpadapter

import (
	"context"
	"log/slog"

	"pressroom/contexts/community-engagement/voting-service/application/commands"
	"pressroom/contexts/community-engagement/voting-service/application/queries"
	"pressroom/contexts/community-engagement/voting-service/domain/entities"
	httptransport "pressroom/contexts/community-engagement/voting-service/transport/http"
)

type Handler struct {
	Votes   commands.VoteUseCase
	Queries queries.VoteQueryUseCase
	Logger  *slog.Logger
}

func (h Handler) CastVoteHandler(
	ctx context.Context,
	userID string,
	idempotencyKey string,
	req httptransport.CastVoteRequest,
) (httptransport.VoteRecordResponse, error) {
	result, err := h.Votes.CastVote(ctx, commands.CastVoteCommand{
		UserID:         userID,
		IdempotencyKey: idempotencyKey,
		EntityType:     entities.EntityType(req.EntityType),
		EntityID:       req.EntityID,
		VoteType:       entities.VoteType(req.VoteType),
	})
	if err != nil {
		return httptransport.VoteRecordResponse{}, err
	}
	hasVoted, userVote := voteStateFields(result.EntityType, result.VoteType)
	return httptransport.VoteRecordResponse{
		EntityType:   string(result.EntityType),
		EntityID:     result.EntityID,
		UserID:       result.UserID,
		VoteType:     string(result.VoteType),
		Upvotes:      result.Summary.Upvotes,
		Downvotes:    result.Summary.Downvotes,
		UserHasVoted: hasVoted,
		UserVote:     userVote,
		Replayed:     result.Replayed,
	}, nil
}

func (h Handler) EntityVotesHandler(
	ctx context.Context,
	entityType string,
	entityID string,
	userID string,
) (httptransport.EntityVotesResponse, error) {
	result, err := h.Queries.EntityVotes(ctx, entities.EntityType(entityType), entityID, userID)
	if err != nil {
		return httptransport.EntityVotesResponse{}, err
	}
	hasVoted, userVote := voteStateFields(result.Summary.EntityType, result.UserVote)
	return httptransport.EntityVotesResponse{
		EntityType:   string(result.Summary.EntityType),
		EntityID:     result.Summary.EntityID,
		Upvotes:      result.Summary.Upvotes,
		Downvotes:    result.Summary.Downvotes,
		UserHasVoted: hasVoted,
		UserVote:     userVote,
	}, nil
}

// voteStateFields maps the caller's vote onto the per-shape wire fields.
// Suggestions expose user_has_voted; posts and polls expose user_vote.
func voteStateFields(entityType entities.EntityType, voteType entities.VoteType) (*bool, *string) {
	if entityType == entities.EntityTypeSuggestion {
		hasVoted := voteType == entities.VoteTypeUp
		return &hasVoted, nil
	}
	if voteType == entities.VoteTypeUp || voteType == entities.VoteTypeDown {
		value := string(voteType)
		return nil, &value
	}
	return nil, nil
}
