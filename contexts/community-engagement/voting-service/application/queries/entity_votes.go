package queries

import (
	"context"
	"strings"

	"pressroom/contexts/community-engagement/voting-service/domain/entities"
	domainerrors "pressroom/contexts/community-engagement/voting-service/domain/errors"
	"pressroom/contexts/community-engagement/voting-service/ports"
)

// EntityVotes is the read model for one entity's counters plus the caller's
// own stance. UserVote is none when the caller has not voted or is anonymous.
type EntityVotes struct {
	Summary  entities.VoteSummary
	UserVote entities.VoteType
}

type VoteQueryUseCase struct {
	Votes ports.VoteRepository
}

func (uc VoteQueryUseCase) EntityVotes(
	ctx context.Context,
	entityType entities.EntityType,
	entityID string,
	userID string,
) (EntityVotes, error) {
	if strings.TrimSpace(entityID) == "" || !entityType.Valid() {
		return EntityVotes{}, domainerrors.ErrInvalidVoteInput
	}

	summary, err := uc.Votes.GetSummary(ctx, entityType, strings.TrimSpace(entityID))
	if err != nil {
		return EntityVotes{}, err
	}

	result := EntityVotes{Summary: summary, UserVote: entities.VoteTypeNone}
	if strings.TrimSpace(userID) != "" {
		vote, found, err := uc.Votes.GetVoteByIdentity(ctx, entityType, strings.TrimSpace(entityID), strings.TrimSpace(userID))
		if err != nil {
			return EntityVotes{}, err
		}
		if found {
			result.UserVote = vote.VoteType
		}
	}
	return result, nil
}
