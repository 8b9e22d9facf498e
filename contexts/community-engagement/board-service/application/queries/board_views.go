package queries

import (
	"context"
	"strings"

	"pressroom/contexts/community-engagement/board-service/domain/entities"
	domainerrors "pressroom/contexts/community-engagement/board-service/domain/errors"
	"pressroom/contexts/community-engagement/board-service/ports"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// SuggestionView enriches a suggestion with its vote counters and whether
// the caller has upvoted it. Suggestions carry no downvote dimension.
type SuggestionView struct {
	entities.Suggestion
	Upvotes      int
	UserHasVoted bool
}

// CommunityPostView enriches a post with both counters and the caller's
// stance. UserVote is "up", "down", or empty when the caller has no vote.
type CommunityPostView struct {
	entities.CommunityPost
	Upvotes   int
	Downvotes int
	UserVote  string
}

// PollView enriches a poll with both counters and the caller's stance.
type PollView struct {
	entities.Poll
	Upvotes   int
	Downvotes int
	UserVote  string
}

// BoardReadUseCase serves the list, paginated, and detail read models for
// the three content catalogs, each joined with the voting context's state.
type BoardReadUseCase struct {
	Repository ports.BoardRepository
	VoteState  ports.VoteStateReader
}

func (uc BoardReadUseCase) ListSuggestions(ctx context.Context, userID string) ([]SuggestionView, error) {
	suggestions, err := uc.Repository.ListSuggestions(ctx)
	if err != nil {
		return nil, err
	}
	return uc.suggestionViews(ctx, suggestions, userID)
}

func (uc BoardReadUseCase) ListSuggestionsPage(
	ctx context.Context,
	userID string,
	limit int,
	offset int,
) ([]SuggestionView, int, error) {
	limit, offset = NormalizePage(limit, offset)
	suggestions, total, err := uc.Repository.ListSuggestionsPage(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	views, err := uc.suggestionViews(ctx, suggestions, userID)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

func (uc BoardReadUseCase) GetSuggestion(ctx context.Context, suggestionID string, userID string) (SuggestionView, error) {
	suggestionID = strings.TrimSpace(suggestionID)
	if suggestionID == "" {
		return SuggestionView{}, domainerrors.ErrInvalidContentInput
	}
	suggestion, err := uc.Repository.GetSuggestion(ctx, suggestionID)
	if err != nil {
		return SuggestionView{}, err
	}
	views, err := uc.suggestionViews(ctx, []entities.Suggestion{suggestion}, userID)
	if err != nil {
		return SuggestionView{}, err
	}
	return views[0], nil
}

func (uc BoardReadUseCase) ListPosts(ctx context.Context, userID string) ([]CommunityPostView, error) {
	posts, err := uc.Repository.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	return uc.postViews(ctx, posts, userID)
}

func (uc BoardReadUseCase) ListPostsPage(
	ctx context.Context,
	userID string,
	limit int,
	offset int,
) ([]CommunityPostView, int, error) {
	limit, offset = NormalizePage(limit, offset)
	posts, total, err := uc.Repository.ListPostsPage(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	views, err := uc.postViews(ctx, posts, userID)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

func (uc BoardReadUseCase) GetPost(ctx context.Context, postID string, userID string) (CommunityPostView, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return CommunityPostView{}, domainerrors.ErrInvalidContentInput
	}
	post, err := uc.Repository.GetPost(ctx, postID)
	if err != nil {
		return CommunityPostView{}, err
	}
	views, err := uc.postViews(ctx, []entities.CommunityPost{post}, userID)
	if err != nil {
		return CommunityPostView{}, err
	}
	return views[0], nil
}

func (uc BoardReadUseCase) ListPolls(ctx context.Context, userID string) ([]PollView, error) {
	polls, err := uc.Repository.ListPolls(ctx)
	if err != nil {
		return nil, err
	}
	return uc.pollViews(ctx, polls, userID)
}

func (uc BoardReadUseCase) ListPollsPage(
	ctx context.Context,
	userID string,
	limit int,
	offset int,
) ([]PollView, int, error) {
	limit, offset = NormalizePage(limit, offset)
	polls, total, err := uc.Repository.ListPollsPage(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	views, err := uc.pollViews(ctx, polls, userID)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

func (uc BoardReadUseCase) GetPoll(ctx context.Context, pollID string, userID string) (PollView, error) {
	pollID = strings.TrimSpace(pollID)
	if pollID == "" {
		return PollView{}, domainerrors.ErrInvalidContentInput
	}
	poll, err := uc.Repository.GetPoll(ctx, pollID)
	if err != nil {
		return PollView{}, err
	}
	views, err := uc.pollViews(ctx, []entities.Poll{poll}, userID)
	if err != nil {
		return PollView{}, err
	}
	return views[0], nil
}

func (uc BoardReadUseCase) suggestionViews(
	ctx context.Context,
	suggestions []entities.Suggestion,
	userID string,
) ([]SuggestionView, error) {
	ids := make([]string, 0, len(suggestions))
	for _, suggestion := range suggestions {
		ids = append(ids, suggestion.SuggestionID)
	}
	states, err := uc.voteStates(ctx, entities.EntityTypeSuggestion, ids, userID)
	if err != nil {
		return nil, err
	}
	views := make([]SuggestionView, 0, len(suggestions))
	for _, suggestion := range suggestions {
		state := states[suggestion.SuggestionID]
		views = append(views, SuggestionView{
			Suggestion:   suggestion,
			Upvotes:      state.Upvotes,
			UserHasVoted: state.UserVote == "up",
		})
	}
	return views, nil
}

func (uc BoardReadUseCase) postViews(
	ctx context.Context,
	posts []entities.CommunityPost,
	userID string,
) ([]CommunityPostView, error) {
	ids := make([]string, 0, len(posts))
	for _, post := range posts {
		ids = append(ids, post.PostID)
	}
	states, err := uc.voteStates(ctx, entities.EntityTypeCommunityPost, ids, userID)
	if err != nil {
		return nil, err
	}
	views := make([]CommunityPostView, 0, len(posts))
	for _, post := range posts {
		state := states[post.PostID]
		views = append(views, CommunityPostView{
			CommunityPost: post,
			Upvotes:       state.Upvotes,
			Downvotes:     state.Downvotes,
			UserVote:      state.UserVote,
		})
	}
	return views, nil
}

func (uc BoardReadUseCase) pollViews(
	ctx context.Context,
	polls []entities.Poll,
	userID string,
) ([]PollView, error) {
	ids := make([]string, 0, len(polls))
	for _, poll := range polls {
		ids = append(ids, poll.PollID)
	}
	states, err := uc.voteStates(ctx, entities.EntityTypePoll, ids, userID)
	if err != nil {
		return nil, err
	}
	views := make([]PollView, 0, len(polls))
	for _, poll := range polls {
		state := states[poll.PollID]
		views = append(views, PollView{
			Poll:      poll,
			Upvotes:   state.Upvotes,
			Downvotes: state.Downvotes,
			UserVote:  state.UserVote,
		})
	}
	return views, nil
}

func (uc BoardReadUseCase) voteStates(
	ctx context.Context,
	entityType string,
	entityIDs []string,
	userID string,
) (map[string]ports.VoteState, error) {
	if uc.VoteState == nil || len(entityIDs) == 0 {
		return map[string]ports.VoteState{}, nil
	}
	return uc.VoteState.GetVoteStates(ctx, entityType, entityIDs, strings.TrimSpace(userID))
}

// NormalizePage applies the shared paging defaults so transports can echo
// the effective limit and offset back to callers.
func NormalizePage(limit int, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
