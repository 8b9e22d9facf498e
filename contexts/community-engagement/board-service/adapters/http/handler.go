package httpadapter

import (
	"context"
	"log/slog"

	"pressroom/contexts/community-engagement/board-service/application/commands"
	"pressroom/contexts/community-engagement/board-service/application/queries"
	httptransport "pressroom/contexts/community-engagement/board-service/transport/http"
)

type Handler struct {
	Content commands.BoardUseCase
	Reads   queries.BoardReadUseCase
	Logger  *slog.Logger
}

func (h Handler) CreateSuggestionHandler(
	ctx context.Context,
	authorID string,
	req httptransport.CreateSuggestionRequest,
) (httptransport.SuggestionResponse, error) {
	suggestion, err := h.Content.CreateSuggestion(ctx, commands.CreateSuggestionCommand{
		AuthorID: authorID,
		Title:    req.Title,
		Body:     req.Body,
	})
	if err != nil {
		return httptransport.SuggestionResponse{}, err
	}
	return suggestionResponse(queries.SuggestionView{Suggestion: suggestion}), nil
}

func (h Handler) ListSuggestionsHandler(ctx context.Context, userID string) ([]httptransport.SuggestionResponse, error) {
	views, err := h.Reads.ListSuggestions(ctx, userID)
	if err != nil {
		return nil, err
	}
	items := make([]httptransport.SuggestionResponse, 0, len(views))
	for _, view := range views {
		items = append(items, suggestionResponse(view))
	}
	return items, nil
}

func (h Handler) SuggestionsPageHandler(
	ctx context.Context,
	userID string,
	limit int,
	offset int,
) (httptransport.SuggestionPageResponse, error) {
	limit, offset = queries.NormalizePage(limit, offset)
	views, total, err := h.Reads.ListSuggestionsPage(ctx, userID, limit, offset)
	if err != nil {
		return httptransport.SuggestionPageResponse{}, err
	}
	items := make([]httptransport.SuggestionResponse, 0, len(views))
	for _, view := range views {
		items = append(items, suggestionResponse(view))
	}
	return httptransport.SuggestionPageResponse{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}

func (h Handler) GetSuggestionHandler(
	ctx context.Context,
	suggestionID string,
	userID string,
) (httptransport.SuggestionResponse, error) {
	view, err := h.Reads.GetSuggestion(ctx, suggestionID, userID)
	if err != nil {
		return httptransport.SuggestionResponse{}, err
	}
	return suggestionResponse(view), nil
}

func (h Handler) CreatePostHandler(
	ctx context.Context,
	authorID string,
	req httptransport.CreatePostRequest,
) (httptransport.CommunityPostResponse, error) {
	post, err := h.Content.CreatePost(ctx, commands.CreatePostCommand{
		AuthorID: authorID,
		Title:    req.Title,
		Body:     req.Body,
	})
	if err != nil {
		return httptransport.CommunityPostResponse{}, err
	}
	return postResponse(queries.CommunityPostView{CommunityPost: post}), nil
}

func (h Handler) ListPostsHandler(ctx context.Context, userID string) ([]httptransport.CommunityPostResponse, error) {
	views, err := h.Reads.ListPosts(ctx, userID)
	if err != nil {
		return nil, err
	}
	items := make([]httptransport.CommunityPostResponse, 0, len(views))
	for _, view := range views {
		items = append(items, postResponse(view))
	}
	return items, nil
}

func (h Handler) PostsPageHandler(
	ctx context.Context,
	userID string,
	limit int,
	offset int,
) (httptransport.CommunityPostPageResponse, error) {
	limit, offset = queries.NormalizePage(limit, offset)
	views, total, err := h.Reads.ListPostsPage(ctx, userID, limit, offset)
	if err != nil {
		return httptransport.CommunityPostPageResponse{}, err
	}
	items := make([]httptransport.CommunityPostResponse, 0, len(views))
	for _, view := range views {
		items = append(items, postResponse(view))
	}
	return httptransport.CommunityPostPageResponse{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}

func (h Handler) GetPostHandler(
	ctx context.Context,
	postID string,
	userID string,
) (httptransport.CommunityPostResponse, error) {
	view, err := h.Reads.GetPost(ctx, postID, userID)
	if err != nil {
		return httptransport.CommunityPostResponse{}, err
	}
	return postResponse(view), nil
}

func (h Handler) CreatePollHandler(
	ctx context.Context,
	authorID string,
	req httptransport.CreatePollRequest,
) (httptransport.PollResponse, error) {
	poll, err := h.Content.CreatePoll(ctx, commands.CreatePollCommand{
		AuthorID: authorID,
		Question: req.Question,
		Options:  req.Options,
		ClosesAt: req.ClosesAt,
	})
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return pollResponse(queries.PollView{Poll: poll}), nil
}

func (h Handler) ListPollsHandler(ctx context.Context, userID string) ([]httptransport.PollResponse, error) {
	views, err := h.Reads.ListPolls(ctx, userID)
	if err != nil {
		return nil, err
	}
	items := make([]httptransport.PollResponse, 0, len(views))
	for _, view := range views {
		items = append(items, pollResponse(view))
	}
	return items, nil
}

func (h Handler) PollsPageHandler(
	ctx context.Context,
	userID string,
	limit int,
	offset int,
) (httptransport.PollPageResponse, error) {
	limit, offset = queries.NormalizePage(limit, offset)
	views, total, err := h.Reads.ListPollsPage(ctx, userID, limit, offset)
	if err != nil {
		return httptransport.PollPageResponse{}, err
	}
	items := make([]httptransport.PollResponse, 0, len(views))
	for _, view := range views {
		items = append(items, pollResponse(view))
	}
	return httptransport.PollPageResponse{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}

func (h Handler) GetPollHandler(
	ctx context.Context,
	pollID string,
	userID string,
) (httptransport.PollResponse, error) {
	view, err := h.Reads.GetPoll(ctx, pollID, userID)
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return pollResponse(view), nil
}

func suggestionResponse(view queries.SuggestionView) httptransport.SuggestionResponse {
	return httptransport.SuggestionResponse{
		ID:           view.SuggestionID,
		Title:        view.Title,
		Body:         view.Body,
		AuthorID:     view.AuthorID,
		CreatedAt:    view.CreatedAt,
		UpdatedAt:    view.UpdatedAt,
		Upvotes:      view.Upvotes,
		UserHasVoted: view.UserHasVoted,
	}
}

func postResponse(view queries.CommunityPostView) httptransport.CommunityPostResponse {
	return httptransport.CommunityPostResponse{
		ID:        view.PostID,
		Title:     view.Title,
		Body:      view.Body,
		AuthorID:  view.AuthorID,
		CreatedAt: view.CreatedAt,
		UpdatedAt: view.UpdatedAt,
		Upvotes:   view.Upvotes,
		Downvotes: view.Downvotes,
		UserVote:  userVotePointer(view.UserVote),
	}
}

func pollResponse(view queries.PollView) httptransport.PollResponse {
	return httptransport.PollResponse{
		ID:        view.PollID,
		Question:  view.Question,
		Options:   view.Options,
		AuthorID:  view.AuthorID,
		ClosesAt:  view.ClosesAt,
		CreatedAt: view.CreatedAt,
		UpdatedAt: view.UpdatedAt,
		Upvotes:   view.Upvotes,
		Downvotes: view.Downvotes,
		UserVote:  userVotePointer(view.UserVote),
	}
}

// userVotePointer renders a missing stance as JSON null rather than "".
func userVotePointer(userVote string) *string {
	if userVote != "up" && userVote != "down" {
		return nil
	}
	return &userVote
}
