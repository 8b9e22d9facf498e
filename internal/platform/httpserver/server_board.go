package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	boarderrors "pressroom/contexts/community-engagement/board-service/domain/errors"
	boardtransport "pressroom/contexts/community-engagement/board-service/transport/http"
	"pressroom/internal/platform/auth"
)

func (s *Server) handleCreateSuggestion(w http.ResponseWriter, r *http.Request) {
	identity, err := s.verifier.FromRequest(r)
	if err != nil {
		writeBoardDomainError(w, err)
		return
	}

	var req boardtransport.CreateSuggestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBoardError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.board.Handler.CreateSuggestionHandler(r.Context(), identity.UserID, req)
	if err != nil {
		writeBoardDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListSuggestions(w http.ResponseWriter, r *http.Request) {
	identity, err := s.readIdentity(r)
	if err != nil {
		writeBoardDomainError(w, err)
		return
	}

	resp, err := s.board.Handler.ListSuggestionsHandler(r.Context(), identity.UserID)
	if err != nil {
		writeBoardDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSuggestionsPage(w http.ResponseWriter, r *http.Request) {
	identity, err := s.readIdentity(r)
	if err != nil {
		writeBoardDomainError(w, err)
		return
	}

	limit, offset, ok := parsePageParams(w, r)
	if !ok {
		return
	}

	resp, err := s.board.Handler.SuggestionsPageHandler(r.Context(), identity.UserID, limit, offset)
	if err != nil {
		writeBoardDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSuggestion(w http.ResponseWriter, r *http.Request) {
	identity, err := s.readIdentity(r)
	if err != nil {
		writeBoardDomainError(w, err)
		return
	}

	resp, err := s.board.Handler.GetSuggestionHandler(r.Context(), r.PathValue("suggestion_id"), identity.UserID)
	if err != nil {
		writeBoardDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	identity, err := s.verifier.FromRequest(r)
	if err != nil {
		writeBoardDomainError(w, err)
		return
	}

	var req boardtransport.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBoardError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.board.Handler.CreatePostHandler(r.Context(), identity.UserID, req)
	if err != nil {
		writeBoardDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	identity, err := s.readIdentity(r)
	if err != nil {
		writeBoardDomainError(w, err)
		return
	}

	resp, err := s.board.Handler.ListPostsHandler(r.Context(), identity.UserID)
	if err != nil {
		writeBoardDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePostsPage(w http.ResponseWriter, r *http.Request) {
	identity, err := s.readIdentity(r)
	if err != nil {
		writeBoardDomainError(w, err)
		return
	}

	limit, offset, ok := parsePageParams(w, r)
	if !ok {
		return
	}

	resp, err := s.board.Handler.PostsPageHandler(r.Context(), identity.UserID, limit, offset)
	if err != nil {
		writeBoardDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	identity, err := s.readIdentity(r)
	if err != nil {
		writeBoardDomainError(w, err)
		return
	}

	resp, err := s.board.Handler.GetPostHandler(r.Context(), r.PathValue("post_id"), identity.UserID)
	if err != nil {
		writeBoardDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	identity, err := s.verifier.FromRequest(r)
	if err != nil {
		writeBoardDomainError(w, err)
		return
	}

	var req boardtransport.CreatePollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBoardError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.board.Handler.CreatePollHandler(r.Context(), identity.UserID, req)
	if err != nil {
		writeBoardDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListPolls(w http.ResponseWriter, r *http.Request) {
	identity, err := s.readIdentity(r)
	if err != nil {
		writeBoardDomainError(w, err)
		return
	}

	resp, err := s.board.Handler.ListPollsHandler(r.Context(), identity.UserID)
	if err != nil {
		writeBoardDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePollsPage(w http.ResponseWriter, r *http.Request) {
	identity, err := s.readIdentity(r)
	if err != nil {
		writeBoardDomainError(w, err)
		return
	}

	limit, offset, ok := parsePageParams(w, r)
	if !ok {
		return
	}

	resp, err := s.board.Handler.PollsPageHandler(r.Context(), identity.UserID, limit, offset)
	if err != nil {
		writeBoardDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	identity, err := s.readIdentity(r)
	if err != nil {
		writeBoardDomainError(w, err)
		return
	}

	resp, err := s.board.Handler.GetPollHandler(r.Context(), r.PathValue("poll_id"), identity.UserID)
	if err != nil {
		writeBoardDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// parsePageParams reads limit/offset for the paginated board endpoints.
// Absent parameters fall through as zero and the query layer applies its
// defaults.
func parsePageParams(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	query := r.URL.Query()
	var limit, offset int
	if limitRaw := query.Get("limit"); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil {
			writeBoardError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return 0, 0, false
		}
		limit = parsed
	}
	if offsetRaw := query.Get("offset"); offsetRaw != "" {
		parsed, err := strconv.Atoi(offsetRaw)
		if err != nil {
			writeBoardError(w, http.StatusBadRequest, "invalid_offset", "offset must be an integer")
			return 0, 0, false
		}
		offset = parsed
	}
	return limit, offset, true
}

func writeBoardDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrNoIdentity):
		writeBoardError(w, http.StatusUnauthorized, "missing_user", "request requires a caller identity")
	case errors.Is(err, auth.ErrInvalidToken):
		writeBoardError(w, http.StatusUnauthorized, "invalid_token", "bearer token is invalid or expired")
	case errors.Is(err, boarderrors.ErrInvalidContentInput):
		writeBoardError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, boarderrors.ErrSuggestionNotFound):
		writeBoardError(w, http.StatusNotFound, "suggestion_not_found", err.Error())
	case errors.Is(err, boarderrors.ErrPostNotFound):
		writeBoardError(w, http.StatusNotFound, "post_not_found", err.Error())
	case errors.Is(err, boarderrors.ErrPollNotFound):
		writeBoardError(w, http.StatusNotFound, "poll_not_found", err.Error())
	case errors.Is(err, boarderrors.ErrConflict):
		writeBoardError(w, http.StatusConflict, "conflict", err.Error())
	default:
		writeBoardError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeBoardError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, boardtransport.ErrorResponse{
		Error: boardtransport.ErrorBody{Code: code, Message: message},
	})
}
