package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	voterrors "pressroom/contexts/community-engagement/voting-service/domain/errors"
	votingtransport "pressroom/contexts/community-engagement/voting-service/transport/http"
	"pressroom/internal/platform/auth"
)

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	identity, err := s.verifier.FromRequest(r)
	if err != nil {
		writeVoteDomainError(w, err)
		return
	}

	var req votingtransport.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.voting.Handler.CastVoteHandler(r.Context(), identity.UserID, r.Header.Get("Idempotency-Key"), req)
	if err != nil {
		writeVoteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEntityVotes(w http.ResponseWriter, r *http.Request) {
	identity, err := s.readIdentity(r)
	if err != nil {
		writeVoteDomainError(w, err)
		return
	}

	resp, err := s.voting.Handler.EntityVotesHandler(
		r.Context(),
		r.PathValue("entity_type"),
		r.PathValue("entity_id"),
		identity.UserID,
	)
	if err != nil {
		writeVoteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeVoteDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrNoIdentity):
		writeVotingError(w, http.StatusUnauthorized, "missing_user", "request requires a caller identity")
	case errors.Is(err, auth.ErrInvalidToken):
		writeVotingError(w, http.StatusUnauthorized, "invalid_token", "bearer token is invalid or expired")
	case errors.Is(err, voterrors.ErrInvalidVoteInput):
		writeVotingError(w, http.StatusBadRequest, "invalid_vote", err.Error())
	case errors.Is(err, voterrors.ErrEntityNotFound):
		writeVotingError(w, http.StatusNotFound, "entity_not_found", err.Error())
	case errors.Is(err, voterrors.ErrVoteNotFound):
		writeVotingError(w, http.StatusNotFound, "vote_not_found", err.Error())
	case errors.Is(err, voterrors.ErrIdempotencyConflict):
		writeVotingError(w, http.StatusConflict, "idempotency_conflict", err.Error())
	case errors.Is(err, voterrors.ErrConflict):
		writeVotingError(w, http.StatusConflict, "conflict", err.Error())
	default:
		writeVotingError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeVotingError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, votingtransport.ErrorResponse{
		Error: votingtransport.ErrorBody{Code: code, Message: message},
	})
}
