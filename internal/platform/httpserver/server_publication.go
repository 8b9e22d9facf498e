package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	httpadapter "pressroom/contexts/editorial-pipeline/publication-service/adapters/http"
	puberrors "pressroom/contexts/editorial-pipeline/publication-service/domain/errors"
	publicationtransport "pressroom/contexts/editorial-pipeline/publication-service/transport/http"
	"pressroom/internal/platform/auth"
)

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	identity, err := s.verifier.FromRequest(r)
	if err != nil {
		writePublicationDomainError(w, err)
		return
	}

	var req publicationtransport.CreateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePublicationError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.publication.Handler.CreateReviewHandler(r.Context(), identity.UserID, req)
	if err != nil {
		writePublicationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleReviewQueue(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := httpadapter.QueueFilter{
		Status:       query.Get("status"),
		ReviewStatus: query.Get("review_status"),
		Search:       query.Get("search"),
		AuthorID:     query.Get("author_id"),
		ReviewerID:   query.Get("reviewer_id"),
	}

	if limitRaw := query.Get("limit"); limitRaw != "" {
		limit, err := strconv.Atoi(limitRaw)
		if err != nil {
			writePublicationError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		filter.Limit = limit
	}
	if offsetRaw := query.Get("offset"); offsetRaw != "" {
		offset, err := strconv.Atoi(offsetRaw)
		if err != nil {
			writePublicationError(w, http.StatusBadRequest, "invalid_offset", "offset must be an integer")
			return
		}
		filter.Offset = offset
	}

	resp, err := s.publication.Handler.QueueHandler(r.Context(), filter)
	if err != nil {
		writePublicationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReviewDetail(w http.ResponseWriter, r *http.Request) {
	resp, err := s.publication.Handler.ReviewDetailHandler(r.Context(), r.PathValue("review_id"))
	if err != nil {
		writePublicationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateReview(w http.ResponseWriter, r *http.Request) {
	identity, err := s.verifier.FromRequest(r)
	if err != nil {
		writePublicationDomainError(w, err)
		return
	}

	var req publicationtransport.UpdateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePublicationError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.publication.Handler.UpdateReviewHandler(
		r.Context(),
		r.PathValue("review_id"),
		identity.UserID,
		identity.Role,
		req,
	)
	if err != nil {
		writePublicationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReviewHistory(w http.ResponseWriter, r *http.Request) {
	resp, err := s.publication.Handler.ReviewHistoryHandler(r.Context(), r.PathValue("review_id"))
	if err != nil {
		writePublicationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePublicationAction(w http.ResponseWriter, r *http.Request) {
	identity, err := s.verifier.FromRequest(r)
	if err != nil {
		writePublicationDomainError(w, err)
		return
	}

	var req publicationtransport.PublicationActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePublicationError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.publication.Handler.PublicationActionHandler(
		r.Context(),
		identity.UserID,
		identity.Role,
		r.Header.Get("Idempotency-Key"),
		req,
	)
	if err != nil {
		writePublicationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writePublicationDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrNoIdentity):
		writePublicationError(w, http.StatusUnauthorized, "missing_user", "request requires a caller identity")
	case errors.Is(err, auth.ErrInvalidToken):
		writePublicationError(w, http.StatusUnauthorized, "invalid_token", "bearer token is invalid or expired")
	case errors.Is(err, puberrors.ErrInvalidReviewInput):
		writePublicationError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, puberrors.ErrInvalidAction):
		writePublicationError(w, http.StatusBadRequest, "invalid_action", err.Error())
	case errors.Is(err, puberrors.ErrNotesRequired):
		writePublicationError(w, http.StatusBadRequest, "notes_required", err.Error())
	case errors.Is(err, puberrors.ErrInvalidScheduleDate):
		writePublicationError(w, http.StatusBadRequest, "invalid_schedule_date", err.Error())
	case errors.Is(err, puberrors.ErrForbidden):
		writePublicationError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, puberrors.ErrReviewNotFound):
		writePublicationError(w, http.StatusNotFound, "review_not_found", err.Error())
	case errors.Is(err, puberrors.ErrInvalidTransition):
		writePublicationError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, puberrors.ErrNotEditable):
		writePublicationError(w, http.StatusConflict, "not_editable", err.Error())
	case errors.Is(err, puberrors.ErrIdempotencyConflict):
		writePublicationError(w, http.StatusConflict, "idempotency_conflict", err.Error())
	case errors.Is(err, puberrors.ErrConflict):
		writePublicationError(w, http.StatusConflict, "conflict", err.Error())
	default:
		writePublicationError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writePublicationError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, publicationtransport.ErrorResponse{
		Error: publicationtransport.ErrorBody{Code: code, Message: message},
	})
}
