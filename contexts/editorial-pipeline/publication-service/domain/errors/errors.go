package errors

import "errors"

var (
	ErrInvalidReviewInput  = errors.New("invalid review input")
	ErrInvalidAction       = errors.New("unknown workflow action")
	ErrReviewNotFound      = errors.New("review not found")
	ErrInvalidTransition   = errors.New("action not legal for current review state")
	ErrNotesRequired       = errors.New("notes required for this action")
	ErrInvalidScheduleDate = errors.New("scheduled date must be in the future")
	ErrNotEditable         = errors.New("review is not editable in its current state")
	ErrForbidden           = errors.New("actor not allowed to perform this action")
	ErrConflict            = errors.New("review was modified concurrently")
	ErrIdempotencyConflict = errors.New("idempotency key conflict")
)
