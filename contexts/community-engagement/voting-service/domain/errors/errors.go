package errors

import "errors"

var (
	ErrInvalidVoteInput    = errors.New("invalid vote input")
	ErrVoteNotFound        = errors.New("vote not found")
	ErrEntityNotFound      = errors.New("votable entity not found")
	ErrConflict            = errors.New("vote conflict")
	ErrIdempotencyConflict = errors.New("idempotency key conflict")
)
