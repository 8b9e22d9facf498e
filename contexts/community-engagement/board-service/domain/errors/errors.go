package errors

import "errors"

var (
	ErrInvalidContentInput = errors.New("invalid board content input")
	ErrSuggestionNotFound  = errors.New("suggestion not found")
	ErrPostNotFound        = errors.New("community post not found")
	ErrPollNotFound        = errors.New("poll not found")
	ErrConflict            = errors.New("board content conflict")
)
