package distribution

import "errors"

var (
	// ErrNotFound means no eligible phone (or no such franchise/server/lead).
	// It is an outcome, not a failure.
	ErrNotFound     = errors.New("NOT_FOUND")
	ErrInvalidInput = errors.New("INVALID_INPUT")
)
