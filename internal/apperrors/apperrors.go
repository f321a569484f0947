package apperrors

import "errors"

var (
	// ErrNotFound covers missing resources and resources owned by another user.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument covers malformed or out-of-range input, rejected before any mutation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict signals an idempotency key reused while its first request is still in flight.
	ErrConflict = errors.New("conflict")
	// ErrRetryable signals a transactional failure that rolled back cleanly.
	ErrRetryable = errors.New("retryable failure")
	// ErrUnauthorized is a generic sentinel for auth failures at the boundary.
	ErrUnauthorized = errors.New("unauthorized")
)
