package core

import "errors"

var (
	// ErrValidation rejects malformed or oversized input before any mutation.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned for an unknown job id.
	ErrNotFound = errors.New("job not found")
	// ErrConflict is returned when inserting a job whose id already exists.
	ErrConflict = errors.New("job already exists")
	// ErrInvalidState rejects a status transition not permitted by the
	// current status.
	ErrInvalidState = errors.New("invalid job state for operation")
	// ErrStaleWrite signals that a conditional update lost a race: the
	// expected prior status no longer held when the write was applied.
	ErrStaleWrite = errors.New("stale write: job status changed concurrently")
)
