package store

import "errors"

// Common errors returned by the store.
var (
	// ErrUnavailable is returned when the underlying database is closed or unreachable.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrInvalidEvent is returned when an event cannot be persisted as a row.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrInvalidPath is returned when a watched-root row has no path.
	ErrInvalidPath = errors.New("invalid watched root path")
)
