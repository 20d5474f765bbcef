package watcher

import (
	"errors"
	"fmt"
)

// Common errors returned by the watch manager.
var (
	// ErrInvalidArgument is returned when an operation is called with bad input.
	// No side effect has happened when it is returned.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrIllegalState is returned for start while running, stop while stopped
	// and remove before add.
	ErrIllegalState = errors.New("illegal state")

	// ErrNotWatched is returned when removing a directory that is not watched.
	// It matches both ErrInvalidArgument and ErrIllegalState.
	ErrNotWatched = fmt.Errorf("%w: %w: directory is not watched", ErrInvalidArgument, ErrIllegalState)

	// ErrExtensionNotWatched is returned when removing an extension missing from a root's filter.
	ErrExtensionNotWatched = fmt.Errorf("%w: extension is not in the root's filter", ErrInvalidArgument)

	// ErrNotifierClosed is returned by Notifier.Next once the notifier is closed.
	ErrNotifierClosed = errors.New("notifier is closed")

	// ErrCircuitBreakerOpen is logged when the notifier keeps failing.
	ErrCircuitBreakerOpen = errors.New("circuit breaker open")

	// ErrPoolClosed is returned when submitting to a stopped task pool.
	ErrPoolClosed = errors.New("task pool is closed")

	// ErrNotDirectory is reported when a walk root is not a directory.
	ErrNotDirectory = errors.New("not a directory")
)
