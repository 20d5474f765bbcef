// Package store persists captured events in three logical tables.
//
//   - staging: events captured during the current session, not yet saved
//   - log: the durable, surrogate-keyed event history
//   - watched roots: the top-level directories of the running session
//
// Staging survives a crash so a later run can still commit it, but it is
// wiped when a new session starts.
//
// Example usage:
//
//	s, err := store.Open(store.Config{
//	    DBPath: "~/.config/dirwatch/events.db",
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	if err := s.Stage(evt); err != nil {
//	    log.Printf("stage failed: %v", err)
//	}
//	n, err := s.Commit()
package store

import (
	"fmt"
	"time"

	"github.com/0xmhha/dirwatch/pkg/fsevent"
)

// StagingEntry is an event row that has not been committed yet.
type StagingEntry struct {
	fsevent.Event
}

// LogEntry is a committed event row.
type LogEntry struct {
	// ID is the surrogate identifier, unique and increasing.
	ID uint64 `json:"id"`

	fsevent.Event
}

// WatchedRoot is the diagnostic record of an active top-level subscription.
type WatchedRoot struct {
	Path      string    `json:"path"`
	Recursive bool      `json:"recursive"`
	AddedAt   time.Time `json:"added_at"`
}

// Store provides the staging, log and watched-roots tables.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Stage appends an event to the staging table.
	Stage(evt fsevent.Event) error

	// Staged returns the staging rows in capture order.
	Staged() ([]StagingEntry, error)

	// Commit atomically moves every staged row into the log, assigning
	// surrogate ids, and clears staging.
	//
	// Returns the number of rows promoted.
	Commit() (int, error)

	// Discard clears staging without touching the log.
	Discard() error

	// Log returns committed rows in id order.
	//
	// A positive limit returns only the most recent limit rows.
	Log(limit int) ([]LogEntry, error)

	// ResetSession clears staging and the watched-roots table.
	ResetSession() error

	// PutWatchedRoot records an active top-level root.
	PutWatchedRoot(root WatchedRoot) error

	// DeleteWatchedRoot removes a top-level root record.
	// Does not error if the record doesn't exist.
	DeleteWatchedRoot(path string) error

	// WatchedRoots returns the recorded roots sorted by path.
	WatchedRoots() ([]WatchedRoot, error)

	// Close releases the underlying resources.
	Close() error
}

// Config contains store configuration.
type Config struct {
	// DBPath is the BoltDB file path. A leading ~ is expanded.
	DBPath string

	// Timeout is how long to wait for the database file lock.
	// Default: 1 second.
	Timeout time.Duration
}

// validateEvent checks that an event can be stored as a row.
func validateEvent(evt fsevent.Event) error {
	if evt.FileName == "" || evt.Path == "" {
		return fmt.Errorf("%w: file name and path are required", ErrInvalidEvent)
	}
	if evt.Kind.String() == "UNKNOWN" {
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidEvent, evt.Kind)
	}
	return nil
}
