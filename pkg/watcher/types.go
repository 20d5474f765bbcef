// Package watcher provides the dynamic, recursive filesystem-watch manager.
//
// Callers add and remove (extension, directory, recursive) roots at any
// time. While a session runs, every directory under the roots holds a
// reference-counted subscription with the OS notification primitive
// (fsnotify); raw notifications are resolved to their root, filtered by
// extension and turned into fsevent.Event records that are staged and
// published to subscribers.
//
// Example usage:
//
//	mgr, err := watcher.New(watcher.Config{}, pipeline, messages, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.Close()
//
//	if err := mgr.AddDir(".go", "/src/project", true); err != nil {
//	    log.Fatal(err)
//	}
//	if err := mgr.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
//	msgs, cancel := mgr.Subscribe()
//	defer cancel()
//	for msg := range msgs {
//	    if rec, ok := msg.(fsevent.EventRecorded); ok {
//	        fmt.Println(rec.Event.Kind, rec.Event.FileName)
//	    }
//	}
package watcher

import (
	"github.com/0xmhha/dirwatch/pkg/bus"
	"github.com/0xmhha/dirwatch/pkg/fsevent"
	"github.com/0xmhha/dirwatch/pkg/staging"
)

// Wildcard is the extension argument that matches every file.
const Wildcard = "*"

// Manager is the controller surface of the watch manager.
type Manager interface {
	// Start opens a session: clears staging and the watched-roots table,
	// registers every root and starts consuming notifications.
	//
	// Returns ErrIllegalState if a session is already running.
	Start() error

	// Stop closes the notification channel and waits for the consumer.
	//
	// Returns ErrIllegalState if no session is running.
	Stop() error

	// IsRunning reports whether a session is active.
	IsRunning() bool

	// AddDir adds a watched root or another reference to an existing one.
	//
	// extension must be non-empty; Wildcard matches all files.
	// directory must be an existing directory.
	// While running, the directory is registered before AddDir returns.
	AddDir(extension, directory string, recursive bool) error

	// RemoveDir drops one reference to a watched root.
	//
	// Returns ErrNotWatched or ErrExtensionNotWatched for unknown input.
	RemoveDir(extension, directory string, recursive bool) error

	// ClearLog discards staged events and publishes LogCleared.
	ClearLog() error

	// CommitToLog promotes staged events to the durable log.
	CommitToLog() (int, error)

	// Subscribe returns a channel of session messages and its cancel function.
	Subscribe() (<-chan fsevent.Message, func())

	// Roots returns a snapshot of the watched roots sorted by directory.
	Roots() []RootInfo

	// Stats returns a snapshot of the manager counters.
	Stats() Stats

	// Close stops a running session. Safe to call more than once.
	Close() error
}

// Config contains watch manager configuration.
type Config struct {
	// PoolWorkers is the number of workers handling directories that
	// appear or disappear during a session.
	// Default: 4.
	PoolWorkers int

	// TaskQueue is the number of pending directory tasks before the
	// consumer loop blocks.
	// Default: 256.
	TaskQueue int

	// InitWorkers bounds the parallel subtree registrations per root
	// during session start.
	// Default: 8.
	InitWorkers int

	// BatchSize is the maximum number of raw notifications per batch.
	// Default: 128.
	BatchSize int

	// CircuitBreakerThreshold is the number of consecutive notifier
	// errors before the failure is escalated.
	// Default: 5.
	CircuitBreakerThreshold int
}

// RootInfo describes a watched root.
type RootInfo struct {
	Dir        string   `json:"dir"`
	Extensions []string `json:"extensions,omitempty"`
	MatchAll   bool     `json:"match_all"`
	Recursive  bool     `json:"recursive"`
	RefCount   int      `json:"ref_count"`
}

// Stats reports manager counters.
type Stats struct {
	Running         bool
	SessionID       string
	Roots           int
	Registrations   int
	EventsDelivered uint64
	EventsFiltered  uint64
	Staging         staging.Stats
	Bus             bus.Stats
}

// withDefaults fills zero fields with their defaults.
func (c Config) withDefaults() Config {
	if c.PoolWorkers <= 0 {
		c.PoolWorkers = 4
	}
	if c.TaskQueue <= 0 {
		c.TaskQueue = 256
	}
	if c.InitWorkers <= 0 {
		c.InitWorkers = 8
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 128
	}
	if c.CircuitBreakerThreshold <= 0 {
		c.CircuitBreakerThreshold = 5
	}
	return c
}
