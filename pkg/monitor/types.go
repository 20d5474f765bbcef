// Package monitor renders a watch session live on a console.
//
// A LiveMonitor subscribes to the session's message stream, prints one
// line per message and keeps running per-kind counters that are pushed on
// an update channel at a fixed interval.
package monitor

import (
	"time"

	"github.com/0xmhha/dirwatch/pkg/fsevent"
)

// Source provides session messages. watcher.Manager satisfies it.
type Source interface {
	Subscribe() (<-chan fsevent.Message, func())
}

// Config holds the configuration for the live monitor.
type Config struct {
	// RefreshInterval is the interval between counter updates
	RefreshInterval time.Duration

	// Color enables ANSI colors when the output is a terminal
	Color bool

	// ShowRegistration prints per-root registration progress
	ShowRegistration bool
}

// LiveMonitor renders session messages as they arrive.
type LiveMonitor interface {
	// Start subscribes to the source and begins rendering
	Start() error

	// Stop stops rendering and unsubscribes
	Stop() error

	// Counts returns the counters so far
	Counts() Counts

	// Updates returns the periodic counter updates
	Updates() <-chan Update

	// Close stops the monitor and closes the update channel
	Close() error
}

// Counts tallies events seen by the monitor.
type Counts struct {
	Created  int
	Modified int
	Deleted  int

	// Unsaved is reset when the staging table is cleared
	Unsaved int
}

// Total returns the number of events counted.
func (c Counts) Total() int {
	return c.Created + c.Modified + c.Deleted
}

// Update represents a periodic monitoring update.
type Update struct {
	// Timestamp of the update
	Timestamp time.Time

	// Counts since the monitor started
	Counts Counts

	// Delta since the previous update
	Delta Counts
}
