// Package display provides output formatting for recorded file events.
//
// It supports multiple output formats (table, JSON, simple text) for the
// durable log, the staging table and the watched roots.
package display

import (
	"io"
	"time"

	"github.com/0xmhha/dirwatch/pkg/store"
	"github.com/0xmhha/dirwatch/pkg/watcher"
)

// Format represents an output format.
type Format string

const (
	// FormatTable displays rows in a formatted table.
	FormatTable Format = "table"

	// FormatJSON displays rows as JSON.
	FormatJSON Format = "json"

	// FormatSimple displays one line per row.
	FormatSimple Format = "simple"
)

// timeLayout is used for every timestamp column.
const timeLayout = "2006-01-02 15:04:05"

// Formatter formats and displays recorded events.
type Formatter interface {
	// FormatLog formats durable log entries.
	//
	// Parameters:
	//   - w: Output writer
	//   - entries: Log entries in id order
	//
	// Returns error if writing fails.
	FormatLog(w io.Writer, entries []store.LogEntry) error

	// FormatStaged formats rows waiting in the staging table.
	FormatStaged(w io.Writer, entries []store.StagingEntry) error

	// FormatRoots formats the live roots of a watch manager.
	FormatRoots(w io.Writer, roots []watcher.RootInfo) error

	// FormatWatchedRoots formats the persisted watched-roots table.
	FormatWatchedRoots(w io.Writer, roots []store.WatchedRoot) error

	// FormatSummary formats per-kind and per-extension counts.
	FormatSummary(w io.Writer, summary Summary) error
}

// Config contains formatter configuration.
type Config struct {
	// Format specifies the output format.
	// Default: FormatTable.
	Format Format

	// ShowTimestamps enables the timestamp column.
	// Default: false.
	ShowTimestamps bool

	// Compact enables compact output (less whitespace).
	// Default: false.
	Compact bool
}

// Summary aggregates a set of events.
type Summary struct {
	Total       int            `json:"total"`
	Created     int            `json:"created"`
	Modified    int            `json:"modified"`
	Deleted     int            `json:"deleted"`
	ByExtension map[string]int `json:"by_extension"`
	First       time.Time      `json:"first,omitempty"`
	Last        time.Time      `json:"last,omitempty"`
}
