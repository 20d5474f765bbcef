package display

import (
	"encoding/json"
	"io"

	"github.com/0xmhha/dirwatch/pkg/store"
	"github.com/0xmhha/dirwatch/pkg/watcher"
)

// jsonFormatter formats output as JSON.
type jsonFormatter struct {
	config Config
}

func (f *jsonFormatter) encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	if !f.config.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(v)
}

// FormatLog implements Formatter.FormatLog.
func (f *jsonFormatter) FormatLog(w io.Writer, entries []store.LogEntry) error {
	if entries == nil {
		entries = []store.LogEntry{}
	}
	return f.encode(w, entries)
}

// FormatStaged implements Formatter.FormatStaged.
func (f *jsonFormatter) FormatStaged(w io.Writer, entries []store.StagingEntry) error {
	if entries == nil {
		entries = []store.StagingEntry{}
	}
	return f.encode(w, entries)
}

// FormatRoots implements Formatter.FormatRoots.
func (f *jsonFormatter) FormatRoots(w io.Writer, roots []watcher.RootInfo) error {
	if roots == nil {
		roots = []watcher.RootInfo{}
	}
	return f.encode(w, roots)
}

// FormatWatchedRoots implements Formatter.FormatWatchedRoots.
func (f *jsonFormatter) FormatWatchedRoots(w io.Writer, roots []store.WatchedRoot) error {
	if roots == nil {
		roots = []store.WatchedRoot{}
	}
	return f.encode(w, roots)
}

// FormatSummary implements Formatter.FormatSummary.
func (f *jsonFormatter) FormatSummary(w io.Writer, summary Summary) error {
	return f.encode(w, summary)
}
