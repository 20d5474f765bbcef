package display

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/0xmhha/dirwatch/pkg/fsevent"
	"github.com/0xmhha/dirwatch/pkg/store"
	"github.com/0xmhha/dirwatch/pkg/watcher"
)

// simpleFormatter formats output as simple text.
type simpleFormatter struct {
	config Config
}

// FormatLog implements Formatter.FormatLog.
func (f *simpleFormatter) FormatLog(w io.Writer, entries []store.LogEntry) error {
	for _, entry := range entries {
		if _, err := fmt.Fprintf(w, "#%d %s\n", entry.ID, f.line(entry.Event)); err != nil {
			return err
		}
	}
	return nil
}

// FormatStaged implements Formatter.FormatStaged.
func (f *simpleFormatter) FormatStaged(w io.Writer, entries []store.StagingEntry) error {
	for _, entry := range entries {
		if _, err := fmt.Fprintln(w, f.line(entry.Event)); err != nil {
			return err
		}
	}
	return nil
}

// FormatRoots implements Formatter.FormatRoots.
func (f *simpleFormatter) FormatRoots(w io.Writer, roots []watcher.RootInfo) error {
	for _, root := range roots {
		mode := "single"
		if root.Recursive {
			mode = "recursive"
		}
		if _, err := fmt.Fprintf(w, "%s [%s] %s refs=%d\n",
			root.Dir, extensionsLabel(root), mode, root.RefCount); err != nil {
			return err
		}
	}
	return nil
}

// FormatWatchedRoots implements Formatter.FormatWatchedRoots.
func (f *simpleFormatter) FormatWatchedRoots(w io.Writer, roots []store.WatchedRoot) error {
	for _, root := range roots {
		suffix := ""
		if root.Recursive {
			suffix = " (recursive)"
		}
		if _, err := fmt.Fprintf(w, "%s%s\n", root.Path, suffix); err != nil {
			return err
		}
	}
	return nil
}

// FormatSummary implements Formatter.FormatSummary.
func (f *simpleFormatter) FormatSummary(w io.Writer, summary Summary) error {
	exts := make([]string, 0, len(summary.ByExtension))
	for _, ext := range sortedKeys(summary.ByExtension) {
		exts = append(exts, fmt.Sprintf("%s=%d", ext, summary.ByExtension[ext]))
	}

	_, err := fmt.Fprintf(w, "Events: %s | Created: %d | Modified: %d | Deleted: %d | %s\n",
		formatNumber(summary.Total),
		summary.Created,
		summary.Modified,
		summary.Deleted,
		strings.Join(exts, " "))
	return err
}

func (f *simpleFormatter) line(evt fsevent.Event) string {
	s := fmt.Sprintf("%-6s %s", evt.Kind, filepath.Join(evt.Path, evt.FileName))
	if f.config.ShowTimestamps {
		s = evt.Timestamp.Format(timeLayout) + " " + s
	}
	return s
}
