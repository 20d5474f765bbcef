package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/0xmhha/dirwatch/pkg/fsevent"
	"github.com/0xmhha/dirwatch/pkg/store"
	"github.com/0xmhha/dirwatch/pkg/watcher"
)

// tableFormatter formats output as tables.
type tableFormatter struct {
	config Config
}

// FormatLog implements Formatter.FormatLog.
func (f *tableFormatter) FormatLog(w io.Writer, entries []store.LogEntry) error {
	if err := writeHeader(w, "Event Log", f.config.Compact); err != nil {
		return err
	}

	header := append([]string{"ID"}, f.eventHeader()...)
	rows := make([][]string, len(entries))
	for i, entry := range entries {
		rows[i] = append([]string{fmt.Sprintf("%d", entry.ID)}, f.eventRow(entry.Event)...)
	}
	return f.writeTable(w, header, rows)
}

// FormatStaged implements Formatter.FormatStaged.
func (f *tableFormatter) FormatStaged(w io.Writer, entries []store.StagingEntry) error {
	if err := writeHeader(w, "Unsaved Events", f.config.Compact); err != nil {
		return err
	}

	rows := make([][]string, len(entries))
	for i, entry := range entries {
		rows[i] = f.eventRow(entry.Event)
	}
	return f.writeTable(w, f.eventHeader(), rows)
}

// FormatRoots implements Formatter.FormatRoots.
func (f *tableFormatter) FormatRoots(w io.Writer, roots []watcher.RootInfo) error {
	if err := writeHeader(w, "Watched Roots", f.config.Compact); err != nil {
		return err
	}

	rows := make([][]string, len(roots))
	for i, root := range roots {
		rows[i] = []string{
			root.Dir,
			extensionsLabel(root),
			yesNo(root.Recursive),
			fmt.Sprintf("%d", root.RefCount),
		}
	}
	return f.writeTable(w, []string{"Directory", "Extensions", "Recursive", "Refs"}, rows)
}

// FormatWatchedRoots implements Formatter.FormatWatchedRoots.
func (f *tableFormatter) FormatWatchedRoots(w io.Writer, roots []store.WatchedRoot) error {
	if err := writeHeader(w, "Session Roots", f.config.Compact); err != nil {
		return err
	}

	rows := make([][]string, len(roots))
	for i, root := range roots {
		rows[i] = []string{root.Path, yesNo(root.Recursive), root.AddedAt.Format(timeLayout)}
	}
	return f.writeTable(w, []string{"Path", "Recursive", "Added"}, rows)
}

// FormatSummary implements Formatter.FormatSummary.
func (f *tableFormatter) FormatSummary(w io.Writer, summary Summary) error {
	if err := writeHeader(w, "Event Summary", f.config.Compact); err != nil {
		return err
	}

	rows := [][]string{
		{"Events", formatNumber(summary.Total)},
		{"Created", formatNumber(summary.Created)},
		{"Modified", formatNumber(summary.Modified)},
		{"Deleted", formatNumber(summary.Deleted)},
	}
	for _, ext := range sortedKeys(summary.ByExtension) {
		rows = append(rows, []string{"Extension " + ext, formatNumber(summary.ByExtension[ext])})
	}
	if f.config.ShowTimestamps && !summary.First.IsZero() {
		rows = append(rows,
			[]string{"First Seen", summary.First.Format(timeLayout)},
			[]string{"Last Seen", summary.Last.Format(timeLayout)},
		)
	}

	return f.writeTable(w, []string{"Metric", "Value"}, rows)
}

func (f *tableFormatter) eventHeader() []string {
	header := []string{"Kind", "File", "Extension", "Directory"}
	if f.config.ShowTimestamps {
		header = append(header, "Time")
	}
	return header
}

func (f *tableFormatter) eventRow(evt fsevent.Event) []string {
	row := []string{evt.Kind.String(), evt.FileName, evt.Extension, evt.Path}
	if f.config.ShowTimestamps {
		row = append(row, evt.Timestamp.Format(timeLayout))
	}
	return row
}

// writeTable writes a formatted table.
func (f *tableFormatter) writeTable(w io.Writer, header []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No data")
		return err
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	if err := f.writeRow(w, header, widths); err != nil {
		return err
	}

	if !f.config.Compact {
		separator := make([]string, len(header))
		for i, width := range widths {
			separator[i] = strings.Repeat("-", width)
		}
		if err := f.writeRow(w, separator, widths); err != nil {
			return err
		}
	}

	for _, row := range rows {
		if err := f.writeRow(w, row, widths); err != nil {
			return err
		}
	}

	if !f.config.Compact {
		_, err := fmt.Fprintln(w)
		return err
	}
	return nil
}

// writeRow writes a single table row. The last column is not padded.
func (f *tableFormatter) writeRow(w io.Writer, cells []string, widths []int) error {
	gap := "  "
	if f.config.Compact {
		gap = " "
	}

	var b strings.Builder
	for i, cell := range cells {
		if i > 0 {
			b.WriteString(gap)
		}
		if i == len(cells)-1 {
			b.WriteString(cell)
			continue
		}
		b.WriteString(cell)
		b.WriteString(strings.Repeat(" ", widths[i]-len(cell)))
	}
	b.WriteByte('\n')

	_, err := io.WriteString(w, b.String())
	return err
}

// extensionsLabel renders a root's filter.
func extensionsLabel(root watcher.RootInfo) string {
	if root.MatchAll {
		return "*"
	}
	return strings.Join(root.Extensions, ",")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
