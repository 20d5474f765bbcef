package display

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/0xmhha/dirwatch/pkg/fsevent"
)

// New creates a new formatter based on configuration.
//
// Parameters:
//   - cfg: Formatter configuration
//
// Returns a configured Formatter.
func New(cfg Config) Formatter {
	if cfg.Format == "" {
		cfg.Format = FormatTable
	}

	switch cfg.Format {
	case FormatJSON:
		return &jsonFormatter{config: cfg}
	case FormatSimple:
		return &simpleFormatter{config: cfg}
	default:
		return &tableFormatter{config: cfg}
	}
}

// Summarize counts events by kind and extension.
func Summarize(events []fsevent.Event) Summary {
	s := Summary{ByExtension: make(map[string]int)}
	for _, evt := range events {
		s.Total++
		switch evt.Kind {
		case fsevent.KindCreate:
			s.Created++
		case fsevent.KindModify:
			s.Modified++
		case fsevent.KindDelete:
			s.Deleted++
		}

		ext := evt.Extension
		if ext == "" {
			ext = "(none)"
		}
		s.ByExtension[ext]++

		if s.First.IsZero() || evt.Timestamp.Before(s.First) {
			s.First = evt.Timestamp
		}
		if evt.Timestamp.After(s.Last) {
			s.Last = evt.Timestamp
		}
	}
	return s
}

// sortedKeys returns the keys of m ordered by descending count, then name.
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

// formatNumber formats a number with thousand separators.
func formatNumber(n int) string {
	s := fmt.Sprintf("%d", n)
	if n < 1000 {
		return s
	}

	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// writeHeader writes a section header.
func writeHeader(w io.Writer, title string, compact bool) error {
	if compact {
		_, err := fmt.Fprintf(w, "%s\n", title)
		return err
	}

	_, err := fmt.Fprintf(w, "\n%s\n%s\n\n", title, strings.Repeat("=", len(title)))
	return err
}
