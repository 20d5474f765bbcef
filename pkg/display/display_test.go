package display

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/0xmhha/dirwatch/pkg/fsevent"
	"github.com/0xmhha/dirwatch/pkg/store"
	"github.com/0xmhha/dirwatch/pkg/watcher"
)

var testTime = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func testEvents() []fsevent.Event {
	return []fsevent.Event{
		fsevent.New(fsevent.KindCreate, "a.txt", "/tmp/a", testTime),
		fsevent.New(fsevent.KindModify, "a.txt", "/tmp/a", testTime.Add(time.Minute)),
		fsevent.New(fsevent.KindDelete, "b.md", "/tmp/a/sub", testTime.Add(2*time.Minute)),
		fsevent.New(fsevent.KindCreate, "Makefile", "/tmp/a", testTime.Add(3*time.Minute)),
	}
}

func testLog() []store.LogEntry {
	var entries []store.LogEntry
	for i, evt := range testEvents() {
		entries = append(entries, store.LogEntry{ID: uint64(i + 1), Event: evt})
	}
	return entries
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config Config
		want   string
	}{
		{name: "default format (table)", config: Config{}, want: "*display.tableFormatter"},
		{name: "table format", config: Config{Format: FormatTable}, want: "*display.tableFormatter"},
		{name: "json format", config: Config{Format: FormatJSON}, want: "*display.jsonFormatter"},
		{name: "simple format", config: Config{Format: FormatSimple}, want: "*display.simpleFormatter"},
		{name: "unknown falls back to table", config: Config{Format: "xml"}, want: "*display.tableFormatter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := fmt.Sprintf("%T", New(tt.config))
			if got != tt.want {
				t.Errorf("New() type = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTableFormatter_FormatLog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := New(Config{ShowTimestamps: true}).FormatLog(&buf, testLog()); err != nil {
		t.Fatalf("FormatLog() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{"Event Log", "ID", "CREATE", "DELETE", "b.md", "/tmp/a/sub", "2024-01-01 10:03:00"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestTableFormatter_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := New(Config{Compact: true}).FormatStaged(&buf, nil); err != nil {
		t.Fatalf("FormatStaged() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No data") {
		t.Errorf("output = %q, want No data", buf.String())
	}
}

func TestTableFormatter_FormatRoots(t *testing.T) {
	t.Parallel()

	roots := []watcher.RootInfo{
		{Dir: "/tmp/a", Extensions: []string{".md", ".txt"}, Recursive: true, RefCount: 2},
		{Dir: "/tmp/b", MatchAll: true, RefCount: 1},
	}

	var buf bytes.Buffer
	if err := New(Config{}).FormatRoots(&buf, roots); err != nil {
		t.Fatalf("FormatRoots() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	last := lines[len(lines)-1]
	if !strings.HasPrefix(last, "/tmp/b") || !strings.Contains(last, "*") || !strings.Contains(last, "no") {
		t.Errorf("last row = %q", last)
	}
	if !strings.Contains(buf.String(), ".md,.txt") {
		t.Errorf("output missing extension list:\n%s", buf.String())
	}
}

func TestTableFormatter_FormatSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := New(Config{ShowTimestamps: true}).FormatSummary(&buf, Summarize(testEvents())); err != nil {
		t.Fatalf("FormatSummary() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{"Events", "Extension .txt", "Extension (none)", "First Seen"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestJSONFormatter_FormatLog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := New(Config{Format: FormatJSON, Compact: true}).FormatLog(&buf, testLog()[:1]); err != nil {
		t.Fatalf("FormatLog() error = %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if len(decoded) != 1 {
		t.Fatalf("decoded %d rows, want 1", len(decoded))
	}
	row := decoded[0]
	if row["id"] != float64(1) || row["filename"] != "a.txt" || row["kind"] != "CREATE" {
		t.Errorf("row = %v", row)
	}
}

func TestJSONFormatter_EmptyIsArray(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := New(Config{Format: FormatJSON, Compact: true}).FormatWatchedRoots(&buf, nil); err != nil {
		t.Fatalf("FormatWatchedRoots() error = %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Errorf("output = %q, want []", got)
	}
}

func TestSimpleFormatter(t *testing.T) {
	t.Parallel()

	f := New(Config{Format: FormatSimple})

	var buf bytes.Buffer
	if err := f.FormatLog(&buf, testLog()); err != nil {
		t.Fatalf("FormatLog() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4", len(lines))
	}
	if want := "#3 DELETE " + filepath.Join("/tmp/a/sub", "b.md"); lines[2] != want {
		t.Errorf("line = %q, want %q", lines[2], want)
	}

	buf.Reset()
	if err := f.FormatSummary(&buf, Summarize(testEvents())); err != nil {
		t.Fatalf("FormatSummary() error = %v", err)
	}
	if want := "Events: 4 | Created: 2 | Modified: 1 | Deleted: 1 | .txt=2 (none)=1 .md=1\n"; buf.String() != want {
		t.Errorf("summary = %q, want %q", buf.String(), want)
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	s := Summarize(testEvents())
	if s.Total != 4 || s.Created != 2 || s.Modified != 1 || s.Deleted != 1 {
		t.Errorf("Summarize() = %+v", s)
	}
	if !s.First.Equal(testTime) || !s.Last.Equal(testTime.Add(3*time.Minute)) {
		t.Errorf("First/Last = %v/%v", s.First, s.Last)
	}

	empty := Summarize(nil)
	if empty.Total != 0 || !empty.First.IsZero() {
		t.Errorf("Summarize(nil) = %+v", empty)
	}
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	tests := map[int]string{
		0:       "0",
		999:     "999",
		1000:    "1,000",
		1234567: "1,234,567",
	}
	for in, want := range tests {
		if got := formatNumber(in); got != want {
			t.Errorf("formatNumber(%d) = %q, want %q", in, got, want)
		}
	}
}
