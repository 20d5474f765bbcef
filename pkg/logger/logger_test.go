package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// readLog reads the log file written by a file-backed logger.
func readLog(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	return string(data)
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		present []string
		absent  []string
	}{
		{
			level:   "debug",
			present: []string{"debug message", "info message", "warn message", "error message"},
		},
		{
			level:   "warn",
			present: []string{"warn message", "error message"},
			absent:  []string{"debug message", "info message"},
		},
		{
			level:   "error",
			present: []string{"error message"},
			absent:  []string{"debug message", "info message", "warn message"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logFile := filepath.Join(t.TempDir(), "dirwatch.log")
			log := New(Config{Level: tt.level, Output: logFile, Format: "text"})

			log.Debug("debug message")
			log.Info("info message")
			log.Warn("warn message")
			log.Error("error message")

			content := readLog(t, logFile)
			for _, want := range tt.present {
				if !strings.Contains(content, want) {
					t.Errorf("%q not found in log", want)
				}
			}
			for _, unwanted := range tt.absent {
				if strings.Contains(content, unwanted) {
					t.Errorf("%q should be filtered out", unwanted)
				}
			}
		})
	}
}

func TestWithAddsContextFields(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "dirwatch.log")

	log := New(Config{Level: "info", Output: logFile, Format: "text"}).
		With("component", "walker", "root", "/tmp/a")
	log.Info("registered directory", "dirs", 3)

	content := readLog(t, logFile)
	for _, want := range []string{"registered directory", "component=walker", "root=/tmp/a", "dirs=3"} {
		if !strings.Contains(content, want) {
			t.Errorf("%q not found in log: %s", want, content)
		}
	}
}

func TestJSONOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "dirwatch.json")

	log := New(Config{Level: "info", Output: logFile, Format: "json"})
	log.Info("event staged", "kind", "CREATE", "count", 42)

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(readLog(t, logFile)), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}

	if entry["msg"] != "event staged" {
		t.Errorf("msg = %v, want %q", entry["msg"], "event staged")
	}
	if entry["kind"] != "CREATE" {
		t.Errorf("kind = %v, want CREATE", entry["kind"])
	}
	if count, ok := entry["count"].(float64); !ok || count != 42 {
		t.Errorf("count = %v, want 42", entry["count"])
	}
}

func TestFileOutputCreatesDirectory(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "nested", "logs", "dirwatch.log")

	log := New(Config{Level: "info", Output: logFile, MaxSizeMB: 1, MaxBackups: 2})
	log.Info("hello")

	if _, err := os.Stat(logFile); err != nil {
		t.Fatalf("log file not created: %v", err)
	}
	if !strings.Contains(readLog(t, logFile), "hello") {
		t.Error("message not written to rotated file")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"unknown", "INFO"},
		{"", "INFO"},
		{"DEBUG", "DEBUG"},
		{"WaRn", "WARN"},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.level).String(); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestGetWriterStandardStreams(t *testing.T) {
	for _, output := range []string{"stdout", "stderr", "", "STDOUT"} {
		writer, err := getWriter(Config{Output: output})
		if err != nil {
			t.Errorf("getWriter(%q) error = %v", output, err)
			continue
		}
		if writer != os.Stdout && writer != os.Stderr {
			t.Errorf("getWriter(%q) = %T, want a standard stream", output, writer)
		}
	}
}

func TestUnusableFileOutputFallsBack(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	output := filepath.Join(blocker, "dirwatch.log")

	if _, err := getWriter(Config{Output: output}); err == nil {
		t.Fatal("getWriter() should fail when the parent is a file")
	}

	log := New(Config{Level: "error", Output: output})
	if log == nil {
		t.Fatal("New() returned nil")
	}
	log.Error("still logging")
}

func TestDefaultAndNoop(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default() returned nil")
	}

	log := Noop()
	log.Debug("debug")
	log.Info("info")
	log.Warn("warn")
	log.Error("error")
	log.With("k", "v").Info("discarded")
}

func BenchmarkLogInfo(b *testing.B) {
	log := Noop()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		log.Info("benchmark message", "key1", "value1", "key2", 42)
	}
}
