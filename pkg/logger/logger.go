// Package logger is the structured logging layer shared by every dirwatch
// component.
//
// Components receive a Logger at construction and tag their lines with
// With("component", name); the watch manager adds the session id so that
// all lines of one watch session can be grepped together. Lines are
// written with log/slog in text or JSON form. A file destination is
// rotated by size through lumberjack, so a long-running watch session
// cannot fill the disk with its own log.
//
// Example usage:
//
//	log := logger.New(logger.Config{
//	    Level:     "info",
//	    Output:    "/var/log/dirwatch/dirwatch.log",
//	    Format:    "json",
//	    MaxSizeMB: 10,
//	})
//	log = log.With("component", "watcher")
//	log.Info("root registered", "root", "/srv/data", "dirs", 42)
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// defaultMaxSizeMB is the rotation size used when Config.MaxSizeMB is unset.
const defaultMaxSizeMB = 10

// Logger is the logging contract dirwatch components depend on.
// Key-value pairs follow slog conventions: alternating keys and values.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})

	// With returns a child logger that adds keysAndValues to every line.
	With(keysAndValues ...interface{}) Logger
}

// Config mirrors the logging section of the configuration file.
type Config struct {
	// Level is the minimum level written: debug, info, warn or error.
	// Unknown values mean info.
	Level string

	// Output is "stdout", "stderr" (default) or a file path.
	Output string

	// Format is "text" (default) or "json".
	Format string

	// Rotation of file outputs. MaxSizeMB defaults to 10; zero backups or
	// age keeps every rotated file.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// logger implements Logger on top of slog.
type logger struct {
	slogger *slog.Logger
}

// New builds a Logger from cfg.
//
// New never fails: when a file output cannot be prepared the logger writes
// to stderr instead and its first line reports why.
func New(cfg Config) Logger {
	writer, err := getWriter(cfg)
	if err != nil {
		writer = os.Stderr
	}

	l := &logger{slogger: slog.New(newHandler(writer, cfg))}
	if err != nil {
		l.Warn("log file unavailable, logging to stderr", "output", cfg.Output, "error", err)
	}
	return l
}

// newHandler picks the slog handler for cfg.Format.
func newHandler(w io.Writer, cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func (l *logger) Debug(msg string, keysAndValues ...interface{}) {
	l.slogger.Debug(msg, keysAndValues...)
}

func (l *logger) Info(msg string, keysAndValues ...interface{}) {
	l.slogger.Info(msg, keysAndValues...)
}

func (l *logger) Warn(msg string, keysAndValues ...interface{}) {
	l.slogger.Warn(msg, keysAndValues...)
}

func (l *logger) Error(msg string, keysAndValues ...interface{}) {
	l.slogger.Error(msg, keysAndValues...)
}

func (l *logger) With(keysAndValues ...interface{}) Logger {
	return &logger{slogger: l.slogger.With(keysAndValues...)}
}

// parseLevel maps a configured level name to a slog level, case-insensitively.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// getWriter opens the destination named by cfg.Output. File outputs get
// their parent directory created and are wrapped in a rotating writer.
func getWriter(cfg Config) (io.Writer, error) {
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		return os.Stdout, nil
	case "stderr", "":
		return os.Stderr, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Output), 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory for %s: %w", cfg.Output, err)
	}

	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = defaultMaxSizeMB
	}

	return &lumberjack.Logger{
		Filename:   cfg.Output,
		MaxSize:    maxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}, nil
}

// Default returns an info-level text logger on stderr.
func Default() Logger {
	return New(Config{Level: "info", Output: "stderr", Format: "text"})
}

// Noop returns a logger that discards everything. Tests use it.
func Noop() Logger {
	return &logger{slogger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}
