package main

import (
	"fmt"

	"github.com/0xmhha/dirwatch/pkg/bus"
	"github.com/0xmhha/dirwatch/pkg/config"
	"github.com/0xmhha/dirwatch/pkg/display"
	"github.com/0xmhha/dirwatch/pkg/fsevent"
	"github.com/0xmhha/dirwatch/pkg/logger"
	"github.com/0xmhha/dirwatch/pkg/staging"
	"github.com/0xmhha/dirwatch/pkg/store"
	"github.com/0xmhha/dirwatch/pkg/watcher"
)

// app bundles the components every storage-backed command needs.
type app struct {
	config   *config.Config
	logger   logger.Logger
	store    store.Store
	messages *bus.Bus[fsevent.Message]
	pipeline *staging.Pipeline
}

// loadConfig loads configuration from path, or from the default search
// locations when path is empty.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.NewLoader(path).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openApp opens storage and builds the staging pipeline for cfg.
func openApp(cfg *config.Config) (*app, error) {
	log := logger.New(loggerConfig(cfg.Logging))

	s, err := store.Open(storeConfig(cfg.Storage), log)
	if err != nil {
		return nil, fmt.Errorf("failed to open event store: %w", err)
	}

	messages := bus.New[fsevent.Message](bus.Options{
		Name:             "session",
		SubscriberBuffer: cfg.Watch.SubscriberBuffer,
	}, log)

	pipeline, err := staging.New(s, messages, log)
	if err != nil {
		messages.Close()
		if closeErr := s.Close(); closeErr != nil {
			log.Error("failed to close event store", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize staging: %w", err)
	}

	return &app{
		config:   cfg,
		logger:   log,
		store:    s,
		messages: messages,
		pipeline: pipeline,
	}, nil
}

// close releases the bus and the store.
func (a *app) close() {
	a.messages.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Error("failed to close event store", "error", err)
	}
}

// formatter returns a display formatter for format, falling back to the
// configured display format when format is empty.
func (a *app) formatter(format string, compact bool) (display.Formatter, error) {
	if format == "" {
		format = a.config.Display.Format
	}
	f, err := parseFormat(format)
	if err != nil {
		return nil, err
	}
	return display.New(display.Config{
		Format:         f,
		ShowTimestamps: true,
		Compact:        compact,
	}), nil
}

func parseFormat(format string) (display.Format, error) {
	switch format {
	case "table", "":
		return display.FormatTable, nil
	case "json":
		return display.FormatJSON, nil
	case "simple":
		return display.FormatSimple, nil
	default:
		return "", fmt.Errorf("invalid format %q (want table, json or simple)", format)
	}
}

func loggerConfig(c config.LoggingConfig) logger.Config {
	return logger.Config{
		Level:      c.Level,
		Output:     c.Output,
		Format:     c.Format,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
}

func storeConfig(c config.StorageConfig) store.Config {
	return store.Config{
		DBPath:  c.DBPath,
		Timeout: c.Timeout,
	}
}

func watcherConfig(c config.WatchConfig) watcher.Config {
	return watcher.Config{
		PoolWorkers:             c.PoolWorkers,
		TaskQueue:               c.TaskQueue,
		InitWorkers:             c.InitWorkers,
		BatchSize:               c.BatchSize,
		CircuitBreakerThreshold: c.CircuitBreakerThreshold,
	}
}
