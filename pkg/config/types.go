// Package config provides configuration management for dirwatch.
//
// Configuration is loaded from multiple sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables
// 3. Configuration file
// 4. Default values (lowest priority)
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, root := range cfg.Roots {
//	    fmt.Println(root.Dir, root.ExtensionList())
//	}
package config

import (
	"strings"
	"time"
)

// WildcardExtension matches every file in a root.
const WildcardExtension = "*"

// Config represents the complete application configuration.
//
// Invariants:
// - Every root has a directory and no empty extension
// - Watch sizes are > 0
// - Storage.DBPath is set and Storage.Timeout > 0
// - Display.Format is table, json or simple.
type Config struct {
	// Directories watched when a session starts
	Roots []RootConfig `yaml:"roots"`

	// Watch manager tuning
	Watch WatchConfig `yaml:"watch"`

	// Storage settings
	Storage StorageConfig `yaml:"storage"`

	// Display settings
	Display DisplayConfig `yaml:"display"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`
}

// RootConfig is one configured watch root.
type RootConfig struct {
	Dir        string   `yaml:"dir"`
	Extensions []string `yaml:"extensions,omitempty"`
	Recursive  bool     `yaml:"recursive"`
}

// ExtensionList returns the configured extensions, or the wildcard when
// none are listed.
func (r RootConfig) ExtensionList() []string {
	if len(r.Extensions) == 0 {
		return []string{WildcardExtension}
	}
	return r.Extensions
}

// WatchConfig contains watch manager settings.
type WatchConfig struct {
	// Workers handling directories created or deleted during a session
	PoolWorkers int `yaml:"pool_workers"`

	// Pending directory tasks before the notification loop blocks
	TaskQueue int `yaml:"task_queue"`

	// Parallel subtree registrations per root at session start
	InitWorkers int `yaml:"init_workers"`

	// Maximum raw notifications handled per batch
	BatchSize int `yaml:"batch_size"`

	// Per-subscriber message buffer
	SubscriberBuffer int `yaml:"subscriber_buffer"`

	// Consecutive notifier errors before escalation
	CircuitBreakerThreshold int `yaml:"circuit_breaker_threshold"`
}

// StorageConfig contains storage-related settings.
type StorageConfig struct {
	// Path to the BoltDB database file
	DBPath string `yaml:"db_path"`

	// How long to wait for the database file lock
	Timeout time.Duration `yaml:"timeout"`
}

// DisplayConfig contains display-related settings.
type DisplayConfig struct {
	// Output format (table, json, simple)
	Format string `yaml:"format"`

	// Enable colored output on terminals
	Color bool `yaml:"color"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level"`

	// Log output destination (stdout, stderr, file path)
	Output string `yaml:"output"`

	// Log format (text, json)
	Format string `yaml:"format"`

	// Rotation settings for file output
	MaxSizeMB  int `yaml:"max_size_mb"`
	MaxBackups int `yaml:"max_backups"`
	MaxAgeDays int `yaml:"max_age_days"`
}

// Validate checks if the configuration satisfies all invariants.
//
// Thread-safety: This method is read-only and thread-safe.
func (c *Config) Validate() error {
	for _, root := range c.Roots {
		if strings.TrimSpace(root.Dir) == "" {
			return ErrEmptyRootDir
		}
		for _, ext := range root.Extensions {
			if strings.TrimSpace(ext) == "" {
				return ErrEmptyExtension
			}
		}
	}

	w := c.Watch
	if w.PoolWorkers <= 0 || w.TaskQueue <= 0 || w.InitWorkers <= 0 ||
		w.BatchSize <= 0 || w.SubscriberBuffer <= 0 || w.CircuitBreakerThreshold <= 0 {
		return ErrInvalidWatchSize
	}

	if c.Storage.DBPath == "" {
		return ErrNoDBPath
	}
	if c.Storage.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	switch c.Display.Format {
	case "table", "json", "simple":
	default:
		return ErrInvalidDisplayFormat
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return ErrInvalidLogFormat
	}

	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		return ErrInvalidRotation
	}

	return nil
}

// Default returns a configuration with sensible default values.
func Default() *Config {
	return &Config{
		Watch: WatchConfig{
			PoolWorkers:             4,
			TaskQueue:               256,
			InitWorkers:             8,
			BatchSize:               128,
			SubscriberBuffer:        256,
			CircuitBreakerThreshold: 5,
		},
		Storage: StorageConfig{
			DBPath:  defaultDBPath(),
			Timeout: time.Second,
		},
		Display: DisplayConfig{
			Format: "table",
			Color:  true,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Output:    "stderr",
			Format:    "text",
			MaxSizeMB: 10,
		},
	}
}
