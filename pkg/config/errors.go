package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrEmptyRootDir is returned when a root has no directory.
	ErrEmptyRootDir = errors.New("root directory must not be empty")

	// ErrEmptyExtension is returned when a root lists an empty extension.
	ErrEmptyExtension = errors.New("root extension must not be empty; use \"*\" to match all files")

	// ErrInvalidRootSpec is returned when an EXT:DIR[:r] value cannot be parsed.
	ErrInvalidRootSpec = errors.New("invalid root, expected EXT:DIR or EXT:DIR:r")

	// ErrInvalidWatchSize is returned when a watch pool or buffer size is <= 0.
	ErrInvalidWatchSize = errors.New("invalid watch settings: sizes must be > 0")

	// ErrNoDBPath is returned when no database path is configured.
	ErrNoDBPath = errors.New("no database path specified")

	// ErrInvalidTimeout is returned when the storage timeout is <= 0.
	ErrInvalidTimeout = errors.New("invalid storage timeout: must be > 0")

	// ErrInvalidDisplayFormat is returned when display format is not recognized.
	ErrInvalidDisplayFormat = errors.New("invalid display format: must be table, json, or simple")

	// ErrInvalidLogLevel is returned when log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level: must be debug, info, warn, or error")

	// ErrInvalidLogFormat is returned when log format is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrInvalidRotation is returned when a log rotation setting is negative.
	ErrInvalidRotation = errors.New("invalid log rotation: values must be >= 0")

	// ErrConfigNotFound is returned when config file is not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidYAML is returned when config file has invalid YAML syntax.
	ErrInvalidYAML = errors.New("invalid YAML syntax in config file")
)
