package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// localConfigFile is looked up in the working directory.
const localConfigFile = "dirwatch.yaml"

// Environment variables read by the loader.
const (
	EnvDB       = "DIRWATCH_DB"
	EnvLogLevel = "DIRWATCH_LOG_LEVEL"
	EnvRoots    = "DIRWATCH_ROOTS"
)

// Loader provides methods for loading configuration from various sources.
type Loader interface {
	// Load loads configuration with the following precedence:
	// 1. Environment variables
	// 2. Configuration file
	// 3. Default values
	//
	// Returns the merged configuration or an error if validation fails.
	Load() (*Config, error)

	// LoadFromFile loads configuration from a specific file on top of
	// the defaults.
	LoadFromFile(path string) (*Config, error)

	// Path returns the file Load reads, or "" when none is found.
	Path() string
}

// loader implements the Loader interface.
type loader struct {
	configPath string
}

// NewLoader creates a new configuration loader.
//
// If configPath is empty, searches for config file in:
// 1. ./dirwatch.yaml (current directory)
// 2. ~/.config/dirwatch/config.yaml.
func NewLoader(configPath string) Loader {
	return &loader{
		configPath: configPath,
	}
}

// Load implements Loader.Load.
func (l *loader) Load() (*Config, error) {
	cfg := Default()

	if path := l.Path(); path != "" {
		fileCfg, err := l.LoadFromFile(path)
		switch {
		case err == nil:
			cfg = fileCfg
		case l.configPath != "":
			// An explicit file must load.
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	cfg, err := l.applyEnvVars(cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFile implements Loader.LoadFromFile.
//
// Keys missing from the file keep their default values.
func (l *loader) LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return cfg, nil
}

// Path implements Loader.Path.
func (l *loader) Path() string {
	if l.configPath != "" {
		return l.configPath
	}

	for _, path := range SearchPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// SearchPaths returns the configuration files consulted when no path is
// given, in order of precedence.
func SearchPaths() []string {
	return []string{localConfigFile, DefaultPath()}
}

// applyEnvVars applies environment variable overrides to the configuration.
//
// Supported environment variables:
//   - DIRWATCH_DB: Path to database file
//   - DIRWATCH_LOG_LEVEL: Log level
//   - DIRWATCH_ROOTS: Comma-separated EXT:DIR[:r] roots, appended to the file's roots
func (l *loader) applyEnvVars(cfg *Config) (*Config, error) {
	result := *cfg

	if dbPath := os.Getenv(EnvDB); dbPath != "" {
		result.Storage.DBPath = dbPath
	}

	if logLevel := os.Getenv(EnvLogLevel); logLevel != "" {
		result.Logging.Level = strings.ToLower(logLevel)
	}

	if envRoots := os.Getenv(EnvRoots); envRoots != "" {
		roots := append([]RootConfig(nil), result.Roots...)
		for _, spec := range strings.Split(envRoots, ",") {
			spec = strings.TrimSpace(spec)
			if spec == "" {
				continue
			}
			root, err := ParseRoot(spec)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", EnvRoots, err)
			}
			roots = append(roots, root)
		}
		result.Roots = roots
	}

	return &result, nil
}

// ParseRoot parses an EXT:DIR or EXT:DIR:r root specification.
//
// EXT may be "*" to match all files. A trailing ":r" makes the root
// recursive.
func ParseRoot(spec string) (RootConfig, error) {
	ext, rest, ok := strings.Cut(spec, ":")
	if !ok || strings.TrimSpace(ext) == "" || rest == "" {
		return RootConfig{}, fmt.Errorf("%w: %q", ErrInvalidRootSpec, spec)
	}

	root := RootConfig{Dir: rest}
	if dir, found := strings.CutSuffix(rest, ":r"); found {
		root.Dir = dir
		root.Recursive = true
	}
	if root.Dir == "" {
		return RootConfig{}, fmt.Errorf("%w: %q", ErrInvalidRootSpec, spec)
	}

	ext = strings.TrimSpace(ext)
	if ext != WildcardExtension {
		root.Extensions = []string{ext}
	}
	return root, nil
}

// Load is a convenience function that creates a loader and loads configuration.
func Load() (*Config, error) {
	return NewLoader("").Load()
}

// LoadFromFile is a convenience function that loads configuration from a file.
//
// Equivalent to:
//
//	loader := NewLoader(path)
//	return loader.Load()
func LoadFromFile(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// Save writes the configuration to a YAML file.
//
// Creates parent directories if they don't exist.
// File is created with 0600 permissions (read/write for owner only).
func Save(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
