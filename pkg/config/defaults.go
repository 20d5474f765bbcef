package config

import (
	"os"
	"path/filepath"
)

// appDir returns ~/.config/dirwatch, or "." without a home directory.
func appDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".config", "dirwatch")
}

// defaultDBPath returns the default database file path.
//
// Returns: ~/.config/dirwatch/events.db.
func defaultDBPath() string {
	return filepath.Join(appDir(), "events.db")
}

// DefaultPath returns the default configuration file path.
//
// Returns: ~/.config/dirwatch/config.yaml.
func DefaultPath() string {
	return filepath.Join(appDir(), "config.yaml")
}
