// Package fsevent defines the domain records produced by the watch manager.
//
// An Event is created once per qualifying filesystem notification and is
// never mutated afterwards. Messages are the tagged variants delivered to
// subscribers of the watch session.
package fsevent

import (
	"fmt"
	"strings"
	"time"
)

// Kind describes what happened to a file.
type Kind uint8

// Event kinds.
const (
	KindCreate Kind = iota + 1 // File appeared
	KindModify                 // File content or metadata changed
	KindDelete                 // File removed or moved away
)

// String returns the persisted name of the kind.
func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "CREATE"
	case KindModify:
		return "MODIFY"
	case KindDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// ParseKind converts a persisted kind name back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(s) {
	case "CREATE":
		return KindCreate, nil
	case "MODIFY":
		return KindModify, nil
	case "DELETE":
		return KindDelete, nil
	default:
		return 0, fmt.Errorf("unknown event kind %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Event is an immutable record of one filtered filesystem change.
type Event struct {
	// Extension is the file extension including the leading dot, or empty.
	Extension string `json:"extension"`

	// FileName is the base name of the file.
	FileName string `json:"filename"`

	// Path is the parent directory of the file.
	Path string `json:"path"`

	// Kind is the change that was observed.
	Kind Kind `json:"kind"`

	// Timestamp is when the event was captured.
	Timestamp time.Time `json:"timestamp"`
}

// New builds an Event for fileName inside dir, deriving its extension.
func New(kind Kind, fileName, dir string, at time.Time) Event {
	return Event{
		Extension: Extension(fileName),
		FileName:  fileName,
		Path:      dir,
		Kind:      kind,
		Timestamp: at,
	}
}

// Extension returns the substring of name starting at its last dot.
//
// Names without a dot have no extension, and a dot at position 0 does not
// mark one: ".bashrc" has no extension while "a.tar.gz" has ".gz".
func Extension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 {
		return ""
	}
	return name[idx:]
}
