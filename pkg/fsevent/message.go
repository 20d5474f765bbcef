package fsevent

import "time"

// Message types.
const (
	TypeStarted         = "started"
	TypeStopped         = "stopped"
	TypeEventRecorded   = "event_recorded"
	TypeLogCleared      = "log_cleared"
	TypeRegisterStarted = "register_started"
	TypeRegisterDone    = "register_done"
)

// Message is a notification published by a watch session.
//
// The concrete variants are Started, Stopped, EventRecorded, LogCleared,
// RegisterStarted and RegisterDone. Consumers switch on the dynamic type.
type Message interface {
	Type() string
}

// Started is published once a session is running.
type Started struct {
	SessionID string
	At        time.Time
}

// Type implements Message.
func (Started) Type() string { return TypeStarted }

// Stopped is published once a session has shut down.
type Stopped struct {
	SessionID string
	At        time.Time
}

// Type implements Message.
func (Stopped) Type() string { return TypeStopped }

// EventRecorded carries one event that passed its root's filter.
type EventRecorded struct {
	Event Event
}

// Type implements Message.
func (EventRecorded) Type() string { return TypeEventRecorded }

// LogCleared tells listeners to drop their view of unsaved events.
type LogCleared struct{}

// Type implements Message.
func (LogCleared) Type() string { return TypeLogCleared }

// RegisterStarted is published when the initial registration of a root begins.
type RegisterStarted struct {
	Root string
}

// Type implements Message.
func (RegisterStarted) Type() string { return TypeRegisterStarted }

// RegisterDone is published when the initial registration of a root ends.
type RegisterDone struct {
	Root    string
	Dirs    int
	Elapsed time.Duration
}

// Type implements Message.
func (RegisterDone) Type() string { return TypeRegisterDone }
