// Package staging implements the two-stage persistence pipeline.
//
// Captured events are written to the staging table immediately so they
// survive a crash, and are promoted to the durable log only when the user
// commits. Discarding empties staging and tells listeners to clear their
// view of unsaved events.
package staging

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/0xmhha/dirwatch/pkg/bus"
	"github.com/0xmhha/dirwatch/pkg/fsevent"
	"github.com/0xmhha/dirwatch/pkg/logger"
	"github.com/0xmhha/dirwatch/pkg/store"
)

// Stats reports pipeline counters since creation.
type Stats struct {
	Staged    uint64
	Failed    uint64
	Committed uint64
}

// Pipeline stages events and promotes or discards them on demand.
type Pipeline struct {
	store    store.Store
	messages *bus.Bus[fsevent.Message]
	logger   logger.Logger

	staged    atomic.Uint64
	failed    atomic.Uint64
	committed atomic.Uint64
}

// New creates a pipeline over an explicit storage handle.
//
// messages may be nil when no listener needs LogCleared notifications.
func New(s store.Store, messages *bus.Bus[fsevent.Message], log logger.Logger) (*Pipeline, error) {
	if s == nil {
		return nil, ErrNoStore
	}

	return &Pipeline{
		store:    s,
		messages: messages,
		logger:   log.With("component", "staging"),
	}, nil
}

// Stage appends evt to the staging table.
//
// A failure is logged and counted; the caller keeps monitoring.
func (p *Pipeline) Stage(evt fsevent.Event) error {
	if err := p.store.Stage(evt); err != nil {
		p.failed.Add(1)
		p.logger.Error("failed to stage event",
			"file", evt.FileName,
			"path", evt.Path,
			"kind", evt.Kind,
			"error", err)
		return err
	}

	p.staged.Add(1)
	return nil
}

// Commit promotes every staged row to the durable log.
func (p *Pipeline) Commit() (int, error) {
	n, err := p.store.Commit()
	if err != nil {
		return 0, fmt.Errorf("failed to commit staged events: %w", err)
	}

	p.committed.Add(uint64(n))
	return n, nil
}

// Discard empties staging and publishes LogCleared.
func (p *Pipeline) Discard() error {
	if err := p.store.Discard(); err != nil {
		return fmt.Errorf("failed to discard staged events: %w", err)
	}

	if p.messages != nil {
		p.messages.Publish(fsevent.LogCleared{})
	}
	return nil
}

// Reset clears staging and the watched-roots table for a new session.
func (p *Pipeline) Reset() error {
	if err := p.store.ResetSession(); err != nil {
		return fmt.Errorf("failed to reset session tables: %w", err)
	}
	return nil
}

// Recover returns rows left in staging by a previous, interrupted session.
func (p *Pipeline) Recover() ([]store.StagingEntry, error) {
	entries, err := p.store.Staged()
	if err != nil {
		return nil, fmt.Errorf("failed to read staged events: %w", err)
	}
	return entries, nil
}

// RecordRoot notes an active top-level root in the diagnostic table.
func (p *Pipeline) RecordRoot(path string, recursive bool) {
	if err := p.store.PutWatchedRoot(store.WatchedRoot{
		Path:      path,
		Recursive: recursive,
		AddedAt:   time.Now(),
	}); err != nil {
		p.logger.Warn("failed to record watched root", "path", path, "error", err)
	}
}

// ForgetRoot removes a top-level root from the diagnostic table.
func (p *Pipeline) ForgetRoot(path string) {
	if err := p.store.DeleteWatchedRoot(path); err != nil {
		p.logger.Warn("failed to forget watched root", "path", path, "error", err)
	}
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Staged:    p.staged.Load(),
		Failed:    p.failed.Load(),
		Committed: p.committed.Load(),
	}
}
