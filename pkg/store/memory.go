package store

import (
	"sort"
	"sync"

	"github.com/0xmhha/dirwatch/pkg/fsevent"
)

// memoryStore implements Store in memory.
// Useful for testing.
type memoryStore struct {
	mu      sync.RWMutex
	staging []StagingEntry
	log     []LogEntry
	nextID  uint64
	roots   map[string]WatchedRoot
	closed  bool
}

// NewMemory creates an in-memory store.
//
// Nothing survives the process; useful for tests or when persistence is not needed.
func NewMemory() Store {
	return &memoryStore{
		roots: make(map[string]WatchedRoot),
	}
}

// Stage implements Store.Stage.
func (s *memoryStore) Stage(evt fsevent.Event) error {
	if err := validateEvent(evt); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrUnavailable
	}
	s.staging = append(s.staging, StagingEntry{Event: evt})
	return nil
}

// Staged implements Store.Staged.
func (s *memoryStore) Staged() ([]StagingEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrUnavailable
	}
	return append([]StagingEntry(nil), s.staging...), nil
}

// Commit implements Store.Commit.
func (s *memoryStore) Commit() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrUnavailable
	}

	for _, entry := range s.staging {
		s.nextID++
		s.log = append(s.log, LogEntry{ID: s.nextID, Event: entry.Event})
	}
	n := len(s.staging)
	s.staging = nil
	return n, nil
}

// Discard implements Store.Discard.
func (s *memoryStore) Discard() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrUnavailable
	}
	s.staging = nil
	return nil
}

// Log implements Store.Log.
func (s *memoryStore) Log(limit int) ([]LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrUnavailable
	}

	entries := s.log
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return append([]LogEntry(nil), entries...), nil
}

// ResetSession implements Store.ResetSession.
func (s *memoryStore) ResetSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrUnavailable
	}
	s.staging = nil
	s.roots = make(map[string]WatchedRoot)
	return nil
}

// PutWatchedRoot implements Store.PutWatchedRoot.
func (s *memoryStore) PutWatchedRoot(root WatchedRoot) error {
	if root.Path == "" {
		return ErrInvalidPath
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrUnavailable
	}
	s.roots[root.Path] = root
	return nil
}

// DeleteWatchedRoot implements Store.DeleteWatchedRoot.
func (s *memoryStore) DeleteWatchedRoot(path string) error {
	if path == "" {
		return ErrInvalidPath
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrUnavailable
	}
	delete(s.roots, path)
	return nil
}

// WatchedRoots implements Store.WatchedRoots.
func (s *memoryStore) WatchedRoots() ([]WatchedRoot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrUnavailable
	}

	roots := make([]WatchedRoot, 0, len(s.roots))
	for _, root := range s.roots {
		roots = append(roots, root)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].Path < roots[j].Path })
	return roots, nil
}

// Close implements Store.Close.
func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
