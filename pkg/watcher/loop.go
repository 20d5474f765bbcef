package watcher

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/0xmhha/dirwatch/pkg/fsevent"
	"github.com/0xmhha/dirwatch/pkg/logger"
)

// session holds the state of one Start/Stop cycle.
type session struct {
	id         string
	roots      *rootTable
	notifier   Notifier
	registry   *registrationTable
	ops        *treeOps
	dispatcher *dispatcher
	pool       *taskPool
	logger     logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	init   errgroup.Group
}

// consume drains the notifier until it is closed.
func (s *session) consume() {
	defer close(s.done)

	for {
		batch, err := s.notifier.Next(context.Background())
		if err != nil {
			if errors.Is(err, ErrNotifierClosed) {
				s.logger.Info("notification loop stopped")
				return
			}
			s.logger.Error("failed to read notifications", "error", err)
			continue
		}
		s.processBatch(batch)
	}
}

// processBatch handles one batch of raw notifications in delivery order.
// A notification identical to the one directly before it is handled once;
// repeats separated by other notifications are kept. Every directory that
// delivered is re-armed afterwards; a directory whose handle is no longer
// valid is dropped from the registry.
func (s *session) processBatch(batch []RawEvent) {
	touched := make(map[string]struct{})

	for i, raw := range batch {
		touched[raw.Dir] = struct{}{}
		if i > 0 && raw == batch[i-1] {
			continue
		}
		s.handle(raw)
	}

	for dir := range touched {
		sub, ok := s.registry.subscription(dir)
		if !ok {
			continue
		}
		if !sub.Rearm() {
			s.logger.Debug("subscription no longer valid, dropping", "dir", dir)
			s.registry.drop(dir)
		}
	}
}

// handle routes a single notification. Directory creation and deletion
// are handed to the task pool; file notifications go to the dispatcher.
func (s *session) handle(raw RawEvent) {
	path := raw.Path()

	root := s.roots.resolve(path)
	if root == nil {
		s.logger.Debug("notification outside every root", "path", path)
		return
	}

	if !s.isDirectory(path) {
		s.dispatcher.dispatch(raw.Kind, raw.Name, raw.Dir, root)
		return
	}

	switch raw.Kind {
	case fsevent.KindCreate:
		s.submit(func(ctx context.Context) {
			if root.isRecursive() {
				n := s.ops.registerTree(ctx, path, root, true)
				s.logger.Debug("directory tree discovered", "dir", path, "dirs", n)
				return
			}
			if err := s.ops.registerSingle(path); err != nil {
				s.logger.Warn("failed to register new directory", "dir", path, "error", err)
			}
		})

	case fsevent.KindDelete:
		s.submit(func(ctx context.Context) {
			if root.isRecursive() {
				n := s.ops.unregisterTree(ctx, path)
				s.logger.Debug("directory tree removed", "dir", path, "dirs", n)
				return
			}
			s.ops.unregisterSingle(path)
		})
	}
}

// isDirectory reports whether path is a directory on disk, or was one
// while it was registered. The latter covers deleted directories.
func (s *session) isDirectory(path string) bool {
	if s.registry.has(path) {
		return true
	}
	info, err := os.Lstat(path)
	return err == nil && info.IsDir()
}

func (s *session) submit(t task) {
	if err := s.pool.submit(t); err != nil {
		s.logger.Warn("directory task rejected", "error", err)
	}
}
