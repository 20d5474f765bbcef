package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/0xmhha/dirwatch/pkg/fsevent"
	"github.com/0xmhha/dirwatch/pkg/logger"
)

// RawEvent is a notification as reported by the OS, before root
// resolution and filtering.
type RawEvent struct {
	Dir  string
	Name string
	Kind fsevent.Kind
}

// Path returns the absolute path the notification is about.
func (e RawEvent) Path() string {
	return filepath.Join(e.Dir, e.Name)
}

// Subscription is the handle of one watched directory.
type Subscription interface {
	// Dir returns the subscribed directory.
	Dir() string

	// Rearm re-enables delivery after a batch for this directory was
	// processed. Returns false if the handle is no longer valid.
	Rearm() bool

	// Cancel ends the subscription. Safe to call more than once.
	Cancel() error
}

// Notifier is the OS notification primitive.
//
// Implementations must be safe for concurrent use: Subscribe and Cancel are
// called from worker goroutines while Next blocks in the consumer loop.
type Notifier interface {
	// Subscribe starts delivering notifications for direct children of dir.
	Subscribe(dir string) (Subscription, error)

	// Next blocks until at least one notification is available and returns
	// a batch of them. Returns ErrNotifierClosed once Close was called.
	Next(ctx context.Context) ([]RawEvent, error)

	// Close releases the primitive and unblocks Next.
	Close() error
}

// fsNotifier implements Notifier using fsnotify.
type fsNotifier struct {
	fsw       *fsnotify.Watcher
	logger    logger.Logger
	batchSize int
	threshold int

	closeOnce sync.Once

	// Circuit breaker state, only touched by the consumer goroutine.
	failureCount int
}

// NewNotifier creates an fsnotify-backed Notifier.
//
// Parameters:
//   - cfg: Watch configuration (batch size and breaker threshold)
//   - log: Logger instance
//
// Returns:
//   - Notifier ready for subscriptions
//   - Error if the OS watch primitive cannot be created
func NewNotifier(cfg Config, log logger.Logger) (Notifier, error) {
	cfg = cfg.withDefaults()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &fsNotifier{
		fsw:       fsw,
		logger:    log.With("component", "notifier"),
		batchSize: cfg.BatchSize,
		threshold: cfg.CircuitBreakerThreshold,
	}, nil
}

// Subscribe implements Notifier.Subscribe.
func (n *fsNotifier) Subscribe(dir string) (Subscription, error) {
	if err := n.fsw.Add(dir); err != nil {
		if errors.Is(err, fsnotify.ErrClosed) {
			return nil, ErrNotifierClosed
		}
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return &fsSubscription{notifier: n, dir: dir}, nil
}

// Next implements Notifier.Next.
func (n *fsNotifier) Next(ctx context.Context) ([]RawEvent, error) {
	batch := make([]RawEvent, 0, n.batchSize)

	// Block for the first notification.
	for len(batch) == 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case event, ok := <-n.fsw.Events:
			if !ok {
				return nil, ErrNotifierClosed
			}
			if raw, keep := convert(event); keep {
				batch = append(batch, raw)
			}

		case err, ok := <-n.fsw.Errors:
			if !ok {
				return nil, ErrNotifierClosed
			}
			n.handleError(err)
		}
	}

	n.failureCount = 0

	// Drain whatever else is already queued.
	for len(batch) < n.batchSize {
		select {
		case event, ok := <-n.fsw.Events:
			if !ok {
				return batch, nil
			}
			if raw, keep := convert(event); keep {
				batch = append(batch, raw)
			}
		default:
			return batch, nil
		}
	}
	return batch, nil
}

// Close implements Notifier.Close.
func (n *fsNotifier) Close() error {
	var err error
	n.closeOnce.Do(func() {
		if cerr := n.fsw.Close(); cerr != nil {
			n.logger.Error("failed to close fsnotify watcher", "error", cerr)
			err = fmt.Errorf("failed to close notifier: %w", cerr)
		}
	})
	return err
}

// handleError counts consecutive fsnotify errors and escalates once the
// breaker threshold is reached.
func (n *fsNotifier) handleError(err error) {
	n.failureCount++

	if errors.Is(err, fsnotify.ErrEventOverflow) {
		n.logger.Warn("notification queue overflowed, events were lost",
			"failure_count", n.failureCount)
	} else {
		n.logger.Error("fsnotify error",
			"error", err,
			"failure_count", n.failureCount)
	}

	if n.failureCount == n.threshold {
		n.logger.Error("notifier failing repeatedly",
			"error", ErrCircuitBreakerOpen,
			"threshold", n.threshold)
	}
}

// convert maps an fsnotify event to a RawEvent.
func convert(event fsnotify.Event) (RawEvent, bool) {
	var kind fsevent.Kind
	switch {
	case event.Op.Has(fsnotify.Create):
		kind = fsevent.KindCreate
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		kind = fsevent.KindDelete
	case event.Op.Has(fsnotify.Write), event.Op.Has(fsnotify.Chmod):
		kind = fsevent.KindModify
	default:
		return RawEvent{}, false
	}

	return RawEvent{
		Dir:  filepath.Dir(event.Name),
		Name: filepath.Base(event.Name),
		Kind: kind,
	}, true
}

// fsSubscription implements Subscription for fsNotifier.
type fsSubscription struct {
	notifier *fsNotifier
	dir      string
	canceled atomic.Bool
}

// Dir implements Subscription.Dir.
func (s *fsSubscription) Dir() string {
	return s.dir
}

// Rearm implements Subscription.Rearm.
//
// fsnotify watches stay armed between deliveries, so re-arming only
// reports whether the handle is still live.
func (s *fsSubscription) Rearm() bool {
	return !s.canceled.Load()
}

// Cancel implements Subscription.Cancel.
func (s *fsSubscription) Cancel() error {
	if !s.canceled.CompareAndSwap(false, true) {
		return nil
	}

	err := s.notifier.fsw.Remove(s.dir)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fsnotify.ErrNonExistentWatch), errors.Is(err, fsnotify.ErrClosed):
		// The kernel already dropped the watch, or the session is closing.
		return nil
	default:
		return fmt.Errorf("failed to unwatch %s: %w", s.dir, err)
	}
}
