package watcher

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/0xmhha/dirwatch/pkg/bus"
	"github.com/0xmhha/dirwatch/pkg/fsevent"
	"github.com/0xmhha/dirwatch/pkg/logger"
	"github.com/0xmhha/dirwatch/pkg/staging"
	"github.com/0xmhha/dirwatch/pkg/store"
)

// fakeNotifier is an in-memory Notifier driven by the test.
type fakeNotifier struct {
	mu       sync.Mutex
	active   map[string]int
	canceled []string
	failOn   map[string]error

	batches   chan []RawEvent
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		active:  make(map[string]int),
		failOn:  make(map[string]error),
		batches: make(chan []RawEvent, 64),
		closed:  make(chan struct{}),
	}
}

func (n *fakeNotifier) Subscribe(dir string) (Subscription, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.failOn[dir]; err != nil {
		return nil, err
	}
	n.active[dir]++
	return &fakeSubscription{notifier: n, dir: dir}, nil
}

func (n *fakeNotifier) Next(ctx context.Context) ([]RawEvent, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-n.closed:
		return nil, ErrNotifierClosed
	case batch := <-n.batches:
		return batch, nil
	}
}

func (n *fakeNotifier) Close() error {
	n.closeOnce.Do(func() { close(n.closed) })
	return nil
}

func (n *fakeNotifier) send(events ...RawEvent) {
	n.batches <- events
}

func (n *fakeNotifier) subscribed(dir string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.active[dir] > 0
}

func (n *fakeNotifier) subscriptions() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	var dirs []string
	for dir, c := range n.active {
		if c > 0 {
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs
}

type fakeSubscription struct {
	notifier *fakeNotifier
	dir      string

	mu       sync.Mutex
	canceled bool
}

func (s *fakeSubscription) Dir() string { return s.dir }

func (s *fakeSubscription) Rearm() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.canceled
}

func (s *fakeSubscription) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canceled {
		return nil
	}
	s.canceled = true

	s.notifier.mu.Lock()
	s.notifier.active[s.dir]--
	s.notifier.canceled = append(s.notifier.canceled, s.dir)
	s.notifier.mu.Unlock()
	return nil
}

// harness wires a manager to an in-memory store and a fake notifier.
type harness struct {
	mgr      *manager
	store    store.Store
	messages <-chan fsevent.Message

	mu        sync.Mutex
	notifiers []*fakeNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	s := store.NewMemory()
	b := bus.New[fsevent.Message](bus.Options{SubscriberBuffer: 1024}, logger.Noop())
	t.Cleanup(b.Close)

	p, err := staging.New(s, b, logger.Noop())
	require.NoError(t, err)

	mgr, err := New(Config{PoolWorkers: 2, InitWorkers: 2}, p, b, logger.Noop())
	require.NoError(t, err)

	h := &harness{mgr: mgr.(*manager), store: s}
	h.mgr.newNotifier = func(Config, logger.Logger) (Notifier, error) {
		n := newFakeNotifier()
		h.mu.Lock()
		h.notifiers = append(h.notifiers, n)
		h.mu.Unlock()
		return n, nil
	}

	messages, cancel := mgr.Subscribe()
	t.Cleanup(cancel)
	h.messages = messages

	t.Cleanup(func() { _ = mgr.Close() })
	return h
}

// notifier returns the notifier of the current session.
func (h *harness) notifier() *fakeNotifier {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.notifiers[len(h.notifiers)-1]
}

// waitFor reads messages until one of type T arrives.
func waitFor[T fsevent.Message](t *testing.T, messages <-chan fsevent.Message) T {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-messages:
			if v, ok := msg.(T); ok {
				return v
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

// startAndRegister starts the session and waits until every root has
// finished its initial registration.
func (h *harness) startAndRegister(t *testing.T) {
	t.Helper()

	roots := h.mgr.roots.len()
	require.NoError(t, h.mgr.Start())
	for i := 0; i < roots; i++ {
		waitFor[fsevent.RegisterDone](t, h.messages)
	}
}
