package watcher

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/0xmhha/dirwatch/pkg/logger"
)

// registration is the live subscription of one directory.
type registration struct {
	dir string

	mu    sync.Mutex
	sub   Subscription
	count int
	dead  bool
}

// registrationTable reference-counts directory subscriptions.
//
// Overlapping roots share one subscription per directory. The subscription
// is created on the 0 -> 1 transition and cancelled on 1 -> 0; both happen
// under the entry lock, so a concurrent enter either joins the live entry
// or retries after the dead one is gone from the map.
type registrationTable struct {
	notifier Notifier
	logger   logger.Logger

	entries sync.Map // string -> *registration
	size    atomic.Int64
}

func newRegistrationTable(n Notifier, log logger.Logger) *registrationTable {
	return &registrationTable{
		notifier: n,
		logger:   log,
	}
}

// enter adds one reference to dir, subscribing on the first one.
// Returns true when this call created the subscription.
func (t *registrationTable) enter(dir string) (bool, error) {
	for {
		fresh := &registration{dir: dir}
		fresh.mu.Lock()

		actual, loaded := t.entries.LoadOrStore(dir, fresh)
		if !loaded {
			sub, err := t.notifier.Subscribe(dir)
			if err != nil {
				fresh.dead = true
				t.entries.CompareAndDelete(dir, fresh)
				fresh.mu.Unlock()
				return false, err
			}
			fresh.sub = sub
			fresh.count = 1
			fresh.mu.Unlock()
			t.size.Add(1)
			return true, nil
		}
		fresh.mu.Unlock()

		reg := actual.(*registration)
		reg.mu.Lock()
		if reg.dead {
			reg.mu.Unlock()
			continue
		}
		reg.count++
		reg.mu.Unlock()
		return false, nil
	}
}

// exit drops one reference to dir, cancelling the subscription on the
// last one. Returns false if dir was not registered; the count never goes
// below zero.
func (t *registrationTable) exit(dir string) bool {
	value, ok := t.entries.Load(dir)
	if !ok {
		return false
	}
	reg := value.(*registration)

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if reg.dead {
		return false
	}
	reg.count--
	if reg.count > 0 {
		return true
	}

	t.retire(reg)
	return true
}

// drop retires dir regardless of its count. Used when the handle became
// invalid underneath us.
func (t *registrationTable) drop(dir string) {
	value, ok := t.entries.Load(dir)
	if !ok {
		return
	}
	reg := value.(*registration)

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if !reg.dead {
		t.retire(reg)
	}
}

// retire must be called with reg.mu held.
func (t *registrationTable) retire(reg *registration) {
	reg.dead = true
	if err := reg.sub.Cancel(); err != nil {
		t.logger.Warn("failed to cancel subscription", "dir", reg.dir, "error", err)
	}
	t.entries.CompareAndDelete(reg.dir, reg)
	t.size.Add(-1)
}

// has reports whether dir holds a live registration.
func (t *registrationTable) has(dir string) bool {
	return t.count(dir) > 0
}

// count returns the reference count of dir, or 0.
func (t *registrationTable) count(dir string) int {
	value, ok := t.entries.Load(dir)
	if !ok {
		return 0
	}
	reg := value.(*registration)

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.dead {
		return 0
	}
	return reg.count
}

// subscription returns the live handle of dir.
func (t *registrationTable) subscription(dir string) (Subscription, bool) {
	value, ok := t.entries.Load(dir)
	if !ok {
		return nil, false
	}
	reg := value.(*registration)

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.dead {
		return nil, false
	}
	return reg.sub, true
}

// under returns the registered directories equal to or below root, sorted
// deepest first.
func (t *registrationTable) under(root string) []string {
	var dirs []string
	t.entries.Range(func(key, _ any) bool {
		if dir := key.(string); isWithinPath(root, dir) {
			dirs = append(dirs, dir)
		}
		return true
	})
	sort.Slice(dirs, func(i, j int) bool { return dirs[i] > dirs[j] })
	return dirs
}

func (t *registrationTable) len() int {
	return int(t.size.Load())
}

// clear cancels every subscription.
func (t *registrationTable) clear() {
	t.entries.Range(func(key, _ any) bool {
		t.drop(key.(string))
		return true
	})
}
