// Package bus provides a typed publish/subscribe channel fan-out.
//
// Publishers never block on slow subscribers: a message that does not fit
// in a subscriber's buffer is dropped for that subscriber and counted.
//
// Example usage:
//
//	b := bus.New[fsevent.Message](bus.Options{Name: "session"}, logger.Default())
//	ch, cancel := b.Subscribe()
//	defer cancel()
//
//	for msg := range ch {
//	    fmt.Println(msg.Type())
//	}
package bus

import (
	"sync"
	"sync/atomic"

	"github.com/0xmhha/dirwatch/pkg/logger"
)

const defaultSubscriberBuffer = 256

// Options configures a Bus.
type Options struct {
	// Name identifies the bus in log lines.
	Name string

	// SubscriberBuffer is the channel capacity given to each subscriber.
	// Default: 256.
	SubscriberBuffer int
}

// Stats reports cumulative bus counters.
type Stats struct {
	Published   uint64
	Dropped     uint64
	Subscribers int
}

// Bus fans out values of type T to subscriber channels.
type Bus[T any] struct {
	mu          sync.Mutex
	subscribers map[uint64]chan T
	nextID      uint64
	closed      bool
	options     Options
	logger      logger.Logger

	published atomic.Uint64
	dropped   atomic.Uint64
}

// New creates a bus.
func New[T any](opts Options, log logger.Logger) *Bus[T] {
	if opts.SubscriberBuffer <= 0 {
		opts.SubscriberBuffer = defaultSubscriberBuffer
	}
	if opts.Name == "" {
		opts.Name = "bus"
	}

	return &Bus[T]{
		subscribers: make(map[uint64]chan T),
		options:     opts,
		logger:      log.With("bus", opts.Name),
	}
}

// Subscribe registers a new subscriber.
//
// The returned cancel function unsubscribes and closes the channel. On a
// closed bus the channel is returned already closed.
func (b *Bus[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, b.options.SubscriberBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.nextID++
	id := b.nextID
	b.subscribers[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() { b.remove(id) })
	}
}

// Publish delivers msg to every subscriber without blocking.
func (b *Bus[T]) Publish(msg T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.published.Add(1)

	for id, ch := range b.subscribers {
		select {
		case ch <- msg:
		default:
			if b.dropped.Add(1) == 1 {
				b.logger.Warn("subscriber buffer full, dropping messages",
					"subscriber", id)
			}
		}
	}
}

// Close closes every subscriber channel. Later publishes are ignored.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}

// Stats returns a snapshot of the bus counters.
func (b *Bus[T]) Stats() Stats {
	b.mu.Lock()
	subscribers := len(b.subscribers)
	b.mu.Unlock()

	return Stats{
		Published:   b.published.Load(),
		Dropped:     b.dropped.Load(),
		Subscribers: subscribers,
	}
}

func (b *Bus[T]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
	}
}
