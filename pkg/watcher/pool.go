package watcher

import (
	"context"
	"sync"

	"github.com/0xmhha/dirwatch/pkg/logger"
)

// task is a unit of directory work run by the pool.
type task func(ctx context.Context)

// taskPool runs directory tasks on a fixed set of workers.
//
// Submit blocks while the queue is full, which slows the consumer loop
// down instead of growing memory without bound.
type taskPool struct {
	ctx    context.Context
	logger logger.Logger
	tasks  chan task
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func newTaskPool(ctx context.Context, workers, queue int, log logger.Logger) *taskPool {
	p := &taskPool{
		ctx:    ctx,
		logger: log,
		tasks:  make(chan task, queue),
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

// submit queues t. Returns ErrPoolClosed after close.
func (p *taskPool) submit(t task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}
	p.tasks <- t
	return nil
}

// close stops accepting tasks and waits for queued ones to finish.
func (p *taskPool) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *taskPool) work() {
	defer p.wg.Done()
	for t := range p.tasks {
		p.run(t)
	}
}

func (p *taskPool) run(t task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("directory task panicked", "panic", r)
		}
	}()
	t(p.ctx)
}
