package monitor

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/0xmhha/dirwatch/pkg/fsevent"
	"github.com/0xmhha/dirwatch/pkg/logger"
)

// liveMonitor implements the LiveMonitor interface.
type liveMonitor struct {
	config Config
	logger logger.Logger
	source Source
	out    io.Writer
	colors palette

	mu       sync.Mutex
	running  bool
	closed   bool
	stopChan chan struct{}
	done     chan struct{}
	cancel   func()

	counts Counts
	last   Counts

	updates chan Update
}

// New creates a new live monitor.
//
// Parameters:
//   - cfg: Monitor configuration
//   - src: Message source, usually the watch manager
//   - out: Where lines are written
//   - log: Logger instance
//
// Returns:
//   - Configured LiveMonitor
//   - Error if src is nil
func New(cfg Config, src Source, out io.Writer, log logger.Logger) (LiveMonitor, error) {
	if src == nil {
		return nil, ErrNoSource
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = time.Second
	}

	m := &liveMonitor{
		config:  cfg,
		logger:  log.With("component", "monitor"),
		source:  src,
		out:     out,
		colors:  newPalette(cfg.Color && IsTerminal(out)),
		updates: make(chan Update, 10),
	}

	m.logger.Debug("live monitor created", "refresh_interval", cfg.RefreshInterval)
	return m, nil
}

// Start implements LiveMonitor.Start.
func (m *liveMonitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrMonitorClosed
	}
	if m.running {
		return ErrMonitorRunning
	}

	messages, cancel := m.source.Subscribe()
	m.cancel = cancel
	m.stopChan = make(chan struct{})
	m.done = make(chan struct{})
	m.running = true

	go m.run(messages, m.stopChan, m.done)
	return nil
}

// Stop implements LiveMonitor.Stop.
func (m *liveMonitor) Stop() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrMonitorClosed
	}
	if !m.running {
		m.mu.Unlock()
		return ErrMonitorNotRunning
	}
	m.stopLocked()
	done := m.done
	m.mu.Unlock()

	<-done
	return nil
}

// stopLocked must be called with m.mu held.
func (m *liveMonitor) stopLocked() {
	close(m.stopChan)
	m.cancel()
	m.running = false
}

// Counts implements LiveMonitor.Counts.
func (m *liveMonitor) Counts() Counts {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts
}

// Updates implements LiveMonitor.Updates.
func (m *liveMonitor) Updates() <-chan Update {
	return m.updates
}

// Close implements LiveMonitor.Close.
func (m *liveMonitor) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	var done chan struct{}
	if m.running {
		m.stopLocked()
		done = m.done
	}
	m.closed = true
	m.mu.Unlock()

	if done != nil {
		<-done
	}
	close(m.updates)
	return nil
}

// run renders messages until stopped or the source closes the channel.
func (m *liveMonitor) run(messages <-chan fsevent.Message, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return

		case msg, ok := <-messages:
			if !ok {
				m.logger.Debug("message stream closed")
				return
			}
			m.handle(msg)

		case <-ticker.C:
			m.sendUpdate()
		}
	}
}

// handle counts and renders one message.
func (m *liveMonitor) handle(msg fsevent.Message) {
	switch v := msg.(type) {
	case fsevent.Started:
		m.printf("%s watching (session %s)\n", m.colors.dim("•"), v.SessionID)

	case fsevent.Stopped:
		m.printf("%s stopped (session %s)\n", m.colors.dim("•"), v.SessionID)

	case fsevent.RegisterStarted:
		if m.config.ShowRegistration {
			m.printf("%s registering %s\n", m.colors.dim("•"), v.Root)
		}

	case fsevent.RegisterDone:
		if m.config.ShowRegistration {
			m.printf("%s registered %s: %d directories in %s\n",
				m.colors.dim("•"), v.Root, v.Dirs, v.Elapsed.Round(time.Millisecond))
		}

	case fsevent.LogCleared:
		m.printf("%s unsaved events cleared\n", m.colors.dim("•"))
		m.mu.Lock()
		m.counts.Unsaved = 0
		m.mu.Unlock()

	case fsevent.EventRecorded:
		evt := v.Event
		m.printf("%s %s %s\n",
			evt.Timestamp.Format("15:04:05"),
			m.colors.kind(evt.Kind),
			filepath.Join(evt.Path, evt.FileName))
		m.count(evt.Kind)
	}
}

func (m *liveMonitor) count(kind fsevent.Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch kind {
	case fsevent.KindCreate:
		m.counts.Created++
	case fsevent.KindModify:
		m.counts.Modified++
	case fsevent.KindDelete:
		m.counts.Deleted++
	}
	m.counts.Unsaved++
}

func (m *liveMonitor) printf(format string, args ...any) {
	if _, err := fmt.Fprintf(m.out, format, args...); err != nil {
		m.logger.Warn("failed to write monitor output", "error", err)
	}
}

// sendUpdate sends a counter update to the updates channel.
func (m *liveMonitor) sendUpdate() {
	m.mu.Lock()
	current := m.counts
	delta := Counts{
		Created:  current.Created - m.last.Created,
		Modified: current.Modified - m.last.Modified,
		Deleted:  current.Deleted - m.last.Deleted,
		Unsaved:  current.Unsaved - m.last.Unsaved,
	}
	m.last = current
	m.mu.Unlock()

	select {
	case m.updates <- Update{Timestamp: time.Now(), Counts: current, Delta: delta}:
	default:
		m.logger.Debug("updates channel full, dropping update")
	}
}
