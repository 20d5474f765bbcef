package monitor

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/dirwatch/pkg/bus"
	"github.com/0xmhha/dirwatch/pkg/fsevent"
	"github.com/0xmhha/dirwatch/pkg/logger"
)

// syncBuffer is a bytes.Buffer safe for the monitor goroutine and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestMonitor(t *testing.T, cfg Config) (LiveMonitor, *bus.Bus[fsevent.Message], *syncBuffer) {
	t.Helper()

	b := bus.New[fsevent.Message](bus.Options{}, logger.Noop())
	t.Cleanup(b.Close)

	out := &syncBuffer{}
	m, err := New(cfg, b, out, logger.Noop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m, b, out
}

func recorded(kind fsevent.Kind, name string) fsevent.EventRecorded {
	return fsevent.EventRecorded{Event: fsevent.New(kind, name, "/tmp/a", time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC))}
}

func TestNewRequiresSource(t *testing.T) {
	_, err := New(Config{}, nil, &bytes.Buffer{}, logger.Noop())
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestMonitorRendersAndCounts(t *testing.T) {
	m, b, out := newTestMonitor(t, Config{ShowRegistration: true})
	require.NoError(t, m.Start())

	b.Publish(fsevent.Started{SessionID: "s-1"})
	b.Publish(fsevent.RegisterStarted{Root: "/tmp/a"})
	b.Publish(fsevent.RegisterDone{Root: "/tmp/a", Dirs: 3, Elapsed: 12 * time.Millisecond})
	b.Publish(recorded(fsevent.KindCreate, "f.txt"))
	b.Publish(recorded(fsevent.KindModify, "f.txt"))
	b.Publish(recorded(fsevent.KindDelete, "g.txt"))

	require.Eventually(t, func() bool {
		return m.Counts().Total() == 3
	}, time.Second, 5*time.Millisecond)

	counts := m.Counts()
	assert.Equal(t, Counts{Created: 1, Modified: 1, Deleted: 1, Unsaved: 3}, counts)

	output := out.String()
	assert.Contains(t, output, "watching (session s-1)")
	assert.Contains(t, output, "registered /tmp/a: 3 directories in 12ms")
	assert.Contains(t, output, "09:30:00 CREATE /tmp/a/f.txt")
	assert.Contains(t, output, "09:30:00 DELETE /tmp/a/g.txt")
	assert.NotContains(t, output, "\x1b[", "no colors on a buffer")
}

func TestMonitorLogClearedResetsUnsaved(t *testing.T) {
	m, b, out := newTestMonitor(t, Config{})
	require.NoError(t, m.Start())

	b.Publish(recorded(fsevent.KindCreate, "f.txt"))
	b.Publish(fsevent.LogCleared{})

	require.Eventually(t, func() bool {
		counts := m.Counts()
		return counts.Created == 1 && counts.Unsaved == 0
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, out.String(), "unsaved events cleared")
}

func TestMonitorHidesRegistrationByDefault(t *testing.T) {
	m, b, out := newTestMonitor(t, Config{})
	require.NoError(t, m.Start())

	b.Publish(fsevent.RegisterStarted{Root: "/tmp/a"})
	b.Publish(fsevent.Stopped{SessionID: "s-1"})

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "stopped")
	}, time.Second, 5*time.Millisecond)
	assert.NotContains(t, out.String(), "registering")
}

func TestMonitorUpdates(t *testing.T) {
	m, b, _ := newTestMonitor(t, Config{RefreshInterval: 10 * time.Millisecond})
	require.NoError(t, m.Start())

	b.Publish(recorded(fsevent.KindCreate, "a.txt"))
	b.Publish(recorded(fsevent.KindCreate, "b.txt"))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case update := <-m.Updates():
			if update.Counts.Created < 2 {
				continue
			}
			assert.Equal(t, 2, update.Counts.Total())
			return
		case <-deadline:
			t.Fatal("no update with both events")
		}
	}
}

func TestMonitorStateErrors(t *testing.T) {
	m, _, _ := newTestMonitor(t, Config{})

	assert.ErrorIs(t, m.Stop(), ErrMonitorNotRunning)
	require.NoError(t, m.Start())
	assert.ErrorIs(t, m.Start(), ErrMonitorRunning)
	require.NoError(t, m.Stop())

	// A stopped monitor can start again.
	require.NoError(t, m.Start())

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.ErrorIs(t, m.Start(), ErrMonitorClosed)
	assert.ErrorIs(t, m.Stop(), ErrMonitorClosed)

	_, open := <-m.Updates()
	assert.False(t, open)
}

func TestPaletteKind(t *testing.T) {
	plain := newPalette(false)
	assert.Equal(t, "CREATE", plain.kind(fsevent.KindCreate))

	colored := newPalette(true)
	assert.Equal(t, ansiRed+"DELETE"+ansiReset, colored.kind(fsevent.KindDelete))
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}
