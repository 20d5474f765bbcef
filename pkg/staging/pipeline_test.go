package staging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/dirwatch/pkg/bus"
	"github.com/0xmhha/dirwatch/pkg/fsevent"
	"github.com/0xmhha/dirwatch/pkg/logger"
	"github.com/0xmhha/dirwatch/pkg/store"
)

func newPipeline(t *testing.T) (*Pipeline, store.Store, *bus.Bus[fsevent.Message]) {
	t.Helper()

	s := store.NewMemory()
	b := bus.New[fsevent.Message](bus.Options{}, logger.Noop())
	t.Cleanup(b.Close)

	p, err := New(s, b, logger.Noop())
	require.NoError(t, err)
	return p, s, b
}

func event(name string) fsevent.Event {
	return fsevent.New(fsevent.KindCreate, name, "/tmp/a", time.Now())
}

func TestNewRequiresStore(t *testing.T) {
	_, err := New(nil, nil, logger.Noop())
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestCommitMovesStagedRows(t *testing.T) {
	p, s, _ := newPipeline(t)

	require.NoError(t, p.Stage(event("a.txt")))
	require.NoError(t, p.Stage(event("b.txt")))

	n, err := p.Commit()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	staged, err := s.Staged()
	require.NoError(t, err)
	assert.Empty(t, staged)

	entries, err := s.Log(0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)

	stats := p.Stats()
	assert.Equal(t, uint64(2), stats.Staged)
	assert.Equal(t, uint64(2), stats.Committed)
}

func TestDiscardPublishesLogCleared(t *testing.T) {
	p, s, b := newPipeline(t)
	messages, cancel := b.Subscribe()
	defer cancel()

	require.NoError(t, p.Stage(event("a.txt")))
	require.NoError(t, p.Discard())

	select {
	case msg := <-messages:
		assert.IsType(t, fsevent.LogCleared{}, msg)
	case <-time.After(time.Second):
		t.Fatal("LogCleared not published")
	}

	staged, err := s.Staged()
	require.NoError(t, err)
	assert.Empty(t, staged)

	entries, err := s.Log(0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStageFailureIsCounted(t *testing.T) {
	p, s, _ := newPipeline(t)
	require.NoError(t, s.Close())

	err := p.Stage(event("a.txt"))
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.Equal(t, uint64(1), p.Stats().Failed)

	_, err = p.Commit()
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.ErrorIs(t, p.Discard(), store.ErrUnavailable)
}

func TestResetAndRecover(t *testing.T) {
	p, s, _ := newPipeline(t)

	require.NoError(t, p.Stage(event("left-over.txt")))
	p.RecordRoot("/tmp/a", true)

	recovered, err := p.Recover()
	require.NoError(t, err)
	require.Len(t, recovered, 1)
	assert.Equal(t, "left-over.txt", recovered[0].FileName)

	roots, err := s.WatchedRoots()
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.True(t, roots[0].Recursive)

	require.NoError(t, p.Reset())

	recovered, err = p.Recover()
	require.NoError(t, err)
	assert.Empty(t, recovered)

	roots, err = s.WatchedRoots()
	require.NoError(t, err)
	assert.Empty(t, roots)
}

func TestForgetRoot(t *testing.T) {
	p, s, _ := newPipeline(t)

	p.RecordRoot("/tmp/a", false)
	p.RecordRoot("/tmp/b", false)
	p.ForgetRoot("/tmp/a")

	roots, err := s.WatchedRoots()
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "/tmp/b", roots[0].Path)
}
