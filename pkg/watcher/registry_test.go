package watcher

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/dirwatch/pkg/logger"
)

func TestRegistrationLifecycle(t *testing.T) {
	n := newFakeNotifier()
	table := newRegistrationTable(n, logger.Noop())

	created, err := table.enter("/tmp/a")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = table.enter("/tmp/a")
	require.NoError(t, err)
	assert.False(t, created, "second enter shares the subscription")
	assert.Equal(t, 2, table.count("/tmp/a"))
	assert.Equal(t, 1, table.len())

	assert.True(t, table.exit("/tmp/a"))
	assert.True(t, n.subscribed("/tmp/a"))

	assert.True(t, table.exit("/tmp/a"))
	assert.False(t, n.subscribed("/tmp/a"))
	assert.False(t, table.has("/tmp/a"))
	assert.Zero(t, table.len())

	assert.False(t, table.exit("/tmp/a"), "count never goes below zero")
}

func TestRegistrationSubscribeFailure(t *testing.T) {
	n := newFakeNotifier()
	n.failOn["/tmp/denied"] = errors.New("permission denied")
	table := newRegistrationTable(n, logger.Noop())

	_, err := table.enter("/tmp/denied")
	assert.Error(t, err)
	assert.False(t, table.has("/tmp/denied"))
	assert.Zero(t, table.len())

	// A later attempt starts from scratch.
	delete(n.failOn, "/tmp/denied")
	created, err := table.enter("/tmp/denied")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestRegistrationDrop(t *testing.T) {
	n := newFakeNotifier()
	table := newRegistrationTable(n, logger.Noop())

	_, _ = table.enter("/tmp/a")
	_, _ = table.enter("/tmp/a")
	table.drop("/tmp/a")

	assert.False(t, table.has("/tmp/a"))
	assert.False(t, n.subscribed("/tmp/a"))
	assert.False(t, table.exit("/tmp/a"))
}

func TestRegistrationUnder(t *testing.T) {
	table := newRegistrationTable(newFakeNotifier(), logger.Noop())
	for _, dir := range []string{"/tmp/a", "/tmp/a/b", "/tmp/a/b/c", "/tmp/ab", "/tmp/c"} {
		_, err := table.enter(dir)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"/tmp/a/b/c", "/tmp/a/b", "/tmp/a"}, table.under("/tmp/a"))

	table.clear()
	assert.Zero(t, table.len())
	assert.Empty(t, table.under("/tmp"))
}

func TestRegistrationConcurrentEnterExit(t *testing.T) {
	n := newFakeNotifier()
	table := newRegistrationTable(n, logger.Noop())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_, err := table.enter("/tmp/a")
				assert.NoError(t, err)
				assert.True(t, table.exit("/tmp/a"))
			}
		}()
	}
	wg.Wait()

	assert.False(t, table.has("/tmp/a"))
	assert.False(t, n.subscribed("/tmp/a"), "every subscription must be cancelled")
	assert.Zero(t, table.len())
}
