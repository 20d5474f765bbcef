package watcher

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/dirwatch/pkg/logger"
)

func TestPoolRunsEveryTask(t *testing.T) {
	p := newTaskPool(context.Background(), 3, 2, logger.Noop())

	var ran atomic.Int64
	for i := 0; i < 50; i++ {
		require.NoError(t, p.submit(func(context.Context) { ran.Add(1) }))
	}
	p.close()

	assert.Equal(t, int64(50), ran.Load())
}

func TestPoolRejectsAfterClose(t *testing.T) {
	p := newTaskPool(context.Background(), 1, 1, logger.Noop())
	p.close()
	p.close()

	err := p.submit(func(context.Context) {})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPoolSurvivesPanickingTask(t *testing.T) {
	p := newTaskPool(context.Background(), 1, 4, logger.Noop())

	var ran atomic.Bool
	require.NoError(t, p.submit(func(context.Context) { panic("boom") }))
	require.NoError(t, p.submit(func(context.Context) { ran.Store(true) }))
	p.close()

	assert.True(t, ran.Load())
}

func TestPoolPassesContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newTaskPool(ctx, 1, 1, logger.Noop())

	var seen atomic.Bool
	require.NoError(t, p.submit(func(ctx context.Context) { seen.Store(ctx.Err() != nil) }))
	p.close()

	assert.True(t, seen.Load())
}
