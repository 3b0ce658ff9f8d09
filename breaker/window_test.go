package breaker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/fuse/store"
)

// fakeClock 手动推进的时钟，同时注入存储和熔断器
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestWindow(clock *fakeClock, window, bucket time.Duration) *counterWindow {
	st := store.NewMemory(store.WithMemoryClock(clock.Now))
	return &counterWindow{
		store:  st,
		keys:   keySchema{prefix: "test:", name: "svc"},
		window: window,
		bucket: bucket,
		now:    clock.Now,
	}
}

func TestWindowAggregatesAcrossBuckets(t *testing.T) {
	clock := newFakeClock()
	w := newTestWindow(clock, 10*time.Second, time.Second)
	ctx := context.Background()

	require.NoError(t, w.recordSuccess(ctx))
	require.NoError(t, w.recordSuccess(ctx))
	clock.Advance(3 * time.Second)
	require.NoError(t, w.recordFailure(ctx))
	clock.Advance(2 * time.Second)
	require.NoError(t, w.recordSuccess(ctx))

	successes, failures, err := w.totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), successes)
	assert.Equal(t, int64(1), failures)
}

func TestWindowSlidesOldBucketsOut(t *testing.T) {
	clock := newFakeClock()
	w := newTestWindow(clock, 5*time.Second, time.Second)
	ctx := context.Background()

	require.NoError(t, w.recordFailure(ctx))
	require.NoError(t, w.recordFailure(ctx))

	// 推进超过窗口跨度，旧的失败脉冲不再参与统计
	clock.Advance(6 * time.Second)
	require.NoError(t, w.recordSuccess(ctx))

	successes, failures, err := w.totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), successes)
	assert.Equal(t, int64(0), failures)
}

func TestWindowReset(t *testing.T) {
	clock := newFakeClock()
	w := newTestWindow(clock, 10*time.Second, time.Second)
	ctx := context.Background()

	require.NoError(t, w.recordSuccess(ctx))
	require.NoError(t, w.recordFailure(ctx))
	require.NoError(t, w.reset(ctx))

	successes, failures, err := w.totals(ctx)
	require.NoError(t, err)
	assert.Zero(t, successes)
	assert.Zero(t, failures)
}

func TestWindowConcurrentIncrements(t *testing.T) {
	clock := newFakeClock()
	w := newTestWindow(clock, 10*time.Second, time.Second)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.recordFailure(ctx)
		}()
	}
	wg.Wait()

	_, failures, err := w.totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(50), failures)
}

func TestParseCount(t *testing.T) {
	n, err := parseCount([]byte("42"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	_, err = parseCount([]byte("abc"))
	assert.Error(t, err)
}
