package breaker_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/fuse/breaker"
	"github.com/ceyewan/fuse/store"
	"github.com/ceyewan/fuse/testkit"
)

// TestBreakersShareStateThroughRedis 两个独立的熔断器实例（模拟两个进程）
// 通过同一个 Redis 协同：一个实例观测到的失败会让另一个实例熔断。
func TestBreakersShareStateThroughRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	conn := testkit.GetRedisConnector(t)
	newInstance := func(prefix string) breaker.Breaker {
		st, err := store.NewRedis(conn)
		require.NoError(t, err)

		cfg := breaker.DefaultConfig()
		cfg.Prefix = prefix
		cfg.Breakers = map[string]breaker.Policy{
			"svc": {
				FailureThreshold: 0.5,
				RecoveryTimeout:  2 * time.Second,
				Window:           30 * time.Second,
				MinimumVolume:    4,
				ProbeTTL:         time.Second,
			},
		}
		b, err := breaker.New(cfg, st, breaker.WithLogger(testkit.NewLogger()))
		require.NoError(t, err)
		return b
	}

	prefix := fmt.Sprintf("fuse-test:%d:", time.Now().UnixNano())
	first := newInstance(prefix)
	second := newInstance(prefix)
	ctx := context.Background()
	errDown := errors.New("downstream unavailable")

	// 第一个实例观测到全部失败
	for i := 0; i < 4; i++ {
		_, err := first.Execute(ctx, "svc", func() (any, error) {
			return nil, errDown
		})
		require.ErrorIs(t, err, errDown)
	}

	// 第二个实例看到同一份状态并快速失败
	state, err := second.Status(ctx, "svc")
	require.NoError(t, err)
	assert.Equal(t, breaker.StateOpen, state)

	_, err = second.Execute(ctx, "svc", func() (any, error) {
		t.Fatal("downstream must not be called while open")
		return nil, nil
	})
	assert.ErrorIs(t, err, breaker.ErrOpenState)

	// 恢复窗口过后任意实例都可以探测，成功后全局闭合
	time.Sleep(2100 * time.Millisecond)
	result, err := second.Execute(ctx, "svc", func() (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)

	state, err = first.Status(ctx, "svc")
	require.NoError(t, err)
	assert.Equal(t, breaker.StateClosed, state)

	require.NoError(t, first.Reset(ctx, "svc"))
}
