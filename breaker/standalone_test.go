package breaker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStandalone(t *testing.T, opts ...Option) Breaker {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Breakers = map[string]Policy{
		"svc": {
			FailureThreshold: 0.5,
			RecoveryTimeout:  time.Second,
			Window:           10 * time.Second,
			MinimumVolume:    4,
		},
	}
	b, err := NewStandalone(cfg, opts...)
	require.NoError(t, err)
	return b
}

func TestStandaloneTripsAndRejects(t *testing.T) {
	b := newStandalone(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := b.Execute(ctx, "svc", func() (any, error) {
			return nil, errDownstream
		})
		require.ErrorIs(t, err, errDownstream)
	}

	state, err := b.Status(ctx, "svc")
	require.NoError(t, err)
	assert.Equal(t, StateOpen, state)

	_, err = b.Execute(ctx, "svc", func() (any, error) {
		t.Fatal("downstream must not be called while open")
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrOpenState)
}

func TestStandaloneRecoversAfterTimeout(t *testing.T) {
	b := newStandalone(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, _ = b.Execute(ctx, "svc", func() (any, error) {
			return nil, errDownstream
		})
	}

	time.Sleep(1100 * time.Millisecond)

	result, err := b.Execute(ctx, "svc", func() (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)

	state, err := b.Status(ctx, "svc")
	require.NoError(t, err)
	assert.Equal(t, StateClosed, state)
}

func TestStandaloneFallback(t *testing.T) {
	fallback := func(ctx context.Context, name string, cause error) (any, error) {
		return "cached", nil
	}
	b := newStandalone(t, WithFallback(fallback))
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, _ = b.Execute(ctx, "svc", func() (any, error) {
			return nil, errDownstream
		})
	}

	result, err := b.Execute(ctx, "svc", func() (any, error) {
		return "live", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "cached", result)
}

func TestStandaloneReset(t *testing.T) {
	b := newStandalone(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, _ = b.Execute(ctx, "svc", func() (any, error) {
			return nil, errDownstream
		})
	}
	require.NoError(t, b.Reset(ctx, "svc"))

	state, err := b.Status(ctx, "svc")
	require.NoError(t, err)
	assert.Equal(t, StateClosed, state)

	result, err := b.Execute(ctx, "svc", func() (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestStandaloneDisabledPolicy(t *testing.T) {
	b := newStandalone(t)
	ctx := context.Background()

	p := Policy{
		FailureThreshold: 0.5,
		RecoveryTimeout:  time.Second,
		Window:           10 * time.Second,
		MinimumVolume:    4,
		Disabled:         true,
	}
	require.NoError(t, b.Register("flagged", p))

	for i := 0; i < 10; i++ {
		_, err := b.Execute(ctx, "flagged", func() (any, error) {
			return nil, errDownstream
		})
		require.ErrorIs(t, err, errDownstream)
	}

	state, err := b.Status(ctx, "flagged")
	require.NoError(t, err)
	assert.Equal(t, StateClosed, state)
}

func TestStandaloneUnregisteredUsesDefaultPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Default.MinimumVolume = 2
	cfg.Default.FailureThreshold = 0.5
	b, err := NewStandalone(cfg)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _ = b.Execute(ctx, "anything", func() (any, error) {
			return nil, errDownstream
		})
	}

	state, err := b.Status(ctx, "anything")
	require.NoError(t, err)
	assert.Equal(t, StateOpen, state)
}
