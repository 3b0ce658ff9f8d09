package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNilConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestNewDisabledReturnsNoop(t *testing.T) {
	meter, err := New(&Config{Enabled: false})
	require.NoError(t, err)

	_, ok := meter.(*noopMeter)
	assert.True(t, ok)
}

func TestNoopMeterIsSilent(t *testing.T) {
	meter := Noop()
	ctx := context.Background()

	counter, err := meter.Counter("requests_total", "total requests")
	require.NoError(t, err)
	counter.Inc(ctx, L("name", "feed"))
	counter.Add(ctx, 5)

	gauge, err := meter.Gauge("active", "active calls")
	require.NoError(t, err)
	gauge.Set(ctx, 1)
	gauge.Inc(ctx)
	gauge.Dec(ctx)

	hist, err := meter.Histogram("duration_seconds", "call duration")
	require.NoError(t, err)
	hist.Record(ctx, 0.1)

	assert.NoError(t, meter.Shutdown(ctx))
}

func TestEnabledMeterCreatesInstruments(t *testing.T) {
	meter, err := New(&Config{
		Enabled:     true,
		ServiceName: "metrics-test",
		Version:     "v0.0.1",
	})
	require.NoError(t, err)
	defer func() { _ = meter.Shutdown(context.Background()) }()

	ctx := context.Background()

	counter, err := meter.Counter("test_requests_total", "test counter")
	require.NoError(t, err)
	counter.Inc(ctx, L("outcome", "success"))

	gauge, err := meter.Gauge("test_active", "test gauge")
	require.NoError(t, err)
	gauge.Inc(ctx, L("name", "a"))
	gauge.Dec(ctx, L("name", "a"))

	hist, err := meter.Histogram("test_duration_seconds", "test histogram")
	require.NoError(t, err)
	hist.Record(ctx, 0.42, L("name", "a"))
}

func TestLabelKeyStable(t *testing.T) {
	a := labelKey([]Label{L("b", "2"), L("a", "1")})
	b := labelKey([]Label{L("a", "1"), L("b", "2")})
	assert.Equal(t, a, b)
	assert.Equal(t, "", labelKey(nil))
}
