package breaker

import (
	"context"
	"time"

	"github.com/ceyewan/fuse/metrics"
)

// instruments 熔断器的指标集合。
// meter 为空时所有指标为空实现，调用方无需判空。
type instruments struct {
	requests    metrics.Counter
	rejections  metrics.Counter
	transitions metrics.Counter
	probes      metrics.Counter
	latency     metrics.Histogram
}

func newInstruments(meter metrics.Meter) *instruments {
	if meter == nil {
		meter = metrics.Noop()
	}
	requests, _ := meter.Counter("breaker_requests_total", "熔断器处理的请求总数")
	rejections, _ := meter.Counter("breaker_rejections_total", "熔断快速失败的请求总数")
	transitions, _ := meter.Counter("breaker_transitions_total", "状态迁移次数")
	probes, _ := meter.Counter("breaker_probes_total", "恢复探测次数")
	latency, _ := meter.Histogram("breaker_call_duration_seconds", "被保护调用的耗时分布")
	return &instruments{
		requests:    requests,
		rejections:  rejections,
		transitions: transitions,
		probes:      probes,
		latency:     latency,
	}
}

func (m *instruments) observeCall(ctx context.Context, name string, outcome string, elapsed time.Duration) {
	labels := []metrics.Label{metrics.L("name", name), metrics.L("outcome", outcome)}
	m.requests.Inc(ctx, labels...)
	m.latency.Record(ctx, elapsed.Seconds(), labels...)
}

func (m *instruments) observeRejection(ctx context.Context, name string) {
	m.rejections.Inc(ctx, metrics.L("name", name))
}

func (m *instruments) observeTransition(ctx context.Context, name string, from, to State) {
	m.transitions.Inc(ctx,
		metrics.L("name", name),
		metrics.L("from", string(from)),
		metrics.L("to", string(to)))
}

func (m *instruments) observeProbe(ctx context.Context, name string, outcome string) {
	m.probes.Inc(ctx, metrics.L("name", name), metrics.L("outcome", outcome))
}
