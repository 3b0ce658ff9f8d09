package breaker

import (
	"context"
	"time"

	"github.com/ceyewan/fuse/clog"
	"github.com/ceyewan/fuse/metrics"
)

// Option 熔断器选项
type Option func(*options)

type options struct {
	logger   clog.Logger
	meter    metrics.Meter
	fallback FallbackFunc
	now      func() time.Time
}

// FallbackFunc 熔断降级函数。
// 熔断打开（或 FailClosed 模式下存储不可达）时代替原调用执行,
// cause 为触发降级的错误。
type FallbackFunc func(ctx context.Context, name string, cause error) (any, error)

// WithLogger 设置日志器，组件会在其下派生 "breaker" 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMeter 设置指标采集器
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithFallback 设置熔断降级函数
func WithFallback(fn FallbackFunc) Option {
	return func(o *options) {
		o.fallback = fn
	}
}

// withClock 注入时钟，测试用
func withClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}
