// Package metrics 为 fuse 提供统一的指标收集能力。
// 基于 OpenTelemetry 标准构建，提供简洁的 Counter、Gauge、Histogram 指标接口，
// 内置 Prometheus HTTP 服务器，支持指标自动暴露。
//
// 快速开始：
//
//	meter, err := metrics.New(&metrics.Config{
//	    Enabled:     true,
//	    ServiceName: "my-service",
//	    Port:        9090,
//	    Path:        "/metrics",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer meter.Shutdown(ctx)
//
//	counter, _ := meter.Counter("breaker_requests_total", "请求总数")
//	counter.Inc(ctx, metrics.L("name", "feed-api"))
package metrics

import (
	"context"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Counter 计数器接口，用于记录只能增加的累计值
type Counter interface {
	// Inc 将计数器增加 1
	Inc(ctx context.Context, labels ...Label)

	// Add 将计数器增加给定的值
	Add(ctx context.Context, val float64, labels ...Label)
}

// Gauge 仪表盘接口，用于记录可以任意增减的瞬时值
type Gauge interface {
	// Set 将 gauge 设置为给定的值
	Set(ctx context.Context, val float64, labels ...Label)

	// Inc 将 gauge 增加 1
	Inc(ctx context.Context, labels ...Label)

	// Dec 将 gauge 减少 1
	Dec(ctx context.Context, labels ...Label)
}

// Histogram 直方图接口，用于记录值的分布情况（耗时、大小等）
type Histogram interface {
	// Record 在直方图中记录一个值
	Record(ctx context.Context, val float64, labels ...Label)
}

// Meter 指标创建工厂接口
//
// 一个 Meter 实例通常对应一个服务。通过 Meter 创建的指标是线程安全的，
// 可以在多个 goroutine 中并发使用。
type Meter interface {
	// Counter 创建计数器实例
	Counter(name string, desc string) (Counter, error)

	// Gauge 创建仪表盘实例
	Gauge(name string, desc string) (Gauge, error)

	// Histogram 创建直方图实例
	Histogram(name string, desc string) (Histogram, error)

	// Shutdown 关闭 Meter，刷新所有指标
	Shutdown(ctx context.Context) error
}

// Label 指标标签 (key-value)
type Label struct {
	Key   string
	Value string
}

// L 创建标签的便捷函数
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}

// toAttributes 将标签转换为 OTel 属性
func toAttributes(labels []Label) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for _, l := range labels {
		attrs = append(attrs, attribute.String(l.Key, l.Value))
	}
	return attrs
}

// labelKey 生成标签集合的稳定键，用于 gauge 的本地值跟踪
func labelKey(labels []Label) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, l.Key+"="+l.Value)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
