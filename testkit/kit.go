// Package testkit 提供集成测试的公共依赖。
// Redis / Etcd 相关的辅助函数默认连接本机实例，
// 环境中没有对应服务时测试应通过 testing.Short 跳过。
package testkit

import (
	"github.com/ceyewan/fuse/clog"
	"github.com/ceyewan/fuse/metrics"
)

// NewLogger 返回一个用于测试的 logger，console 格式便于本地调试
func NewLogger() clog.Logger {
	logger, err := clog.New(&clog.Config{
		Level:  "debug",
		Format: "console",
		Output: "stdout",
	})
	if err != nil {
		return clog.Discard()
	}
	return logger
}

// NewMeter 返回一个用于测试的 meter，不实际输出指标
func NewMeter() metrics.Meter {
	return metrics.Noop()
}
