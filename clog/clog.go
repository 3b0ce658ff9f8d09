// Package clog 为 fuse 提供基于 slog 的结构化日志组件。
//
// 特性：
//   - 抽象接口，不暴露底层实现（slog）
//   - 支持层级命名空间，便于区分组件来源
//   - 零外部依赖（仅依赖 Go 标准库）
//
// 基本使用：
//
//	logger, _ := clog.New(&clog.Config{
//	    Level:  "info",
//	    Format: "console",
//	    Output: "stdout",
//	})
//	logger.Info("breaker opened", clog.String("name", "feed-api"))
//
// 组件内部通过 WithNamespace 派生子 Logger：
//
//	brkLogger := logger.WithNamespace("breaker")
package clog

import (
	"context"
	"fmt"
	"sync"
)

// Logger 日志接口，提供结构化日志记录功能
//
// 支持 Debug、Info、Warn、Error、Fatal 五个级别，
// 每个级别都有带 Context 和不带 Context 的版本。
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	DebugContext(ctx context.Context, msg string, fields ...Field)
	InfoContext(ctx context.Context, msg string, fields ...Field)
	WarnContext(ctx context.Context, msg string, fields ...Field)
	ErrorContext(ctx context.Context, msg string, fields ...Field)
	FatalContext(ctx context.Context, msg string, fields ...Field)

	// With 创建一个带有预设字段的子 Logger
	With(fields ...Field) Logger

	// WithNamespace 创建一个扩展命名空间的子 Logger
	// 命名空间会追加到现有的命名空间后面，以 "." 连接
	WithNamespace(parts ...string) Logger
}

// New 创建一个新的 Logger 实例
//
// config 为 nil 时使用默认配置（info 级别，console 格式，stdout 输出）。
func New(config *Config) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return newLogger(config)
}

var (
	defaultOnce   sync.Once
	defaultLogger Logger
)

// Default 返回进程级默认 Logger（info 级别、console 格式、stdout）
func Default() Logger {
	defaultOnce.Do(func() {
		defaultLogger, _ = New(DefaultConfig())
	})
	return defaultLogger
}
