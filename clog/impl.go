package clog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// loggerImpl 是 Logger 接口的具体实现
type loggerImpl struct {
	handler   slog.Handler
	namespace []string
}

// newLogger 创建 Logger 实例（内部使用）
func newLogger(config *Config) (Logger, error) {
	level, err := parseLevel(config.Level)
	if err != nil {
		return nil, err
	}

	var w io.Writer
	switch config.Output {
	case "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		w = f
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if strings.ToLower(config.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &loggerImpl{handler: handler}, nil
}

func (l *loggerImpl) log(ctx context.Context, level slog.Level, msg string, fields ...Field) {
	if !l.handler.Enabled(ctx, level) {
		return
	}
	r := slog.NewRecord(time.Now(), level, msg, 0)
	if len(l.namespace) > 0 {
		r.AddAttrs(slog.String("namespace", strings.Join(l.namespace, ".")))
	}
	r.AddAttrs(fields...)
	_ = l.handler.Handle(ctx, r)
}

func (l *loggerImpl) Debug(msg string, fields ...Field) {
	l.log(context.Background(), slog.LevelDebug, msg, fields...)
}

func (l *loggerImpl) Info(msg string, fields ...Field) {
	l.log(context.Background(), slog.LevelInfo, msg, fields...)
}

func (l *loggerImpl) Warn(msg string, fields ...Field) {
	l.log(context.Background(), slog.LevelWarn, msg, fields...)
}

func (l *loggerImpl) Error(msg string, fields ...Field) {
	l.log(context.Background(), slog.LevelError, msg, fields...)
}

func (l *loggerImpl) Fatal(msg string, fields ...Field) {
	l.log(context.Background(), slog.LevelError, msg, fields...)
	os.Exit(1)
}

func (l *loggerImpl) DebugContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelDebug, msg, fields...)
}

func (l *loggerImpl) InfoContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelInfo, msg, fields...)
}

func (l *loggerImpl) WarnContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelWarn, msg, fields...)
}

func (l *loggerImpl) ErrorContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelError, msg, fields...)
}

func (l *loggerImpl) FatalContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelError, msg, fields...)
	os.Exit(1)
}

// With 创建一个带有预设字段的子 Logger
func (l *loggerImpl) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	return &loggerImpl{
		handler:   l.handler.WithAttrs(fields),
		namespace: l.namespace,
	}
}

// WithNamespace 创建一个扩展命名空间的子 Logger
func (l *loggerImpl) WithNamespace(parts ...string) Logger {
	if len(parts) == 0 {
		return l
	}
	ns := make([]string, 0, len(l.namespace)+len(parts))
	ns = append(ns, l.namespace...)
	ns = append(ns, parts...)
	return &loggerImpl{
		handler:   l.handler,
		namespace: ns,
	}
}
