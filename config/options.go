package config

import (
	"strings"

	"github.com/ceyewan/fuse/clog"
)

// Option 配置选项
type Option func(*loaderOptions)

type loaderOptions struct {
	name      string
	paths     []string
	fileType  string
	envPrefix string
	logger    clog.Logger
}

func defaultOptions() *loaderOptions {
	return &loaderOptions{
		name:      "fuse",
		paths:     []string{".", "./config"},
		fileType:  "yaml",
		envPrefix: "FUSE",
		logger:    clog.Discard(),
	}
}

// WithConfigName 设置配置文件名称（不带扩展名）
func WithConfigName(name string) Option {
	return func(o *loaderOptions) {
		if name != "" {
			o.name = name
		}
	}
}

// WithConfigPaths 设置配置文件搜索路径（覆盖默认值）
func WithConfigPaths(paths ...string) Option {
	return func(o *loaderOptions) {
		if len(paths) > 0 {
			o.paths = paths
		}
	}
}

// WithConfigType 设置配置文件类型 (yaml, json, etc.)
func WithConfigType(typ string) Option {
	return func(o *loaderOptions) {
		if typ != "" {
			o.fileType = typ
		}
	}
}

// WithEnvPrefix 设置环境变量前缀
func WithEnvPrefix(prefix string) Option {
	return func(o *loaderOptions) {
		if prefix != "" {
			o.envPrefix = strings.ToUpper(prefix)
		}
	}
}

// WithLogger 设置日志器，组件会在其下派生 "config" 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *loaderOptions) {
		if logger != nil {
			o.logger = logger.WithNamespace("config")
		}
	}
}
