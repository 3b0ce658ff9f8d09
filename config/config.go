// Package config 为 fuse 提供统一的配置加载能力。
// 基于 Viper 实现，支持多源加载和热更新。
//
// 特性：
//   - 多源配置加载：YAML/JSON 文件、环境变量、.env 文件
//   - 配置优先级：环境变量 > .env > 环境特定配置 > 基础配置
//   - 热更新支持：监听配置文件变化，按 key 推送变更事件
//
// 基本使用：
//
//	loader, err := config.New(config.WithConfigName("fuse"))
//	if err != nil {
//	    panic(err)
//	}
//	if err := loader.Load(ctx); err != nil {
//	    panic(err)
//	}
//
//	var cfg breaker.Config
//	if err := loader.UnmarshalKey("breaker", &cfg); err != nil {
//	    panic(err)
//	}
package config

import (
	"context"
	"time"
)

// Loader 配置加载器
type Loader interface {
	// Load 从所有来源加载配置并启动文件监听
	Load(ctx context.Context) error

	// Get 获取原始配置值
	Get(key string) any

	// Unmarshal 将整个配置反序列化到结构体
	Unmarshal(v any) error

	// UnmarshalKey 将指定 Key 的配置反序列化到结构体
	UnmarshalKey(key string, v any) error

	// Watch 监听配置变化，通过 context 取消监听
	Watch(ctx context.Context, key string) (<-chan Event, error)
}

// Event 配置变更事件
type Event struct {
	Key       string
	Value     any
	OldValue  any
	Timestamp time.Time
}

// New 创建配置加载器
func New(opts ...Option) (Loader, error) {
	options := defaultOptions()
	for _, o := range opts {
		o(options)
	}
	return newLoader(options), nil
}
