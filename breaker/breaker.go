// Package breaker 提供跨进程协同的分布式熔断器。
//
// 同一服务的多个进程通过共享存储（Redis / etcd / 内存）汇合对同一
// 下游的观测：失败计数全局聚合，状态迁移通过记录级 CAS 完成，恢复
// 探测由租约保证全局单飞。进程之间不直接通信，新进程加入或旧进程
// 退出无需任何协调。
//
// 基本用法:
//
//	b, err := breaker.New(breaker.DefaultConfig(), st)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := b.Execute(ctx, "payment-api", func() (any, error) {
//	    return client.Charge(ctx, req)
//	})
//	if errors.Is(err, breaker.ErrOpenState) {
//	    // 熔断中，快速失败
//	}
//
// 不依赖共享存储的单进程场景使用 NewStandalone。
package breaker

import (
	"context"

	"github.com/ceyewan/fuse/clog"
	"github.com/ceyewan/fuse/store"
	"github.com/ceyewan/fuse/store/codec"
	"github.com/ceyewan/fuse/xerrors"
)

// Breaker 熔断器接口
type Breaker interface {
	// Execute 在熔断保护下执行 fn。
	// name 标识一条下游依赖，同名调用共享同一个熔断器。
	// 熔断打开时不执行 fn，返回 ErrOpenState（配置了 fallback 时
	// 返回 fallback 的结果）。
	Execute(ctx context.Context, name string, fn func() (any, error)) (any, error)

	// Register 为指定名字注册独立策略。
	// 未注册的名字使用默认策略。重复注册覆盖旧策略，
	// 但不影响已持久化的状态。
	Register(name string, policy Policy) error

	// Status 返回熔断器当前状态。
	// 只读操作，不会触发状态迁移，存储中无记录时视为 Closed。
	Status(ctx context.Context, name string) (State, error)

	// Reset 强制将熔断器恢复为 Closed 并清空统计窗口。
	// 运维兜底用，慎用。
	Reset(ctx context.Context, name string) error
}

// New 创建基于共享存储的分布式熔断器。
// 传入的 store 决定协同介质，多个进程使用相同的 Prefix
// 和 store 后端即可共享状态。
func New(config *Config, st store.Store, opts ...Option) (Breaker, error) {
	if config == nil {
		return nil, ErrConfigNil
	}
	if st == nil {
		return nil, ErrStoreNil
	}

	config.setDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}

	options := applyOptions(opts...)
	logger := options.logger
	if logger == nil {
		logger = clog.Discard()
	} else {
		logger = logger.WithNamespace("breaker")
	}

	cdc, err := codec.New(config.Codec)
	if err != nil {
		return nil, xerrors.Wrap(err, "breaker codec")
	}

	b := &distributedBreaker{
		config:   config,
		store:    st,
		codec:    cdc,
		logger:   logger,
		fallback: options.fallback,
		now:      options.now,
	}
	b.instruments = newInstruments(options.meter)

	for name, policy := range config.Breakers {
		if err := b.Register(name, policy); err != nil {
			return nil, err
		}
	}

	logger.Info("distributed breaker created",
		clog.String("prefix", config.Prefix),
		clog.String("fail_mode", string(config.FailMode)),
		clog.String("codec", config.Codec))
	return b, nil
}

// NewStandalone 创建进程内熔断器，状态只在本进程内存中维护。
// 适合单实例部署或不希望引入共享存储的场景，接口与分布式版完全一致。
func NewStandalone(config *Config, opts ...Option) (Breaker, error) {
	if config == nil {
		return nil, ErrConfigNil
	}

	config.setDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}

	options := applyOptions(opts...)
	logger := options.logger
	if logger == nil {
		logger = clog.Discard()
	} else {
		logger = logger.WithNamespace("breaker")
	}

	b := &standaloneBreaker{
		config:   config,
		logger:   logger,
		fallback: options.fallback,
	}
	b.instruments = newInstruments(options.meter)

	for name, policy := range config.Breakers {
		if err := b.Register(name, policy); err != nil {
			return nil, err
		}
	}

	logger.Info("standalone breaker created")
	return b, nil
}
