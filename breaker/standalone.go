package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/ceyewan/fuse/clog"
	"github.com/ceyewan/fuse/xerrors"
)

// standaloneBreaker 进程内熔断器，基于 gobreaker 实现。
// 状态只在本进程内存中维护，不写任何外部存储，重启即归零。
type standaloneBreaker struct {
	config      *Config
	logger      clog.Logger
	fallback    FallbackFunc
	instruments *instruments

	policies sync.Map // name -> Policy
	breakers sync.Map // name -> *gobreaker.CircuitBreaker[any]
}

// Register 注册命名策略。
// 已创建的熔断器实例不受影响，新策略在 Reset 后生效。
func (b *standaloneBreaker) Register(name string, policy Policy) error {
	if name == "" {
		return ErrKeyEmpty
	}
	policy.setDefaults()
	if err := policy.validate(); err != nil {
		return xerrors.Wrapf(err, "breaker %q", name)
	}
	b.policies.Store(name, policy)
	return nil
}

// Execute 在熔断保护下执行 fn
func (b *standaloneBreaker) Execute(ctx context.Context, name string, fn func() (any, error)) (any, error) {
	if name == "" {
		return nil, ErrKeyEmpty
	}

	policy := b.policyFor(name)
	if policy.Disabled {
		return fn()
	}

	cb := b.breakerFor(name, policy)

	start := time.Now()
	result, err := cb.Execute(fn)
	elapsed := time.Since(start)

	if err != nil {
		if xerrors.Is(err, gobreaker.ErrOpenState) || xerrors.Is(err, gobreaker.ErrTooManyRequests) {
			b.instruments.observeRejection(ctx, name)
			if b.fallback != nil {
				return b.fallback(ctx, name, ErrOpenState)
			}
			return nil, ErrOpenState
		}
		b.instruments.observeCall(ctx, name, outcomeFailure, elapsed)
		return result, err
	}

	b.instruments.observeCall(ctx, name, outcomeSuccess, elapsed)
	return result, nil
}

// Status 返回当前状态
func (b *standaloneBreaker) Status(_ context.Context, name string) (State, error) {
	if name == "" {
		return "", ErrKeyEmpty
	}
	v, ok := b.breakers.Load(name)
	if !ok {
		return StateClosed, nil
	}
	return fromGobreakerState(v.(*gobreaker.CircuitBreaker[any]).State()), nil
}

// Reset 丢弃熔断器实例，下次调用时以闭合状态重建
func (b *standaloneBreaker) Reset(_ context.Context, name string) error {
	if name == "" {
		return ErrKeyEmpty
	}
	b.breakers.Delete(name)
	b.logger.Info("breaker reset", clog.String("name", name))
	return nil
}

func (b *standaloneBreaker) policyFor(name string) Policy {
	if v, ok := b.policies.Load(name); ok {
		return v.(Policy)
	}
	return b.config.Default
}

func (b *standaloneBreaker) breakerFor(name string, policy Policy) *gobreaker.CircuitBreaker[any] {
	if v, ok := b.breakers.Load(name); ok {
		return v.(*gobreaker.CircuitBreaker[any])
	}
	cb := gobreaker.NewCircuitBreaker[any](b.settings(name, policy))
	actual, _ := b.breakers.LoadOrStore(name, cb)
	return actual.(*gobreaker.CircuitBreaker[any])
}

// settings 把统一的策略翻译成 gobreaker 的配置。
// 半开状态只放行一次探测，与分布式实现的单飞语义保持一致。
func (b *standaloneBreaker) settings(name string, policy Policy) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    policy.Window,
		Timeout:     policy.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < uint32(policy.MinimumVolume) {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= policy.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.instruments.observeTransition(context.Background(), name,
				fromGobreakerState(from), fromGobreakerState(to))
			b.logger.Info("breaker state changed",
				clog.String("name", name),
				clog.String("from", from.String()),
				clog.String("to", to.String()))
		},
	}
}

func fromGobreakerState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}
