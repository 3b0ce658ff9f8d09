package breaker

import "github.com/ceyewan/fuse/xerrors"

// 错误定义
var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("breaker: config is nil")

	// ErrStoreNil 存储为空
	ErrStoreNil = xerrors.New("breaker: store is nil")

	// ErrKeyEmpty 熔断键为空
	ErrKeyEmpty = xerrors.New("breaker: name is empty")

	// ErrOpenState 熔断器处于打开状态，请求被快速拒绝。
	// 与被保护调用自身的错误严格区分：调用方可对两者采取不同的处理策略。
	ErrOpenState = xerrors.New("breaker: circuit breaker is open")

	// ErrStoreUnavailable 共享存储不可达。
	// 仅在 fail-closed 模式下对调用方可见；默认的 fail-open 模式下
	// 协调错误只记录日志，不向调用方暴露。
	ErrStoreUnavailable = xerrors.New("breaker: shared store unavailable")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = xerrors.New("breaker: invalid configuration")
)
