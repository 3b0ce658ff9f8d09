package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/ceyewan/fuse/clog"
	"github.com/ceyewan/fuse/store"
	"github.com/ceyewan/fuse/store/codec"
	"github.com/ceyewan/fuse/xerrors"
)

// distributedBreaker 基于共享存储的熔断器实现。
//
// 实现不在进程内缓存任何权威状态：每次决策读存储中的状态记录，
// 计数直接累加到共享的分桶计数器。状态迁移是对同一条记录的 CAS，
// 并发迁移只有一个成功，失败方以存储中的新状态为准。
type distributedBreaker struct {
	config      *Config
	store       store.Store
	codec       codec.Codec
	logger      clog.Logger
	fallback    FallbackFunc
	now         func() time.Time
	instruments *instruments

	policies sync.Map // name -> Policy
}

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeBypass  = "bypass"
)

// Register 注册命名策略
func (b *distributedBreaker) Register(name string, policy Policy) error {
	if name == "" {
		return ErrKeyEmpty
	}
	policy.setDefaults()
	if err := policy.validate(); err != nil {
		return xerrors.Wrapf(err, "breaker %q", name)
	}
	b.policies.Store(name, policy)
	b.logger.Info("breaker policy registered",
		clog.String("name", name),
		clog.Float64("failure_threshold", policy.FailureThreshold),
		clog.Duration("recovery_timeout", policy.RecoveryTimeout),
		clog.Duration("window", policy.Window))
	return nil
}

// Execute 在熔断保护下执行 fn
func (b *distributedBreaker) Execute(ctx context.Context, name string, fn func() (any, error)) (any, error) {
	if name == "" {
		return nil, ErrKeyEmpty
	}

	policy := b.policyFor(name)
	if policy.Disabled {
		return fn()
	}

	raw, rec, err := b.loadState(ctx, name)
	if err != nil {
		return b.failSafe(ctx, name, fn, err)
	}

	switch rec.Status {
	case StateClosed:
		return b.executeClosed(ctx, name, policy, raw, fn)
	case StateOpen, StateHalfOpen:
		return b.executeOpen(ctx, name, policy, raw, rec, fn)
	default:
		// 其它进程写入了无法识别的状态，按闭合处理但不参与迁移
		b.logger.Warn("unknown breaker state, treating as closed",
			clog.String("name", name), clog.String("state", string(rec.Status)))
		return fn()
	}
}

// executeClosed 闭合状态直接放行，并在每次调用后重新评估失败率。
// 评估放在成功和失败之后都做：窗口是按时间分桶的，决定性的可能是
// 任何一次调用之后的聚合结果。
func (b *distributedBreaker) executeClosed(ctx context.Context, name string, policy Policy, raw []byte, fn func() (any, error)) (any, error) {
	w := b.window(name, policy)

	start := b.now()
	result, callErr := fn()
	elapsed := b.now().Sub(start)

	outcome := outcomeSuccess
	record := w.recordSuccess
	if callErr != nil {
		outcome = outcomeFailure
		record = w.recordFailure
	}
	b.instruments.observeCall(ctx, name, outcome, elapsed)

	opCtx, cancel := b.opCtx(ctx)
	defer cancel()

	if err := record(opCtx); err != nil {
		// 调用已经执行完毕，计数丢一次不影响正确性，告警后直接返回
		b.logger.Warn("failed to record call outcome",
			clog.String("name", name), clog.Error(err))
		return result, callErr
	}

	successes, failures, err := w.totals(opCtx)
	if err != nil {
		b.logger.Warn("failed to aggregate window",
			clog.String("name", name), clog.Error(err))
		return result, callErr
	}

	total := successes + failures
	if total < int64(policy.MinimumVolume) {
		return result, callErr
	}
	ratio := float64(failures) / float64(total)
	if ratio < policy.FailureThreshold {
		return result, callErr
	}

	b.trip(opCtx, name, raw, successes, failures)
	return result, callErr
}

// trip 将熔断器从闭合迁移到打开。
// CAS 失败意味着另一个进程已经完成了迁移，结果一致，无需重试。
func (b *distributedBreaker) trip(ctx context.Context, name string, raw []byte, successes, failures int64) {
	next := stateRecord{
		Status:   StateOpen,
		OpenedAt: b.now().UnixMilli(),
		Version:  recordVersion(raw, b.codec) + 1,
	}
	ok, err := b.swapState(ctx, name, raw, next)
	if err != nil {
		b.logger.Warn("failed to trip breaker",
			clog.String("name", name), clog.Error(err))
		return
	}
	if !ok {
		return
	}
	b.instruments.observeTransition(ctx, name, StateClosed, StateOpen)
	b.logger.Warn("breaker tripped",
		clog.String("name", name),
		clog.Int64("successes", successes),
		clog.Int64("failures", failures))
}

// executeOpen 处理打开和半开状态。
//
// 恢复窗口未到时一律快速失败。窗口已到时竞争探测租约，全局只有
// 一个调用者拿到租约并执行探测，其余调用者继续快速失败。半开状态
// 走同一条路径：resolveOpen 的资格判断基于最初的熔断时刻，持有
// 租约的进程崩溃后，租约到期即允许新的进程重新竞争。
func (b *distributedBreaker) executeOpen(ctx context.Context, name string, policy Policy, raw []byte, rec stateRecord, fn func() (any, error)) (any, error) {
	if b.now().Sub(rec.openedAtTime()) < policy.RecoveryTimeout {
		return b.reject(ctx, name)
	}

	opCtx, cancel := b.opCtx(ctx)
	defer cancel()

	lease := b.lease(name, policy)
	token, err := lease.tryAcquire(opCtx)
	if err != nil {
		return b.failSafe(ctx, name, fn, err)
	}
	if token == "" {
		return b.reject(ctx, name)
	}

	// 迁移到半开，租约令牌随状态记录持久化。CAS 失败说明状态已被
	// 并发修改（例如探测成功闭合），放弃本次探测资格。
	half := stateRecord{
		Status:     StateHalfOpen,
		OpenedAt:   rec.OpenedAt,
		Version:    rec.Version + 1,
		ProbeToken: token,
	}
	ok, err := b.swapState(opCtx, name, raw, half)
	if err != nil || !ok {
		if rerr := lease.release(opCtx, token); rerr != nil {
			b.logger.Warn("failed to release probe lease",
				clog.String("name", name), clog.Error(rerr))
		}
		if err != nil {
			return b.failSafe(ctx, name, fn, err)
		}
		return b.reject(ctx, name)
	}
	if rec.Status == StateOpen {
		b.instruments.observeTransition(ctx, name, StateOpen, StateHalfOpen)
	}

	return b.probe(ctx, name, policy, half, token, fn)
}

// probe 执行恢复探测并按结果迁移状态
func (b *distributedBreaker) probe(ctx context.Context, name string, policy Policy, half stateRecord, token string, fn func() (any, error)) (any, error) {
	b.logger.Info("probing downstream", clog.String("name", name))

	start := b.now()
	result, callErr := fn()
	elapsed := b.now().Sub(start)

	opCtx, cancel := b.opCtx(ctx)
	defer cancel()

	halfRaw, err := b.codec.Marshal(half)
	if err != nil {
		return result, callErr
	}

	if callErr != nil {
		b.instruments.observeCall(ctx, name, outcomeFailure, elapsed)
		b.instruments.observeProbe(ctx, name, outcomeFailure)
		// 重新熔断，恢复计时从本次失败时刻从头开始
		reopened := stateRecord{
			Status:   StateOpen,
			OpenedAt: b.now().UnixMilli(),
			Version:  half.Version + 1,
		}
		if _, serr := b.store.CompareAndSet(opCtx, b.keys(name).state(), halfRaw, mustMarshal(b.codec, reopened), 0); serr != nil {
			b.logger.Warn("failed to reopen breaker after probe",
				clog.String("name", name), clog.Error(serr))
		} else {
			b.instruments.observeTransition(ctx, name, StateHalfOpen, StateOpen)
			b.logger.Warn("probe failed, breaker reopened",
				clog.String("name", name), clog.Error(callErr))
		}
		b.releaseLease(opCtx, name, policy, token)
		return result, callErr
	}

	b.instruments.observeCall(ctx, name, outcomeSuccess, elapsed)
	b.instruments.observeProbe(ctx, name, outcomeSuccess)

	w := b.window(name, policy)
	b.observeCloseThreshold(opCtx, name, policy, w)

	closed := stateRecord{
		Status:  StateClosed,
		Version: half.Version + 1,
	}
	if _, serr := b.store.CompareAndSet(opCtx, b.keys(name).state(), halfRaw, mustMarshal(b.codec, closed), 0); serr != nil {
		b.logger.Warn("failed to close breaker after probe",
			clog.String("name", name), clog.Error(serr))
	} else {
		b.instruments.observeTransition(ctx, name, StateHalfOpen, StateClosed)
		b.logger.Info("probe succeeded, breaker closed", clog.String("name", name))
	}

	// 闭合后清空统计窗口，熔断期间残留的失败不会立刻再次触发熔断
	if rerr := w.reset(opCtx); rerr != nil {
		b.logger.Warn("failed to reset window after close",
			clog.String("name", name), clog.Error(rerr))
	}
	b.releaseLease(opCtx, name, policy, token)
	return result, nil
}

// observeCloseThreshold 闭合前的观察性检查，仅产生日志
func (b *distributedBreaker) observeCloseThreshold(ctx context.Context, name string, policy Policy, w *counterWindow) {
	if policy.CloseThreshold <= 0 {
		return
	}
	successes, failures, err := w.totals(ctx)
	if err != nil {
		return
	}
	total := successes + failures
	if total == 0 {
		return
	}
	if ratio := float64(failures) / float64(total); ratio > policy.CloseThreshold {
		b.logger.Warn("closing breaker while window failure ratio is still high",
			clog.String("name", name),
			clog.Float64("ratio", ratio),
			clog.Float64("close_threshold", policy.CloseThreshold))
	}
}

// Status 返回当前状态，只读，无记录时视为闭合
func (b *distributedBreaker) Status(ctx context.Context, name string) (State, error) {
	if name == "" {
		return "", ErrKeyEmpty
	}
	_, rec, err := b.loadState(ctx, name)
	if err != nil {
		return "", err
	}
	return rec.Status, nil
}

// Reset 强制恢复为闭合并清空统计
func (b *distributedBreaker) Reset(ctx context.Context, name string) error {
	if name == "" {
		return ErrKeyEmpty
	}
	policy := b.policyFor(name)
	keys := b.keys(name)

	opCtx, cancel := b.opCtx(ctx)
	defer cancel()

	var errs []error
	if err := b.store.Delete(opCtx, keys.state()); err != nil {
		errs = append(errs, err)
	}
	if err := b.store.Delete(opCtx, keys.probe()); err != nil {
		errs = append(errs, err)
	}
	if err := b.window(name, policy).reset(opCtx); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return xerrors.Wrapf(xerrors.Combine(errs...), "reset breaker %q", name)
	}
	b.logger.Info("breaker reset", clog.String("name", name))
	return nil
}

// ========== 内部方法 ==========

func (b *distributedBreaker) policyFor(name string) Policy {
	if v, ok := b.policies.Load(name); ok {
		return v.(Policy)
	}
	return b.config.Default
}

func (b *distributedBreaker) keys(name string) keySchema {
	return keySchema{prefix: b.config.Prefix, name: name}
}

func (b *distributedBreaker) window(name string, policy Policy) *counterWindow {
	return &counterWindow{
		store:  b.store,
		keys:   b.keys(name),
		window: policy.Window,
		bucket: policy.Bucket,
		now:    b.now,
	}
}

func (b *distributedBreaker) lease(name string, policy Policy) *probeLease {
	return &probeLease{
		store: b.store,
		keys:  b.keys(name),
		ttl:   policy.ProbeTTL,
	}
}

func (b *distributedBreaker) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.config.OpTimeout)
}

// loadState 读取状态记录，无记录时返回闭合状态和 nil 原始字节
func (b *distributedBreaker) loadState(ctx context.Context, name string) ([]byte, stateRecord, error) {
	opCtx, cancel := b.opCtx(ctx)
	defer cancel()

	raw, err := b.store.Get(opCtx, b.keys(name).state())
	if err != nil {
		if xerrors.Is(err, store.ErrNotFound) {
			return nil, stateRecord{Status: StateClosed}, nil
		}
		return nil, stateRecord{}, xerrors.Wrapf(err, "load breaker state %q", name)
	}

	var rec stateRecord
	if err := b.codec.Unmarshal(raw, &rec); err != nil {
		return nil, stateRecord{}, xerrors.Wrapf(err, "decode breaker state %q", name)
	}
	return raw, rec, nil
}

// swapState 以读到的原始字节为版本条件写入新状态。
// raw 为 nil 表示存储中尚无记录，此时用 SetIfAbsent 防止覆盖并发写入。
func (b *distributedBreaker) swapState(ctx context.Context, name string, raw []byte, next stateRecord) (bool, error) {
	data, err := b.codec.Marshal(next)
	if err != nil {
		return false, xerrors.Wrap(err, "encode breaker state")
	}
	key := b.keys(name).state()
	if raw == nil {
		return b.store.SetIfAbsent(ctx, key, data, 0)
	}
	return b.store.CompareAndSet(ctx, key, raw, data, 0)
}

func (b *distributedBreaker) releaseLease(ctx context.Context, name string, policy Policy, token string) {
	if err := b.lease(name, policy).release(ctx, token); err != nil {
		b.logger.Warn("failed to release probe lease",
			clog.String("name", name), clog.Error(err))
	}
}

// reject 快速失败，配置了 fallback 时转交降级函数
func (b *distributedBreaker) reject(ctx context.Context, name string) (any, error) {
	b.instruments.observeRejection(ctx, name)
	if b.fallback != nil {
		return b.fallback(ctx, name, ErrOpenState)
	}
	return nil, ErrOpenState
}

// failSafe 存储不可达时的降级路径。
// FailOpen 放行调用但跳过计数，FailClosed 拒绝调用。
func (b *distributedBreaker) failSafe(ctx context.Context, name string, fn func() (any, error), cause error) (any, error) {
	if b.config.FailMode == FailClosed {
		b.logger.Error("store unavailable, rejecting call",
			clog.String("name", name), clog.Error(cause))
		err := xerrors.Wrap(ErrStoreUnavailable, cause.Error())
		if b.fallback != nil {
			return b.fallback(ctx, name, err)
		}
		return nil, err
	}

	b.logger.Warn("store unavailable, bypassing breaker",
		clog.String("name", name), clog.Error(cause))
	start := b.now()
	result, err := fn()
	b.instruments.observeCall(ctx, name, outcomeBypass, b.now().Sub(start))
	return result, err
}

// recordVersion 解析原始字节中的版本号，nil 或解析失败时为 0
func recordVersion(raw []byte, c codec.Codec) int64 {
	if raw == nil {
		return 0
	}
	var rec stateRecord
	if err := c.Unmarshal(raw, &rec); err != nil {
		return 0
	}
	return rec.Version
}

func mustMarshal(c codec.Codec, rec stateRecord) []byte {
	data, err := c.Marshal(rec)
	if err != nil {
		return nil
	}
	return data
}
