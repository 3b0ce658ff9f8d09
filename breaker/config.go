package breaker

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/ceyewan/fuse/xerrors"
)

// FailMode 存储不可达时的降级策略
type FailMode string

const (
	// FailOpen 协调失败时直接放行被保护调用（默认）。
	// 协调层的故障不应放大为整条调用链路的故障。
	FailOpen FailMode = "open"

	// FailClosed 协调失败时拒绝调用，返回 ErrStoreUnavailable。
	// 适用于宁可拒绝也不能压垮下游的场景。
	FailClosed FailMode = "closed"
)

// Policy 单个熔断器的策略
type Policy struct {
	// FailureThreshold 失败率阈值 (0.0-1.0]
	// 窗口内失败率达到此值时熔断
	// 默认: 0.5 (50%)
	FailureThreshold float64 `mapstructure:"failure_threshold" json:"failure_threshold" yaml:"failure_threshold"`

	// CloseThreshold 恢复观察阈值（可选，仅用于日志观测）
	// 探测成功闭合时，若窗口失败率仍高于此值会告警。
	// 默认: 0（不观测）
	CloseThreshold float64 `mapstructure:"close_threshold" json:"close_threshold" yaml:"close_threshold"`

	// RecoveryTimeout 熔断持续时间
	// 进入 Open 状态后，等待此时间才允许探测恢复
	// 默认: 30s
	RecoveryTimeout time.Duration `mapstructure:"recovery_timeout" json:"recovery_timeout" yaml:"recovery_timeout"`

	// Window 统计窗口时间跨度
	// 失败率基于窗口内按时间分桶聚合的计数计算，
	// 旧的失败脉冲会随窗口滑动自然过期，状态不会粘滞
	// 默认: 60s
	Window time.Duration `mapstructure:"window" json:"window" yaml:"window"`

	// Bucket 窗口分桶粒度
	// 默认: 1s
	Bucket time.Duration `mapstructure:"bucket" json:"bucket" yaml:"bucket"`

	// MinimumVolume 最小请求数
	// 窗口内请求数未达到此值前不做熔断判断，避免稀疏流量下误熔断
	// 默认: 10
	MinimumVolume int `mapstructure:"minimum_volume" json:"minimum_volume" yaml:"minimum_volume"`

	// ProbeTTL 探测租约的有效期，必须严格小于 RecoveryTimeout。
	// 持有租约的进程崩溃后，租约到期自动释放，
	// 后续进程依据原 openedAt 重新竞争探测资格
	// 默认: min(RecoveryTimeout/2, 10s)
	ProbeTTL time.Duration `mapstructure:"probe_ttl" json:"probe_ttl" yaml:"probe_ttl"`

	// Disabled 功能开关，true 时对该熔断器直接放行所有调用
	Disabled bool `mapstructure:"disabled" json:"disabled" yaml:"disabled"`
}

// DefaultPolicy 返回默认策略
func DefaultPolicy() Policy {
	return Policy{
		FailureThreshold: 0.5,
		RecoveryTimeout:  30 * time.Second,
		Window:           60 * time.Second,
		Bucket:           time.Second,
		MinimumVolume:    10,
	}
}

// setDefaults 补齐未设置的字段
func (p *Policy) setDefaults() {
	def := DefaultPolicy()
	if p.FailureThreshold == 0 {
		p.FailureThreshold = def.FailureThreshold
	}
	if p.RecoveryTimeout == 0 {
		p.RecoveryTimeout = def.RecoveryTimeout
	}
	if p.Window == 0 {
		p.Window = def.Window
	}
	if p.Bucket == 0 {
		p.Bucket = def.Bucket
	}
	if p.MinimumVolume == 0 {
		p.MinimumVolume = def.MinimumVolume
	}
	if p.ProbeTTL == 0 {
		p.ProbeTTL = p.RecoveryTimeout / 2
		if p.ProbeTTL > 10*time.Second {
			p.ProbeTTL = 10 * time.Second
		}
	}
}

// validate 校验策略，注册时失败快速返回，而不是等到调用时才暴露
func (p *Policy) validate() error {
	err := validation.ValidateStruct(p,
		validation.Field(&p.FailureThreshold,
			validation.Required,
			validation.Min(0.0).Exclusive(),
			validation.Max(1.0)),
		validation.Field(&p.CloseThreshold,
			validation.Min(0.0),
			validation.Max(1.0)),
		validation.Field(&p.RecoveryTimeout,
			validation.Required,
			validation.Min(time.Duration(1))),
		validation.Field(&p.Window,
			validation.Required,
			validation.Min(time.Duration(1))),
		validation.Field(&p.Bucket,
			validation.Required,
			validation.Min(time.Duration(1))),
		validation.Field(&p.MinimumVolume,
			validation.Required,
			validation.Min(1)),
		validation.Field(&p.ProbeTTL,
			validation.Required,
			validation.Min(time.Duration(1))),
	)
	if err != nil {
		return xerrors.Wrap(ErrInvalidConfig, err.Error())
	}

	if p.Bucket > p.Window {
		return xerrors.Wrap(ErrInvalidConfig, "bucket must not exceed window")
	}
	if p.ProbeTTL >= p.RecoveryTimeout {
		return xerrors.Wrap(ErrInvalidConfig, "probe_ttl must be strictly less than recovery_timeout")
	}
	return nil
}

// Config 熔断器组件配置
type Config struct {
	// Prefix 存储 key 的全局前缀，例如 "fuse:"
	Prefix string `mapstructure:"prefix" json:"prefix" yaml:"prefix"`

	// FailMode 存储不可达时的降级策略 (open | closed)
	// 默认: open
	FailMode FailMode `mapstructure:"fail_mode" json:"fail_mode" yaml:"fail_mode"`

	// OpTimeout 单次存储往返的超时
	// 默认: 200ms
	OpTimeout time.Duration `mapstructure:"op_timeout" json:"op_timeout" yaml:"op_timeout"`

	// Codec 状态记录的序列化格式 (json | msgpack)
	// 默认: json
	Codec string `mapstructure:"codec" json:"codec" yaml:"codec"`

	// Default 默认策略（应用到所有未单独注册的熔断器）
	Default Policy `mapstructure:"default" json:"default" yaml:"default"`

	// Breakers 按名字预注册的策略（可选）
	Breakers map[string]Policy `mapstructure:"breakers" json:"breakers" yaml:"breakers"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Prefix:    "fuse:",
		FailMode:  FailOpen,
		OpTimeout: 200 * time.Millisecond,
		Default:   DefaultPolicy(),
	}
}

// setDefaults 补齐未设置的字段
func (c *Config) setDefaults() {
	if c.Prefix == "" {
		c.Prefix = "fuse:"
	}
	if c.FailMode == "" {
		c.FailMode = FailOpen
	}
	if c.OpTimeout == 0 {
		c.OpTimeout = 200 * time.Millisecond
	}
	if c.Codec == "" {
		c.Codec = "json"
	}
	c.Default.setDefaults()
	for name, p := range c.Breakers {
		p.setDefaults()
		c.Breakers[name] = p
	}
}

// validate 校验配置
func (c *Config) validate() error {
	if c.FailMode != FailOpen && c.FailMode != FailClosed {
		return xerrors.Wrapf(ErrInvalidConfig, "unsupported fail_mode: %s", c.FailMode)
	}
	if err := c.Default.validate(); err != nil {
		return xerrors.Wrap(err, "default policy")
	}
	for name, p := range c.Breakers {
		if name == "" {
			return xerrors.Wrap(ErrKeyEmpty, "breakers map")
		}
		if err := p.validate(); err != nil {
			return xerrors.Wrapf(err, "breaker %q", name)
		}
	}
	return nil
}
