package breaker

import (
	"fmt"
	"time"
)

// State 熔断器状态
type State string

const (
	// StateClosed 闭合，调用正常放行
	StateClosed State = "closed"
	// StateOpen 熔断，调用快速失败
	StateOpen State = "open"
	// StateHalfOpen 半开，仅允许一次探测调用
	StateHalfOpen State = "half_open"
)

// stateRecord 是写入共享存储的状态记录，所有进程对同一熔断器
// 读写的是同一条记录，状态迁移通过记录级 CAS 完成。
//
// 序列化后的原始字节本身充当版本标识：CAS 以读到的字节为 expected，
// 任何并发修改都会改变字节内容（Version 单调递增保证这一点），
// 使落后的写入者失败重读。
type stateRecord struct {
	// Status 当前状态
	Status State `json:"status" msgpack:"status"`

	// OpenedAt 进入 Open 状态的时刻 (unix 毫秒)，仅 Open/HalfOpen 有意义。
	// 探测失败重新熔断时会刷新为失败时刻，恢复计时从头开始。
	OpenedAt int64 `json:"opened_at,omitempty" msgpack:"opened_at,omitempty"`

	// Version 单调递增的修改计数
	Version int64 `json:"version" msgpack:"version"`

	// ProbeToken 半开状态下持有探测租约的令牌，其余状态为空
	ProbeToken string `json:"probe_token,omitempty" msgpack:"probe_token,omitempty"`
}

func (r stateRecord) openedAtTime() time.Time {
	return time.UnixMilli(r.OpenedAt)
}

// ========== Key 规划 ==========
//
// 同一熔断器的所有进程通过固定的 key 规划在存储中汇合：
//
//	{prefix}{name}:state            状态记录
//	{prefix}{name}:probe            探测租约
//	{prefix}{name}:success:{bucket} 成功计数分桶
//	{prefix}{name}:failure:{bucket} 失败计数分桶
//
// bucket 为分桶起始时刻的 unix 秒，计数按桶原子累加，
// 窗口统计时聚合窗口覆盖的全部桶。

type keySchema struct {
	prefix string
	name   string
}

func (k keySchema) state() string {
	return k.prefix + k.name + ":state"
}

func (k keySchema) probe() string {
	return k.prefix + k.name + ":probe"
}

func (k keySchema) success(bucket int64) string {
	return fmt.Sprintf("%s%s:success:%d", k.prefix, k.name, bucket)
}

func (k keySchema) failure(bucket int64) string {
	return fmt.Sprintf("%s%s:failure:%d", k.prefix, k.name, bucket)
}
