// Package store 定义熔断器跨进程协调所依赖的共享存储契约。
//
// 所有 worker 进程之间没有共享内存，熔断器的计数、状态与探测租约
// 全部通过这里定义的 Store 接口读写。接口只要求存储服务提供
// 原子自增、读取和条件写三类原语，不要求任何共识协议。
//
// 内置三种实现：
//   - Redis（NewRedis）：生产推荐，所有条件写通过 Lua 脚本单次往返完成
//   - Etcd（NewEtcd）：条件写基于事务；自增为有界 CAS 重试循环
//   - Memory（NewMemory）：单进程内存实现，仅用于测试和单机场景
//
// 所有方法都可能涉及网络往返，调用方必须通过 ctx 控制超时。
package store

import (
	"context"
	"time"
)

// Store 共享存储接口
//
// Key 由调用方负责命名空间隔离（加前缀）。TTL 为 0 表示不过期。
type Store interface {
	// Increment 将 key 对应的整数计数器原子地增加 delta 并返回新值。
	// key 不存在时从 0 开始。ttl > 0 时同时刷新过期时间。
	// 实现必须保证该操作在存储端原子完成，并发调用不丢失更新。
	Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)

	// Get 读取 key 的原始值。key 不存在时返回 ErrNotFound。
	Get(ctx context.Context, key string) ([]byte, error)

	// MGet 批量读取多个 key，返回与 keys 等长的切片；
	// 不存在的 key 对应位置为 nil。
	MGet(ctx context.Context, keys []string) ([][]byte, error)

	// SetIfAbsent 仅当 key 不存在时写入 value，返回是否写入成功。
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// CompareAndSet 仅当 key 当前值等于 expected 时写入 value，
	// 返回是否写入成功。用于串行化状态转移：两个进程不可能同时成功。
	CompareAndSet(ctx context.Context, key string, expected, value []byte, ttl time.Duration) (bool, error)

	// CompareAndDelete 仅当 key 当前值等于 expected 时删除 key，
	// 返回是否删除成功。用于安全释放租约：过期后被他人重新获取的
	// 租约不会被迟到的释放请求误删。
	CompareAndDelete(ctx context.Context, key string, expected []byte) (bool, error)

	// Delete 无条件删除 key。key 不存在时不报错。
	Delete(ctx context.Context, key string) error
}
