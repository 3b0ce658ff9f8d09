// Package connector 为 fuse 提供统一的连接管理能力。
//
// 核心特性：
//   - 统一抽象：通过 Connector 接口提供一致的连接管理 API
//   - 延迟连接：NewXXX() 创建连接器但不立即建立连接，Connect() 时才连接
//   - 健康检查：HealthCheck() 主动探测，IsHealthy() 读取缓存状态
//   - 并发安全：所有公开方法均为并发安全
//
// 资源所有权：
//
//	Connector 拥有底层连接的生命周期，应通过 defer 确保 Close() 被调用。
//	组件（如 store、breaker）仅借用 Connector，不应调用 Close()。
package connector

import (
	"context"

	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Connector 定义所有连接器的通用行为。
type Connector interface {
	// Connect 建立连接。幂等，可安全多次调用。
	Connect(ctx context.Context) error

	// Close 关闭连接并释放资源。幂等。
	Close() error

	// HealthCheck 检查连接健康状态，并更新内部健康状态缓存。
	HealthCheck(ctx context.Context) error

	// IsHealthy 返回缓存的健康状态，无阻塞。
	IsHealthy() bool

	// Name 返回连接实例名称，用于日志和指标标识。
	Name() string
}

// RedisConnector Redis 连接器接口
type RedisConnector interface {
	Connector

	// GetClient 返回 Redis 客户端
	GetClient() *redis.Client
}

// EtcdConnector Etcd 连接器接口
type EtcdConnector interface {
	Connector

	// GetClient 返回 Etcd 客户端
	GetClient() *clientv3.Client
}
