package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/fuse/connector"
)

// GetRedisConfig 返回 Redis 测试配置，默认连接 localhost:6379
func GetRedisConfig() *connector.RedisConfig {
	return &connector.RedisConfig{
		Name:        "test-redis",
		Addr:        "localhost:6379",
		DialTimeout: 5 * time.Second,
	}
}

// GetRedisConnector 获取已连接的 Redis 连接器，生命周期由 t.Cleanup 管理
func GetRedisConnector(t *testing.T) connector.RedisConnector {
	t.Helper()

	conn, err := connector.NewRedis(GetRedisConfig(), connector.WithLogger(NewLogger()))
	if err != nil {
		t.Fatalf("failed to create redis connector: %v", err)
	}
	if err := conn.Connect(context.Background()); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

// GetRedisClient 获取原生 Redis 客户端
func GetRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	return GetRedisConnector(t).GetClient()
}
