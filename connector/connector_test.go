package connector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/fuse/clog"
)

func TestNewRedisNilConfig(t *testing.T) {
	_, err := NewRedis(nil)
	assert.Error(t, err)
}

func TestNewRedisMissingAddr(t *testing.T) {
	_, err := NewRedis(&RedisConfig{})
	assert.ErrorIs(t, err, ErrConfig)
}

func TestNewRedisDefaults(t *testing.T) {
	cfg := &RedisConfig{Addr: "127.0.0.1:6379"}
	conn, err := NewRedis(cfg, WithLogger(clog.Discard()))
	require.NoError(t, err)

	assert.Equal(t, "default", conn.Name())
	assert.Equal(t, 10, cfg.PoolSize)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
	assert.NotNil(t, conn.GetClient())
	assert.False(t, conn.IsHealthy())

	_ = conn.Close()
}

func TestNewEtcdNilConfig(t *testing.T) {
	_, err := NewEtcd(nil)
	assert.Error(t, err)
}

func TestNewEtcdMissingEndpoints(t *testing.T) {
	_, err := NewEtcd(&EtcdConfig{})
	assert.ErrorIs(t, err, ErrConfig)
}

func TestNewEtcdLazyConnect(t *testing.T) {
	conn, err := NewEtcd(&EtcdConfig{
		Name:      "test-etcd",
		Endpoints: []string{"localhost:2379"},
	})
	require.NoError(t, err)

	// 未 Connect 前没有客户端，健康检查返回未连接
	assert.Nil(t, conn.GetClient())
	assert.False(t, conn.IsHealthy())
	assert.Equal(t, "test-etcd", conn.Name())

	// Close 在未连接时是 no-op
	assert.NoError(t, conn.Close())
}
