package connector

import (
	"context"
	"sync"
	"sync/atomic"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/fuse/clog"
	"github.com/ceyewan/fuse/xerrors"
)

type etcdConnector struct {
	cfg     *EtcdConfig
	client  *clientv3.Client
	logger  clog.Logger
	healthy atomic.Bool
	mu      sync.Mutex
}

// NewEtcd 创建 Etcd 连接器
func NewEtcd(cfg *EtcdConfig, opts ...Option) (EtcdConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "etcd config is nil")
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Wrap(err, "invalid etcd config")
	}

	opt := &options{}
	for _, o := range opts {
		o(opt)
	}
	opt.applyDefaults()

	return &etcdConnector{
		cfg:    cfg,
		logger: opt.logger.With(clog.String("connector", "etcd"), clog.String("name", cfg.Name)),
	}, nil
}

// Connect 建立连接，幂等
func (c *etcdConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return nil
	}

	c.logger.Info("attempting to connect to etcd", clog.Any("endpoints", c.cfg.Endpoints))

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   c.cfg.Endpoints,
		Username:    c.cfg.Username,
		Password:    c.cfg.Password,
		DialTimeout: c.cfg.DialTimeout,
		Context:     ctx,
	})
	if err != nil {
		c.logger.Error("failed to connect to etcd", clog.Error(err))
		return xerrors.Wrapf(err, "etcd connector[%s]: connection failed", c.cfg.Name)
	}

	// 建立连接后主动探测一次，确保端点可达
	probeCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()
	if _, err := client.Status(probeCtx, c.cfg.Endpoints[0]); err != nil {
		_ = client.Close()
		return xerrors.Wrapf(err, "etcd connector[%s]: endpoint probe failed", c.cfg.Name)
	}

	c.client = client
	c.healthy.Store(true)
	c.logger.Info("successfully connected to etcd")
	return nil
}

// Close 关闭连接，幂等
func (c *etcdConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.healthy.Store(false)
	if c.client == nil {
		return nil
	}

	err := c.client.Close()
	c.client = nil
	if err != nil {
		c.logger.Error("failed to close etcd connection", clog.Error(err))
		return err
	}
	c.logger.Info("etcd connection closed")
	return nil
}

// HealthCheck 检查连接健康状态
func (c *etcdConnector) HealthCheck(ctx context.Context) error {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()

	if client == nil {
		return ErrNotConnected
	}

	if _, err := client.Status(ctx, c.cfg.Endpoints[0]); err != nil {
		c.healthy.Store(false)
		c.logger.Warn("etcd health check failed", clog.Error(err))
		return xerrors.Wrapf(err, "etcd connector[%s]: health check failed", c.cfg.Name)
	}

	c.healthy.Store(true)
	return nil
}

// IsHealthy 返回缓存的健康状态
func (c *etcdConnector) IsHealthy() bool {
	return c.healthy.Load()
}

// Name 返回连接器名称
func (c *etcdConnector) Name() string {
	return c.cfg.Name
}

// GetClient 返回 Etcd 客户端
func (c *etcdConnector) GetClient() *clientv3.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}
