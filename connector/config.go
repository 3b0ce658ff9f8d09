package connector

import (
	"time"
)

// RedisConfig Redis 连接配置
type RedisConfig struct {
	// 基础配置（可选，有默认值）
	Name string `mapstructure:"name"` // 连接器名称 (默认: "default")

	// 核心配置
	Addr     string `mapstructure:"addr"`     // [必填] 连接地址，如 "127.0.0.1:6379"
	Password string `mapstructure:"password"` // [可选] 认证密码
	DB       int    `mapstructure:"db"`       // [可选] 数据库编号 (默认: 0)

	// 高级配置（可选，有默认值）
	PoolSize     int           `mapstructure:"pool_size"`      // 连接池大小 (默认: 10)
	MinIdleConns int           `mapstructure:"min_idle_conns"` // 最小空闲连接数 (默认: 5)
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`   // 连接超时 (默认: 5s)
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`   // 读取超时 (默认: 3s)
	WriteTimeout time.Duration `mapstructure:"write_timeout"`  // 写入超时 (默认: 3s)
}

// setDefaults 设置默认值
func (c *RedisConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns == 0 {
		c.MinIdleConns = 5
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
}

// validate 校验配置
func (c *RedisConfig) validate() error {
	if c.Addr == "" {
		return ErrConfig
	}
	return nil
}

// EtcdConfig Etcd 连接配置
type EtcdConfig struct {
	// 基础配置（可选，有默认值）
	Name string `mapstructure:"name"` // 连接器名称 (默认: "default")

	// 核心配置
	Endpoints []string `mapstructure:"endpoints"` // [必填] 节点地址列表
	Username  string   `mapstructure:"username"`  // [可选] 用户名
	Password  string   `mapstructure:"password"`  // [可选] 密码

	// 高级配置（可选，有默认值）
	DialTimeout time.Duration `mapstructure:"dial_timeout"` // 连接超时 (默认: 5s)
}

// setDefaults 设置默认值
func (c *EtcdConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
}

// validate 校验配置
func (c *EtcdConfig) validate() error {
	if len(c.Endpoints) == 0 {
		return ErrConfig
	}
	return nil
}
