package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/fuse/connector"
	"github.com/ceyewan/fuse/xerrors"
)

// incrScript 原子自增并刷新 TTL
// KEYS[1]: 计数器 key
// ARGV[1]: 增量
// ARGV[2]: TTL 毫秒数，0 表示不过期
const incrScript = `
local v = redis.call("INCRBY", KEYS[1], ARGV[1])
if tonumber(ARGV[2]) > 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return v
`

// casScript 条件写：当前值等于期望值时才覆盖
// KEYS[1]: key
// ARGV[1]: 期望的当前值
// ARGV[2]: 新值
// ARGV[3]: TTL 毫秒数，0 表示不过期
const casScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  if tonumber(ARGV[3]) > 0 then
    redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
  else
    redis.call("SET", KEYS[1], ARGV[2])
  end
  return 1
else
  return 0
end
`

// cadScript 条件删除：当前值等于期望值时才删除
const cadScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`

// redisStore Redis 存储实现（非导出）
type redisStore struct {
	client *redis.Client
	incr   *redis.Script
	cas    *redis.Script
	cad    *redis.Script
}

// NewRedis 创建 Redis 存储实例
//
// 使用示例:
//
//	conn, _ := connector.NewRedis(&connector.RedisConfig{Addr: "127.0.0.1:6379"})
//	_ = conn.Connect(ctx)
//	st := store.NewRedis(conn)
func NewRedis(conn connector.RedisConnector) (Store, error) {
	if conn == nil {
		return nil, ErrConnectorNil
	}
	return &redisStore{
		client: conn.GetClient(),
		incr:   redis.NewScript(incrScript),
		cas:    redis.NewScript(casScript),
		cad:    redis.NewScript(cadScript),
	}, nil
}

func (rs *redisStore) Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	result, err := rs.incr.Run(ctx, rs.client, []string{key}, delta, ttl.Milliseconds()).Result()
	if err != nil {
		return 0, xerrors.Wrap(err, "failed to increment")
	}
	v, ok := result.(int64)
	if !ok {
		return 0, ErrNotInteger
	}
	return v, nil
}

func (rs *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := rs.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, xerrors.Wrap(err, "failed to get")
	}
	return val, nil
}

func (rs *redisStore) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	vals, err := rs.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, xerrors.Wrap(err, "failed to mget")
	}

	out := make([][]byte, len(keys))
	for i, v := range vals {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			out[i] = []byte(s)
		}
	}
	return out, nil
}

func (rs *redisStore) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ok, err := rs.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, xerrors.Wrap(err, "failed to setnx")
	}
	return ok, nil
}

func (rs *redisStore) CompareAndSet(ctx context.Context, key string, expected, value []byte, ttl time.Duration) (bool, error) {
	result, err := rs.cas.Run(ctx, rs.client, []string{key}, expected, value, ttl.Milliseconds()).Result()
	if err != nil {
		return false, xerrors.Wrap(err, "failed to compare-and-set")
	}
	return result.(int64) == 1, nil
}

func (rs *redisStore) CompareAndDelete(ctx context.Context, key string, expected []byte) (bool, error) {
	result, err := rs.cad.Run(ctx, rs.client, []string{key}, expected).Result()
	if err != nil {
		return false, xerrors.Wrap(err, "failed to compare-and-delete")
	}
	return result.(int64) == 1, nil
}

func (rs *redisStore) Delete(ctx context.Context, key string) error {
	if err := rs.client.Del(ctx, key).Err(); err != nil {
		return xerrors.Wrap(err, "failed to delete")
	}
	return nil
}
