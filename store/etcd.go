package store

import (
	"context"
	"strconv"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/fuse/connector"
	"github.com/ceyewan/fuse/xerrors"
)

// incrMaxRetries Increment 的 CAS 重试上限
const incrMaxRetries = 16

// etcdStore Etcd 存储实现（非导出）
//
// Etcd 没有原子自增原语，Increment 通过读取-事务写的有界重试循环实现，
// 并发下不会丢失更新，但单次调用可能多于一次网络往返。
type etcdStore struct {
	client *clientv3.Client
}

// NewEtcd 创建 Etcd 存储实例
func NewEtcd(conn connector.EtcdConnector) (Store, error) {
	if conn == nil {
		return nil, ErrConnectorNil
	}
	client := conn.GetClient()
	if client == nil {
		return nil, xerrors.New("store: etcd connector not connected")
	}
	return &etcdStore{client: client}, nil
}

// leaseOption 为写操作申请租约，ttl <= 0 时不过期
func (es *etcdStore) leaseOption(ctx context.Context, ttl time.Duration) ([]clientv3.OpOption, error) {
	if ttl <= 0 {
		return nil, nil
	}
	seconds := int64(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	lease, err := es.client.Grant(ctx, seconds)
	if err != nil {
		return nil, xerrors.Wrap(err, "failed to grant lease")
	}
	return []clientv3.OpOption{clientv3.WithLease(lease.ID)}, nil
}

func (es *etcdStore) Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	for i := 0; i < incrMaxRetries; i++ {
		resp, err := es.client.Get(ctx, key)
		if err != nil {
			return 0, xerrors.Wrap(err, "failed to get counter")
		}

		var current int64
		var cmp clientv3.Cmp
		if len(resp.Kvs) == 0 {
			cmp = clientv3.Compare(clientv3.CreateRevision(key), "=", 0)
		} else {
			current, err = strconv.ParseInt(string(resp.Kvs[0].Value), 10, 64)
			if err != nil {
				return 0, ErrNotInteger
			}
			cmp = clientv3.Compare(clientv3.Value(key), "=", string(resp.Kvs[0].Value))
		}

		next := current + delta
		opts, err := es.leaseOption(ctx, ttl)
		if err != nil {
			return 0, err
		}

		txnResp, err := es.client.Txn(ctx).
			If(cmp).
			Then(clientv3.OpPut(key, strconv.FormatInt(next, 10), opts...)).
			Commit()
		if err != nil {
			return 0, xerrors.Wrap(err, "failed to commit increment txn")
		}
		if txnResp.Succeeded {
			return next, nil
		}
		// 有并发写入，重读后重试
	}
	return 0, ErrTooManyRetries
}

func (es *etcdStore) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := es.client.Get(ctx, key)
	if err != nil {
		return nil, xerrors.Wrap(err, "failed to get")
	}
	if len(resp.Kvs) == 0 {
		return nil, ErrNotFound
	}
	return resp.Kvs[0].Value, nil
}

func (es *etcdStore) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	ops := make([]clientv3.Op, 0, len(keys))
	for _, key := range keys {
		ops = append(ops, clientv3.OpGet(key))
	}

	resp, err := es.client.Txn(ctx).Then(ops...).Commit()
	if err != nil {
		return nil, xerrors.Wrap(err, "failed to mget")
	}

	out := make([][]byte, len(keys))
	for i, r := range resp.Responses {
		rangeResp := r.GetResponseRange()
		if rangeResp == nil || len(rangeResp.Kvs) == 0 {
			continue
		}
		out[i] = rangeResp.Kvs[0].Value
	}
	return out, nil
}

func (es *etcdStore) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	opts, err := es.leaseOption(ctx, ttl)
	if err != nil {
		return false, err
	}

	resp, err := es.client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
		Then(clientv3.OpPut(key, string(value), opts...)).
		Commit()
	if err != nil {
		return false, xerrors.Wrap(err, "failed to set-if-absent")
	}
	return resp.Succeeded, nil
}

func (es *etcdStore) CompareAndSet(ctx context.Context, key string, expected, value []byte, ttl time.Duration) (bool, error) {
	opts, err := es.leaseOption(ctx, ttl)
	if err != nil {
		return false, err
	}

	resp, err := es.client.Txn(ctx).
		If(clientv3.Compare(clientv3.Value(key), "=", string(expected))).
		Then(clientv3.OpPut(key, string(value), opts...)).
		Commit()
	if err != nil {
		return false, xerrors.Wrap(err, "failed to compare-and-set")
	}
	return resp.Succeeded, nil
}

func (es *etcdStore) CompareAndDelete(ctx context.Context, key string, expected []byte) (bool, error) {
	resp, err := es.client.Txn(ctx).
		If(clientv3.Compare(clientv3.Value(key), "=", string(expected))).
		Then(clientv3.OpDelete(key)).
		Commit()
	if err != nil {
		return false, xerrors.Wrap(err, "failed to compare-and-delete")
	}
	return resp.Succeeded, nil
}

func (es *etcdStore) Delete(ctx context.Context, key string) error {
	if _, err := es.client.Delete(ctx, key); err != nil {
		return xerrors.Wrap(err, "failed to delete")
	}
	return nil
}
