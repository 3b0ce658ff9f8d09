package breaker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ceyewan/fuse/store"
	"github.com/ceyewan/fuse/xerrors"
)

// probeLease 探测租约，保证恢复窗口到期后全局只有一个调用者获得探测资格。
//
// 获取依赖存储的 SetIfAbsent 原子语义：多个进程同时竞争时只有一个写入成功。
// 令牌为随机值，释放时通过 CompareAndDelete 校验令牌，
// 防止租约过期后误删其它进程新获取的租约。
type probeLease struct {
	store store.Store
	keys  keySchema
	ttl   time.Duration
}

// tryAcquire 尝试获取探测租约，成功时返回租约令牌。
// 竞争失败返回 ("", nil)，调用方应按熔断状态快速失败。
func (l *probeLease) tryAcquire(ctx context.Context) (string, error) {
	token := uuid.NewString()
	ok, err := l.store.SetIfAbsent(ctx, l.keys.probe(), []byte(token), l.ttl)
	if err != nil {
		return "", xerrors.Wrap(err, "acquire probe lease")
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// release 释放租约，仅在令牌匹配时删除。
// 令牌不匹配说明租约已过期并被他人持有，静默跳过。
func (l *probeLease) release(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	_, err := l.store.CompareAndDelete(ctx, l.keys.probe(), []byte(token))
	if err != nil {
		return xerrors.Wrap(err, "release probe lease")
	}
	return nil
}
