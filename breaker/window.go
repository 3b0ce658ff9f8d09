package breaker

import (
	"context"
	"time"

	"github.com/ceyewan/fuse/store"
	"github.com/ceyewan/fuse/xerrors"
)

// counterWindow 基于共享存储的滑动计数窗口。
//
// 成功 / 失败分别写入按时间分桶的计数 key，桶的 TTL 为窗口的两倍，
// 旧桶自动过期，窗口随时间自然滑动。所有进程对同一个桶做原子自增，
// 读取时聚合窗口覆盖的全部桶，因此任何进程看到的都是全局计数，
// 不存在本地视角的累加丢失。
type counterWindow struct {
	store  store.Store
	keys   keySchema
	window time.Duration
	bucket time.Duration
	now    func() time.Time
}

// recordSuccess 累加当前桶的成功计数
func (w *counterWindow) recordSuccess(ctx context.Context) error {
	bucket := w.currentBucket()
	_, err := w.store.Increment(ctx, w.keys.success(bucket), 1, w.bucketTTL())
	if err != nil {
		return xerrors.Wrap(err, "record success")
	}
	return nil
}

// recordFailure 累加当前桶的失败计数
func (w *counterWindow) recordFailure(ctx context.Context) error {
	bucket := w.currentBucket()
	_, err := w.store.Increment(ctx, w.keys.failure(bucket), 1, w.bucketTTL())
	if err != nil {
		return xerrors.Wrap(err, "record failure")
	}
	return nil
}

// totals 聚合窗口内的成功 / 失败计数。
// 两类桶合并为一次批量读取，单个往返拿到整个窗口。
func (w *counterWindow) totals(ctx context.Context) (successes, failures int64, err error) {
	buckets := w.windowBuckets()
	keys := make([]string, 0, len(buckets)*2)
	for _, b := range buckets {
		keys = append(keys, w.keys.success(b))
	}
	for _, b := range buckets {
		keys = append(keys, w.keys.failure(b))
	}

	values, err := w.store.MGet(ctx, keys)
	if err != nil {
		return 0, 0, xerrors.Wrap(err, "window totals")
	}

	n := len(buckets)
	for i, v := range values {
		if v == nil {
			continue
		}
		count, perr := parseCount(v)
		if perr != nil {
			continue
		}
		if i < n {
			successes += count
		} else {
			failures += count
		}
	}
	return successes, failures, nil
}

// reset 删除窗口内的全部计数桶。
// 熔断器闭合时调用，保证恢复后从干净的窗口重新统计。
func (w *counterWindow) reset(ctx context.Context) error {
	var errs []error
	for _, b := range w.windowBuckets() {
		if err := w.store.Delete(ctx, w.keys.success(b)); err != nil {
			errs = append(errs, err)
		}
		if err := w.store.Delete(ctx, w.keys.failure(b)); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return xerrors.Wrap(xerrors.Combine(errs...), "window reset")
	}
	return nil
}

func (w *counterWindow) currentBucket() int64 {
	return w.now().Truncate(w.bucket).Unix()
}

// windowBuckets 返回窗口覆盖的桶起始时刻（从旧到新）
func (w *counterWindow) windowBuckets() []int64 {
	n := int(w.window / w.bucket)
	if n < 1 {
		n = 1
	}
	current := w.now().Truncate(w.bucket)
	buckets := make([]int64, 0, n)
	for i := n - 1; i >= 0; i-- {
		buckets = append(buckets, current.Add(-time.Duration(i)*w.bucket).Unix())
	}
	return buckets
}

// bucketTTL 桶的存活时间取窗口的两倍，保证窗口尾部的桶在
// 被统计到之前不会过期，又不会无限堆积。
func (w *counterWindow) bucketTTL() time.Duration {
	return 2 * w.window
}

// parseCount 解析存储返回的十进制计数
func parseCount(v []byte) (int64, error) {
	var n int64
	for _, c := range v {
		if c < '0' || c > '9' {
			return 0, xerrors.Errorf("invalid counter value: %q", v)
		}
		n = n*10 + int64(c-'0')
	}
	return n, nil
}
