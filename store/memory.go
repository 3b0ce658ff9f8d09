package store

import (
	"bytes"
	"context"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // 零值表示不过期
}

// memoryStore 内存存储实现（非导出，仅用于测试和单机场景）
type memoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// MemoryOption 内存存储的选项
type MemoryOption func(*memoryStore)

// WithMemoryClock 注入时钟，用于测试中控制 TTL 过期
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(ms *memoryStore) {
		ms.now = now
	}
}

// NewMemory 创建内存存储实例
func NewMemory(opts ...MemoryOption) Store {
	ms := &memoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(ms)
	}
	return ms
}

// get 读取未过期的条目，过期条目顺手删除。调用方需持锁。
func (ms *memoryStore) get(key string) (memoryEntry, bool) {
	entry, ok := ms.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(ms.now()) {
		delete(ms.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

func (ms *memoryStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return ms.now().Add(ttl)
}

func (ms *memoryStore) Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	var current int64
	if entry, ok := ms.get(key); ok {
		v, err := strconv.ParseInt(string(entry.value), 10, 64)
		if err != nil {
			return 0, ErrNotInteger
		}
		current = v
	}

	next := current + delta
	ms.entries[key] = memoryEntry{
		value:     []byte(strconv.FormatInt(next, 10)),
		expiresAt: ms.expiry(ttl),
	}
	return next, nil
}

func (ms *memoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, ok := ms.get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), entry.value...), nil
}

func (ms *memoryStore) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	out := make([][]byte, len(keys))
	for i, key := range keys {
		if entry, ok := ms.get(key); ok {
			out[i] = append([]byte(nil), entry.value...)
		}
	}
	return out, nil
}

func (ms *memoryStore) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.get(key); ok {
		return false, nil
	}
	ms.entries[key] = memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: ms.expiry(ttl),
	}
	return true, nil
}

func (ms *memoryStore) CompareAndSet(ctx context.Context, key string, expected, value []byte, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, ok := ms.get(key)
	if !ok || !bytes.Equal(entry.value, expected) {
		return false, nil
	}
	ms.entries[key] = memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: ms.expiry(ttl),
	}
	return true, nil
}

func (ms *memoryStore) CompareAndDelete(ctx context.Context, key string, expected []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, ok := ms.get(key)
	if !ok || !bytes.Equal(entry.value, expected) {
		return false, nil
	}
	delete(ms.entries, key)
	return true, nil
}

func (ms *memoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ms.mu.Lock()
	delete(ms.entries, key)
	ms.mu.Unlock()
	return nil
}
