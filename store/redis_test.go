package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/fuse/store"
	"github.com/ceyewan/fuse/testkit"
)

// exerciseStore 对任意后端验证 Store 契约
func exerciseStore(t *testing.T, st store.Store, prefix string) {
	t.Helper()
	ctx := context.Background()

	t.Run("IncrementIsAtomic", func(t *testing.T) {
		key := prefix + ":counter"
		defer func() { _ = st.Delete(ctx, key) }()

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := st.Increment(ctx, key, 1, time.Minute)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		value, err := st.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "20", string(value))
	})

	t.Run("GetMissingReturnsNotFound", func(t *testing.T) {
		_, err := st.Get(ctx, prefix+":missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("MGetReportsAbsentAsNil", func(t *testing.T) {
		key := prefix + ":mget"
		defer func() { _ = st.Delete(ctx, key) }()

		_, err := st.Increment(ctx, key, 7, time.Minute)
		require.NoError(t, err)

		values, err := st.MGet(ctx, []string{key, prefix + ":mget-absent"})
		require.NoError(t, err)
		require.Len(t, values, 2)
		assert.Equal(t, "7", string(values[0]))
		assert.Nil(t, values[1])
	})

	t.Run("SetIfAbsentSingleWinner", func(t *testing.T) {
		key := prefix + ":lease"
		defer func() { _ = st.Delete(ctx, key) }()

		var winners int32
		var wg sync.WaitGroup
		var mu sync.Mutex
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ok, err := st.SetIfAbsent(ctx, key, []byte(fmt.Sprintf("token-%d", i)), time.Minute)
				assert.NoError(t, err)
				if ok {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()
		assert.Equal(t, int32(1), winners)
	})

	t.Run("CompareAndSetRequiresExpected", func(t *testing.T) {
		key := prefix + ":cas"
		defer func() { _ = st.Delete(ctx, key) }()

		ok, err := st.SetIfAbsent(ctx, key, []byte("v1"), time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = st.CompareAndSet(ctx, key, []byte("wrong"), []byte("v2"), time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = st.CompareAndSet(ctx, key, []byte("v1"), []byte("v2"), time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		value, err := st.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "v2", string(value))
	})

	t.Run("CompareAndDeleteRequiresExpected", func(t *testing.T) {
		key := prefix + ":cad"
		defer func() { _ = st.Delete(ctx, key) }()

		ok, err := st.SetIfAbsent(ctx, key, []byte("token"), time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = st.CompareAndDelete(ctx, key, []byte("stale"))
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = st.CompareAndDelete(ctx, key, []byte("token"))
		require.NoError(t, err)
		assert.True(t, ok)

		_, err = st.Get(ctx, key)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("TTLExpires", func(t *testing.T) {
		key := prefix + ":ttl"
		defer func() { _ = st.Delete(ctx, key) }()

		ok, err := st.SetIfAbsent(ctx, key, []byte("v"), time.Second)
		require.NoError(t, err)
		require.True(t, ok)

		time.Sleep(2500 * time.Millisecond)
		_, err = st.Get(ctx, key)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestRedisStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	conn := testkit.GetRedisConnector(t)
	st, err := store.NewRedis(conn)
	require.NoError(t, err)

	exerciseStore(t, st, fmt.Sprintf("fuse-test:%d", time.Now().UnixNano()))
}
