package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewRedisStore(rdb, time.Hour), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	st, mr := setupRedisStore(t)
	ctx := context.Background()

	_, err := st.Current(ctx, "s")
	require.ErrorIs(t, err, ErrNotFound)

	gen, err := st.Begin(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), gen)

	require.NoError(t, st.Commit(ctx, "s", gen, dataset("a.csv")))

	ds, err := st.Current(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "a.csv", ds.FileName)
	require.Len(t, ds.Rows, 1)
	assert.Equal(t, 1.0, ds.Rows[0].Spend)

	assert.True(t, mr.Exists(keyPrefix+"s:dataset"))
	assert.Equal(t, time.Hour, mr.TTL(keyPrefix+"s:dataset"))
}

func TestRedisStoreStaleCommit(t *testing.T) {
	st, _ := setupRedisStore(t)
	ctx := context.Background()

	older, _ := st.Begin(ctx, "s")
	newer, _ := st.Begin(ctx, "s")
	require.NoError(t, st.Commit(ctx, "s", newer, dataset("new.csv")))
	require.ErrorIs(t, st.Commit(ctx, "s", older, dataset("old.csv")), ErrStale)

	ds, err := st.Current(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "new.csv", ds.FileName)
}

func TestRedisStoreClear(t *testing.T) {
	st, mr := setupRedisStore(t)
	ctx := context.Background()

	gen, _ := st.Begin(ctx, "s")
	require.NoError(t, st.Commit(ctx, "s", gen, dataset("a.csv")))
	gen, _ = st.Begin(ctx, "s")
	require.NoError(t, st.Commit(ctx, "s", gen, nil))

	_, err := st.Current(ctx, "s")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, mr.Exists(keyPrefix+"s:dataset"))
}

func TestRedisStoreExpiredGeneration(t *testing.T) {
	st, mr := setupRedisStore(t)
	ctx := context.Background()

	gen, _ := st.Begin(ctx, "s")
	mr.FastForward(2 * time.Hour)

	assert.ErrorIs(t, st.Commit(ctx, "s", gen, dataset("late.csv")), ErrStale)
}
