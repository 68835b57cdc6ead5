package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCacheRoundTripAndExpiry(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()

	type payload struct {
		Balance int64 `json:"balance"`
	}
	require.NoError(t, SetCache(ctx, rdb, "k", payload{Balance: 42}, time.Minute))

	var got payload
	found, err := GetCache(ctx, rdb, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(42), got.Balance)

	mr.FastForward(2 * time.Minute)
	found, err = GetCache(ctx, rdb, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteCache(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()
	require.NoError(t, SetCache(ctx, rdb, "a", 1, time.Minute))
	require.NoError(t, SetCache(ctx, rdb, "b", 2, time.Minute))

	require.NoError(t, DeleteCache(ctx, rdb, "a", "b"))
	assert.False(t, mr.Exists("a"))
	assert.False(t, mr.Exists("b"))
}

func TestGeneration(t *testing.T) {
	_, rdb := newRedis(t)
	ctx := context.Background()

	gen, err := Generation(ctx, rdb, "gen")
	require.NoError(t, err)
	assert.Zero(t, gen)

	require.NoError(t, BumpGeneration(ctx, rdb, "gen"))
	require.NoError(t, BumpGeneration(ctx, rdb, "gen"))
	gen, err = Generation(ctx, rdb, "gen")
	require.NoError(t, err)
	assert.Equal(t, int64(2), gen)
}

func TestNilClientIsDisabledCache(t *testing.T) {
	ctx := context.Background()
	var dest int

	found, err := GetCache(ctx, nil, "k", &dest)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, SetCache(ctx, nil, "k", 1, time.Minute))
	assert.NoError(t, DeleteCache(ctx, nil, "k"))
	assert.NoError(t, BumpGeneration(ctx, nil, "g"))
}
