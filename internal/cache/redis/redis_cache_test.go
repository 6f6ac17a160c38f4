package redis

import (
	"context"
	"os"
	"testing"
	"time"

	cache "streakd/internal/cache/iface"
	"streakd/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T) cache.Cache {
	addr := os.Getenv("STREAKD_TEST_REDIS_ADDR")
	if testing.Short() || addr == "" {
		t.Skip("set STREAKD_TEST_REDIS_ADDR to run Redis tests")
	}
	c, err := NewRedisCache(Options{Addr: addr}, logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSetNX(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()
	key := "test:setnx:" + t.Name()
	defer c.Delete(ctx, key)

	ok, err := c.SetNX(ctx, key, "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, key, "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	val, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "a", val)
}

func TestSetNXExpires(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()
	key := "test:setnx:ttl"
	defer c.Delete(ctx, key)

	ok, err := c.SetNX(ctx, key, "a", 500*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(time.Second)

	_, err = c.Get(ctx, key)
	assert.ErrorIs(t, err, cache.ErrKeyNotFound)
}

func TestCompareAndDeleteScript(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()
	key := "test:cad"
	defer c.Delete(ctx, key)

	script := `
		if redis.call('GET', KEYS[1]) == ARGV[1] then
			return redis.call('DEL', KEYS[1])
		end
		return 0
	`

	_, err := c.SetNX(ctx, key, "owner-1", time.Minute)
	require.NoError(t, err)

	res, err := c.Eval(ctx, script, []string{key}, "owner-2")
	require.NoError(t, err)
	assert.Equal(t, int64(0), res)

	res, err = c.Eval(ctx, script, []string{key}, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res)

	_, err = c.Get(ctx, key)
	assert.ErrorIs(t, err, cache.ErrKeyNotFound)
}
