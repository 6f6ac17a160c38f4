package service

import (
	"context"
	"errors"
	"testing"
	"time"

	cache "streakd/internal/cache/iface"
	"streakd/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronTickerRejectsBadSpec(t *testing.T) {
	ticker := NewCronTicker("not a cron", logger.NewNopLogger())
	assert.Error(t, ticker.Start(func() {}))
}

func TestCronTickerStartStop(t *testing.T) {
	ticker := NewCronTicker("* * * * * *", logger.NewNopLogger())
	fired := make(chan struct{}, 1)

	require.NoError(t, ticker.Start(func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	}))
	assert.Error(t, ticker.Start(func() {}), "second registration must fail")

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("ticker never fired")
	}

	<-ticker.Stop().Done()
	<-ticker.Stop().Done()

	require.NoError(t, ticker.Start(func() {}), "restart after stop")
	<-ticker.Stop().Done()
}

type fakeCache struct {
	values map[string]string
	err    error
}

func (c *fakeCache) Get(ctx context.Context, key string) (string, error) {
	v, ok := c.values[key]
	if !ok {
		return "", cache.ErrKeyNotFound
	}
	return v, nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	delete(c.values, key)
	return nil
}

func (c *fakeCache) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	if _, ok := c.values[key]; ok {
		return false, nil
	}
	c.values[key] = value.(string)
	return true, nil
}

// Eval understands only the compare-and-delete release script
func (c *fakeCache) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	if c.values[keys[0]] == args[0].(string) {
		delete(c.values, keys[0])
		return int64(1), nil
	}
	return int64(0), nil
}

func (c *fakeCache) Close() error { return nil }

func TestRedisTickLease(t *testing.T) {
	c := &fakeCache{values: map[string]string{}}
	a := NewRedisTickLease(c, "", 0, logger.NewNopLogger())
	b := NewRedisTickLease(c, "", 0, logger.NewNopLogger())
	ctx := context.Background()

	releaseA, ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	releaseA()
	_, ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisTickLeaseReleaseKeepsForeignHolder(t *testing.T) {
	c := &fakeCache{values: map[string]string{}}
	lease := NewRedisTickLease(c, "k", time.Second, logger.NewNopLogger())

	release, ok, err := lease.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	// our lease expired and someone else took it
	c.values["k"] = "someone-else"
	release()

	assert.Equal(t, "someone-else", c.values["k"])
}

func TestRedisTickLeaseError(t *testing.T) {
	c := &fakeCache{values: map[string]string{}, err: errors.New("down")}
	_, ok, err := NewRedisTickLease(c, "", 0, logger.NewNopLogger()).Acquire(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
}
