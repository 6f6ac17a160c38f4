package service

import (
	"context"
	"time"

	cache "streakd/internal/cache/iface"
	"streakd/internal/logger"

	"github.com/google/uuid"
)

const (
	DefaultTickLeaseKey = "streakd:scheduler:tick"
	DefaultTickLeaseTTL = 55 * time.Second
)

// releaseScript deletes the key only while it still holds our token
const releaseScript = `
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`

// TickLease keeps ticks from overlapping across instances
type TickLease interface {
	// Acquire reports ok=false when another holder has the lease.
	Acquire(ctx context.Context) (release func(), ok bool, err error)
}

type localLease struct{}

// NewLocalLease always grants the lease; single-instance deployments use it
func NewLocalLease() TickLease { return localLease{} }

func (localLease) Acquire(context.Context) (func(), bool, error) {
	return func() {}, true, nil
}

type RedisTickLease struct {
	cache  cache.Cache
	key    string
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisTickLease(c cache.Cache, key string, ttl time.Duration, log logger.Logger) *RedisTickLease {
	if key == "" {
		key = DefaultTickLeaseKey
	}
	if ttl <= 0 {
		ttl = DefaultTickLeaseTTL
	}
	return &RedisTickLease{
		cache:  c,
		key:    key,
		ttl:    ttl,
		logger: log.With(logger.String("component", "tick_lease")),
	}
}

func (l *RedisTickLease) Acquire(ctx context.Context) (func(), bool, error) {
	token := uuid.New().String()
	ok, err := l.cache.SetNX(ctx, l.key, token, l.ttl)
	if err != nil || !ok {
		return func() {}, false, err
	}

	release := func() {
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := l.cache.Eval(rctx, releaseScript, []string{l.key}, token); err != nil {
			// the ttl frees it eventually
			l.logger.Warn("failed to release tick lease", logger.Error(err))
		}
	}
	return release, true, nil
}
