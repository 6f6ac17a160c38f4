package cache

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by Get when the key does not exist
var ErrKeyNotFound = errors.New("key not found")

// Cache is the small key/value surface the tick lease needs (Redis)
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error

	// SetNX stores value only when key is absent and reports whether it did
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)

	// Eval runs a Lua script; used for compare-and-delete on lease release
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)

	Close() error
}
