package cache

import (
	"context"
	"fmt"
)

// Backend names accepted by Open
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Backend is a cache holding resources until closed
type Backend interface {
	Cache
	Close() error
}

// Open creates the named backend. BackendNone and "" yield a nil Backend.
func Open(ctx context.Context, name string, config RedisConfig) (Backend, error) {
	switch name {
	case BackendNone, "":
		return nil, nil
	case BackendMemory:
		return NewMemoryCacheWithConfig(config.Cache), nil
	case BackendRedis:
		c, err := NewRedisCache(ctx, config)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.Addr, err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", name)
	}
}
