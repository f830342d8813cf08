package cache

import (
	"context"
	"time"
)

// NullCache stands in when registry caching is off, whether through
// --no-cache, PARCYL_CACHE_URL=off or a backend that failed to open.
// Every lookup misses and writes are dropped.
type NullCache struct {
	reason string
}

// NewNullCache returns a cache that stores nothing. reason says why caching
// is off and is reported by [NullCache.Reason].
func NewNullCache(reason string) Cache {
	return &NullCache{reason: reason}
}

// Reason reports why caching is off.
func (c *NullCache) Reason() string {
	if c.reason == "" {
		return "caching disabled"
	}
	return c.reason
}

func (c *NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (c *NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (c *NullCache) Delete(context.Context, string) error { return nil }

func (c *NullCache) Close() error { return nil }

var _ Cache = (*NullCache)(nil)
