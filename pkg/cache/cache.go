// Package cache provides byte-level caching for registry responses.
//
// # Backends
//
//   - [FileCache]: one JSON file per entry under a cache directory
//     (default ~/.cache/parcyl or $XDG_CACHE_HOME/parcyl)
//   - [RedisCache]: shared cache in Redis, selected with PARCYL_CACHE_URL
//   - [NullCache]: never stores anything
//
// [Open] picks a backend from a URL-ish string. Entries carry a TTL; a zero
// TTL never expires.
//
// # Retries
//
// [Retryable] marks transient failures and [RetryWithBackoff] retries only
// those. Registry clients wrap network errors and 5xx responses this way.
package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Cache stores opaque byte values under string keys.
//
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// EnvURL names the environment variable that selects the cache backend.
const EnvURL = "PARCYL_CACHE_URL"

// DefaultDir returns the default file cache directory.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "parcyl"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "parcyl"), nil
}

// Open returns a cache for spec:
//   - "" or "file": [FileCache] in [DefaultDir]
//   - "file:///some/dir" or a plain path: [FileCache] in that directory
//   - "redis://..." or "rediss://...": [RedisCache]
//   - "none" or "off": [NullCache]
func Open(ctx context.Context, spec string) (Cache, error) {
	switch {
	case spec == "none" || spec == "off":
		return NewNullCache(EnvURL + "=" + spec), nil
	case strings.HasPrefix(spec, "redis://") || strings.HasPrefix(spec, "rediss://"):
		return NewRedisCache(ctx, spec)
	case spec == "" || spec == "file":
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		return NewFileCache(dir)
	default:
		return NewFileCache(strings.TrimPrefix(spec, "file://"))
	}
}
