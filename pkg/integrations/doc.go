// Package integrations provides HTTP clients for package registry APIs.
//
// # Overview
//
// The [pypi] subpackage fetches release lists and requirement metadata from
// the Python Package Index. This package holds the infrastructure it builds
// on: a JSON-over-HTTP [Client] with response caching, retries and hooks,
// plus name and URL normalization helpers.
//
// # Client Pattern
//
//	c, _ := cache.Open(ctx, os.Getenv(cache.EnvURL))
//	client := pypi.NewClient(c, 24*time.Hour)
//	pkg, err := client.FetchPackage(ctx, "fastapi", false)  // false = use cache
//
// Clients handle:
//   - HTTP requests with retry for transient failures (5xx, 429, network)
//   - Response caching through [cache.Cache] with a configurable TTL
//   - API-specific parsing and normalization
//
// # Errors
//
// Missing packages surface as [ErrNotFound]; every other transport failure
// wraps [ErrNetwork].
//
// [pypi]: github.com/matzehuels/parcyl/pkg/integrations/pypi
// [cache.Cache]: github.com/matzehuels/parcyl/pkg/cache.Cache
package integrations
