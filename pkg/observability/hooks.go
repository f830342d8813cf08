// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Hooks are plain values handed to the
// components that emit events (the metadata prefetch pool, the response cache,
// the registry HTTP client); there is no process-wide registry.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Let callers inject custom implementations where the component is built
//
// # Usage
//
// Pass hooks through component options:
//
//	err := manifest.Prefetch(ctx, reqs, manifest.PrefetchOptions{
//	    Deep:  true,
//	    Hooks: &myFetchHooks{},
//	})
//
// Components call hooks to emit events:
//
//	hooks.OnFetchStart(ctx, name)
//	// ... look up metadata ...
//	hooks.OnFetchComplete(ctx, name, duration, err)
package observability

import (
	"context"
	"time"
)

// =============================================================================
// Logging
// =============================================================================

// Logger is the logging surface library packages depend on.
// *log.Logger from github.com/charmbracelet/log satisfies it.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

// NopLogger discards all log output.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Warnf(string, ...any)  {}

// LoggerOr returns l, or a [NopLogger] when l is nil.
func LoggerOr(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}

// =============================================================================
// Fetch Hooks
// =============================================================================

// FetchHooks receives events from package metadata lookups.
type FetchHooks interface {
	// OnFetchStart records the start of a metadata lookup.
	OnFetchStart(ctx context.Context, pkg string)

	// OnFetchComplete records the end of a metadata lookup.
	OnFetchComplete(ctx context.Context, pkg string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopFetchHooks is a no-op implementation of FetchHooks.
type NoopFetchHooks struct{}

func (NoopFetchHooks) OnFetchStart(context.Context, string)                           {}
func (NoopFetchHooks) OnFetchComplete(context.Context, string, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// FetchOr returns h, or [NoopFetchHooks] when h is nil.
func FetchOr(h FetchHooks) FetchHooks {
	if h == nil {
		return NoopFetchHooks{}
	}
	return h
}

// CacheOr returns h, or [NoopCacheHooks] when h is nil.
func CacheOr(h CacheHooks) CacheHooks {
	if h == nil {
		return NoopCacheHooks{}
	}
	return h
}

// HTTPOr returns h, or [NoopHTTPHooks] when h is nil.
func HTTPOr(h HTTPHooks) HTTPHooks {
	if h == nil {
		return NoopHTTPHooks{}
	}
	return h
}
