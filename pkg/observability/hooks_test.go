package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Fetch hooks
	f := NoopFetchHooks{}
	f.OnFetchStart(ctx, "requests")
	f.OnFetchComplete(ctx, "requests", time.Second, nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "pypi")
	c.OnCacheMiss(ctx, "pypi")
	c.OnCacheSet(ctx, "pypi", 1024)

	// HTTP hooks
	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "pypi.org", "/pypi/requests/json")
	h.OnResponse(ctx, "GET", "pypi.org", "/pypi/requests/json", 200, time.Second)
	h.OnError(ctx, "GET", "pypi.org", "/pypi/requests/json", nil)

	// Logger
	NopLogger{}.Debugf("x %d", 1)
	NopLogger{}.Infof("x")
	NopLogger{}.Warnf("x")
}

func TestOrDefaults(t *testing.T) {
	if _, ok := FetchOr(nil).(NoopFetchHooks); !ok {
		t.Error("FetchOr(nil) should return NoopFetchHooks")
	}
	if _, ok := CacheOr(nil).(NoopCacheHooks); !ok {
		t.Error("CacheOr(nil) should return NoopCacheHooks")
	}
	if _, ok := HTTPOr(nil).(NoopHTTPHooks); !ok {
		t.Error("HTTPOr(nil) should return NoopHTTPHooks")
	}
	if _, ok := LoggerOr(nil).(NopLogger); !ok {
		t.Error("LoggerOr(nil) should return NopLogger")
	}

	custom := &testFetchHooks{}
	if FetchOr(custom) != custom {
		t.Error("FetchOr should keep custom hooks")
	}
	customCache := &testCacheHooks{}
	if CacheOr(customCache) != customCache {
		t.Error("CacheOr should keep custom hooks")
	}
	customHTTP := &testHTTPHooks{}
	if HTTPOr(customHTTP) != customHTTP {
		t.Error("HTTPOr should keep custom hooks")
	}
}

// Test implementations
type testFetchHooks struct{ NoopFetchHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
