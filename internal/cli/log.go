// Package cli implements the parcyl command-line interface.
//
// # Commands
//
// The main commands are:
//   - requirements: write requirements files from the [parcyl:requirements] groups
//   - attrs: print the build attributes as JSON or YAML
//   - info-file: write the version info module
//   - init: create a skeleton setup.cfg
//   - cache: manage the registry response cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger is
// attached to the command context and handed to library packages, which
// depend only on the small observability.Logger interface.
package cli

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Wrote 4 requirements files (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx.
// If no logger is attached, it returns log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// lookupLog logs metadata lookups at debug level and counts cache traffic.
// It serves as both fetch and cache hooks.
type lookupLog struct {
	logger *log.Logger

	fetched atomic.Int64
	failed  atomic.Int64
	hits    atomic.Int64
	misses  atomic.Int64
}

func newLookupLog(l *log.Logger) *lookupLog {
	return &lookupLog{logger: l}
}

func (l *lookupLog) OnFetchStart(_ context.Context, pkg string) {
	l.logger.Debug("lookup", "package", pkg)
}

func (l *lookupLog) OnFetchComplete(_ context.Context, pkg string, d time.Duration, err error) {
	if err != nil {
		l.failed.Add(1)
		l.logger.Debug("lookup failed", "package", pkg, "took", d.Round(time.Millisecond), "err", err)
		return
	}
	l.fetched.Add(1)
	l.logger.Debug("lookup done", "package", pkg, "took", d.Round(time.Millisecond))
}

func (l *lookupLog) OnCacheHit(context.Context, string)     { l.hits.Add(1) }
func (l *lookupLog) OnCacheMiss(context.Context, string)    { l.misses.Add(1) }
func (l *lookupLog) OnCacheSet(context.Context, string, int) {}
