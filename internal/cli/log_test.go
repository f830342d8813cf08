package cli

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestNewLoggerVerbosity(t *testing.T) {
	tests := []struct {
		name  string
		level log.Level
		want  []string
		skip  []string
	}{
		{
			name:  "default",
			level: log.InfoLevel,
			want:  []string{"Wrote install.txt"},
			skip:  []string{"lookup"},
		},
		{
			name:  "verbose",
			level: log.DebugLevel,
			want:  []string{"Wrote install.txt", "lookup"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, tt.level)
			logger.Debug("lookup", "package", "flask")
			logger.Info("Wrote install.txt")

			out := buf.String()
			for _, s := range tt.want {
				if !strings.Contains(out, s) {
					t.Errorf("output missing %q:\n%s", s, out)
				}
			}
			for _, s := range tt.skip {
				if strings.Contains(out, s) {
					t.Errorf("output should not contain %q:\n%s", s, out)
				}
			}
		})
	}
}

func TestNewLoggerTimestamp(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, log.InfoLevel).Info("Wrote setup.cfg")

	if !regexp.MustCompile(`^\d{2}:\d{2}:\d{2}\.\d{2} `).Match(buf.Bytes()) {
		t.Errorf("missing HH:MM:SS.ms prefix: %q", buf.String())
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.InfoLevel))
	prog.start = prog.start.Add(-1500 * time.Millisecond)

	prog.done("Wrote 4 requirements files")

	out := buf.String()
	if !strings.Contains(out, "Wrote 4 requirements files (1.5") {
		t.Errorf("done() output = %q, want message with elapsed time", out)
	}
}

func TestLoggerContext(t *testing.T) {
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("bare context should yield the default logger")
	}

	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)
	ctx := withLogger(context.Background(), logger)
	if loggerFromContext(ctx) != logger {
		t.Fatal("loggerFromContext should return the attached logger")
	}
	loggerFromContext(ctx).Info("Wrote test.txt")
	if !strings.Contains(buf.String(), "Wrote test.txt") {
		t.Errorf("attached logger did not write: %q", buf.String())
	}
}

func TestLookupLog(t *testing.T) {
	var buf bytes.Buffer
	l := newLookupLog(newLogger(&buf, log.DebugLevel))
	ctx := context.Background()

	l.OnFetchStart(ctx, "six")
	l.OnFetchComplete(ctx, "six", time.Millisecond, nil)
	l.OnFetchComplete(ctx, "nope", time.Millisecond, errors.New("boom"))
	l.OnCacheHit(ctx, "pypi")
	l.OnCacheMiss(ctx, "pypi")
	l.OnCacheMiss(ctx, "pypi")

	if l.fetched.Load() != 1 || l.failed.Load() != 1 {
		t.Errorf("fetched=%d failed=%d", l.fetched.Load(), l.failed.Load())
	}
	if l.hits.Load() != 1 || l.misses.Load() != 2 {
		t.Errorf("hits=%d misses=%d", l.hits.Load(), l.misses.Load())
	}
	if !bytes.Contains(buf.Bytes(), []byte("nope")) {
		t.Errorf("failed lookup not logged:\n%s", buf.String())
	}
}
