package manifest

import (
	"context"
	"maps"
	"runtime"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/parcyl/pkg/errors"
	"github.com/matzehuels/parcyl/pkg/observability"
	"github.com/matzehuels/parcyl/pkg/requirement"
)

// DefaultFetchTimeout is the per-lookup share of the prefetch deadline.
const DefaultFetchTimeout = 3 * time.Second

// Collection is the set of requirements destined for one manifest file.
//
// Requirements and pins are cloned on construction, so merging into one
// collection never changes another collection built from the same
// declarations. Clones share their metadata lookups.
type Collection struct {
	path string
	reqs map[string]*requirement.Requirement
	pins map[string]*requirement.Requirement

	mu       sync.Mutex
	resolved map[bool]*resolution
}

type resolution struct {
	all      map[string]*requirement.Requirement
	requires map[string][]string // declared key -> transitive keys
}

// NewCollection returns a collection written to path. Requirements with the
// same key are merged. pins take precedence over any requirement with the
// same key during resolution.
func NewCollection(path string, reqs, pins []*requirement.Requirement) *Collection {
	c := &Collection{
		path:     path,
		reqs:     make(map[string]*requirement.Requirement, len(reqs)),
		pins:     make(map[string]*requirement.Requirement, len(pins)),
		resolved: make(map[bool]*resolution),
	}
	for _, r := range reqs {
		if cur, ok := c.reqs[r.Key]; ok {
			cur.Merge(r)
			continue
		}
		c.reqs[r.Key] = r.Clone()
	}
	for _, p := range pins {
		c.pins[p.Key] = p.Clone()
	}
	return c
}

// Path returns the manifest path.
func (c *Collection) Path() string { return c.path }

// Requirements returns the declared requirements sorted by key.
func (c *Collection) Requirements() []*requirement.Requirement {
	out := slices.Collect(maps.Values(c.reqs))
	requirement.Sort(out)
	return out
}

// Packages returns the declared keys in sorted order.
func (c *Collection) Packages() []string {
	return slices.Sorted(maps.Keys(c.reqs))
}

// Get returns the declared requirement with the given key, or nil.
func (c *Collection) Get(key string) *requirement.Requirement {
	return c.reqs[key]
}

// Resolve merges the collection into one requirement per key.
//
// Requirements are visited in key order. With deep set, the runtime
// requirements of each one are merged first, tagged with its project name
// in RequiredBy. A requirement whose key is pinned is replaced by the pin,
// which inherits its RequiredBy. Entries with the same key union their specs
// and RequiredBy.
//
// The result is computed once per deep setting and cached. Failing to look
// up the requirements of a package aborts deep resolution with
// [errors.ErrCodeTransitiveFetch].
func (c *Collection) Resolve(ctx context.Context, deep bool) (map[string]*requirement.Requirement, error) {
	res, err := c.resolve(ctx, deep)
	if err != nil {
		return nil, err
	}
	return res.all, nil
}

func (c *Collection) resolve(ctx context.Context, deep bool) (*resolution, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if res, ok := c.resolved[deep]; ok {
		return res, nil
	}

	res := &resolution{
		all:      make(map[string]*requirement.Requirement),
		requires: make(map[string][]string),
	}
	// Each resolution merges into its own copies, so a deep result never
	// shows up in the shallow one or in the declared requirements.
	pins := make(map[string]*requirement.Requirement, len(c.pins))
	for k, p := range c.pins {
		pins[k] = p.Clone()
	}
	for _, r := range c.Requirements() {
		r = r.Clone()
		if deep {
			deps, err := r.Requires(ctx)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeTransitiveFetch, err, "requires of %s", r.ProjectName)
			}
			for _, dep := range deps {
				dep.RequiredBy = []string{r.ProjectName}
				merge(res.all, pins, dep)
				res.requires[r.Key] = append(res.requires[r.Key], dep.Key)
			}
		}
		merge(res.all, pins, r)
	}

	c.resolved[deep] = res
	return res, nil
}

func merge(all, pins map[string]*requirement.Requirement, x *requirement.Requirement) {
	if pin, ok := pins[x.Key]; ok && pin != x {
		pin.AddRequiredBy(x.RequiredBy...)
		x = pin
	}
	if cur, ok := all[x.Key]; ok {
		if cur != x {
			cur.Merge(x)
		}
		return
	}
	all[x.Key] = x
}

// PrefetchOptions tunes [Prefetch].
type PrefetchOptions struct {
	// Deep also fetches the runtime requirements of every requirement.
	Deep bool
	// Timeout is the per-lookup share of the deadline. The whole pool must
	// finish within Timeout times the number of lookups.
	Timeout time.Duration
	// Workers bounds concurrent lookups; zero means GOMAXPROCS.
	Workers int
	// Hooks observes each lookup.
	Hooks observability.FetchHooks
}

// Prefetch looks up the metadata of reqs concurrently so that resolution
// and rendering afterwards never block. Lookups already done are skipped.
//
// Exceeding the deadline fails with [errors.ErrCodeTimeout]. Other lookup
// failures are fatal only when opts.Deep is set; otherwise the versions of
// the failed package are treated as unknown.
func Prefetch(ctx context.Context, reqs []*requirement.Requirement, opts PrefetchOptions) error {
	deps, err := fetchAll(ctx, reqs, opts)
	if err != nil || !opts.Deep {
		return err
	}
	_, err = fetchAll(ctx, deps, opts)
	return err
}

// fetchAll fetches reqs and returns their runtime requirements.
func fetchAll(ctx context.Context, reqs []*requirement.Requirement, opts PrefetchOptions) ([]*requirement.Requirement, error) {
	pending := make([]*requirement.Requirement, 0, len(reqs))
	for _, r := range reqs {
		if r.Bound() && r.State() == requirement.StateUnresolved {
			pending = append(pending, r)
		}
	}
	if len(pending) == 0 {
		return collectRequires(ctx, reqs, opts.Deep)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	hooks := observability.FetchOr(opts.Hooks)

	fctx, cancel := context.WithTimeout(ctx, timeout*time.Duration(len(pending)))
	defer cancel()

	g, gctx := errgroup.WithContext(fctx)
	g.SetLimit(workers)
	for _, r := range pending {
		g.Go(func() error {
			hooks.OnFetchStart(gctx, r.ProjectName)
			start := time.Now()
			err := r.Fetch(gctx)
			hooks.OnFetchComplete(gctx, r.ProjectName, time.Since(start), err)
			if err == nil || (!opts.Deep && !errors.Is(err, errors.ErrCodeTimeout)) {
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, errors.ErrCodeTimeout) {
			return nil, errors.Wrap(errors.ErrCodeTimeout, err, "%d metadata lookups exceeded %s",
				len(pending), timeout*time.Duration(len(pending)))
		}
		return nil, err
	}
	return collectRequires(ctx, reqs, opts.Deep)
}

func collectRequires(ctx context.Context, reqs []*requirement.Requirement, deep bool) ([]*requirement.Requirement, error) {
	if !deep {
		return nil, nil
	}
	var out []*requirement.Requirement
	for _, r := range reqs {
		deps, err := r.Requires(ctx)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeTransitiveFetch, err, "requires of %s", r.ProjectName)
		}
		out = append(out, deps...)
	}
	return out, nil
}
