// Package metadata answers the three questions parcyl asks about a package:
// which version is installed, which released version is the newest one that
// satisfies a set of constraints, and what the package itself requires.
//
// [Service] is the seam between the requirement model and the outside world.
// [Registry] answers from the local site-packages index and the PyPI JSON
// API; [Static] answers from a fixed table and is meant for tests and
// offline runs.
package metadata

import (
	"context"
	"sync"

	"github.com/matzehuels/parcyl/pkg/errors"
	"github.com/matzehuels/parcyl/pkg/integrations"
	"github.com/matzehuels/parcyl/pkg/version"
)

// Info is what a [Service] knows about one package. Empty version strings
// mean "unknown".
type Info struct {
	Installed    string   // Version found in the local environment
	LatestInSpec string   // Newest release satisfying the lookup specs
	Requires     []string // Runtime requirement specifiers of that release
}

// Service looks up package metadata.
//
// Implementations must be safe for concurrent use; lookups for different
// packages run in parallel during prefetch.
type Service interface {
	Lookup(ctx context.Context, name string, specs []version.Spec) (*Info, error)
}

// Package is one entry of a [Static] table.
type Package struct {
	Installed string
	Releases  []string
	Requires  []string
}

// Static is a map-backed [Service]. Keys are normalized package names.
type Static struct {
	mu       sync.Mutex
	packages map[string]Package
	lookups  map[string]int
}

// NewStatic returns a Static service answering from packages. Names are
// normalized, so "Flask" and "flask" refer to the same entry.
func NewStatic(packages map[string]Package) *Static {
	s := &Static{
		packages: make(map[string]Package, len(packages)),
		lookups:  make(map[string]int),
	}
	for name, p := range packages {
		s.packages[integrations.NormalizePkgName(name)] = p
	}
	return s
}

// Lookup implements [Service]. Unknown packages fail with
// [errors.ErrCodeNotFound].
func (s *Static) Lookup(ctx context.Context, name string, specs []version.Spec) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := integrations.NormalizePkgName(name)

	s.mu.Lock()
	s.lookups[key]++
	p, ok := s.packages[key]
	s.mu.Unlock()

	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "package %s", name)
	}
	return &Info{
		Installed:    p.Installed,
		LatestInSpec: LatestInSpec(p.Releases, specs),
		Requires:     append([]string(nil), p.Requires...),
	}, nil
}

// Lookups returns how many times name was looked up.
func (s *Static) Lookups(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups[integrations.NormalizePkgName(name)]
}

// LatestInSpec returns the greatest release satisfying specs, or "" when
// none does. Prereleases are candidates only when a spec names one.
func LatestInSpec(releases []string, specs []version.Spec) string {
	pre := version.AllowsPrerelease(specs)
	var best string
	for _, r := range releases {
		if !version.Satisfies(r, specs) {
			continue
		}
		if !pre && version.IsPrerelease(r) {
			continue
		}
		if best == "" || version.Compare(r, best) > 0 {
			best = r
		}
	}
	return best
}
