package manifest

import (
	"context"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/parcyl/pkg/errors"
	"github.com/matzehuels/parcyl/pkg/observability"
	"github.com/matzehuels/parcyl/pkg/requirement"
)

// TopLevel is the group name selecting the consolidated requirements.txt.
const TopLevel = "requirements"

// ExtraPrefix prefixes the group names of optional extras.
const ExtraPrefix = "extra_"

// Groups is a set of named requirement groups sharing one list of pins.
type Groups struct {
	Sets map[string][]*requirement.Requirement // group name -> requirements
	Pins []*requirement.Requirement

	// ExcludeExtras leaves extra_* groups out of requirements.txt.
	ExcludeExtras bool
}

// GroupsOptions controls [Groups.Write].
type GroupsOptions struct {
	WriteOptions

	// Only restricts output to the named groups; "requirements" names the
	// top-level file. Empty means every non-empty group plus the top-level
	// file.
	Only []string
	// Prefetch tunes the metadata lookups made before rendering.
	Prefetch PrefetchOptions
}

// Collections returns one collection per selected non-empty group, in group
// name order, followed by the top-level collection when selected and
// non-empty. Group files live in dir; requirements.txt lives in the parent
// of dir.
func (g *Groups) Collections(dir string, only []string) []*Collection {
	selected := func(name string) bool {
		return len(only) == 0 || slices.Contains(only, name)
	}

	var out []*Collection
	for _, name := range slices.Sorted(maps.Keys(g.Sets)) {
		if reqs := g.Sets[name]; len(reqs) > 0 && selected(name) {
			out = append(out, NewCollection(filepath.Join(dir, name+".txt"), reqs, g.Pins))
		}
	}

	if selected(TopLevel) {
		var top []*requirement.Requirement
		for _, name := range slices.Sorted(maps.Keys(g.Sets)) {
			if name == "install" || (!g.ExcludeExtras && strings.HasPrefix(name, ExtraPrefix)) {
				top = append(top, g.Sets[name]...)
			}
		}
		if len(top) > 0 {
			out = append(out, NewCollection(filepath.Join(filepath.Dir(dir), TopLevel+".txt"), top, g.Pins))
		}
	}
	return out
}

// Write renders every selected group and then writes the files. The
// directory must exist ([errors.ErrCodeMissingDirectory] otherwise). When
// pinning or deep expansion needs package metadata, lookups run
// concurrently first. Any failure aborts before the first file is written.
// Write returns the paths written.
func (g *Groups) Write(ctx context.Context, dir string, opts GroupsOptions) ([]string, error) {
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return nil, errors.New(errors.ErrCodeMissingDirectory, "requirements directory %s does not exist", dir)
	}
	log := observability.LoggerOr(opts.Log)

	colls := g.Collections(dir, opts.Only)
	for _, c := range colls {
		if err := errors.ValidateManifestFilename(filepath.Base(c.Path())); err != nil {
			return nil, err
		}
	}
	if opts.Freeze || opts.Upgrade || opts.Deep {
		var all []*requirement.Requirement
		for _, c := range colls {
			all = append(all, c.Requirements()...)
		}
		all = append(all, g.Pins...)
		popts := opts.Prefetch
		popts.Deep = opts.Deep
		log.Debugf("Fetching metadata for %d requirements", len(all))
		if err := Prefetch(ctx, all, popts); err != nil {
			return nil, err
		}
	}

	rendered := make([][]byte, len(colls))
	for i, c := range colls {
		data, err := c.Render(ctx, opts.WriteOptions)
		if err != nil {
			return nil, err
		}
		rendered[i] = data
	}

	paths := make([]string, 0, len(colls))
	for i, c := range colls {
		if err := writeFileAtomic(c.Path(), rendered[i]); err != nil {
			return paths, err
		}
		log.Infof("Wrote %s", c.Path())
		paths = append(paths, c.Path())
	}
	return paths, nil
}
