package manifest

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/parcyl/pkg/observability"
	"github.com/matzehuels/parcyl/pkg/requirement"
)

// commentColumn is the width requirement text is padded to before a
// trailing comment.
const commentColumn = 40

// WriteOptions controls how a manifest is rendered.
type WriteOptions struct {
	Freeze  bool // Pin unconstrained requirements to installed versions
	Upgrade bool // Pin unconstrained requirements to the latest versions
	Deep    bool // Include runtime requirements of each requirement

	Log observability.Logger
}

// Mode picks the render mode for r and the requirement to render with it.
//
// A requirement with specs renders them. Otherwise Upgrade pins the latest
// version in spec when one is known. Freeze pins the installed version;
// failing that it reuses the specs the requirement has in the current
// manifest, and failing that it pins the latest version. Everything else
// renders the current, possibly empty, specs.
//
// r is never modified. Pinned results are clones of r, pinned through
// [requirement.Requirement.Freeze] or [requirement.Requirement.Upgrade].
func (o WriteOptions) Mode(ctx context.Context, r *requirement.Requirement, current *File) (requirement.Mode, *requirement.Requirement) {
	switch {
	case len(r.Specs) > 0:
		return requirement.ModeCurrent, r
	case o.Upgrade && r.VersionLatestInSpec(ctx) != "":
		kept := r.Clone()
		kept.Upgrade(ctx)
		return requirement.ModeCurrent, kept
	case o.Freeze:
		kept := r.Clone()
		if cur := current.Get(r.Key); r.VersionInstalled(ctx) == "" && cur != nil && len(cur.Specs) > 0 {
			for _, s := range cur.Specs {
				kept.AddSpec(s)
			}
			return requirement.ModeCurrent, kept
		}
		kept.Freeze(ctx)
		return requirement.ModeCurrent, kept
	}
	return requirement.ModeCurrent, r
}

// Render renders the manifest content without touching the file system
// beyond reading the current manifest. Any conflict fails the whole render.
func (c *Collection) Render(ctx context.Context, opts WriteOptions) ([]byte, error) {
	log := observability.LoggerOr(opts.Log)

	res, err := c.resolve(ctx, opts.Deep)
	if err != nil {
		return nil, err
	}

	current, err := ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("Ignoring current content of %s: %v", c.path, err)
		}
		current = nil
	}

	var buf bytes.Buffer
	emitted := make(map[string]bool, len(res.all))
	emit := func(key string) error {
		if emitted[key] {
			return nil
		}
		emitted[key] = true
		mode, r := opts.Mode(ctx, res.all[key], current)
		line, err := r.Render(ctx, mode, true)
		if err != nil {
			return fmt.Errorf("%s: %w", c.path, err)
		}
		if len(r.RequiredBy) > 0 {
			line = fmt.Sprintf("%-*s # Required by %s", commentColumn, line, strings.Join(r.RequiredBy, ","))
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
		return nil
	}

	for _, key := range slices.Sorted(maps.Keys(c.reqs)) {
		if opts.Deep {
			deps := slices.Clone(res.requires[key])
			slices.Sort(deps)
			for _, dep := range deps {
				if err := emit(dep); err != nil {
					return nil, err
				}
			}
		}
		if err := emit(key); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Write renders the manifest and replaces the file at its path. Nothing is
// written when rendering fails.
func (c *Collection) Write(ctx context.Context, opts WriteOptions) error {
	data, err := c.Render(ctx, opts)
	if err != nil {
		return err
	}
	return writeFileAtomic(c.path, data)
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}
