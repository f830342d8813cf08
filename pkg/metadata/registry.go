package metadata

import (
	"context"
	stderrors "errors"
	"regexp"

	"github.com/matzehuels/parcyl/pkg/errors"
	"github.com/matzehuels/parcyl/pkg/integrations"
	"github.com/matzehuels/parcyl/pkg/integrations/pypi"
	"github.com/matzehuels/parcyl/pkg/observability"
	"github.com/matzehuels/parcyl/pkg/site"
	"github.com/matzehuels/parcyl/pkg/version"
)

var extraMarkerRE = regexp.MustCompile(`;.*\bextra\s*(==|!=|===)`)

// Registry is the production [Service]: installed versions come from a
// [site.Index], releases and requirements from PyPI.
type Registry struct {
	site    *site.Index
	pypi    *pypi.Client
	log     observability.Logger
	refresh bool
}

// NewRegistry returns a Registry. A nil index reports nothing installed; a
// nil logger discards output.
func NewRegistry(ix *site.Index, client *pypi.Client, log observability.Logger) *Registry {
	return &Registry{site: ix, pypi: client, log: observability.LoggerOr(log)}
}

// WithRefresh makes every lookup bypass the response cache.
func (r *Registry) WithRefresh(refresh bool) *Registry {
	r.refresh = refresh
	return r
}

// Lookup implements [Service].
//
// Requires describes the release the lookup would settle on: the latest
// release in spec, else the installed version, else the newest release.
// Requirements guarded by an "extra" marker are left out. A package that
// PyPI does not know but that is installed locally resolves with only its
// installed version.
func (r *Registry) Lookup(ctx context.Context, name string, specs []version.Spec) (*Info, error) {
	installed := r.site.Version(name)

	pkg, err := r.pypi.FetchPackage(ctx, name, r.refresh)
	if err != nil {
		if stderrors.Is(err, integrations.ErrNotFound) {
			if installed != "" {
				r.log.Debugf("%s not on PyPI, using installed %s", name, installed)
				return &Info{Installed: installed}, nil
			}
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "package %s", name)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "package %s", name)
	}

	info := &Info{
		Installed:    installed,
		LatestInSpec: LatestInSpec(pkg.Releases, specs),
	}

	target := info.LatestInSpec
	if target == "" {
		target = installed
	}
	requires := pkg.RequiresDist
	if target != "" && version.Compare(target, pkg.Version) != 0 {
		rel, err := r.pypi.FetchRelease(ctx, name, target, r.refresh)
		switch {
		case err == nil:
			requires = rel.RequiresDist
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			r.log.Warnf("requires of %s %s unavailable, using %s: %v", name, target, pkg.Version, err)
		}
	}
	info.Requires = RuntimeRequires(requires)
	return info, nil
}

// RuntimeRequires drops the entries of requiresDist that only apply to an
// extra.
func RuntimeRequires(requiresDist []string) []string {
	var out []string
	for _, s := range requiresDist {
		if extraMarkerRE.MatchString(s) {
			continue
		}
		out = append(out, s)
	}
	return out
}
