// Package requirement models a single Python dependency declaration.
//
// A [Requirement] is parsed from a PEP 508 specifier string
// ("MishMash[postgres,web]~=0.3; python_version>='3.8'") or from a VCS URL
// ("git+https://github.com/org/repo.git@v1#egg=repo"). It renders back to a
// specifier in one of four [Mode]s, merges duplicate constraints, and lazily
// looks up installed and latest versions through a [metadata.Service].
//
// # Identity
//
// ProjectName is the display form of the name: every run of characters other
// than letters, digits and "." becomes "-", case preserved ("eyeD3_extra"
// becomes "eyeD3-extra"). Key is the lowercase ProjectName and is the
// identity used for deduplication and ordering.
//
// # VCS requirements
//
// Requirements with a git+, hg+, svn+ or bzr+ prefix keep the whole string as
// SourceLocator and always render it verbatim. Their name comes from an
// "#egg=" fragment or from the last path segment of the URL; they never carry
// version constraints and never look up metadata.
package requirement

import (
	"cmp"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/matzehuels/parcyl/pkg/errors"
	"github.com/matzehuels/parcyl/pkg/version"
)

// Requirement is one parsed dependency declaration.
//
// Specs has set semantics: [Requirement.AddSpec] ignores duplicates. Specs is
// mutated by merging, [Requirement.Freeze] and [Requirement.Upgrade]; the
// specs present at parse time are kept separately so Freeze and Upgrade can
// restore them.
type Requirement struct {
	Name          string         // Name as written
	ProjectName   string         // Display name
	Key           string         // Lowercase ProjectName
	Specs         []version.Spec // Current constraints
	Marker        string         // Normalized environment marker, "" if none
	Extras        []string       // Extras in declaration order
	SourceLocator string         // Verbatim VCS or direct-reference string
	RequiredBy    []string       // Project names that pulled this in transitively

	declared []version.Spec
	meta     *lookup
}

var vcsPrefixes = []string{"git+", "hg+", "svn+", "bzr+"}

var (
	nameRE    = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?`)
	extraRE   = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?$`)
	specVerRE = regexp.MustCompile(`^[A-Za-z0-9_.*+!-]+$`)
	unsafeRE  = regexp.MustCompile(`[^A-Za-z0-9.]+`)
)

// Parse parses a requirement specifier. Malformed input fails with
// [errors.ErrCodeParse].
func Parse(s string) (*Requirement, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return nil, errors.New(errors.ErrCodeParse, "empty requirement")
	}
	for _, p := range vcsPrefixes {
		if strings.HasPrefix(raw, p) {
			return parseVCS(raw)
		}
	}
	return parseSpecifier(raw)
}

// MustParse is like [Parse] but panics on error.
func MustParse(s string) *Requirement {
	r, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return r
}

func parseVCS(raw string) (*Requirement, error) {
	loc, frag, _ := strings.Cut(raw, "#")

	var name string
	if frag != "" {
		if q, err := url.ParseQuery(frag); err == nil {
			name = q.Get("egg")
		}
	}
	if name == "" {
		// An "@" after the last "/" marks a revision, not userinfo.
		if at := strings.LastIndex(loc, "@"); at > strings.LastIndex(loc, "/") {
			loc = loc[:at]
		}
		loc = strings.TrimRight(loc, "/")
		if i := strings.LastIndex(loc, "/"); i >= 0 {
			name = loc[i+1:]
		}
		name = strings.TrimSuffix(name, ".git")
	}
	if err := errors.ValidatePackageName(name); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "cannot derive package name from %q", raw)
	}

	r := newRequirement(name)
	r.SourceLocator = raw
	return r, nil
}

func parseSpecifier(raw string) (*Requirement, error) {
	body, marker, hasMarker := strings.Cut(raw, ";")
	body = strings.TrimSpace(body)

	name := nameRE.FindString(body)
	if name == "" {
		return nil, errors.New(errors.ErrCodeParse, "missing package name in %q", raw)
	}
	r := newRequirement(name)
	rest := strings.TrimSpace(body[len(name):])

	if strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, errors.New(errors.ErrCodeParse, "unbalanced extras brackets in %q", raw)
		}
		for _, e := range strings.Split(rest[1:end], ",") {
			e = strings.TrimSpace(e)
			if e == "" {
				continue
			}
			if !extraRE.MatchString(e) {
				return nil, errors.New(errors.ErrCodeParse, "invalid extra %q in %q", e, raw)
			}
			r.addExtra(e)
		}
		rest = strings.TrimSpace(rest[end+1:])
	}

	switch {
	case strings.HasPrefix(rest, "@"):
		if strings.TrimSpace(rest[1:]) == "" {
			return nil, errors.New(errors.ErrCodeParse, "missing URL after @ in %q", raw)
		}
		r.SourceLocator = raw
		rest = ""
	case strings.HasPrefix(rest, "("):
		if !strings.HasSuffix(rest, ")") {
			return nil, errors.New(errors.ErrCodeParse, "unbalanced parentheses in %q", raw)
		}
		rest = strings.TrimSpace(rest[1 : len(rest)-1])
	}

	if rest != "" {
		for _, clause := range strings.Split(rest, ",") {
			spec, ok := version.SplitSpec(clause)
			if !ok {
				return nil, errors.New(errors.ErrCodeParse, "unknown version operator in %q", strings.TrimSpace(clause))
			}
			if spec.Version == "" {
				return nil, errors.New(errors.ErrCodeParse, "missing version after %s in %q", spec.Op, raw)
			}
			if !specVerRE.MatchString(spec.Version) {
				return nil, errors.New(errors.ErrCodeParse, "invalid version %q in %q", spec.Version, raw)
			}
			r.AddSpec(spec)
		}
	}

	if hasMarker {
		m, err := NormalizeMarker(marker)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParse, err, "invalid marker in %q", raw)
		}
		r.Marker = m
	}

	r.declared = slices.Clone(r.Specs)
	return r, nil
}

func newRequirement(name string) *Requirement {
	project := unsafeRE.ReplaceAllString(name, "-")
	return &Requirement{
		Name:        name,
		ProjectName: project,
		Key:         strings.ToLower(project),
	}
}

func (r *Requirement) addExtra(e string) {
	for _, have := range r.Extras {
		if strings.EqualFold(have, e) {
			return
		}
	}
	r.Extras = append(r.Extras, e)
}

// AddSpec adds s unless an identical spec is already present. It reports
// whether s was added.
func (r *Requirement) AddSpec(s version.Spec) bool {
	if slices.Contains(r.Specs, s) {
		return false
	}
	r.Specs = append(r.Specs, s)
	return true
}

// AddRequiredBy records names as origins of this requirement, skipping
// names already present.
func (r *Requirement) AddRequiredBy(names ...string) {
	for _, n := range names {
		if !slices.Contains(r.RequiredBy, n) {
			r.RequiredBy = append(r.RequiredBy, n)
		}
	}
}

// Merge unions the specs and RequiredBy annotations of o into r.
func (r *Requirement) Merge(o *Requirement) {
	for _, s := range o.Specs {
		r.AddSpec(s)
	}
	r.AddRequiredBy(o.RequiredBy...)
}

// Declared returns the specs present at parse time.
func (r *Requirement) Declared() []version.Spec {
	return slices.Clone(r.declared)
}

// IsVCS reports whether r renders as a verbatim source locator.
func (r *Requirement) IsVCS() bool { return r.SourceLocator != "" }

// Clone returns a copy of r with its own Specs, Extras and RequiredBy.
// Metadata lookups stay shared, so a fetch through either copy serves both.
func (r *Requirement) Clone() *Requirement {
	c := *r
	c.Specs = slices.Clone(r.Specs)
	c.Extras = slices.Clone(r.Extras)
	c.RequiredBy = slices.Clone(r.RequiredBy)
	c.declared = slices.Clone(r.declared)
	return &c
}

// Less orders requirements by key.
func (r *Requirement) Less(o *Requirement) bool { return r.Key < o.Key }

// Sort sorts reqs by key, keeping the relative order of equal keys.
func Sort(reqs []*Requirement) {
	slices.SortStableFunc(reqs, func(a, b *Requirement) int {
		return cmp.Compare(a.Key, b.Key)
	})
}
