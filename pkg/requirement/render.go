package requirement

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/matzehuels/parcyl/pkg/errors"
	"github.com/matzehuels/parcyl/pkg/version"
)

// Mode selects how a requirement's version constraint is rendered.
type Mode int

const (
	// ModeNone renders the name and extras only.
	ModeNone Mode = iota
	// ModeCurrent renders the merged current specs.
	ModeCurrent
	// ModeInstalled renders "==<installed version>", or nothing if unknown.
	ModeInstalled
	// ModeLatest renders "==<latest version in spec>", or nothing if unknown.
	ModeLatest
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeCurrent:
		return "current"
	case ModeInstalled:
		return "installed"
	case ModeLatest:
		return "latest"
	}
	return "unknown"
}

// Render renders r as a specifier line.
//
// VCS requirements always render their SourceLocator. ModeCurrent fails with
// [errors.ErrCodeConflict] when the merged specs pin two different versions.
// ModeInstalled and ModeLatest may trigger a metadata lookup and fall back to
// the bare name when the version is unknown.
func (r *Requirement) Render(ctx context.Context, mode Mode, withMarker bool) (string, error) {
	if r.SourceLocator != "" {
		return r.SourceLocator, nil
	}

	var b strings.Builder
	b.WriteString(r.ProjectName)
	if len(r.Extras) > 0 {
		b.WriteString("[" + strings.Join(r.Extras, ",") + "]")
	}

	switch mode {
	case ModeCurrent:
		specs, err := r.MergedSpecs()
		if err != nil {
			return "", err
		}
		for i, s := range specs {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(s.String())
		}
	case ModeInstalled:
		if v := r.VersionInstalled(ctx); v != "" {
			b.WriteString("==" + v)
		}
	case ModeLatest:
		if v := r.VersionLatestInSpec(ctx); v != "" {
			b.WriteString("==" + v)
		}
	}

	if withMarker && r.Marker != "" {
		b.WriteString(" ; " + r.Marker)
	}
	return b.String(), nil
}

// String renders r in ModeCurrent with its marker. A version conflict
// degrades to the name-only form.
func (r *Requirement) String() string {
	s, err := r.Render(context.Background(), ModeCurrent, true)
	if err != nil {
		s, _ = r.Render(context.Background(), ModeNone, true)
	}
	return s
}

// MergedSpecs collapses Specs into the effective constraint set.
//
// For an operator with several values, values that are not valid versions
// are dropped; then ">" and ">=" keep the highest value, "<" and "<=" keep
// the lowest, "==" fails with [errors.ErrCodeConflict] if more than one
// distinct version remains, and "!=" and "~=" keep every value. The result
// is sorted in reverse (operator, version) order.
func (r *Requirement) MergedSpecs() ([]version.Spec, error) {
	byOp := make(map[string][]string)
	for _, s := range r.Specs {
		byOp[s.Op] = append(byOp[s.Op], s.Version)
	}

	var out []version.Spec
	for op, vs := range byOp {
		if len(vs) > 1 {
			vs = r.dropInvalid(vs)
			switch op {
			case ">", ">=":
				vs = []string{version.Max(vs)}
			case "<", "<=":
				vs = []string{version.Min(vs)}
			case "==":
				distinct := distinctVersions(vs)
				if len(distinct) > 1 {
					return nil, errors.New(errors.ErrCodeConflict,
						"version conflict for %s: ==[%s]", r.ProjectName, strings.Join(distinct, ","))
				}
				vs = distinct
			}
		}
		for _, v := range vs {
			out = append(out, version.Spec{Op: op, Version: v})
		}
	}

	slices.SortFunc(out, func(a, b version.Spec) int {
		if c := cmp.Compare(b.Op, a.Op); c != 0 {
			return c
		}
		return cmp.Compare(b.Version, a.Version)
	})
	return out, nil
}

// dropInvalid removes unparseable versions. When none parse, the values are
// kept as declared so the constraint is not silently lost.
func (r *Requirement) dropInvalid(vs []string) []string {
	valid := make([]string, 0, len(vs))
	for _, v := range vs {
		if version.Valid(v) {
			valid = append(valid, v)
			continue
		}
		r.logger().Infof("Ignoring invalid version for %s: %s", r.ProjectName, v)
	}
	if len(valid) == 0 {
		return vs
	}
	return valid
}

func distinctVersions(vs []string) []string {
	var out []string
	for _, v := range vs {
		if !slices.ContainsFunc(out, func(o string) bool { return version.Compare(o, v) == 0 }) {
			out = append(out, v)
		}
	}
	return out
}
