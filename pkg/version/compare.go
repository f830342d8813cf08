package version

import (
	"slices"
	"strings"

	"deps.dev/util/semver"
)

// Compare orders two version strings following PEP 440 and returns -1, 0
// or +1. Unparseable strings sort before every valid version and compare
// to each other lexically.
func Compare(a, b string) int {
	va, errA := pypi(a)
	vb, errB := pypi(b)
	switch {
	case errA != nil && errB != nil:
		return strings.Compare(a, b)
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	}
	return sign(va.Compare(vb))
}

// Max returns the greatest of vs according to [Compare]. Returns "" for an
// empty slice.
func Max(vs []string) string {
	var best string
	for i, v := range vs {
		if i == 0 || Compare(v, best) > 0 {
			best = v
		}
	}
	return best
}

// Min returns the smallest of vs according to [Compare]. Returns "" for an
// empty slice.
func Min(vs []string) string {
	var best string
	for i, v := range vs {
		if i == 0 || Compare(v, best) < 0 {
			best = v
		}
	}
	return best
}

// IsPrerelease reports whether v is a pre- or dev-release. Unparseable
// strings are not prereleases.
func IsPrerelease(v string) bool {
	p, err := parse(v)
	return err == nil && p.isPrerelease()
}

// Match reports whether version v satisfies the specifier op target.
//
// Supported operators are listed in [Operators]. A trailing ".*" on the
// target of == or != selects prefix matching. Unparseable versions never
// match.
func Match(v, op, target string) bool {
	return Satisfies(v, []Spec{{Op: op, Version: target}})
}

func pypi(v string) (*semver.Version, error) {
	return semver.PyPI.Parse(strings.TrimSpace(v))
}

// constraint joins specs into a single PyPI constraint. Operators outside
// [Operators] (such as the arbitrary-equality "===") are rejected.
func constraint(specs []Spec) (*semver.Constraint, bool) {
	parts := make([]string, 0, len(specs))
	for _, s := range specs {
		if !slices.Contains(Operators, s.Op) {
			return nil, false
		}
		parts = append(parts, s.Op+strings.TrimSpace(s.Version))
	}
	c, err := semver.PyPI.ParseConstraint(strings.Join(parts, ","))
	if err != nil {
		return nil, false
	}
	return c, true
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
