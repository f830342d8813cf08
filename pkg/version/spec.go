package version

import "strings"

// Operators lists the specifier operators understood by [Match], longest
// first so that prefix scans pick "<=" over "<".
var Operators = []string{"~=", "==", "!=", "<=", ">=", "<", ">"}

// Spec is a single version constraint such as (">=", "1.0").
type Spec struct {
	Op      string
	Version string
}

func (s Spec) String() string { return s.Op + s.Version }

// Satisfies reports whether v matches every spec. An empty spec list is
// satisfied by any parseable version. Prerelease policy is left to the
// caller; see [AllowsPrerelease].
func Satisfies(v string, specs []Spec) bool {
	if !Valid(v) {
		return false
	}
	if len(specs) == 0 {
		return true
	}
	pv, err := pypi(v)
	if err != nil {
		return false
	}
	c, ok := constraint(specs)
	return ok && c.MatchVersionPrerelease(pv)
}

// AllowsPrerelease reports whether any spec names a prerelease explicitly,
// which opts the whole set into prerelease candidates. Exclusions do not
// count.
func AllowsPrerelease(specs []Spec) bool {
	var named []Spec
	for _, s := range specs {
		if s.Op != "!=" {
			named = append(named, s)
		}
	}
	if len(named) == 0 {
		return false
	}
	c, ok := constraint(named)
	return ok && c.HasPrerelease()
}

// SplitSpec splits "op version" text into a Spec. ok is false when the text
// does not start with a known operator.
func SplitSpec(s string) (spec Spec, ok bool) {
	s = strings.TrimSpace(s)
	for _, op := range Operators {
		if rest, found := strings.CutPrefix(s, op); found {
			return Spec{Op: op, Version: strings.TrimSpace(rest)}, true
		}
	}
	return Spec{}, false
}
