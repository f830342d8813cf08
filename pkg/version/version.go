// Package version parses and compares Python package version strings.
//
// Parsing follows the PEP 440 grammar, so strings such as "1.0-a1",
// "0.3b14.dev2" and "2!1.0.post1+local.7" are accepted and normalized, but the
// structured [Version] only keeps major, minor, maint and the prerelease tag.
// Epoch, post, dev and local components are recognized and then dropped from
// [Version]; [Compare] and [Match] still honor them for ordering.
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/matzehuels/parcyl/pkg/errors"
)

// Final is the release tag of a version without a prerelease segment.
const Final = "final"

// Version is the structured form of a version string.
type Version struct {
	Major   int
	Minor   int
	Maint   int
	Release string // "final", or a prerelease tag such as "a3", "b14", "rc1"
}

// String renders v as major.minor.maint followed by the prerelease tag.
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Maint)
	if v.Release != Final && v.Release != "" {
		s += v.Release
	}
	return s
}

// IsPrerelease reports whether v carries a prerelease tag.
func (v Version) IsPrerelease() bool {
	return v.Release != Final && v.Release != ""
}

// Status returns "alpha", "beta" or "final" for development-status
// classifiers. Release candidates count as final.
func (v Version) Status() string {
	switch {
	case strings.HasPrefix(v.Release, "a"):
		return "alpha"
	case strings.HasPrefix(v.Release, "b"):
		return "beta"
	default:
		return Final
	}
}

var pep440RE = regexp.MustCompile(`(?i)^v?` +
	`(?:(?P<epoch>[0-9]+)!)?` +
	`(?P<release>[0-9]+(?:\.[0-9]+)*)` +
	`(?P<pre>[-_.]?(?P<pre_l>alpha|beta|preview|pre|rc|a|b|c)[-_.]?(?P<pre_n>[0-9]+)?)?` +
	`(?P<post>(?:-(?P<post_n1>[0-9]+))|(?:[-_.]?(?P<post_l>post|rev|r)[-_.]?(?P<post_n2>[0-9]+)?))?` +
	`(?P<dev>[-_.]?(?P<dev_l>dev)[-_.]?(?P<dev_n>[0-9]+)?)?` +
	`(?:\+(?P<local>[a-z0-9]+(?:[-_.][a-z0-9]+)*))?$`)

// parsed holds every PEP 440 component; it backs ordering and matching.
type parsed struct {
	epoch   int
	release []int
	preL    string
	preN    int
	hasPre  bool
	post    int
	hasPost bool
	dev     int
	hasDev  bool
	local   []string
}

// Parse validates and normalizes v.
//
// It returns the canonical string form (e.g. "0.8.10-a3" becomes "0.8.10a3")
// and the structured [Version]. Strings that do not start with a numeric
// release segment, such as "Slapshot", fail with [errors.ErrCodeInvalidVersion].
func Parse(v string) (string, Version, error) {
	p, err := parse(v)
	if err != nil {
		return "", Version{}, err
	}

	info := Version{Major: p.release[0], Release: Final}
	if len(p.release) > 1 {
		info.Minor = p.release[1]
	}
	if len(p.release) > 2 {
		info.Maint = p.release[2]
	}
	if p.hasPre {
		info.Release = p.preL + strconv.Itoa(p.preN)
	}
	return p.String(), info, nil
}

// MustParse is like [Parse] but panics on invalid input. Intended for tests
// and constants.
func MustParse(v string) Version {
	_, info, err := Parse(v)
	if err != nil {
		panic(err)
	}
	return info
}

// Valid reports whether v is a parseable version string.
func Valid(v string) bool {
	_, err := parse(v)
	return err == nil
}

// Normalize returns the canonical string form of v, or v unchanged when it
// does not parse.
func Normalize(v string) string {
	p, err := parse(v)
	if err != nil {
		return v
	}
	return p.String()
}

func parse(v string) (*parsed, error) {
	s := strings.TrimSpace(v)
	m := pep440RE.FindStringSubmatch(s)
	if m == nil {
		return nil, errors.New(errors.ErrCodeInvalidVersion, "invalid version: %s", v)
	}
	group := func(name string) string { return m[pep440RE.SubexpIndex(name)] }

	var numErr error
	atoi := func(s string) int {
		if s == "" {
			return 0
		}
		n, err := strconv.Atoi(s)
		if err != nil && numErr == nil {
			numErr = errors.Wrap(errors.ErrCodeInvalidVersion, err, "invalid version: %s", v)
		}
		return n
	}

	p := &parsed{}
	if e := group("epoch"); e != "" {
		p.epoch = atoi(e)
	}
	for _, seg := range strings.Split(group("release"), ".") {
		p.release = append(p.release, atoi(seg))
	}
	if l := group("pre_l"); l != "" {
		p.hasPre = true
		p.preL = preLabel(strings.ToLower(l))
		p.preN = atoi(group("pre_n"))
	}
	if group("post") != "" {
		p.hasPost = true
		if n := group("post_n1"); n != "" {
			p.post = atoi(n)
		} else {
			p.post = atoi(group("post_n2"))
		}
	}
	if group("dev") != "" {
		p.hasDev = true
		p.dev = atoi(group("dev_n"))
	}
	if l := group("local"); l != "" {
		p.local = strings.FieldsFunc(strings.ToLower(l), func(r rune) bool {
			return r == '-' || r == '_' || r == '.'
		})
	}
	if numErr != nil {
		return nil, numErr
	}
	return p, nil
}

func preLabel(l string) string {
	switch l {
	case "alpha":
		return "a"
	case "beta":
		return "b"
	case "c", "pre", "preview":
		return "rc"
	}
	return l
}
