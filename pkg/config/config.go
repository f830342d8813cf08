// Package config loads parcyl project configuration.
//
// Configuration lives in setup.cfg, in a [parcyl] section holding project
// metadata and a [parcyl:requirements] section holding requirement groups:
//
//	[parcyl]
//	name = MishMash
//	version = 0.3b14
//	classifiers =
//	    Programming Language :: Python :: 3
//
//	[parcyl:requirements]
//	install = sqlalchemy>=1.3, pathlib==1.0.1;python_version<'3.4'
//	test =
//	    pytest
//	extra_web = flask
//	pins = sqlalchemy==1.3.24
//
// pyproject.toml is accepted as well, with the same keys under
// [tool.parcyl] and [tool.parcyl.requirements]. [Load] returns a [Config]
// that is validated once and then passed to whatever needs it.
package config

import (
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/parcyl/pkg/requirement"
	"github.com/matzehuels/parcyl/pkg/version"
)

// Group names of the [parcyl:requirements] section.
const (
	GroupInstall = "install"
	GroupTest    = "test"
	GroupDev     = "dev"
	GroupSetup   = "setup"
	GroupPins    = "pins"
	ExtraPrefix  = "extra_"
)

// Config is a loaded project configuration.
type Config struct {
	Path         string // File the configuration was read from
	Metadata     Metadata
	Requirements Requirements
}

// Metadata is the [parcyl] section.
type Metadata struct {
	Name            string   `ini:"name" validate:"omitempty,pkgname"`
	Version         string   `ini:"version" validate:"omitempty,pep440"`
	Author          string   `ini:"author"`
	AuthorEmail     string   `ini:"author_email" validate:"omitempty,email"`
	URL             string   `ini:"url" validate:"omitempty,url"`
	License         string   `ini:"license"`
	Description     string   `ini:"description"`
	LongDescription string   `ini:"long_description"`
	Classifiers     []string `ini:"classifiers"`
	Keywords        []string `ini:"keywords"`
	ReleaseName     string   `ini:"release_name"`
	GithubURL       string   `ini:"github_url" validate:"omitempty,url"`
	Years           string   `ini:"years"`
}

// ProjectSlug returns the lowercase project name.
func (m Metadata) ProjectSlug() string {
	return strings.ToLower(m.Name)
}

// VersionInfo returns the structured version. An empty or invalid version
// yields the zero Version.
func (m Metadata) VersionInfo() version.Version {
	if m.Version == "" {
		return version.Version{}
	}
	_, v, err := version.Parse(m.Version)
	if err != nil {
		return version.Version{}
	}
	return v
}

// Release returns the release tag of the version: "final" or a prerelease
// tag such as "a3". It is empty when no version is configured.
func (m Metadata) Release() string {
	return m.VersionInfo().Release
}

// Requirements is the [parcyl:requirements] section.
type Requirements struct {
	Install []*requirement.Requirement
	Test    []*requirement.Requirement
	Dev     []*requirement.Requirement
	Setup   []*requirement.Requirement
	Pins    []*requirement.Requirement
	Extras  map[string][]*requirement.Requirement // extra name without prefix
}

// Groups returns every group except pins keyed by its section option name
// ("install", "extra_web", ...). Empty groups are included.
func (r *Requirements) Groups() map[string][]*requirement.Requirement {
	g := map[string][]*requirement.Requirement{
		GroupInstall: r.Install,
		GroupTest:    r.Test,
		GroupDev:     r.Dev,
		GroupSetup:   r.Setup,
	}
	for name, reqs := range r.Extras {
		g[ExtraPrefix+name] = reqs
	}
	return g
}

// ExtraNames returns the extra names in sorted order.
func (r *Requirements) ExtraNames() []string {
	return slices.Sorted(maps.Keys(r.Extras))
}

// All returns every requirement of every group, pins included.
func (r *Requirements) All() []*requirement.Requirement {
	var out []*requirement.Requirement
	for _, reqs := range [][]*requirement.Requirement{r.Install, r.Test, r.Dev, r.Setup, r.Pins} {
		out = append(out, reqs...)
	}
	for _, name := range r.ExtraNames() {
		out = append(out, r.Extras[name]...)
	}
	return out
}
