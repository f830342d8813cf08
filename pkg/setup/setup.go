// Package setup turns a loaded [config.Config] into the keyword arguments of
// a Python package build: project metadata, development-status classifiers
// and the install, test, extras and setup requirement lists.
//
// The result of [Attrs] is a plain map so it can be encoded with [Encode]
// and handed to the build backend unchanged.
package setup

import (
	"context"
	"slices"
	"strings"

	"github.com/matzehuels/parcyl/pkg/config"
	"github.com/matzehuels/parcyl/pkg/errors"
	"github.com/matzehuels/parcyl/pkg/integrations"
	"github.com/matzehuels/parcyl/pkg/requirement"
	"github.com/matzehuels/parcyl/pkg/version"
)

// Requirement attribute keys. Callers may not supply these; they always come
// from the [parcyl:requirements] section.
const (
	InstallRequires = "install_requires"
	TestsRequire    = "tests_require"
	ExtrasRequire   = "extras_require"
	SetupRequires   = "setup_requires"
)

var requirementKeys = []string{InstallRequires, TestsRequire, ExtrasRequire, SetupRequires}

// Development-status classifiers by [version.Version.Status].
var statusClassifiers = map[string]string{
	"alpha":       "Development Status :: 3 - Alpha",
	"beta":        "Development Status :: 4 - Beta",
	version.Final: "Development Status :: 5 - Production/Stable",
}

// StatusClassifier returns the development-status classifier for a release
// tag: alpha for "a" tags, beta for "b" tags and production/stable for
// everything else, including an empty tag.
func StatusClassifier(release string) string {
	return statusClassifiers[version.Version{Release: release}.Status()]
}

// Options control [Attrs].
type Options struct {
	// NamesOnly renders requirement lists without version constraints.
	NamesOnly bool
	// StatusClassifiers appends the development-status classifier of the
	// configured version.
	StatusClassifiers bool
}

// Attrs builds the build attributes of cfg. Keys in supplied override the
// metadata attributes; supplying one of the requirement keys fails with
// [errors.ErrCodeInvalidInput].
func Attrs(cfg *config.Config, supplied map[string]any, opts Options) (map[string]any, error) {
	for _, k := range requirementKeys {
		if _, ok := supplied[k]; ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "%s must be set in the [%s] section", k, config.RequirementsSection)
		}
	}

	m := cfg.Metadata
	attrs := map[string]any{
		"name":             m.Name,
		"version":          m.Version,
		"author":           m.Author,
		"author_email":     m.AuthorEmail,
		"url":              m.URL,
		"license":          m.License,
		"description":      m.Description,
		"long_description": m.LongDescription,
		"classifiers":      slices.Clone(nonNil(m.Classifiers)),
		"keywords":         slices.Clone(nonNil(m.Keywords)),
		"release_name":     m.ReleaseName,
		"github_url":       m.GithubURL,
		"years":            m.Years,
	}
	if m.Name != "" {
		attrs["project_name"] = m.Name
		attrs["pypi_name"] = m.Name
		attrs["project_slug"] = m.ProjectSlug()
	}
	if m.Version != "" {
		attrs["release"] = m.Release()
	}
	if urls := projectURLs(m); len(urls) > 0 {
		attrs["project_urls"] = urls
	}

	mode := requirement.ModeCurrent
	if opts.NamesOnly {
		mode = requirement.ModeNone
	}
	r := cfg.Requirements
	var err error
	if attrs[InstallRequires], err = render(r.Install, mode); err != nil {
		return nil, err
	}
	if attrs[TestsRequire], err = render(r.Test, mode); err != nil {
		return nil, err
	}
	if attrs[SetupRequires], err = render(r.Setup, mode); err != nil {
		return nil, err
	}
	extras := make(map[string][]string, len(r.Extras))
	for _, name := range r.ExtraNames() {
		if extras[name], err = render(r.Extras[name], mode); err != nil {
			return nil, err
		}
	}
	attrs[ExtrasRequire] = extras

	for k, v := range supplied {
		attrs[k] = v
	}

	if opts.StatusClassifiers {
		classifiers, _ := attrs["classifiers"].([]string)
		attrs["classifiers"] = append(classifiers, StatusClassifier(m.Release()))
	}
	return attrs, nil
}

func render(reqs []*requirement.Requirement, mode requirement.Mode) ([]string, error) {
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		s, err := r.Render(context.Background(), mode, true)
		if err != nil {
			return nil, errors.Wrap(errors.GetCode(err), err, "%s", r.ProjectName)
		}
		out = append(out, s)
	}
	return out, nil
}

// projectURLs derives the source and tracker links from github_url.
func projectURLs(m config.Metadata) map[string]string {
	src := strings.TrimSuffix(integrations.NormalizeRepoURL(m.GithubURL), "/")
	if src == "" {
		return nil
	}
	return map[string]string{
		"Source": src,
		"Issues": src + "/issues",
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
