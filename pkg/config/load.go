package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-ini/ini"

	"github.com/matzehuels/parcyl/pkg/errors"
	"github.com/matzehuels/parcyl/pkg/requirement"
	"github.com/matzehuels/parcyl/pkg/version"
)

// File names probed by [Discover].
const (
	SetupCfg  = "setup.cfg"
	PyProject = "pyproject.toml"
)

// Section names in setup.cfg.
const (
	MetadataSection     = "parcyl"
	RequirementsSection = "parcyl:requirements"
)

// Discover loads the configuration of the project in dir: setup.cfg when
// present, else pyproject.toml. With neither, it returns an empty
// configuration for dir/setup.cfg.
func Discover(dir string) (*Config, error) {
	cfg := filepath.Join(dir, SetupCfg)
	if _, err := os.Stat(cfg); err == nil {
		return Load(cfg)
	}
	pp := filepath.Join(dir, PyProject)
	if _, err := os.Stat(pp); err == nil {
		return LoadPyProject(pp)
	}
	return &Config{Path: cfg}, nil
}

// Load reads a setup.cfg file. A missing file yields an empty
// configuration. Requirement parse errors fail with [errors.ErrCodeParse]
// naming the group; metadata that does not validate fails with
// [errors.ErrCodeInvalidConfig].
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{Path: path}, nil
		}
		return nil, err
	}
	return parseINI(path, data)
}

func parseINI(path string, data []byte) (*Config, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		Insensitive:                true,
		IgnoreInlineComment:        true,
		AllowPythonMultilineValues: true,
		SpaceBeforeInlineComment:   true,
	}, data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s", path)
	}

	meta := sectionValues(f, MetadataSection)
	reqs := sectionValues(f, RequirementsSection)
	return build(path, meta, reqs)
}

func sectionValues(f *ini.File, name string) map[string]string {
	sec, err := f.GetSection(name)
	if err != nil {
		return nil
	}
	out := make(map[string]string, len(sec.Keys()))
	for _, k := range sec.Keys() {
		out[k.Name()] = k.Value()
	}
	return out
}

// LoadPyProject reads the [tool.parcyl] tables of a pyproject.toml file.
// List-valued options may be TOML arrays or newline separated strings.
func LoadPyProject(path string) (*Config, error) {
	var doc struct {
		Tool struct {
			Parcyl map[string]any `toml:"parcyl"`
		} `toml:"tool"`
	}
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		if os.IsNotExist(err) {
			return &Config{Path: path}, nil
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s", path)
	}

	meta := make(map[string]string)
	var reqs map[string]string
	for k, v := range doc.Tool.Parcyl {
		if k == "requirements" {
			tbl, ok := v.(map[string]any)
			if !ok {
				return nil, errors.New(errors.ErrCodeInvalidConfig, "%s: tool.parcyl.requirements must be a table", path)
			}
			reqs = make(map[string]string, len(tbl))
			for g, gv := range tbl {
				s, err := tomlString(gv)
				if err != nil {
					return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s: requirements.%s", path, g)
				}
				reqs[strings.ToLower(g)] = s
			}
			continue
		}
		s, err := tomlString(v)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s: %s", path, k)
		}
		meta[strings.ToLower(k)] = s
	}
	return build(path, meta, reqs)
}

// tomlString flattens a TOML string or array of strings into the newline
// separated form setup.cfg uses.
func tomlString(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case []any:
		lines := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return "", fmt.Errorf("expected strings, found %T", item)
			}
			lines = append(lines, s)
		}
		return strings.Join(lines, "\n"), nil
	case int64, float64, bool:
		return fmt.Sprint(v), nil
	}
	return "", fmt.Errorf("unsupported value type %T", v)
}

func build(path string, meta, reqs map[string]string) (*Config, error) {
	cfg := &Config{Path: path}

	m, err := parseMetadata(meta)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "%s", path)
	}
	cfg.Metadata = m

	r, err := parseRequirements(reqs)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "%s", path)
	}
	cfg.Requirements = r
	return cfg, nil
}

func parseMetadata(values map[string]string) (Metadata, error) {
	get := func(k string) string { return strings.TrimSpace(values[k]) }

	m := Metadata{
		Name:            get("name"),
		Version:         get("version"),
		Author:          get("author"),
		AuthorEmail:     get("author_email"),
		URL:             get("url"),
		License:         get("license"),
		Description:     get("description"),
		LongDescription: get("long_description"),
		Classifiers:     splitLines(values["classifiers"]),
		Keywords:        splitKeywords(values["keywords"]),
		ReleaseName:     get("release_name"),
		GithubURL:       get("github_url"),
		Years:           get("years"),
	}
	if err := validate(m); err != nil {
		return Metadata{}, err
	}
	if m.Version != "" {
		m.Version, _, _ = version.Parse(m.Version)
	}
	return m, nil
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// splitKeywords splits on whitespace and commas. The result is never nil.
func splitKeywords(s string) []string {
	out := []string{}
	for _, f := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	}) {
		out = append(out, f)
	}
	return out
}

func parseRequirements(values map[string]string) (Requirements, error) {
	r := Requirements{Extras: make(map[string][]*requirement.Requirement)}

	// Sorted so the first failing group is stable.
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		switch {
		case name == GroupInstall, name == GroupTest, name == GroupDev,
			name == GroupSetup, name == GroupPins:
		case strings.HasPrefix(name, ExtraPrefix):
			if err := errors.ValidateGroupName(name); err != nil {
				return Requirements{}, err
			}
			if name == ExtraPrefix {
				return Requirements{}, errors.New(errors.ErrCodeInvalidConfig, "extra group %q has no name", name)
			}
		default:
			continue
		}

		reqs, err := ParseGroup(values[name])
		if err != nil {
			return Requirements{}, errors.Wrap(errors.ErrCodeParse, err, "[%s] %s", RequirementsSection, name)
		}

		switch name {
		case GroupInstall:
			r.Install = reqs
		case GroupTest:
			r.Test = reqs
		case GroupDev:
			r.Dev = reqs
		case GroupSetup:
			r.Setup = reqs
		case GroupPins:
			r.Pins = reqs
		default:
			r.Extras[strings.TrimPrefix(name, ExtraPrefix)] = reqs
		}
	}
	return r, nil
}

// ParseGroup parses a group value: newline separated lines, each holding
// comma separated requirement specifiers.
func ParseGroup(value string) ([]*requirement.Requirement, error) {
	var out []*requirement.Requirement
	for _, line := range splitLines(value) {
		if strings.HasPrefix(line, "#") {
			continue
		}
		for _, tok := range splitSpecifiers(line) {
			req, err := requirement.Parse(tok)
			if err != nil {
				return nil, err
			}
			out = append(out, req)
		}
	}
	return out, nil
}

// splitSpecifiers splits a line on the commas that separate requirements.
// A comma followed by a version operator continues the specifier list of
// the previous requirement ("PathLib>=3,<2"). Commas inside brackets,
// parentheses or quoted marker strings never split.
func splitSpecifiers(line string) []string {
	var (
		out   []string
		start int
		depth int
		quote byte
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '[' || c == '(':
			depth++
		case c == ']' || c == ')':
			depth--
		case c == ',' && depth == 0:
			if _, ok := version.SplitSpec(line[i+1:]); ok {
				continue
			}
			if tok := strings.TrimSpace(line[start:i]); tok != "" {
				out = append(out, tok)
			}
			start = i + 1
		}
	}
	if tok := strings.TrimSpace(line[start:]); tok != "" {
		out = append(out, tok)
	}
	return out
}
