package setup

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/parcyl/pkg/config"
	"github.com/matzehuels/parcyl/pkg/errors"
	"github.com/matzehuels/parcyl/pkg/requirement"
)

func parseAll(specs ...string) []*requirement.Requirement {
	out := make([]*requirement.Requirement, 0, len(specs))
	for _, s := range specs {
		out = append(out, requirement.MustParse(s))
	}
	return out
}

func testConfig() *config.Config {
	return &config.Config{
		Path: "setup.cfg",
		Metadata: config.Metadata{
			Name:        "MishMash",
			Version:     "0.3b14",
			Author:      "Travis Shirk",
			AuthorEmail: "travis@pobox.com",
			Classifiers: []string{"Programming Language :: Python :: 3"},
			Keywords:    []string{"music"},
			ReleaseName: "Nine Patriotic Hymns",
			GithubURL:   "git@github.com:nicfit/MishMash.git",
			Years:       "2013-2024",
		},
		Requirements: config.Requirements{
			Install: parseAll("sqlalchemy>=1.3", "pathlib==1.0.1;python_version<'3.4'"),
			Test:    parseAll("pytest"),
			Extras: map[string][]*requirement.Requirement{
				"web": parseAll("flask[async]>=2"),
			},
		},
	}
}

func TestAttrs(t *testing.T) {
	attrs, err := Attrs(testConfig(), map[string]any{"description": "overridden"}, Options{StatusClassifiers: true})
	if err != nil {
		t.Fatalf("Attrs() error: %v", err)
	}

	checks := map[string]any{
		"name":          "MishMash",
		"project_slug":  "mishmash",
		"version":       "0.3b14",
		"release":       "b14",
		"description":   "overridden",
		InstallRequires: []string{"sqlalchemy>=1.3", `pathlib==1.0.1 ; python_version < "3.4"`},
		TestsRequire:    []string{"pytest"},
		SetupRequires:   []string{},
		ExtrasRequire:   map[string][]string{"web": {"flask[async]>=2"}},
		"classifiers":   []string{"Programming Language :: Python :: 3", "Development Status :: 4 - Beta"},
		"project_urls": map[string]string{
			"Source": "https://github.com/nicfit/MishMash",
			"Issues": "https://github.com/nicfit/MishMash/issues",
		},
	}
	for k, want := range checks {
		if got := attrs[k]; !reflect.DeepEqual(got, want) {
			t.Errorf("attrs[%q] = %#v, want %#v", k, got, want)
		}
	}
}

func TestAttrsNamesOnly(t *testing.T) {
	cfg := testConfig()
	attrs, err := Attrs(cfg, nil, Options{NamesOnly: true})
	if err != nil {
		t.Fatalf("Attrs() error: %v", err)
	}
	want := []string{"sqlalchemy", `pathlib ; python_version < "3.4"`}
	if got := attrs[InstallRequires]; !reflect.DeepEqual(got, want) {
		t.Errorf("install_requires = %q, want %q", got, want)
	}
	if got := attrs["classifiers"]; !reflect.DeepEqual(got, cfg.Metadata.Classifiers) {
		t.Errorf("classifiers = %q, want unchanged", got)
	}
}

func TestAttrsErrors(t *testing.T) {
	for _, k := range []string{InstallRequires, TestsRequire, ExtrasRequire, SetupRequires} {
		if _, err := Attrs(testConfig(), map[string]any{k: nil}, Options{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("supplying %s: error = %v, want invalid input", k, err)
		}
	}

	cfg := testConfig()
	cfg.Requirements.Install = parseAll("six==1.0,==2.0")
	if _, err := Attrs(cfg, nil, Options{}); !errors.Has(err, errors.ErrCodeConflict) {
		t.Errorf("conflicting pins: error = %v, want conflict", err)
	}
}

func TestStatusClassifier(t *testing.T) {
	tests := []struct {
		release string
		want    string
	}{
		{"a3", "Development Status :: 3 - Alpha"},
		{"b14", "Development Status :: 4 - Beta"},
		{"rc1", "Development Status :: 5 - Production/Stable"},
		{"final", "Development Status :: 5 - Production/Stable"},
		{"", "Development Status :: 5 - Production/Stable"},
	}
	for _, tt := range tests {
		if got := StatusClassifier(tt.release); got != tt.want {
			t.Errorf("StatusClassifier(%q) = %q, want %q", tt.release, got, tt.want)
		}
	}
}

func TestEncode(t *testing.T) {
	attrs, err := Attrs(testConfig(), nil, Options{})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, attrs, FormatJSON); err != nil {
		t.Fatalf("Encode(json) error: %v", err)
	}
	var fromJSON map[string]any
	if err := json.Unmarshal(buf.Bytes(), &fromJSON); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if fromJSON["name"] != "MishMash" {
		t.Errorf("json name = %v", fromJSON["name"])
	}

	buf.Reset()
	if err := Encode(&buf, attrs, FormatYAML); err != nil {
		t.Fatalf("Encode(yaml) error: %v", err)
	}
	var fromYAML struct {
		Name    string              `yaml:"name"`
		Install []string            `yaml:"install_requires"`
		Extras  map[string][]string `yaml:"extras_require"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &fromYAML); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if fromYAML.Name != "MishMash" || len(fromYAML.Install) != 2 || fromYAML.Extras["web"][0] != "flask[async]>=2" {
		t.Errorf("yaml round trip = %+v", fromYAML)
	}

	if err := Encode(&buf, attrs, "toml"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Encode(toml) error = %v", err)
	}
}

func TestWriteInfoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "__about__.py")
	if err := WriteInfoFile(path, testConfig().Metadata); err != nil {
		t.Fatalf("WriteInfoFile() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`project_name = "MishMash"`,
		`version      = "0.3b14"`,
		`years        = "2013-2024"`,
		`version_info = Version(0, 3, 0, "b14", "Nine Patriotic Hymns")`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("info file missing %q:\n%s", want, data)
		}
	}
}
