package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/parcyl/pkg/config"
	"github.com/matzehuels/parcyl/pkg/errors"
)

const testSetupCfg = `[parcyl]
name = MishMash
version = 0.3b14
release_name = Nine Patriotic Hymns
years = 2013-2024

[parcyl:requirements]
install = sqlalchemy>=1.3, nicfit.py
test = pytest
extra_web = flask
pins = sqlalchemy==1.3.24
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// project creates a project directory holding setup.cfg and an empty
// requirements directory.
func project(t *testing.T) (dir, cfg string) {
	t.Helper()
	dir = t.TempDir()
	cfg = filepath.Join(dir, config.SetupCfg)
	if err := os.WriteFile(cfg, []byte(testSetupCfg), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, defaultRequirementsDir), 0o755); err != nil {
		t.Fatal(err)
	}
	return dir, cfg
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestRequirementsCommand(t *testing.T) {
	dir, cfg := project(t)

	out, err := execute(t, "requirements", "--config", cfg)
	if err != nil {
		t.Fatalf("requirements: %v", err)
	}
	if !strings.Contains(out, "Wrote 4 requirements files") {
		t.Errorf("output = %q", out)
	}

	install := readFile(t, filepath.Join(dir, "requirements", "install.txt"))
	for _, want := range []string{"nicfit.py\n", "sqlalchemy==1.3.24\n"} {
		if !strings.Contains(install, want) {
			t.Errorf("install.txt missing %q:\n%s", want, install)
		}
	}
	top := readFile(t, filepath.Join(dir, "requirements.txt"))
	if !strings.Contains(top, "flask\n") || !strings.Contains(top, "nicfit.py\n") {
		t.Errorf("requirements.txt = %q", top)
	}
	if _, err := os.Stat(filepath.Join(dir, "requirements", "dev.txt")); !os.IsNotExist(err) {
		t.Errorf("empty dev group should not be written: %v", err)
	}
}

func TestRequirementsCommandGroups(t *testing.T) {
	dir, cfg := project(t)

	if _, err := execute(t, "requirements", "--config", cfg, "test"); err != nil {
		t.Fatalf("requirements test: %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(dir, "requirements"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "test.txt" {
		t.Errorf("written = %v, want only test.txt", entries)
	}
	if _, err := os.Stat(filepath.Join(dir, "requirements.txt")); !os.IsNotExist(err) {
		t.Error("requirements.txt written although not selected")
	}
}

func TestRequirementsCommandErrors(t *testing.T) {
	_, cfg := project(t)

	tests := []struct {
		name string
		args []string
		code errors.Code
	}{
		{"unknown group", []string{"requirements", "--config", cfg, "docs"}, errors.ErrCodeInvalidInput},
		{"missing dir", []string{"requirements", "--config", cfg, "--dir", "nope"}, errors.ErrCodeMissingDirectory},
		{"freeze and upgrade", []string{"requirements", "--config", cfg, "-F", "-U"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.code != "" && !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestAttrsCommand(t *testing.T) {
	_, cfg := project(t)

	out, err := execute(t, "attrs", "--config", cfg, "--format", "yaml")
	if err != nil {
		t.Fatalf("attrs: %v", err)
	}
	for _, want := range []string{"name: MishMash", "install_requires:", "sqlalchemy>=1.3", "Development Status :: 4 - Beta"} {
		if !strings.Contains(out, want) {
			t.Errorf("attrs output missing %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "attrs", "--config", cfg, "--names-only", "--status-classifiers=false")
	if err != nil {
		t.Fatalf("attrs: %v", err)
	}
	if strings.Contains(out, ">=") || strings.Contains(out, "Development Status") {
		t.Errorf("names-only output = %s", out)
	}
}

func TestInfoFileCommand(t *testing.T) {
	dir, cfg := project(t)
	path := filepath.Join(dir, "__about__.py")

	if _, err := execute(t, "info-file", "--config", cfg, path); err != nil {
		t.Fatalf("info-file: %v", err)
	}
	if got := readFile(t, path); !strings.Contains(got, `version_info = Version(0, 3, 0, "b14", "Nine Patriotic Hymns")`) {
		t.Errorf("info file = %s", got)
	}
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()

	if _, err := execute(t, "init", "--dir", dir, "--name", "eyeD3"); err != nil {
		t.Fatalf("init: %v", err)
	}
	cfg, err := config.Load(filepath.Join(dir, config.SetupCfg))
	if err != nil {
		t.Fatalf("generated setup.cfg does not load: %v", err)
	}
	if cfg.Metadata.Name != "eyeD3" || cfg.Metadata.Release() != "a0" {
		t.Errorf("metadata = %+v", cfg.Metadata)
	}
	if fi, err := os.Stat(filepath.Join(dir, defaultRequirementsDir)); err != nil || !fi.IsDir() {
		t.Errorf("requirements directory not created: %v", err)
	}

	if _, err := execute(t, "init", "--dir", dir); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("second init error = %v", err)
	}
	if _, err := execute(t, "init", "--dir", dir, "--force", "--name", "other"); err != nil {
		t.Errorf("init --force: %v", err)
	}
	if _, err := execute(t, "init", "--dir", dir, "--force", "--name=-bad-"); !errors.Is(err, errors.ErrCodeParse) {
		t.Errorf("init with bad name error = %v", err)
	}
}
