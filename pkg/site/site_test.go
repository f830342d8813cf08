package site

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScan(t *testing.T) {
	dir := t.TempDir()

	// Wheel install with METADATA headers.
	writeFile(t, filepath.Join(dir, "Flask-2.0.1.dist-info", "METADATA"),
		"Metadata-Version: 2.1\nName: Flask\nVersion: 2.0.1\n\nLong description\nVersion: 9.9\n")
	// dist-info without METADATA falls back to the directory name.
	if err := os.MkdirAll(filepath.Join(dir, "zope.interface-5.4.0.dist-info"), 0o755); err != nil {
		t.Fatal(err)
	}
	// Legacy egg-info file with python suffix.
	writeFile(t, filepath.Join(dir, "six-1.16.0-py3.9.egg-info"), "Name: six\nVersion: 1.16.0\n")
	// Egg-info directory with PKG-INFO overriding an escaped name.
	writeFile(t, filepath.Join(dir, "my_pkg-0.1.egg-info", "PKG-INFO"), "Name: my-pkg\nVersion: 0.1.dev0\n")
	// Noise.
	writeFile(t, filepath.Join(dir, "flask", "__init__.py"), "")
	if err := os.MkdirAll(filepath.Join(dir, "broken.dist-info"), 0o755); err != nil {
		t.Fatal(err)
	}

	ix, err := Scan(dir, filepath.Join(dir, "missing"))
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	tests := []struct {
		name string
		want string
	}{
		{"flask", "2.0.1"},
		{"Flask", "2.0.1"},
		{"zope.interface", "5.4.0"},
		{"zope-interface", "5.4.0"},
		{"six", "1.16.0"},
		{"my_pkg", "0.1.dev0"},
		{"broken", ""},
		{"requests", ""},
	}
	for _, tt := range tests {
		if got := ix.Version(tt.name); got != tt.want {
			t.Errorf("Version(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
	if ix.Len() != 4 {
		t.Errorf("Len() = %d, want 4", ix.Len())
	}
}

func TestScanFirstDirectoryWins(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(a, "six-1.16.0.dist-info", "METADATA"), "Name: six\nVersion: 1.16.0\n")
	writeFile(t, filepath.Join(b, "six-1.10.0.dist-info", "METADATA"), "Name: six\nVersion: 1.10.0\n")

	ix, err := Scan(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if got := ix.Version("six"); got != "1.16.0" {
		t.Errorf("Version(six) = %q, want 1.16.0", got)
	}
}

func TestNilIndex(t *testing.T) {
	var ix *Index
	if ix.Version("six") != "" || ix.Len() != 0 {
		t.Error("nil index should be empty")
	}
	if (&Index{}).Version("six") != "" {
		t.Error("zero index should be empty")
	}
}

func TestDiscoverDegrades(t *testing.T) {
	ix := Discover(context.Background(), filepath.Join(t.TempDir(), "no-such-python"), nil)
	if ix == nil || ix.Len() != 0 {
		t.Errorf("Discover() with missing interpreter = %v, want empty index", ix)
	}
}
