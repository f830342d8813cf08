// Package site finds the Python distributions installed in an environment.
//
// Installed packages leave a metadata directory next to their code in
// site-packages: "<name>-<version>.dist-info" for wheels and
// "<name>-<version>.egg-info" for legacy installs. [Scan] reads those
// directories into an [Index]; [Discover] asks an interpreter where its
// site-packages live and scans them.
package site

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/matzehuels/parcyl/pkg/integrations"
	"github.com/matzehuels/parcyl/pkg/observability"
)

// Index maps normalized distribution names to installed versions.
// The zero value is an empty index.
type Index struct {
	versions map[string]string
}

// Version returns the installed version of name, or "" when it is not
// installed. Name normalization follows PEP 503.
func (ix *Index) Version(name string) string {
	if ix == nil {
		return ""
	}
	return ix.versions[integrations.NormalizePkgName(name)]
}

// Len returns the number of distributions in the index.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.versions)
}

// Scan builds an Index from the metadata directories found in dirs.
// Missing directories are skipped. When a distribution appears in more than
// one directory the first one wins, which matches import precedence.
func Scan(dirs ...string) (*Index, error) {
	ix := &Index{versions: make(map[string]string)}
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		for _, e := range entries {
			name, ver, ok := distribution(dir, e)
			if !ok {
				continue
			}
			key := integrations.NormalizePkgName(name)
			if _, seen := ix.versions[key]; !seen {
				ix.versions[key] = ver
			}
		}
	}
	return ix, nil
}

func distribution(dir string, e os.DirEntry) (name, ver string, ok bool) {
	base := e.Name()
	ext := filepath.Ext(base)
	if ext != ".dist-info" && ext != ".egg-info" {
		return "", "", false
	}
	stem := strings.TrimSuffix(base, ext)

	// Names in directory names have "-" escaped to "_", so the first "-"
	// separates name and version.
	if i := strings.Index(stem, "-"); i > 0 {
		name, ver = stem[:i], stem[i+1:]
		// Egg-info directories may carry a "-pyX.Y" suffix.
		if j := strings.Index(ver, "-py"); j > 0 {
			ver = ver[:j]
		}
	}

	path := filepath.Join(dir, base)
	if e.IsDir() {
		if ext == ".dist-info" {
			path = filepath.Join(path, "METADATA")
		} else {
			path = filepath.Join(path, "PKG-INFO")
		}
	}
	if n, v := readHeaders(path); n != "" && v != "" {
		name, ver = n, v
	}
	return name, ver, name != "" && ver != ""
}

// readHeaders returns the Name and Version headers of a core metadata file.
// Unreadable files yield empty strings.
func readHeaders(path string) (name, ver string) {
	f, err := os.Open(path)
	if err != nil {
		return "", ""
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			break
		}
		k, v, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "name":
			name = strings.TrimSpace(v)
		case "version":
			ver = strings.TrimSpace(v)
		}
		if name != "" && ver != "" {
			break
		}
	}
	return name, ver
}

const sitePathsScript = `import json, site, sys
paths = list(getattr(site, "getsitepackages", lambda: [])())
user = getattr(site, "getusersitepackages", lambda: "")()
if user:
    paths.append(user)
paths += [p for p in sys.path if p.endswith(("site-packages", "dist-packages"))]
print(json.dumps(paths))`

// Discover runs python to learn its site-packages directories and scans them.
// Any failure is logged and yields an empty index: installed versions are
// then reported as unknown.
func Discover(ctx context.Context, python string, log observability.Logger) *Index {
	log = observability.LoggerOr(log)
	dirs, err := SitePaths(ctx, python)
	if err != nil {
		log.Warnf("site-packages of %s unavailable: %v", python, err)
		return &Index{}
	}
	ix, err := Scan(dirs...)
	if err != nil {
		log.Warnf("scan site-packages: %v", err)
		return &Index{}
	}
	log.Debugf("found %d installed distributions in %d directories", ix.Len(), len(dirs))
	return ix
}

// SitePaths returns the site-packages directories of the python interpreter.
func SitePaths(ctx context.Context, python string) ([]string, error) {
	out, err := exec.CommandContext(ctx, python, "-c", sitePathsScript).Output()
	if err != nil {
		return nil, err
	}
	var dirs []string
	if err := json.Unmarshal(out, &dirs); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(dirs))
	uniq := dirs[:0]
	for _, d := range dirs {
		if !seen[d] {
			seen[d] = true
			uniq = append(uniq, d)
		}
	}
	return uniq, nil
}
