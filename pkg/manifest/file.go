package manifest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/matzehuels/parcyl/pkg/errors"
	"github.com/matzehuels/parcyl/pkg/requirement"
)

// File is the parsed content of a manifest on disk.
type File struct {
	Path         string
	Requirements []*requirement.Requirement
	byKey        map[string]*requirement.Requirement
}

// ReadFile parses the manifest at path.
func ReadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mf, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	mf.Path = path
	return mf, nil
}

// Read parses manifest lines from r. Blank lines, comment lines and pip
// option lines ("-r other.txt") are skipped; a trailing " # comment" is
// removed. A later line for the same key replaces an earlier one.
func Read(r io.Reader) (*File, error) {
	mf := &File{byKey: make(map[string]*requirement.Requirement)}

	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := stripComment(sc.Text())
		if line == "" || line[0] == '-' {
			continue
		}
		req, err := requirement.Parse(line)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParse, err, "line %d", n)
		}
		if _, ok := mf.byKey[req.Key]; !ok {
			mf.Requirements = append(mf.Requirements, req)
		} else {
			for i, prev := range mf.Requirements {
				if prev.Key == req.Key {
					mf.Requirements[i] = req
				}
			}
		}
		mf.byKey[req.Key] = req
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return mf, nil
}

// stripComment trims line and drops a whole-line "#" comment or a trailing
// comment introduced by whitespace. URL fragments such as "#egg=" survive.
func stripComment(line string) string {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "#") {
		return ""
	}
	if i := strings.Index(line, " #"); i >= 0 {
		line = line[:i]
	}
	if i := strings.Index(line, "\t#"); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// Get returns the requirement with the given key, or nil. A nil File has no
// requirements.
func (f *File) Get(key string) *requirement.Requirement {
	if f == nil {
		return nil
	}
	return f.byKey[key]
}
