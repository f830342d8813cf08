package setup

import (
	"bytes"
	"os"
	"strconv"
	"text/template"

	"github.com/matzehuels/parcyl/pkg/config"
	"github.com/matzehuels/parcyl/pkg/version"
)

var infoTemplate = template.Must(template.New("info").Funcs(template.FuncMap{
	"py": strconv.Quote,
}).Parse(`import dataclasses

project_name = {{py .Name}}
version      = {{py .Version}}
release_name = {{py .ReleaseName}}
author       = {{py .Author}}
author_email = {{py .AuthorEmail}}
years        = {{py .Years}}

@dataclasses.dataclass
class Version:
    major: int
    minor: int
    maint: int
    release: str
    release_name: str

version_info = Version({{.Info.Major}}, {{.Info.Minor}}, {{.Info.Maint}}, {{py .Info.Release}}, {{py .ReleaseName}})
`))

// RenderInfoFile renders the Python module exposing the project name,
// version and version_info of m.
func RenderInfoFile(m config.Metadata) ([]byte, error) {
	var buf bytes.Buffer
	data := struct {
		config.Metadata
		Info version.Version
	}{m, m.VersionInfo()}
	if err := infoTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteInfoFile writes [RenderInfoFile] output to path.
func WriteInfoFile(path string, m config.Metadata) error {
	data, err := RenderInfoFile(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
