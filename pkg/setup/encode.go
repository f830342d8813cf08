package setup

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/parcyl/pkg/errors"
)

// Output formats accepted by [Encode].
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Encode writes attrs to w in the given format. Map keys are emitted in
// sorted order by both encoders.
func Encode(w io.Writer, attrs map[string]any, format string) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(attrs)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(attrs); err != nil {
			return err
		}
		return enc.Close()
	}
	return errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want %s or %s)", format, FormatJSON, FormatYAML)
}
