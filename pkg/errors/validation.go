package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// pythonPackageNameRegex matches valid Python package names (PEP 508).
var pythonPackageNameRegex = regexp.MustCompile(`^([A-Za-z0-9]|[A-Za-z0-9][A-Za-z0-9._-]*[A-Za-z0-9])$`)

// ValidatePackageName validates a Python package name per PEP 508.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - Maximum length of 256 characters
//   - Letters, digits, '.', '_' and '-', starting and ending alphanumeric
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeParse, "package name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeParse, "package name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeParse, "package name contains invalid control characters")
		}
	}

	if !pythonPackageNameRegex.MatchString(name) {
		return New(ErrCodeParse, "invalid Python package name: %q", name)
	}

	return nil
}

var groupNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidateGroupName validates a requirements group name. Group names become
// manifest file names, so they must be simple lowercase identifiers.
func ValidateGroupName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidConfig, "group name cannot be empty")
	}
	if !groupNameRegex.MatchString(name) {
		return New(ErrCodeInvalidConfig, "invalid requirements group name: %q", name)
	}
	return nil
}

// ValidateManifestFilename validates a manifest filename for safety.
// It ensures the filename is a simple basename without path components.
func ValidateManifestFilename(filename string) error {
	if filename == "" {
		return New(ErrCodeInvalidInput, "manifest filename cannot be empty")
	}

	if strings.ContainsAny(filename, "/\\") {
		return New(ErrCodeInvalidInput, "manifest filename cannot contain path separators")
	}

	if strings.HasPrefix(filename, ".") {
		return New(ErrCodeInvalidInput, "manifest filename cannot be a hidden file")
	}

	if !strings.HasSuffix(filename, ".txt") {
		return New(ErrCodeInvalidInput, "manifest filename must end in .txt: %q", filename)
	}

	return nil
}
