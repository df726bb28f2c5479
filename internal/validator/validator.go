// Package validator checks that a path names a source file nota can comment.
package validator

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Hekzory/nota/internal/runenv"
)

// SupportedExtensions lists the file extensions nota accepts, lower case.
var SupportedExtensions = []string{
	".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs",
	".py",
	".java",
	".cpp", ".c", ".h", ".hpp",
	".go",
	".rs",
	".rb",
	".php",
	".swift",
	".kt",
	".cs",
	".scala",
	".r",
	".m",
	".sh", ".bash",
}

// NotFoundError is returned when the input path does not exist.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string { return "File not found: " + e.Path }
func (e *NotFoundError) Unwrap() error { return e.Err }

// NotAFileError is returned when the input path is a directory or another
// non-regular file.
type NotAFileError struct {
	Path string
}

func (e *NotAFileError) Error() string { return e.Path + " is not a file" }

// UnsupportedExtensionError is returned for extensions outside SupportedExtensions.
type UnsupportedExtensionError struct {
	Ext string
}

func (e *UnsupportedExtensionError) Error() string {
	ext := e.Ext
	if ext == "" {
		ext = "(none)"
	}
	return fmt.Sprintf("Unsupported file type: %s\nSupported extensions: %s",
		ext, strings.Join(SupportedExtensions, ", "))
}

// Validator checks input paths relative to an execution environment.
type Validator struct {
	env runenv.Env
}

// New creates a Validator resolving relative paths against env.
func New(env runenv.Env) *Validator {
	return &Validator{env: env}
}

// Validate returns nil when path is an existing regular file with a
// supported extension. Errors report path as given.
func (v *Validator) Validate(path string) error {
	info, err := os.Stat(v.env.Resolve(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &NotFoundError{Path: path, Err: err}
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return &NotAFileError{Path: path}
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !IsSupported(ext) {
		return &UnsupportedExtensionError{Ext: ext}
	}
	return nil
}

// IsSupported reports whether ext (with leading dot) is accepted, ignoring case.
func IsSupported(ext string) bool {
	return slices.Contains(SupportedExtensions, strings.ToLower(ext))
}
