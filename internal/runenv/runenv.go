// Package runenv holds the process state nota resolves paths and settings
// against. It is built once in main and passed down explicitly so that
// nothing below cmd/ reads the working directory or environment directly.
package runenv

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// DotEnvFile is read from the working directory when present.
const DotEnvFile = ".env"

// rootPrefix marks a path relative to the working directory ("@/src/x.go").
const rootPrefix = "@/"

// Env is the execution context of a single run.
type Env struct {
	Cwd  string
	Vars map[string]string
}

// FromProcess captures the current working directory and environment.
// Variables from a .env file in the working directory fill in anything the
// real environment does not set.
func FromProcess() (Env, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Env{}, fmt.Errorf("failed to get working directory: %w", err)
	}

	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}

	env := Env{Cwd: cwd, Vars: vars}
	if err := env.LoadDotEnv(filepath.Join(cwd, DotEnvFile)); err != nil {
		return Env{}, err
	}
	return env, nil
}

// LoadDotEnv merges variables from a dotenv file without overriding values
// that are already set. A missing file is not an error.
func (e *Env) LoadDotEnv(path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if e.Vars == nil {
		e.Vars = make(map[string]string, len(values))
	}
	for k, v := range values {
		if _, set := e.Vars[k]; !set {
			e.Vars[k] = v
		}
	}
	return nil
}

// Lookup returns the value of an environment variable and whether it is set
// to a non-empty value.
func (e Env) Lookup(key string) (string, bool) {
	v, ok := e.Vars[key]
	return v, ok && v != ""
}

// Get returns the value of an environment variable, or def when unset.
func (e Env) Get(key, def string) string {
	if v, ok := e.Lookup(key); ok {
		return v
	}
	return def
}

// Resolve turns a user supplied path into one usable for I/O. Absolute paths
// are returned cleaned, "@/" and relative paths are joined to Cwd.
func (e Env) Resolve(path string) string {
	if strings.HasPrefix(path, rootPrefix) {
		path = strings.TrimPrefix(path, rootPrefix)
	}
	if filepath.IsAbs(path) || e.Cwd == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(e.Cwd, path)
}
