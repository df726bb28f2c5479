// Package config loads nota's optional JSON configuration file.
//
// The file is an open JSON object. Keys nota understands are read through
// typed accessors; everything else is kept, in file order, and left alone.
package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Hekzory/nota/internal/ctxlog"
	"github.com/Hekzory/nota/internal/runenv"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = ".notarc.json"

// Known option keys.
const (
	KeyBackend     = "backend"
	KeyModel       = "model"
	KeyHost        = "host"
	KeyTimeout     = "timeout"
	KeyTemperature = "temperature"
)

// DefaultBackend is used when the config does not name one.
const DefaultBackend = "ollama"

// ReadError is returned when the config file exists but cannot be read.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read config file at %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// ParseError is returned when the config file is not a valid JSON object.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to parse config: %v", e.Err)
	}
	return fmt.Sprintf("failed to parse config file at %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Config is an ordered set of configuration values.
type Config struct {
	// Path is the file the values came from, empty for defaults.
	Path string
	// Warnings collects non-fatal problems met while loading.
	Warnings []string

	keys   []string
	values map[string]any
	v      *viper.Viper
}

// Empty returns a configuration with no values set.
func Empty() *Config {
	v := viper.New()
	setDefaults(v)
	return &Config{values: map[string]any{}, v: v}
}

func newConfig(keys []string, values map[string]any) (*Config, error) {
	if err := checkKnown(values); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	// viper rewrites keys in place, so it gets its own copy.
	if err := v.MergeConfigMap(deepCopy(values).(map[string]any)); err != nil {
		return nil, err
	}
	return &Config{keys: keys, values: values, v: v}, nil
}

// checkKnown rejects known options holding a value of the wrong type.
// Keys match case-insensitively, as they do for lookups.
func checkKnown(values map[string]any) error {
	for key, value := range values {
		switch k := strings.ToLower(key); k {
		case KeyBackend, KeyModel, KeyHost:
			if _, ok := value.(string); !ok {
				return fmt.Errorf("%q must be a string, got %v", key, value)
			}
		case KeyTimeout:
			switch val := value.(type) {
			case float64:
				if val < 0 {
					return fmt.Errorf("%q must not be negative, got %v", key, val)
				}
			case string:
				d, err := time.ParseDuration(val)
				if err != nil {
					return fmt.Errorf("%q must be a duration such as \"90s\" or a number of seconds: %w", key, err)
				}
				if d < 0 {
					return fmt.Errorf("%q must not be negative, got %s", key, val)
				}
			default:
				return fmt.Errorf("%q must be a duration such as \"90s\" or a number of seconds, got %v", key, value)
			}
		case KeyTemperature:
			if _, ok := value.(float64); !ok {
				return fmt.Errorf("%q must be a number, got %v", key, value)
			}
		}
	}
	return nil
}

func deepCopy(value any) any {
	switch val := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			out[k] = deepCopy(v)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, v := range val {
			out[i] = deepCopy(v)
		}
		return out
	default:
		return value
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyBackend, DefaultBackend)
}

// Load reads the config file at path, resolved against env. A missing file
// yields an empty configuration; when path is not DefaultPath a warning is
// recorded on it.
func Load(ctx context.Context, env runenv.Env, path string) (*Config, error) {
	logger := ctxlog.FromContext(ctx)
	resolved := env.Resolve(path)

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := Empty()
			if path != DefaultPath {
				cfg.Warnings = append(cfg.Warnings,
					fmt.Sprintf("Config file not found at %s. Using defaults.", path))
			}
			logger.Debug("Config file not found.", "path", resolved)
			return cfg, nil
		}
		return nil, &ReadError{Path: path, Err: err}
	}

	keys, values, err := decodeObject(data)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	cfg, err := newConfig(keys, values)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	cfg.Path = resolved
	logger.Debug("Config loaded.", "path", resolved, "keys", len(keys))
	return cfg, nil
}

// Parse decodes a JSON object into a Config.
func Parse(data []byte) (*Config, error) {
	keys, values, err := decodeObject(data)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	cfg, err := newConfig(keys, values)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return cfg, nil
}

// decodeObject decodes a single top-level JSON object, keeping key order.
// Repeated keys keep their first position and their last value.
func decodeObject(data []byte) ([]string, map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("config must be a JSON object")
	}

	var keys []string
	values := make(map[string]any)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected token %v", tok)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, nil, fmt.Errorf("invalid value for %q: %w", key, err)
		}
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = value
	}

	// closing brace
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, nil, fmt.Errorf("unexpected data after config object")
	}

	return keys, values, nil
}

// Keys returns the top-level keys in file order.
func (c *Config) Keys() []string {
	return append([]string(nil), c.keys...)
}

// Len returns the number of top-level keys.
func (c *Config) Len() int { return len(c.keys) }

// Get returns the raw decoded value for a top-level key.
func (c *Config) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// IsSet reports whether key (dot-separated for nested keys, case-insensitive)
// has a value.
func (c *Config) IsSet(key string) bool {
	return c.v.IsSet(key)
}

// String returns key as a string, or def when unset.
func (c *Config) String(key, def string) string {
	if !c.v.IsSet(key) {
		return def
	}
	return c.v.GetString(key)
}

// Bool returns key as a bool, or def when unset.
func (c *Config) Bool(key string, def bool) bool {
	if !c.v.IsSet(key) {
		return def
	}
	return c.v.GetBool(key)
}

// Float returns key as a float64, or def when unset.
func (c *Config) Float(key string, def float64) float64 {
	if !c.v.IsSet(key) {
		return def
	}
	return c.v.GetFloat64(key)
}

// Duration returns key as a duration. Strings use time.ParseDuration syntax;
// plain numbers are seconds.
func (c *Config) Duration(key string, def time.Duration) time.Duration {
	if !c.v.IsSet(key) {
		return def
	}
	if n, ok := c.v.Get(key).(float64); ok {
		return time.Duration(n * float64(time.Second))
	}
	return c.v.GetDuration(key)
}

// Backend returns the inference backend name.
func (c *Config) Backend() string { return c.v.GetString(KeyBackend) }

// Model returns the configured model identifier, empty for the backend default.
func (c *Config) Model() string { return c.v.GetString(KeyModel) }

// Host returns the configured backend base URL, empty for the backend default.
func (c *Config) Host() string { return c.v.GetString(KeyHost) }

// Timeout returns the model call timeout. Zero means none.
func (c *Config) Timeout() time.Duration { return c.Duration(KeyTimeout, 0) }

// Temperature returns the sampling temperature and whether it was set.
func (c *Config) Temperature() (float32, bool) {
	if !c.v.IsSet(KeyTemperature) {
		return 0, false
	}
	return float32(c.v.GetFloat64(KeyTemperature)), true
}
