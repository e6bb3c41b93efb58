// Package config provides the key-value configuration store for a test run.
//
// Keys are dotted paths ("lab.hostname", "board.toolchain"). Values come from
// YAML files: a lab config and optionally a board config merged over it.
// A Config is built once at startup and passed explicitly to every component
// that needs it; there is no ambient global configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
	"gopkg.in/yaml.v3"
)

// MissingKeyError is returned by the Get accessors when a required key is
// absent from the configuration.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("configuration key %q is not set", e.Key)
}

// Config is a flat map of dotted-path keys to values.
type Config struct {
	values map[string]interface{}
}

// New creates an empty Config.
func New() *Config {
	return &Config{values: make(map[string]interface{})}
}

// Load reads a YAML file and returns its contents as a Config. Nested
// mappings are flattened into dotted keys, so
//
//	lab:
//	  hostname: pollux
//
// becomes "lab.hostname".
func Load(path string) (*Config, error) {
	c := New()
	if err := c.MergeFile(path); err != nil {
		return nil, err
	}
	return c, nil
}

// MergeFile reads a YAML file and merges its flattened keys over the existing
// values. Later files win on conflicts, which is how a board config overrides
// lab defaults.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	flatten("", raw, c.values)
	return nil
}

func flatten(prefix string, src map[string]interface{}, dest map[string]interface{}) {
	for k, v := range src {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]interface{}); ok {
			flatten(key, nested, dest)
			continue
		}
		dest[key] = v
	}
}

// Set stores a value. It is meant to be used only while the configuration is
// being constructed, before the Config is handed to any component.
func (c *Config) Set(key string, value interface{}) {
	c.values[key] = value
}

// Get returns the raw value for a key, or a MissingKeyError.
func (c *Config) Get(key string) (interface{}, error) {
	v, ok := c.values[key]
	if !ok {
		return nil, &MissingKeyError{Key: key}
	}
	return v, nil
}

// GetString returns the value for a key rendered as a string, or a
// MissingKeyError.
func (c *Config) GetString(key string) (string, error) {
	v, err := c.Get(key)
	if err != nil {
		return "", err
	}
	return stringify(v), nil
}

// GetInt returns the value for a key as an int. It fails for absent keys and
// for values that are not integers.
func (c *Config) GetInt(key string) (int, error) {
	v, err := c.Get(key)
	if err != nil {
		return 0, err
	}
	n, ok := intify(v)
	if !ok {
		return 0, fmt.Errorf("configuration key %q is not an integer (got %v)", key, v)
	}
	return n, nil
}

// GetDuration returns the value for a key as a duration. Plain numbers are
// interpreted as seconds ("0.5" means half a second); strings may use Go
// duration syntax ("500ms").
func (c *Config) GetDuration(key string) (time.Duration, error) {
	v, err := c.Get(key)
	if err != nil {
		return 0, err
	}
	d, ok := durationify(v)
	if !ok {
		return 0, fmt.Errorf("configuration key %q is not a duration (got %v)", key, v)
	}
	return d, nil
}

// TryGetString returns the value for a key as an optional string; absent keys
// yield an undefined optional rather than an error.
func (c *Config) TryGetString(key string) ldvalue.OptionalString {
	v, ok := c.values[key]
	if !ok {
		return ldvalue.OptionalString{}
	}
	return ldvalue.NewOptionalString(stringify(v))
}

// TryGetInt returns the value for a key as an optional int; absent keys and
// non-integer values yield an undefined optional.
func (c *Config) TryGetInt(key string) ldvalue.OptionalInt {
	v, ok := c.values[key]
	if !ok {
		return ldvalue.OptionalInt{}
	}
	n, ok := intify(v)
	if !ok {
		return ldvalue.OptionalInt{}
	}
	return ldvalue.NewOptionalInt(n)
}

// TryGetDuration returns the value for a key as a duration, or 0 when the key
// is absent or malformed.
func (c *Config) TryGetDuration(key string) time.Duration {
	v, ok := c.values[key]
	if !ok {
		return 0
	}
	d, ok := durationify(v)
	if !ok {
		return 0
	}
	return d
}

// Keys returns all defined keys, in no particular order.
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	return keys
}

func stringify(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	default:
		return fmt.Sprintf("%v", v)
	}
}

func intify(v interface{}) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if x == float64(int(x)) {
			return int(x), true
		}
		return 0, false
	case string:
		n, err := strconv.Atoi(x)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func durationify(v interface{}) (time.Duration, bool) {
	switch x := v.(type) {
	case int:
		return time.Duration(x) * time.Second, true
	case int64:
		return time.Duration(x) * time.Second, true
	case float64:
		return time.Duration(x * float64(time.Second)), true
	case string:
		if d, err := time.ParseDuration(x); err == nil {
			return d, true
		}
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return time.Duration(f * float64(time.Second)), true
		}
		return 0, false
	default:
		return 0, false
	}
}
