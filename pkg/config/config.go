package config

import (
	"fmt"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/copystructure"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config is an immutable, hierarchically keyed configuration.
// The zero value is an empty configuration.
type Config struct {
	root map[string]any
}

// Empty returns a configuration with no keys.
func Empty() Config {
	return Config{}
}

// New builds a configuration from a nested mapping. The input is deep-copied
// and nested mappings are normalized to map[string]any, so later changes to m
// are not observed.
func New(m map[string]any) Config {
	if len(m) == 0 {
		return Config{}
	}
	return Config{root: normalize(deepCopy(m)).(map[string]any)}
}

// Parse reads a configuration document. YAML and JSON are both accepted.
func Parse(data []byte) (Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("failed to parse configuration: %w", err)
	}
	return New(raw), nil
}

// Load reads the given files in order, overlaying each on top of the
// previous ones.
func Load(paths ...string) (Config, error) {
	cfg := Empty()
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read configuration %s: %w", path, err)
		}
		next, err := Parse(data)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
		cfg = cfg.Overlay(next)
	}
	return cfg, nil
}

// Len returns the number of top-level keys.
func (c Config) Len() int {
	return len(c.root)
}

// Keys returns the sorted top-level keys.
func (c Config) Keys() []string {
	keys := make([]string, 0, len(c.root))
	for k := range c.root {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Raw returns a deep copy of the underlying mapping, without interpolation.
func (c Config) Raw() map[string]any {
	if c.root == nil {
		return map[string]any{}
	}
	return deepCopy(c.root).(map[string]any)
}

// Lookup returns the raw (uninterpolated) value stored at path.
func (c Config) Lookup(path string) (any, bool) {
	if path == "" || c.root == nil {
		return nil, false
	}
	var current any = c.root
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// Exists reports whether path is present.
func (c Config) Exists(path string) bool {
	_, ok := c.Lookup(path)
	return ok
}

// Resolve looks up path and interpolates the value found there.
func (c Config) Resolve(path string) (any, error) {
	value, ok := c.Lookup(path)
	if !ok {
		return nil, &MissingKeyError{Path: path}
	}
	r := &resolver{cfg: c, chain: []string{path}}
	return r.value(value)
}

// Set returns a copy of the configuration with value stored at path.
// Intermediate mappings are created as needed; a non-mapping value in the way
// is replaced.
func (c Config) Set(path string, value any) Config {
	root := c.Raw()
	segments := strings.Split(path, ".")
	current := root
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[segment] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = normalize(deepCopy(value))
	return Config{root: root}
}

// Overlay merges other on top of c. Mappings are merged recursively; any
// other value in other replaces the one in c.
func (c Config) Overlay(other Config) Config {
	if other.root == nil {
		return c
	}
	if c.root == nil {
		return Config{root: other.Raw()}
	}
	return Config{root: merge(c.Raw(), other.Raw())}
}

// Decode interpolates the value at path and decodes it into out. An empty
// path decodes the whole configuration.
func (c Config) Decode(path string, out any) error {
	var (
		value any
		err   error
	)
	if path == "" {
		value, err = c.Interpolate(c.Raw())
	} else {
		value, err = c.Resolve(path)
	}
	if err != nil {
		return err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "yaml",
	})
	if err != nil {
		return fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := decoder.Decode(value); err != nil {
		return fmt.Errorf("failed to decode %q: %w", path, err)
	}
	return nil
}

func merge(dst, src map[string]any) map[string]any {
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		dstMap, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[k] = merge(dstMap, srcMap)
			continue
		}
		dst[k] = v
	}
	return dst
}

func deepCopy(v any) any {
	copied, err := copystructure.Copy(v)
	if err != nil {
		return v
	}
	return copied
}

// normalize rewrites nested mappings to map[string]any and sequences to []any
// so that lookups only deal with two container shapes.
func normalize(v any) any {
	switch node := v.(type) {
	case nil:
		return nil
	case map[string]any:
		for k, child := range node {
			node[k] = normalize(child)
		}
		return node
	case []any:
		for i, child := range node {
			node[i] = normalize(child)
		}
		return node
	case map[any]any:
		out := make(map[string]any, len(node))
		for k, child := range node {
			out[fmt.Sprint(k)] = normalize(child)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = normalize(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	}
	return v
}
