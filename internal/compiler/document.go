package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Document is a graph document: named node specs and the node evaluated by
// default.
//
//	root: greeting
//	nodes:
//	  name:
//	    option: NAME
//	    default: world
//	  greeting:
//	    call: concat
//	    args: ["Hello, ", {ref: name}]
type Document struct {
	Root  string         `mapstructure:"root"`
	Nodes map[string]any `mapstructure:"nodes"`
}

// NodeSpec describes one node. Exactly one kind field (ref, value, option,
// template, call, switch, overloaded, coalesce, list, map, with_options,
// all_options) must be set; type, cache and log wrap the node of any kind.
// Child specs are kept raw and decoded when compiled.
type NodeSpec struct {
	Kind string `mapstructure:"-"`

	Ref        string         `mapstructure:"ref"`
	Value      any            `mapstructure:"value"`
	Option     string         `mapstructure:"option"`
	Default    any            `mapstructure:"default"`
	Doc        string         `mapstructure:"doc"`
	OneOf      []any          `mapstructure:"one_of"`
	Template   string         `mapstructure:"template"`
	Params     map[string]any `mapstructure:"params"`
	Call       string         `mapstructure:"call"`
	Args       []any          `mapstructure:"args"`
	Switch     any            `mapstructure:"switch"`
	Overloaded any            `mapstructure:"overloaded"`
	Cases      map[string]any `mapstructure:"cases"`
	Coalesce   []any          `mapstructure:"coalesce"`
	List       []any          `mapstructure:"list"`
	Map        map[string]any `mapstructure:"map"`

	WithOptions any            `mapstructure:"with_options"`
	Options     map[string]any `mapstructure:"options"`
	Force       bool           `mapstructure:"force"`
	AllOptions  bool           `mapstructure:"all_options"`

	Type     string `mapstructure:"type"`
	Cache    bool   `mapstructure:"cache"`
	Log      string `mapstructure:"log"`
	LogLevel string `mapstructure:"log_level"`
	LogAfter bool   `mapstructure:"log_after"`
}

var kinds = []string{
	"ref", "value", "option", "template", "call", "switch", "overloaded",
	"coalesce", "list", "map", "with_options", "all_options",
}

// Parse decodes a YAML (or JSON) graph document.
func Parse(data []byte) (*Document, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse graph document: %w", err)
	}

	var doc Document
	if err := decode(normalize(raw), &doc); err != nil {
		return nil, fmt.Errorf("invalid graph document: %w", err)
	}
	if len(doc.Nodes) == 0 {
		return nil, fmt.Errorf("invalid graph document: no nodes")
	}
	return &doc, nil
}

// DecodeSpec turns a raw spec into a NodeSpec. Anything that is not a map is
// shorthand for a value spec.
func DecodeSpec(raw any) (*NodeSpec, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return &NodeSpec{Kind: "value", Value: raw}, nil
	}

	var found []string
	for _, k := range kinds {
		if _, ok := m[k]; ok {
			found = append(found, k)
		}
	}
	switch len(found) {
	case 0:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("node spec {%s} has no kind; expected one of %s", strings.Join(keys, ", "), strings.Join(kinds, ", "))
	case 1:
	default:
		return nil, fmt.Errorf("node spec has several kinds: %s", strings.Join(found, ", "))
	}

	spec := &NodeSpec{}
	if err := decode(m, spec); err != nil {
		return nil, err
	}
	spec.Kind = found[0]
	return spec, nil
}

// normalize rewrites the map[any]any that YAML produces for non-string keys
// into map[string]any, recursively.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	}
	return v
}

func decode(input, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
