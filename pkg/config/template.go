package config

import (
	"fmt"
	"sort"
	"strings"
)

type segment struct {
	text        string
	key         string
	placeholder bool
}

// parseTemplate splits s into literal and placeholder segments. An unclosed
// brace is kept as literal text.
func parseTemplate(s string) []segment {
	var (
		segments []segment
		literal  strings.Builder
	)
	flush := func() {
		if literal.Len() > 0 {
			segments = append(segments, segment{text: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '{' && i+1 < len(s) && s[i+1] == '{':
			literal.WriteByte('{')
			i++
		case ch == '}' && i+1 < len(s) && s[i+1] == '}':
			literal.WriteByte('}')
			i++
		case ch == '{':
			end := strings.IndexByte(s[i+1:], '}')
			if end < 0 {
				literal.WriteString(s[i:])
				i = len(s)
				continue
			}
			flush()
			key := strings.TrimSpace(s[i+1 : i+1+end])
			segments = append(segments, segment{key: key, placeholder: true})
			i += end + 1
		default:
			literal.WriteByte(ch)
		}
	}
	flush()
	return segments
}

// TemplateKeys returns the placeholders of s in order of first appearance.
// Parameter placeholders are returned in their {:name:} form, i.e. ":name:".
func TemplateKeys(s string) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, seg := range parseTemplate(s) {
		if !seg.placeholder {
			continue
		}
		if _, ok := seen[seg.key]; ok {
			continue
		}
		seen[seg.key] = struct{}{}
		keys = append(keys, seg.key)
	}
	return keys
}

// IsParam reports whether a placeholder key names a template parameter.
func IsParam(key string) bool {
	return len(key) > 2 && key[0] == ':' && key[len(key)-1] == ':'
}

// ParamName strips the colons from a parameter placeholder.
func ParamName(key string) string {
	if !IsParam(key) {
		return key
	}
	return key[1 : len(key)-1]
}

// Interpolate resolves every template string inside v against c.
func (c Config) Interpolate(v any) (any, error) {
	r := &resolver{cfg: c}
	return r.value(v)
}

// InterpolateWith is Interpolate with named {:param:} values available.
func (c Config) InterpolateWith(v any, params map[string]any) (any, error) {
	r := &resolver{cfg: c, params: params}
	return r.value(v)
}

// References returns the sorted configuration paths consulted while
// interpolating v, transitively.
func (c Config) References(v any) ([]string, error) {
	r := &resolver{cfg: c, touched: make(map[string]struct{})}
	if _, err := r.value(v); err != nil {
		return nil, err
	}
	return r.touchedPaths(), nil
}

// ExplainReferences is References tolerant of absent paths: a missing path is
// reported as a reference and resolution continues past it. Cycles still fail.
func (c Config) ExplainReferences(v any) ([]string, error) {
	r := &resolver{cfg: c, touched: make(map[string]struct{}), lenient: true}
	if _, err := r.value(v); err != nil {
		return nil, err
	}
	return r.touchedPaths(), nil
}

type resolver struct {
	cfg     Config
	params  map[string]any
	chain   []string
	touched map[string]struct{}
	lenient bool
}

func (r *resolver) touchedPaths() []string {
	paths := make([]string, 0, len(r.touched))
	for p := range r.touched {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (r *resolver) value(v any) (any, error) {
	switch node := v.(type) {
	case string:
		return r.str(node)
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, child := range node {
			resolved, err := r.value(child)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(node))
		for i, child := range node {
			resolved, err := r.value(child)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

func (r *resolver) str(s string) (any, error) {
	if !strings.ContainsAny(s, "{}") {
		return s, nil
	}
	segments := parseTemplate(s)
	if len(segments) == 1 && segments[0].placeholder {
		return r.ref(segments[0].key)
	}

	var b strings.Builder
	for _, seg := range segments {
		if !seg.placeholder {
			b.WriteString(seg.text)
			continue
		}
		v, err := r.ref(seg.key)
		if err != nil {
			return nil, err
		}
		b.WriteString(format(v))
	}
	return b.String(), nil
}

func (r *resolver) ref(key string) (any, error) {
	if IsParam(key) {
		v, ok := r.params[ParamName(key)]
		if !ok {
			if r.lenient {
				return nil, nil
			}
			return nil, &MissingKeyError{Path: key}
		}
		return v, nil
	}

	for _, p := range r.chain {
		if p == key {
			chain := append(append([]string{}, r.chain...), key)
			return nil, &CycleError{Chain: chain}
		}
	}

	if r.touched != nil {
		r.touched[key] = struct{}{}
	}
	raw, ok := r.cfg.Lookup(key)
	if !ok {
		if r.lenient {
			return nil, nil
		}
		return nil, &MissingKeyError{Path: key}
	}

	r.chain = append(r.chain, key)
	defer func() { r.chain = r.chain[:len(r.chain)-1] }()
	return r.value(raw)
}

func format(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
