package node

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/domain"
)

// TemplateNode renders a template string. Besides {PATH} placeholders it may
// contain {:name:} placeholders filled from named parameter nodes.
type TemplateNode struct {
	template string
	params   map[string]domain.Node
	names    []string
	refs     []domain.Node
}

// Template returns a node rendering tmpl. Every {:name:} placeholder must have
// a matching entry in params; parameters may be nodes or plain values.
func Template(tmpl string, params map[string]any) (*TemplateNode, error) {
	t := newTemplate(tmpl, params)

	var missing []string
	for _, key := range config.TemplateKeys(tmpl) {
		if !config.IsParam(key) {
			continue
		}
		if _, ok := t.params[config.ParamName(key)]; !ok {
			missing = append(missing, config.ParamName(key))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("template %q requires parameters %s", tmpl, strings.Join(missing, ", "))
	}
	return t, nil
}

// MustTemplate is like Template but panics on a missing parameter.
func MustTemplate(tmpl string, params map[string]any) *TemplateNode {
	t, err := Template(tmpl, params)
	if err != nil {
		panic(err)
	}
	return t
}

func newTemplate(tmpl string, params map[string]any) *TemplateNode {
	t := &TemplateNode{template: tmpl, params: make(map[string]domain.Node, len(params))}
	for name, p := range params {
		t.params[name] = Ensure(p)
		t.names = append(t.names, name)
	}
	sort.Strings(t.names)
	for _, key := range config.TemplateKeys(tmpl) {
		if !config.IsParam(key) {
			t.refs = append(t.refs, Option(key))
		}
	}
	return t
}

func (t *TemplateNode) paramNodes() []domain.Node {
	nodes := make([]domain.Node, len(t.names))
	for i, name := range t.names {
		nodes[i] = t.params[name]
	}
	return nodes
}

func (t *TemplateNode) Evaluate(ctx context.Context, cfg config.Config) (any, error) {
	values, err := evaluateAll(ctx, cfg, t.paramNodes())
	if err != nil {
		return nil, err
	}
	params := make(map[string]any, len(values))
	for i, name := range t.names {
		params[name] = values[i]
	}

	out, err := cfg.InterpolateWith(t.template, params)
	if err != nil {
		return nil, domain.FromConfig(err, t.String())
	}
	if s, ok := out.(string); ok {
		return s, nil
	}
	return fmt.Sprint(out), nil
}

func (t *TemplateNode) Validate(ctx context.Context, cfg config.Config) error {
	if err := validateAll(ctx, cfg, t.paramNodes()); err != nil {
		return err
	}
	return validateAll(ctx, cfg, t.refs)
}

func (t *TemplateNode) Keys(ctx context.Context, cfg config.Config) (domain.KeySet, error) {
	return keysAll(ctx, cfg, append(t.paramNodes(), t.refs...))
}

func (t *TemplateNode) Explain(ctx context.Context, cfg config.Config) (domain.Explanation, error) {
	return explainAll(ctx, cfg, append(t.paramNodes(), t.refs...))
}

func (t *TemplateNode) String() string {
	if len(t.names) == 0 {
		return fmt.Sprintf("Template(%q)", t.template)
	}
	parts := make([]string, len(t.names))
	for i, name := range t.names {
		parts[i] = fmt.Sprintf("%s=%s", name, t.params[name])
	}
	return fmt.Sprintf("Template(%q, %s)", t.template, strings.Join(parts, ", "))
}
