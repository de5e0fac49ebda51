package node

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/eval"
)

// SwitchNode selects one branch of a fixed table by the value of a selector.
type SwitchNode struct {
	selector domain.Node
	table    map[any]domain.Node
	def      domain.Node
}

// SwitchOpt configures a SwitchNode.
type SwitchOpt func(*SwitchNode)

// SwitchDefault sets the branch used when the selector fails or evaluates to
// a value missing from the table.
func SwitchDefault(v any) SwitchOpt {
	return func(s *SwitchNode) {
		s.def = Ensure(v)
	}
}

// Switch returns a node evaluating table[selector]. A string selector is
// read as an Option path. Table values may be nodes or plain values.
func Switch(selector any, table map[any]any, opts ...SwitchOpt) *SwitchNode {
	branches := make(map[any]domain.Node, len(table))
	for k, v := range table {
		branches[k] = Ensure(v)
	}
	return newSwitch(selectorNode(selector), branches, opts...)
}

func newSwitch(selector domain.Node, table map[any]domain.Node, opts ...SwitchOpt) *SwitchNode {
	s := &SwitchNode{selector: selector, table: table}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func selectorNode(selector any) domain.Node {
	if path, ok := selector.(string); ok {
		return Option(path)
	}
	return Ensure(selector)
}

// choice is the branch that applies under a configuration. fallback is set
// when the default was chosen; selectorErr when the selector itself failed.
type choice struct {
	node        domain.Node
	fallback    bool
	selectorErr error
}

// branch resolves the branch that applies under cfg.
func (s *SwitchNode) branch(ctx context.Context, cfg config.Config) (choice, error) {
	value, err := eval.Evaluate(ctx, s.selector, cfg)
	if err != nil {
		if !isEvaluation(err) {
			return choice{}, err
		}
		c := choice{selectorErr: err}
		if s.def != nil {
			c.node, c.fallback = s.def, true
			return c, nil
		}
		return c, &domain.DispatchError{Valid: s.validKeys(), Source: s.String(), Err: err}
	}

	if !hashable(value) {
		return choice{}, &domain.EvaluationError{
			Msg:    fmt.Sprintf("selector %s evaluated to %v of type %T, which cannot be used as a dispatch key", s.selector, value, value),
			Source: s.String(),
		}
	}
	if n, ok := s.table[value]; ok {
		return choice{node: n}, nil
	}
	if s.def != nil {
		return choice{node: s.def, fallback: true}, nil
	}
	return choice{}, &domain.DispatchError{Value: value, Valid: s.validKeys(), Source: s.String()}
}

// hashable reports whether v can be used as a map key without panicking.
// Comparable types may still hold slices or maps behind interface fields.
func hashable(v any) bool {
	if v == nil {
		return true
	}
	return hashableValue(reflect.ValueOf(v))
}

func hashableValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Interface:
		return v.IsNil() || hashableValue(v.Elem())
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if !hashableValue(v.Index(i)) {
				return false
			}
		}
		return true
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if !hashableValue(v.Field(i)) {
				return false
			}
		}
		return true
	case reflect.Slice, reflect.Map, reflect.Func:
		return false
	default:
		return true
	}
}

func (s *SwitchNode) validKeys() []any {
	keys := make([]any, 0, len(s.table))
	for k := range s.table {
		keys = append(keys, k)
	}
	return keys
}

func (s *SwitchNode) Evaluate(ctx context.Context, cfg config.Config) (any, error) {
	c, err := s.branch(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return eval.Evaluate(ctx, c.node, cfg)
}

func (s *SwitchNode) Validate(ctx context.Context, cfg config.Config) error {
	c, err := s.branch(ctx, cfg)
	if err != nil {
		return domain.Invalid(err)
	}
	return eval.Validate(ctx, c.node, cfg)
}

// Keys reports the chosen branch's keys, plus the selector's unless the
// default branch was chosen.
func (s *SwitchNode) Keys(ctx context.Context, cfg config.Config) (domain.KeySet, error) {
	c, err := s.branch(ctx, cfg)
	if err != nil {
		return nil, err
	}
	keys, err := eval.Keys(ctx, c.node, cfg)
	if err != nil {
		return nil, err
	}
	if c.fallback {
		return keys, nil
	}
	selectorKeys, err := eval.Keys(ctx, s.selector, cfg)
	if err != nil {
		return nil, err
	}
	return keys.Union(selectorKeys), nil
}

// Explain follows the branch Keys would take. When the selector cannot be
// evaluated it reports the selector together with every branch.
func (s *SwitchNode) Explain(ctx context.Context, cfg config.Config) (domain.Explanation, error) {
	c, err := s.branch(ctx, cfg)
	if c.selectorErr != nil {
		selector, err := eval.Explain(ctx, s.selector, cfg)
		if err != nil {
			return domain.Explanation{}, err
		}
		branches, err := explainAll(ctx, cfg, s.branches())
		if err != nil {
			return domain.Explanation{}, err
		}
		return selector.Merge(branches), nil
	}
	if err != nil {
		if !isEvaluation(err) {
			return domain.Explanation{}, err
		}
		return domain.Unexplained(err.Error(), s.String()), nil
	}

	branch, err := eval.Explain(ctx, c.node, cfg)
	if err != nil || c.fallback {
		return branch, err
	}
	selector, err := eval.Explain(ctx, s.selector, cfg)
	if err != nil {
		return domain.Explanation{}, err
	}
	return selector.Merge(branch), nil
}

// branches returns every branch in table key order, then the default.
func (s *SwitchNode) branches() []domain.Node {
	keys := s.validKeys()
	sort.Slice(keys, func(i, j int) bool { return fmt.Sprint(keys[i]) < fmt.Sprint(keys[j]) })
	nodes := make([]domain.Node, 0, len(keys)+1)
	for _, k := range keys {
		nodes = append(nodes, s.table[k])
	}
	if s.def != nil {
		nodes = append(nodes, s.def)
	}
	return nodes
}

func (s *SwitchNode) String() string {
	keys := s.validKeys()
	sort.Slice(keys, func(i, j int) bool { return fmt.Sprint(keys[i]) < fmt.Sprint(keys[j]) })
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", quote(k), s.table[k])
	}
	out := fmt.Sprintf("Switch(%s, {%s}", s.selector, strings.Join(parts, ", "))
	if s.def != nil {
		out += fmt.Sprintf(", default=%s", s.def)
	}
	return out + ")"
}
