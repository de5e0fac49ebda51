package node

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/domain"
)

// ListNode evaluates to a []any of its items' values.
type ListNode struct {
	items []domain.Node
}

// List returns a node collecting items, which may be nodes or plain values.
func List(items ...any) *ListNode {
	return &ListNode{items: ensureAll(items)}
}

func (l *ListNode) Evaluate(ctx context.Context, cfg config.Config) (any, error) {
	return evaluateAll(ctx, cfg, l.items)
}

func (l *ListNode) Validate(ctx context.Context, cfg config.Config) error {
	return validateAll(ctx, cfg, l.items)
}

func (l *ListNode) Keys(ctx context.Context, cfg config.Config) (domain.KeySet, error) {
	return keysAll(ctx, cfg, l.items)
}

func (l *ListNode) Explain(ctx context.Context, cfg config.Config) (domain.Explanation, error) {
	return explainAll(ctx, cfg, l.items)
}

func (l *ListNode) String() string {
	return fmt.Sprintf("List(%s)", join(l.items))
}

// MapNode evaluates to a map[string]any of its entries' values.
type MapNode struct {
	names   []string
	entries []domain.Node
}

// Map returns a node collecting entries, which may be nodes or plain values.
func Map(entries map[string]any) *MapNode {
	m := &MapNode{}
	for name := range entries {
		m.names = append(m.names, name)
	}
	sort.Strings(m.names)
	for _, name := range m.names {
		m.entries = append(m.entries, Ensure(entries[name]))
	}
	return m
}

func (m *MapNode) Evaluate(ctx context.Context, cfg config.Config) (any, error) {
	values, err := evaluateAll(ctx, cfg, m.entries)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(values))
	for i, name := range m.names {
		out[name] = values[i]
	}
	return out, nil
}

func (m *MapNode) Validate(ctx context.Context, cfg config.Config) error {
	return validateAll(ctx, cfg, m.entries)
}

func (m *MapNode) Keys(ctx context.Context, cfg config.Config) (domain.KeySet, error) {
	return keysAll(ctx, cfg, m.entries)
}

func (m *MapNode) Explain(ctx context.Context, cfg config.Config) (domain.Explanation, error) {
	return explainAll(ctx, cfg, m.entries)
}

func (m *MapNode) String() string {
	parts := make([]string, len(m.names))
	for i, name := range m.names {
		parts[i] = fmt.Sprintf("%q: %s", name, m.entries[i])
	}
	return fmt.Sprintf("Map({%s})", strings.Join(parts, ", "))
}
