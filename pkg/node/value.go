package node

import (
	"context"
	"fmt"

	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/mitchellh/copystructure"
)

// ValueNode holds a constant. It never depends on the configuration.
type ValueNode struct {
	value any
}

// Value wraps v. Every evaluation returns a deep copy of v, so callers may
// mutate results freely.
func Value(v any) *ValueNode {
	return &ValueNode{value: v}
}

func (n *ValueNode) Evaluate(context.Context, config.Config) (any, error) {
	copied, err := copystructure.Copy(n.value)
	if err != nil {
		return n.value, nil
	}
	return copied, nil
}

func (n *ValueNode) Validate(context.Context, config.Config) error {
	return nil
}

func (n *ValueNode) Keys(context.Context, config.Config) (domain.KeySet, error) {
	return domain.KeySet{}, nil
}

func (n *ValueNode) Explain(context.Context, config.Config) (domain.Explanation, error) {
	return domain.Explained(nil), nil
}

func (n *ValueNode) String() string {
	return fmt.Sprintf("Value(%s)", quote(n.value))
}
