package node

import (
	"context"
	"fmt"

	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/eval"
)

// CoalesceNode evaluates to the first of its members that validates.
type CoalesceNode struct {
	members []domain.Node
}

// Coalesce tries first and then each of rest in order. When no member
// validates, evaluating the coalesce reports the first member's own error.
func Coalesce(first any, rest ...any) *CoalesceNode {
	return &CoalesceNode{members: ensureAll(append([]any{first}, rest...))}
}

// pick returns the first member that validates under cfg, or nil. Errors
// other than validation failures are returned as-is.
func (n *CoalesceNode) pick(ctx context.Context, cfg config.Config) (domain.Node, error) {
	for _, m := range n.members {
		err := eval.Validate(ctx, m, cfg)
		if err == nil {
			return m, nil
		}
		if !isValidation(err) {
			return nil, err
		}
	}
	return nil, nil
}

func (n *CoalesceNode) Evaluate(ctx context.Context, cfg config.Config) (any, error) {
	m, err := n.pick(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = n.members[0]
	}
	return eval.Evaluate(ctx, m, cfg)
}

func (n *CoalesceNode) Validate(ctx context.Context, cfg config.Config) error {
	m, err := n.pick(ctx, cfg)
	if err != nil || m != nil {
		return err
	}
	return eval.Validate(ctx, n.members[0], cfg)
}

func (n *CoalesceNode) Keys(ctx context.Context, cfg config.Config) (domain.KeySet, error) {
	m, err := n.pick(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return domain.KeySet{}, nil
	}
	return eval.Keys(ctx, m, cfg)
}

func (n *CoalesceNode) Explain(ctx context.Context, cfg config.Config) (domain.Explanation, error) {
	m, err := n.pick(ctx, cfg)
	if err != nil {
		return domain.Explanation{}, err
	}
	if m == nil {
		m = n.members[0]
	}
	return eval.Explain(ctx, m, cfg)
}

func (n *CoalesceNode) String() string {
	return fmt.Sprintf("Coalesce(%s)", join(n.members))
}
