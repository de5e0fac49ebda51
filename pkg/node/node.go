package node

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/eval"
	"github.com/aretw0/espalier/pkg/runtime"
	"golang.org/x/sync/errgroup"
)

var sequential atomic.Bool

// SetParallel turns concurrent evaluation of independent children on or off.
// It is on by default.
func SetParallel(enabled bool) {
	sequential.Store(!enabled)
}

// Parallel reports whether independent children are evaluated concurrently.
func Parallel() bool {
	return !sequential.Load()
}

// Ensure returns v itself if it is a node, and a Value wrapping it otherwise.
func Ensure(v any) domain.Node {
	if n, ok := v.(domain.Node); ok {
		return n
	}
	return Value(v)
}

func ensureAll(values []any) []domain.Node {
	nodes := make([]domain.Node, len(values))
	for i, v := range values {
		nodes[i] = Ensure(v)
	}
	return nodes
}

// evaluateAll evaluates nodes and returns their values in order. The first
// error, in node order, is returned.
func evaluateAll(ctx context.Context, cfg config.Config, nodes []domain.Node) ([]any, error) {
	out := make([]any, len(nodes))
	if !Parallel() || len(nodes) < 2 {
		for i, n := range nodes {
			v, err := eval.Evaluate(ctx, n, cfg)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	errs := make([]error, len(nodes))
	var g errgroup.Group
	for i, n := range nodes {
		g.Go(func() error {
			child, release := runtime.Child(ctx)
			defer release()
			out[i], errs[i] = eval.Evaluate(child, n, cfg)
			return errs[i]
		})
	}
	if g.Wait() != nil {
		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func validateAll(ctx context.Context, cfg config.Config, nodes []domain.Node) error {
	for _, n := range nodes {
		if err := eval.Validate(ctx, n, cfg); err != nil {
			return err
		}
	}
	return nil
}

func keysAll(ctx context.Context, cfg config.Config, nodes []domain.Node) (domain.KeySet, error) {
	keys := domain.KeySet{}
	for _, n := range nodes {
		ks, err := eval.Keys(ctx, n, cfg)
		if err != nil {
			return nil, err
		}
		keys.Add(ks.Sorted()...)
	}
	return keys, nil
}

func explainAll(ctx context.Context, cfg config.Config, nodes []domain.Node) (domain.Explanation, error) {
	result := domain.Explained(nil)
	for _, n := range nodes {
		e, err := eval.Explain(ctx, n, cfg)
		if err != nil {
			return domain.Explanation{}, err
		}
		result = result.Merge(e)
	}
	return result, nil
}

func join(nodes []domain.Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, ", ")
}

func quote(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v)
}

func isValidation(err error) bool {
	return errors.Is(err, domain.ErrValidation)
}
