// Package typecheck routes value type checks through the request kernel.
//
// Typed nodes issue a TypeValidationRequest for every value they produce.
// The default handler accepts everything; entering Enforce makes the check
// real, so type checking can be switched on in tests or at the edge of an
// application without touching the nodes.
package typecheck

import (
	"context"
	"fmt"

	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/eval"
	"github.com/aretw0/espalier/pkg/node"
	"github.com/aretw0/espalier/pkg/runtime"
	"github.com/aretw0/espalier/pkg/schema"
)

const KindTypeValidation runtime.Kind = "espalier.typecheck"

// TypeValidationRequest asks whether Value conforms to Type.
type TypeValidationRequest struct {
	Value  any
	Type   schema.Type
	Config config.Config
}

func (TypeValidationRequest) Kind() runtime.Kind { return KindTypeValidation }

// TypeValidationError is the evaluation error of a value rejected by its
// declared type.
type TypeValidationError struct {
	Source string
	Value  any
	Type   string
	Err    error
}

func (e *TypeValidationError) Error() string {
	return fmt.Sprintf("type validation failed for %s: %v is not of type %s: %v", e.Source, e.Value, e.Type, e.Err)
}

func (e *TypeValidationError) Unwrap() error { return e.Err }

func (e *TypeValidationError) Is(target error) bool { return target == domain.ErrEvaluation }

func init() {
	runtime.HandleByDefault(KindTypeValidation, func(context.Context, runtime.Request) (any, error) {
		return nil, nil
	})
}

// Enforce returns overrides that validate values against their types.
func Enforce() runtime.Handlers {
	return runtime.Handlers{
		KindTypeValidation: func(_ context.Context, req runtime.Request) (any, error) {
			r := req.(TypeValidationRequest)
			return nil, r.Type.Validate(r.Value)
		},
	}
}

// Check issues a TypeValidationRequest for value. A nil type always passes.
// A rejection is reported as a *TypeValidationError naming source.
func Check(ctx context.Context, source string, value any, t schema.Type, cfg config.Config) error {
	if t == nil {
		return nil
	}
	if _, err := runtime.Handle(ctx, TypeValidationRequest{Value: value, Type: t, Config: cfg}); err != nil {
		return &TypeValidationError{Source: source, Value: value, Type: t.Name(), Err: err}
	}
	return nil
}

// TypedNode checks the values of another node against a type.
type TypedNode struct {
	node domain.Node
	typ  schema.Type
}

// Typed wraps n so its values are checked against t.
func Typed(n any, t schema.Type) *TypedNode {
	return &TypedNode{node: node.Ensure(n), typ: t}
}

// Type returns the declared type.
func (t *TypedNode) Type() schema.Type { return t.typ }

func (t *TypedNode) Evaluate(ctx context.Context, cfg config.Config) (any, error) {
	v, err := eval.Evaluate(ctx, t.node, cfg)
	if err != nil {
		return nil, err
	}
	if err := Check(ctx, t.String(), v, t.typ, cfg); err != nil {
		return nil, err
	}
	return v, nil
}

func (t *TypedNode) Validate(ctx context.Context, cfg config.Config) error {
	return eval.Validate(ctx, t.node, cfg)
}

func (t *TypedNode) Keys(ctx context.Context, cfg config.Config) (domain.KeySet, error) {
	return eval.Keys(ctx, t.node, cfg)
}

func (t *TypedNode) Explain(ctx context.Context, cfg config.Config) (domain.Explanation, error) {
	return eval.Explain(ctx, t.node, cfg)
}

func (t *TypedNode) String() string {
	return fmt.Sprintf("Typed(%s, %s)", t.node, t.typ.Name())
}
