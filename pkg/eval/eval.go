// Package eval routes the four node operations through the request kernel.
//
// Callers, composite nodes included, should use Evaluate, Validate, Keys and
// Explain from this package instead of calling Node methods directly. The
// default handlers simply call the node; scoped overrides (mocks, tracing)
// can intercept any operation on any node in the tree.
package eval

import (
	"context"
	"fmt"

	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/runtime"
)

const (
	KindEvaluate runtime.Kind = "espalier.evaluate"
	KindValidate runtime.Kind = "espalier.validate"
	KindKeys     runtime.Kind = "espalier.keys"
	KindExplain  runtime.Kind = "espalier.explain"
)

// EvaluateRequest asks for Node to be evaluated under Config.
type EvaluateRequest struct {
	Node   domain.Node
	Config config.Config
}

func (EvaluateRequest) Kind() runtime.Kind { return KindEvaluate }

// ValidateRequest asks for Node to be validated under Config.
type ValidateRequest struct {
	Node   domain.Node
	Config config.Config
}

func (ValidateRequest) Kind() runtime.Kind { return KindValidate }

// KeysRequest asks for the keys Node depends on under Config.
type KeysRequest struct {
	Node   domain.Node
	Config config.Config
}

func (KeysRequest) Kind() runtime.Kind { return KindKeys }

// ExplainRequest asks for an explanation of Node under Config.
type ExplainRequest struct {
	Node   domain.Node
	Config config.Config
}

func (ExplainRequest) Kind() runtime.Kind { return KindExplain }

func init() {
	runtime.HandleByDefault(KindEvaluate, func(ctx context.Context, req runtime.Request) (any, error) {
		r := req.(EvaluateRequest)
		return r.Node.Evaluate(ctx, r.Config)
	})
	runtime.HandleByDefault(KindValidate, func(ctx context.Context, req runtime.Request) (any, error) {
		r := req.(ValidateRequest)
		return nil, r.Node.Validate(ctx, r.Config)
	})
	runtime.HandleByDefault(KindKeys, func(ctx context.Context, req runtime.Request) (any, error) {
		r := req.(KeysRequest)
		return r.Node.Keys(ctx, r.Config)
	})
	runtime.HandleByDefault(KindExplain, func(ctx context.Context, req runtime.Request) (any, error) {
		r := req.(ExplainRequest)
		return r.Node.Explain(ctx, r.Config)
	})
}

// Evaluate routes an evaluation of n.
func Evaluate(ctx context.Context, n domain.Node, cfg config.Config) (any, error) {
	return runtime.Handle(ctx, EvaluateRequest{Node: n, Config: cfg})
}

// Validate routes a validation of n. Evaluation-class failures returned by a
// handler are reported as validation errors.
func Validate(ctx context.Context, n domain.Node, cfg config.Config) error {
	_, err := runtime.Handle(ctx, ValidateRequest{Node: n, Config: cfg})
	return domain.Invalid(err)
}

// Keys routes a keys query for n.
func Keys(ctx context.Context, n domain.Node, cfg config.Config) (domain.KeySet, error) {
	v, err := runtime.Handle(ctx, KeysRequest{Node: n, Config: cfg})
	if err != nil {
		return nil, err
	}
	switch ks := v.(type) {
	case domain.KeySet:
		return ks, nil
	case nil:
		return domain.KeySet{}, nil
	default:
		return nil, fmt.Errorf("keys handler for %s returned %T", n, v)
	}
}

// Explain routes an explain query for n.
func Explain(ctx context.Context, n domain.Node, cfg config.Config) (domain.Explanation, error) {
	v, err := runtime.Handle(ctx, ExplainRequest{Node: n, Config: cfg})
	if err != nil {
		return domain.Explanation{}, err
	}
	switch e := v.(type) {
	case domain.Explanation:
		return e, nil
	case domain.KeySet:
		return domain.Explained(e), nil
	case nil:
		return domain.Explained(nil), nil
	default:
		return domain.Explanation{}, fmt.Errorf("explain handler for %s returned %T", n, v)
	}
}
