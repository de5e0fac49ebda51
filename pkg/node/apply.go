package node

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	goruntime "runtime"
	"strings"

	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/eval"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// ApplyNode applies a function, itself produced by a node, to the value of
// another node.
type ApplyNode struct {
	arg domain.Node
	fn  domain.Node
}

// Apply returns a node evaluating fn(arg). Both arguments may be nodes or
// plain values; fn must evaluate to a Go function of one argument returning
// either a value or a value and an error.
func Apply(arg, fn any) *ApplyNode {
	return &ApplyNode{arg: Ensure(arg), fn: Ensure(fn)}
}

func (n *ApplyNode) Evaluate(ctx context.Context, cfg config.Config) (any, error) {
	values, err := evaluateAll(ctx, cfg, []domain.Node{n.fn, n.arg})
	if err != nil {
		return nil, err
	}
	return invoke(n.String(), values[0], values[1:])
}

func (n *ApplyNode) Validate(ctx context.Context, cfg config.Config) error {
	return validateAll(ctx, cfg, []domain.Node{n.arg, n.fn})
}

func (n *ApplyNode) Keys(ctx context.Context, cfg config.Config) (domain.KeySet, error) {
	return keysAll(ctx, cfg, []domain.Node{n.arg, n.fn})
}

func (n *ApplyNode) Explain(ctx context.Context, cfg config.Config) (domain.Explanation, error) {
	return explainAll(ctx, cfg, []domain.Node{n.arg, n.fn})
}

func (n *ApplyNode) String() string {
	return fmt.Sprintf("Apply(%s, %s)", n.arg, n.fn)
}

// CallNode calls a Go function with arguments produced by nodes.
type CallNode struct {
	name string
	fn   any
	args []domain.Node
}

// Call returns a node evaluating fn(args...). fn must be a Go function
// returning a value, or a value and an error. Arguments are evaluated
// concurrently when parallel evaluation is enabled.
func Call(fn any, args ...any) *CallNode {
	return &CallNode{name: funcName(fn), fn: fn, args: ensureAll(args)}
}

// Named overrides the function name shown by String.
func (n *CallNode) Named(name string) *CallNode {
	return &CallNode{name: name, fn: n.fn, args: n.args}
}

func (n *CallNode) Evaluate(ctx context.Context, cfg config.Config) (any, error) {
	values, err := evaluateAll(ctx, cfg, n.args)
	if err != nil {
		return nil, err
	}
	return invoke(n.String(), n.fn, values)
}

func (n *CallNode) Validate(ctx context.Context, cfg config.Config) error {
	return validateAll(ctx, cfg, n.args)
}

func (n *CallNode) Keys(ctx context.Context, cfg config.Config) (domain.KeySet, error) {
	return keysAll(ctx, cfg, n.args)
}

func (n *CallNode) Explain(ctx context.Context, cfg config.Config) (domain.Explanation, error) {
	return explainAll(ctx, cfg, n.args)
}

func (n *CallNode) String() string {
	return fmt.Sprintf("%s(%s)", n.name, join(n.args))
}

// BindNode evaluates an upstream node and computes the next node to
// evaluate from its value.
type BindNode struct {
	upstream domain.Node
	next     func(any) (domain.Node, error)
}

// Bind chains upstream into next. Keys of a bound node cannot be known
// without evaluating upstream, so Explain reports insufficient information
// when upstream cannot be evaluated.
func Bind(upstream any, next func(any) (domain.Node, error)) *BindNode {
	return &BindNode{upstream: Ensure(upstream), next: next}
}

func (n *BindNode) step(ctx context.Context, cfg config.Config) (domain.Node, error) {
	v, err := eval.Evaluate(ctx, n.upstream, cfg)
	if err != nil {
		return nil, err
	}
	next, err := n.next(v)
	if err != nil {
		if isEvaluation(err) {
			return nil, err
		}
		return nil, &domain.EvaluationError{Msg: "bind failed", Source: n.String(), Err: err}
	}
	return Ensure(next), nil
}

func (n *BindNode) Evaluate(ctx context.Context, cfg config.Config) (any, error) {
	next, err := n.step(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return eval.Evaluate(ctx, next, cfg)
}

func (n *BindNode) Validate(ctx context.Context, cfg config.Config) error {
	if err := eval.Validate(ctx, n.upstream, cfg); err != nil {
		return err
	}
	next, err := n.step(ctx, cfg)
	if err != nil {
		return domain.Invalid(err)
	}
	return eval.Validate(ctx, next, cfg)
}

func (n *BindNode) Keys(ctx context.Context, cfg config.Config) (domain.KeySet, error) {
	keys, err := eval.Keys(ctx, n.upstream, cfg)
	if err != nil {
		return nil, err
	}
	next, err := n.step(ctx, cfg)
	if err != nil {
		return nil, err
	}
	nextKeys, err := eval.Keys(ctx, next, cfg)
	if err != nil {
		return nil, err
	}
	return keys.Union(nextKeys), nil
}

func (n *BindNode) Explain(ctx context.Context, cfg config.Config) (domain.Explanation, error) {
	explanation, err := eval.Explain(ctx, n.upstream, cfg)
	if err != nil || !explanation.Sufficient() {
		return explanation, err
	}
	next, err := n.step(ctx, cfg)
	if err != nil {
		if !isEvaluation(err) {
			return domain.Explanation{}, err
		}
		return domain.Unexplained(err.Error(), n.String()), nil
	}
	nextExplanation, err := eval.Explain(ctx, next, cfg)
	if err != nil {
		return domain.Explanation{}, err
	}
	return explanation.Merge(nextExplanation), nil
}

func (n *BindNode) String() string {
	return fmt.Sprintf("Bind(%s, %s)", n.upstream, funcName(n.next))
}

func isEvaluation(err error) bool {
	return errors.Is(err, domain.ErrEvaluation)
}

// invoke calls fn with args through reflection. Arguments are converted to
// the parameter types when both sides are numeric.
func invoke(source string, fn any, args []any) (any, error) {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, &domain.EvaluationError{Msg: fmt.Sprintf("%T is not a function", fn), Source: source}
	}
	rt := rv.Type()

	if rt.IsVariadic() {
		if len(args) < rt.NumIn()-1 {
			return nil, arityError(source, rt, len(args))
		}
	} else if len(args) != rt.NumIn() {
		return nil, arityError(source, rt, len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var want reflect.Type
		if rt.IsVariadic() && i >= rt.NumIn()-1 {
			want = rt.In(rt.NumIn() - 1).Elem()
		} else {
			want = rt.In(i)
		}
		v, err := convert(arg, want)
		if err != nil {
			return nil, &domain.EvaluationError{Msg: fmt.Sprintf("argument %d", i), Source: source, Err: err}
		}
		in[i] = v
	}

	out := rv.Call(in)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if rt.Out(0) == errorType {
			return nil, asError(out[0])
		}
		return out[0].Interface(), nil
	case 2:
		if rt.Out(1) != errorType {
			return nil, &domain.EvaluationError{Msg: "second result must be an error", Source: source}
		}
		if err := asError(out[1]); err != nil {
			return nil, err
		}
		return out[0].Interface(), nil
	default:
		return nil, &domain.EvaluationError{Msg: fmt.Sprintf("function returns %d results", len(out)), Source: source}
	}
}

func convert(arg any, want reflect.Type) (reflect.Value, error) {
	if arg == nil {
		switch want.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(want), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot use nil as %s", want)
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(want) {
		return v, nil
	}
	if isNumeric(v.Kind()) && isNumeric(want.Kind()) {
		return v.Convert(want), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", arg, want)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}

func arityError(source string, rt reflect.Type, got int) error {
	return &domain.EvaluationError{
		Msg:    fmt.Sprintf("function %s takes %d arguments, got %d", rt, rt.NumIn(), got),
		Source: source,
	}
}

func funcName(fn any) string {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return fmt.Sprintf("%T", fn)
	}
	f := goruntime.FuncForPC(rv.Pointer())
	if f == nil {
		return "func"
	}
	name := f.Name()
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return name
}
