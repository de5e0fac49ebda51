package node

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/eval"
)

// ResolveFlag is the configuration path that, when set to false, makes
// options return raw values without template interpolation.
const ResolveFlag = "ESPALIER.OPTIONS.RESOLVE"

// OptionNode reads one configuration path.
type OptionNode struct {
	key       string
	def       domain.Node
	allowed   any
	domainSrc string
	doc       string
}

// OptionOpt configures an OptionNode.
type OptionOpt func(*OptionNode)

// OptionDefault sets the value returned when the key is absent. A string
// default is treated as a template; a node is evaluated.
func OptionDefault(v any) OptionOpt {
	return func(o *OptionNode) {
		if s, ok := v.(string); ok {
			o.def = newTemplate(s, nil)
			return
		}
		o.def = Ensure(v)
	}
}

// OptionDefaultFunc sets a function called to produce the default.
func OptionDefaultFunc(fn func() (any, error)) OptionOpt {
	return func(o *OptionNode) {
		o.def = Call(fn)
	}
}

// OptionDomain constrains the resolved value. d is a func(any) bool
// predicate, a []any of allowed values, or a node evaluating to either.
func OptionDomain(d any) OptionOpt {
	return func(o *OptionNode) {
		o.allowed = d
		switch v := d.(type) {
		case domain.Node:
			o.domainSrc = v.String()
		case func(any) bool:
			o.domainSrc = "predicate"
		default:
			o.domainSrc = quote(d)
		}
	}
}

// OptionDoc attaches a description shown by introspection tools.
func OptionDoc(doc string) OptionOpt {
	return func(o *OptionNode) {
		o.doc = doc
	}
}

// Option returns a node that evaluates to the value at key, with templates
// resolved against the whole configuration.
func Option(key string, opts ...OptionOpt) *OptionNode {
	o := &OptionNode{key: key}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Key returns the configuration path read by the option.
func (o *OptionNode) Key() string { return o.key }

// Doc returns the option's description.
func (o *OptionNode) Doc() string { return o.doc }

// Set returns a copy of cfg with the option's key set to v.
func (o *OptionNode) Set(cfg config.Config, v any) config.Config {
	return cfg.Set(o.key, v)
}

func resolving(cfg config.Config) bool {
	v, ok := cfg.Lookup(ResolveFlag)
	if !ok {
		return true
	}
	b, isBool := v.(bool)
	return !isBool || b
}

func (o *OptionNode) Evaluate(ctx context.Context, cfg config.Config) (any, error) {
	var (
		value any
		err   error
	)
	switch {
	case cfg.Exists(o.key):
		if resolving(cfg) {
			value, err = cfg.Resolve(o.key)
			err = domain.FromConfig(err, o.String())
		} else {
			value, _ = cfg.Lookup(o.key)
		}
	case o.def != nil:
		value, err = eval.Evaluate(ctx, o.def, cfg)
	default:
		err = &domain.KeyNotFoundError{Key: o.key, Source: o.String()}
	}
	if err != nil {
		return nil, err
	}
	if err := o.checkDomain(ctx, cfg, value); err != nil {
		return nil, err
	}
	return value, nil
}

func (o *OptionNode) Validate(ctx context.Context, cfg config.Config) error {
	switch {
	case cfg.Exists(o.key):
		if resolving(cfg) {
			raw, _ := cfg.Lookup(o.key)
			if _, err := cfg.References(raw); err != nil {
				return domain.Invalid(o.fromConfig(err))
			}
		}
	case o.def != nil:
		if err := eval.Validate(ctx, o.def, cfg); err != nil {
			return err
		}
	default:
		return domain.Invalid(&domain.KeyNotFoundError{Key: o.key, Source: o.String()})
	}
	if n, ok := o.allowed.(domain.Node); ok {
		return eval.Validate(ctx, n, cfg)
	}
	return nil
}

func (o *OptionNode) Keys(ctx context.Context, cfg config.Config) (domain.KeySet, error) {
	var keys domain.KeySet
	switch {
	case cfg.Exists(o.key):
		keys = domain.NewKeySet(o.key)
		if resolving(cfg) {
			raw, _ := cfg.Lookup(o.key)
			refs, err := cfg.References(raw)
			if err != nil {
				return nil, o.fromConfig(err)
			}
			keys.Add(refs...)
		}
	case o.def != nil:
		var err error
		if keys, err = eval.Keys(ctx, o.def, cfg); err != nil {
			return nil, err
		}
	default:
		return nil, &domain.KeyNotFoundError{Key: o.key, Source: o.String()}
	}
	if n, ok := o.allowed.(domain.Node); ok {
		domainKeys, err := eval.Keys(ctx, n, cfg)
		if err != nil {
			return nil, err
		}
		keys = keys.Union(domainKeys)
	}
	return keys, nil
}

func (o *OptionNode) Explain(ctx context.Context, cfg config.Config) (domain.Explanation, error) {
	var explanation domain.Explanation
	switch {
	case cfg.Exists(o.key):
		keys := domain.NewKeySet(o.key)
		if resolving(cfg) {
			raw, _ := cfg.Lookup(o.key)
			refs, err := cfg.ExplainReferences(raw)
			if err != nil {
				return domain.Explanation{}, o.fromConfig(err)
			}
			keys.Add(refs...)
		}
		explanation = domain.Explained(keys)
	case o.def != nil:
		var err error
		if explanation, err = eval.Explain(ctx, o.def, cfg); err != nil {
			return domain.Explanation{}, err
		}
	default:
		explanation = domain.Explained(domain.NewKeySet(o.key))
	}
	if n, ok := o.allowed.(domain.Node); ok {
		domainExplanation, err := eval.Explain(ctx, n, cfg)
		if err != nil {
			return domain.Explanation{}, err
		}
		explanation = explanation.Merge(domainExplanation)
	}
	return explanation, nil
}

func (o *OptionNode) fromConfig(err error) error {
	return domain.FromConfig(err, o.String())
}

func (o *OptionNode) checkDomain(ctx context.Context, cfg config.Config, value any) error {
	if o.allowed == nil {
		return nil
	}
	d := o.allowed
	if n, ok := d.(domain.Node); ok {
		var err error
		if d, err = eval.Evaluate(ctx, n, cfg); err != nil {
			return err
		}
	}

	var ok bool
	switch check := d.(type) {
	case func(any) bool:
		ok = check(value)
	case []any:
		for _, allowed := range check {
			if reflect.DeepEqual(allowed, value) {
				ok = true
				break
			}
		}
	default:
		return &domain.EvaluationError{
			Msg:    fmt.Sprintf("domain %s must be a predicate or a list of values", o.domainSrc),
			Source: o.String(),
		}
	}
	if !ok {
		return &domain.DomainError{Key: o.key, Value: value, Source: o.String()}
	}
	return nil
}

func (o *OptionNode) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Option(%q", o.key)
	if o.def != nil {
		fmt.Fprintf(&b, ", default=%s", o.def)
	}
	if o.allowed != nil {
		fmt.Fprintf(&b, ", domain=%s", o.domainSrc)
	}
	b.WriteString(")")
	return b.String()
}
