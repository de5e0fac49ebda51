package node

import (
	"context"
	"fmt"

	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/eval"
)

// WithOptionsNode evaluates a node under a configuration merged with a fixed
// overlay.
type WithOptionsNode struct {
	node    domain.Node
	overlay config.Config
	force   bool
}

// WithOptions evaluates n with overlay merged over the caller's
// configuration when force is true, or under it when force is false.
func WithOptions(n any, overlay map[string]any, force bool) *WithOptionsNode {
	return &WithOptionsNode{node: Ensure(n), overlay: config.New(overlay), force: force}
}

// WithDefaultOptions is WithOptions with force false: the caller's
// configuration wins.
func WithDefaultOptions(n any, overlay map[string]any) *WithOptionsNode {
	return WithOptions(n, overlay, false)
}

func (w *WithOptionsNode) merged(cfg config.Config) config.Config {
	if w.force {
		return cfg.Overlay(w.overlay)
	}
	return w.overlay.Overlay(cfg)
}

// hidden reports whether path is supplied by the overlay rather than by the
// caller, and so should not be reported as a dependency.
func (w *WithOptionsNode) hidden(path string, cfg config.Config) bool {
	return w.overlay.Exists(path) && (w.force || !cfg.Exists(path))
}

func (w *WithOptionsNode) filter(keys domain.KeySet, cfg config.Config) domain.KeySet {
	out := domain.KeySet{}
	for k := range keys {
		if !w.hidden(k, cfg) {
			out.Add(k)
		}
	}
	return out
}

func (w *WithOptionsNode) Evaluate(ctx context.Context, cfg config.Config) (any, error) {
	return eval.Evaluate(ctx, w.node, w.merged(cfg))
}

func (w *WithOptionsNode) Validate(ctx context.Context, cfg config.Config) error {
	return eval.Validate(ctx, w.node, w.merged(cfg))
}

func (w *WithOptionsNode) Keys(ctx context.Context, cfg config.Config) (domain.KeySet, error) {
	keys, err := eval.Keys(ctx, w.node, w.merged(cfg))
	if err != nil {
		return nil, err
	}
	return w.filter(keys, cfg), nil
}

func (w *WithOptionsNode) Explain(ctx context.Context, cfg config.Config) (domain.Explanation, error) {
	e, err := eval.Explain(ctx, w.node, w.merged(cfg))
	if err != nil || !e.Sufficient() {
		return e, err
	}
	return domain.Explained(w.filter(e.Keys, cfg)), nil
}

func (w *WithOptionsNode) String() string {
	name := "WithOptions"
	if !w.force {
		name = "WithDefaultOptions"
	}
	return fmt.Sprintf("%s(%s, %v)", name, w.node, w.overlay.Raw())
}

// AllOptionsNode evaluates to the whole configuration with every template
// resolved.
type AllOptionsNode struct{}

// AllOptions returns a node evaluating to the interpolated configuration.
func AllOptions() *AllOptionsNode {
	return &AllOptionsNode{}
}

func (a *AllOptionsNode) Evaluate(_ context.Context, cfg config.Config) (any, error) {
	v, err := cfg.Interpolate(cfg.Raw())
	if err != nil {
		return nil, domain.FromConfig(err, a.String())
	}
	return v, nil
}

func (a *AllOptionsNode) Validate(ctx context.Context, cfg config.Config) error {
	_, err := a.Evaluate(ctx, cfg)
	return domain.Invalid(err)
}

func (a *AllOptionsNode) Keys(_ context.Context, cfg config.Config) (domain.KeySet, error) {
	return domain.NewKeySet(cfg.Keys()...), nil
}

func (a *AllOptionsNode) Explain(_ context.Context, cfg config.Config) (domain.Explanation, error) {
	return domain.Explained(domain.NewKeySet(cfg.Keys()...)), nil
}

func (a *AllOptionsNode) String() string {
	return "AllOptions"
}
