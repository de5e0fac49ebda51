package domain

import (
	"context"

	"github.com/aretw0/espalier/pkg/config"
)

// Node is a reusable description of a derivation. The same node may be
// evaluated concurrently against any number of configurations, so
// implementations must not keep per-call state.
//
// Composite nodes reach their children through pkg/eval rather than by
// calling these methods directly, which keeps every child operation visible to
// the routing kernel.
type Node interface {
	// Evaluate produces the node's value under cfg.
	Evaluate(ctx context.Context, cfg config.Config) (any, error)
	// Validate fails with a validation-class error wherever Evaluate would fail
	// because of missing configuration. It must not have side effects.
	Validate(ctx context.Context, cfg config.Config) error
	// Keys reports the configuration paths that influence evaluation under cfg.
	Keys(ctx context.Context, cfg config.Config) (KeySet, error)
	// Explain is a lenient Keys. When the relevant paths cannot be determined
	// the returned Explanation carries an insufficient-information marker
	// instead of an error.
	Explain(ctx context.Context, cfg config.Config) (Explanation, error)
	String() string
}
