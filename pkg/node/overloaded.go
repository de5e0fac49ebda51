package node

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/domain"
)

// OverloadedNode is a Switch whose table can grow after construction.
//
// Registrations copy the table, build a new SwitchNode from the copy and
// publish it atomically. Evaluations load the published switch once, so they
// see the table either before or after any registration, never in between.
type OverloadedNode struct {
	selector domain.Node
	opts     []SwitchOpt

	mu      sync.Mutex
	current atomic.Pointer[SwitchNode]
}

// Overloaded returns an open dispatch node with an empty table. A string
// selector is read as an Option path; opts may set a default branch.
func Overloaded(selector any, opts ...SwitchOpt) *OverloadedNode {
	o := &OverloadedNode{selector: selectorNode(selector), opts: opts}
	o.current.Store(newSwitch(o.selector, map[any]domain.Node{}, opts...))
	return o
}

// Register maps key to impl. Registering an existing key replaces it.
func (o *OverloadedNode) Register(key, impl any) error {
	return o.RegisterAll([]any{key}, impl)
}

// RegisterAll maps every key in keys to impl in a single update.
func (o *OverloadedNode) RegisterAll(keys []any, impl any) error {
	for _, k := range keys {
		if k == nil || !hashable(k) {
			return fmt.Errorf("dispatch key %v of type %T is not comparable", k, k)
		}
	}
	n := Ensure(impl)

	o.mu.Lock()
	defer o.mu.Unlock()

	prev := o.current.Load()
	table := make(map[any]domain.Node, len(prev.table)+len(keys))
	for k, v := range prev.table {
		table[k] = v
	}
	for _, k := range keys {
		table[k] = n
	}
	o.current.Store(newSwitch(o.selector, table, o.opts...))
	return nil
}

// Table returns a snapshot of the registered implementations.
func (o *OverloadedNode) Table() map[any]domain.Node {
	sw := o.current.Load()
	out := make(map[any]domain.Node, len(sw.table))
	for k, v := range sw.table {
		out[k] = v
	}
	return out
}

func (o *OverloadedNode) Evaluate(ctx context.Context, cfg config.Config) (any, error) {
	return o.current.Load().Evaluate(ctx, cfg)
}

func (o *OverloadedNode) Validate(ctx context.Context, cfg config.Config) error {
	return o.current.Load().Validate(ctx, cfg)
}

func (o *OverloadedNode) Keys(ctx context.Context, cfg config.Config) (domain.KeySet, error) {
	return o.current.Load().Keys(ctx, cfg)
}

func (o *OverloadedNode) Explain(ctx context.Context, cfg config.Config) (domain.Explanation, error) {
	return o.current.Load().Explain(ctx, cfg)
}

func (o *OverloadedNode) String() string {
	sw := o.current.Load()
	return "Overloaded" + sw.String()[len("Switch"):]
}
