// Package registry holds named Go functions that graph documents can call.
package registry

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/eval"
	"github.com/aretw0/espalier/pkg/node"
)

// Registry manages the available functions.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]any
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		funcs: make(map[string]any),
	}
}

// Register adds fn under name. fn must be a Go function returning a value or
// a value and an error. If a function with the same name exists, it is
// overwritten.
func (r *Registry) Register(name string, fn any) error {
	rt := reflect.TypeOf(fn)
	if rt == nil || rt.Kind() != reflect.Func {
		return fmt.Errorf("function %q: expected a func, got %T", name, fn)
	}
	if rt.NumOut() < 1 || rt.NumOut() > 2 {
		return fmt.Errorf("function %q: must return a value and optionally an error", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
	return nil
}

// MustRegister is like Register but panics on an invalid function.
func (r *Registry) MustRegister(name string, fn any) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns the registered names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute looks up a function by name and calls it with args.
// Returns an error if the function is not found.
func (r *Registry) Execute(ctx context.Context, name string, args ...any) (any, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("function not found: %s", name)
	}
	return eval.Evaluate(ctx, node.Call(fn, args...).Named(name), config.Empty())
}
