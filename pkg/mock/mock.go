// Package mock substitutes nodes during tests without changing them.
//
//	m := mock.New()
//	m.Set(dataset, "fixture")
//	ctx, exit := m.Enter(ctx)
//	defer exit()
//
// While entered, every routed operation (evaluate, validate, keys and explain)
// on a mocked node is answered by its replacement instead. Nodes are matched
// by identity.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/eval"
	"github.com/aretw0/espalier/pkg/node"
	"github.com/aretw0/espalier/pkg/runtime"
)

// ErrAlreadyEntered is returned by Enter while the mock is active.
var ErrAlreadyEntered = errors.New("mock already entered")

// Mock maps nodes to their replacements.
type Mock struct {
	mu      sync.RWMutex
	mocked  map[domain.Node]domain.Node
	entered bool
}

func New() *Mock {
	return &Mock{mocked: make(map[domain.Node]domain.Node)}
}

// Set replaces target by replacement, which may be a node or a plain value.
// Replacements may be added while the mock is entered.
func (m *Mock) Set(target domain.Node, replacement any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mocked[target] = node.Ensure(replacement)
}

// Unset removes the replacement for target.
func (m *Mock) Unset(target domain.Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.mocked, target)
}

func (m *Mock) lookup(n domain.Node) domain.Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.mocked[n]; ok {
		return r
	}
	return n
}

// Enter activates the mock on the task carried by ctx. The returned function
// deactivates it and must be called exactly once.
func (m *Mock) Enter(ctx context.Context) (context.Context, func(), error) {
	m.mu.Lock()
	if m.entered {
		m.mu.Unlock()
		return ctx, func() {}, ErrAlreadyEntered
	}
	m.entered = true
	m.mu.Unlock()

	var reg *runtime.Registry
	reg = runtime.Current(ctx).With(runtime.Handlers{
		eval.KindEvaluate: func(ctx context.Context, req runtime.Request) (any, error) {
			r := req.(eval.EvaluateRequest)
			r.Node = m.lookup(r.Node)
			return reg.Previous().Handle(ctx, r)
		},
		eval.KindValidate: func(ctx context.Context, req runtime.Request) (any, error) {
			r := req.(eval.ValidateRequest)
			r.Node = m.lookup(r.Node)
			return reg.Previous().Handle(ctx, r)
		},
		eval.KindKeys: func(ctx context.Context, req runtime.Request) (any, error) {
			r := req.(eval.KeysRequest)
			r.Node = m.lookup(r.Node)
			return reg.Previous().Handle(ctx, r)
		},
		eval.KindExplain: func(ctx context.Context, req runtime.Request) (any, error) {
			r := req.(eval.ExplainRequest)
			r.Node = m.lookup(r.Node)
			return reg.Previous().Handle(ctx, r)
		},
	})

	ctx, exit := runtime.Enter(ctx, reg)
	return ctx, func() {
		exit()
		m.mu.Lock()
		m.entered = false
		m.mu.Unlock()
	}, nil
}
