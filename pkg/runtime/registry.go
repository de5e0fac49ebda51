package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Kind identifies a request type.
type Kind string

// Request is an immutable payload routed to the handler registered for its
// Kind.
type Request interface {
	Kind() Kind
}

// Handler answers a request.
type Handler func(ctx context.Context, req Request) (any, error)

// Handlers is a set of per-kind overrides.
type Handlers map[Kind]Handler

// ErrUnhandledRequest is matched by every *UnhandledRequestError.
var ErrUnhandledRequest = errors.New("unhandled request")

// UnhandledRequestError is returned when no registry in scope, nor the
// process-wide defaults, has a handler for a request kind. It indicates a
// missing registration, not a data problem.
type UnhandledRequestError struct {
	Kind Kind
}

func (e *UnhandledRequestError) Error() string {
	return fmt.Sprintf("no handler registered for request kind %q", e.Kind)
}

func (e *UnhandledRequestError) Is(target error) bool {
	return target == ErrUnhandledRequest
}

// Registry maps request kinds to handlers. Registries are immutable once
// built, except for the process-wide default registry.
type Registry struct {
	handlers Handlers
	parent   *Registry
}

var (
	defaultsMu sync.RWMutex
	defaults   = &Registry{handlers: Handlers{}}
)

// HandleByDefault installs h as the process-wide default handler for kind,
// replacing any previous default. Packages that define request kinds call it
// from init.
func HandleByDefault(kind Kind, h Handler) {
	defaultsMu.Lock()
	defer defaultsMu.Unlock()
	defaults.handlers[kind] = h
}

// Default returns the registry of process-wide defaults.
func Default() *Registry {
	return defaults
}

// With derives a registry that answers the kinds in overrides itself and
// delegates everything else to r.
func (r *Registry) With(overrides Handlers) *Registry {
	handlers := make(Handlers, len(overrides))
	for k, h := range overrides {
		handlers[k] = h
	}
	return &Registry{handlers: handlers, parent: r}
}

// Previous returns the registry r was derived from. The default registry has
// no predecessor and returns itself.
func (r *Registry) Previous() *Registry {
	if r.parent == nil {
		return defaults
	}
	return r.parent
}

// Lookup finds the handler for kind, walking towards the defaults.
func (r *Registry) Lookup(kind Kind) (Handler, bool) {
	for reg := r; reg != nil; reg = reg.parent {
		if h, ok := reg.own(kind); ok {
			return h, true
		}
	}
	if r != defaults {
		return defaults.own(kind)
	}
	return nil, false
}

func (r *Registry) own(kind Kind) (Handler, bool) {
	if r == defaults {
		defaultsMu.RLock()
		defer defaultsMu.RUnlock()
	}
	h, ok := r.handlers[kind]
	return h, ok
}

// Handle routes req to the handler r resolves for its kind.
func (r *Registry) Handle(ctx context.Context, req Request) (any, error) {
	h, ok := r.Lookup(req.Kind())
	if !ok {
		return nil, &UnhandledRequestError{Kind: req.Kind()}
	}
	return h(ctx, req)
}

// Handle routes req through the registry active for the task carried by ctx.
func Handle(ctx context.Context, req Request) (any, error) {
	return Current(ctx).Handle(ctx, req)
}
