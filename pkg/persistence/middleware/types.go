package middleware

import (
	"context"

	"github.com/aretw0/espalier/pkg/ports"
)

// Middleware allows wrapping a Store to add behavior.
type Middleware func(ports.Store) ports.Store

// Chain applies mws to store so the first middleware is the outermost.
func Chain(store ports.Store, mws ...Middleware) ports.Store {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

// invalidate forwards to next when it supports invalidation.
func invalidate(ctx context.Context, next ports.Store, fp ports.Fingerprint) error {
	inv, ok := next.(ports.Invalidator)
	if !ok {
		return nil
	}
	return inv.Invalidate(ctx, fp)
}
