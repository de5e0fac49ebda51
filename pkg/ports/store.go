package ports

import (
	"context"
)

// Fingerprint identifies a cache entry. It is derived from the configuration
// values a node depends on; see cache.Fingerprint.
type Fingerprint string

// Store defines the storage used by cached nodes.
// Implementations must be safe for concurrent use.
type Store interface {
	// Exists reports whether a value is stored for fp.
	// Returns domain.ErrInvalidated if the entry was invalidated.
	Exists(ctx context.Context, fp Fingerprint) (bool, error)

	// Get retrieves the value stored for fp.
	// Returns domain.ErrCacheMiss if there is none and domain.ErrInvalidated
	// if the entry was invalidated.
	Get(ctx context.Context, fp Fingerprint) (any, error)

	// Set stores value for fp, replacing any previous value.
	Set(ctx context.Context, fp Fingerprint, value any) error
}

// Invalidator is implemented by stores that support explicit invalidation.
// An invalidated entry is reported as domain.ErrInvalidated by the next Exists
// or Get, after which it is gone.
type Invalidator interface {
	Invalidate(ctx context.Context, fp Fingerprint) error
}
