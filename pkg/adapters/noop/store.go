// Package noop provides a store that never holds anything.
package noop

import (
	"context"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

// Store implements ports.Store without storing. Cached nodes backed by it
// recompute on every evaluation.
type Store struct{}

// NewStore returns a no-op store.
func NewStore() Store { return Store{} }

func (Store) Exists(context.Context, ports.Fingerprint) (bool, error) { return false, nil }

func (Store) Get(context.Context, ports.Fingerprint) (any, error) { return nil, domain.ErrCacheMiss }

func (Store) Set(context.Context, ports.Fingerprint, any) error { return nil }
