package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/mitchellh/copystructure"
)

type entry struct {
	value       any
	invalidated bool
}

// Store implements ports.Store in memory for the lifetime of the process.
// Safe for concurrent use.
type Store struct {
	data map[ports.Fingerprint]*entry
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[ports.Fingerprint]*entry),
	}
}

// Exists reports whether a value is stored for fp.
func (s *Store) Exists(ctx context.Context, fp ports.Fingerprint) (bool, error) {
	_, ok, err := s.load(fp)
	return ok, err
}

// Get retrieves a copy of the value stored for fp.
func (s *Store) Get(ctx context.Context, fp ports.Fingerprint) (any, error) {
	v, ok, err := s.load(fp)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return copystructure.Copy(v)
}

// load consumes a pending invalidation.
func (s *Store) load(fp ports.Fingerprint) (any, bool, error) {
	s.mu.RLock()
	e, ok := s.data[fp]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.invalidated {
		return e.value, true, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another reader may have consumed the signal in between.
	if cur, ok := s.data[fp]; !ok || cur != e {
		return nil, false, nil
	}
	delete(s.data, fp)
	return nil, false, domain.ErrInvalidated
}

// Set stores a copy of value for fp.
func (s *Store) Set(ctx context.Context, fp ports.Fingerprint, value any) error {
	copied, err := copystructure.Copy(value)
	if err != nil {
		return fmt.Errorf("failed to copy cached value: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[fp] = &entry{value: copied}
	return nil
}

// Invalidate marks fp so its next access reports domain.ErrInvalidated.
func (s *Store) Invalidate(ctx context.Context, fp ports.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[fp] = &entry{invalidated: true}
	return nil
}

// Delete removes the entry for fp without signalling invalidation.
func (s *Store) Delete(ctx context.Context, fp ports.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, fp)
	return nil
}

// Clear removes every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[ports.Fingerprint]*entry)
}

// Len returns the number of stored entries, pending invalidations included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
