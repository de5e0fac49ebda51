package middleware_test

import (
	"context"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

// MockStore is a simple map-based store for testing middleware. It keeps
// values by reference so tests can inspect what reached it.
type MockStore struct {
	data map[ports.Fingerprint]any
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[ports.Fingerprint]any),
	}
}

func (s *MockStore) Exists(ctx context.Context, fp ports.Fingerprint) (bool, error) {
	_, ok := s.data[fp]
	return ok, nil
}

func (s *MockStore) Get(ctx context.Context, fp ports.Fingerprint) (any, error) {
	v, ok := s.data[fp]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return v, nil
}

func (s *MockStore) Set(ctx context.Context, fp ports.Fingerprint, value any) error {
	s.data[fp] = value
	return nil
}

var _ ports.Store = (*MockStore)(nil)
