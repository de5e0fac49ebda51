package cache

import (
	"context"
	"errors"

	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/aretw0/espalier/pkg/runtime"
)

const (
	KindExists runtime.Kind = "espalier.cache.exists"
	KindGet    runtime.Kind = "espalier.cache.get"
	KindSet    runtime.Kind = "espalier.cache.set"
)

// ExistsRequest asks whether Store holds an entry for Fingerprint.
type ExistsRequest struct {
	Fingerprint ports.Fingerprint
	Config      config.Config
	Store       ports.Store
}

func (ExistsRequest) Kind() runtime.Kind { return KindExists }

// GetRequest reads the entry for Fingerprint from Store.
type GetRequest struct {
	Fingerprint ports.Fingerprint
	Config      config.Config
	Store       ports.Store
}

func (GetRequest) Kind() runtime.Kind { return KindGet }

// SetRequest stores Value for Fingerprint. The handler answers with the value
// as read back from the store.
type SetRequest struct {
	Fingerprint ports.Fingerprint
	Config      config.Config
	Store       ports.Store
	Value       any
}

func (SetRequest) Kind() runtime.Kind { return KindSet }

func init() {
	runtime.HandleByDefault(KindExists, func(ctx context.Context, req runtime.Request) (any, error) {
		r := req.(ExistsRequest)
		return r.Store.Exists(ctx, r.Fingerprint)
	})
	runtime.HandleByDefault(KindGet, func(ctx context.Context, req runtime.Request) (any, error) {
		r := req.(GetRequest)
		return r.Store.Get(ctx, r.Fingerprint)
	})
	runtime.HandleByDefault(KindSet, func(ctx context.Context, req runtime.Request) (any, error) {
		r := req.(SetRequest)
		if err := r.Store.Set(ctx, r.Fingerprint, r.Value); err != nil {
			return nil, err
		}
		v, err := r.Store.Get(ctx, r.Fingerprint)
		if errors.Is(err, domain.ErrCacheMiss) {
			return r.Value, nil
		}
		return v, err
	})
}

// Disabled returns overrides that bypass every store: nothing exists, nothing
// is read and writes are dropped.
//
//	ctx, exit := runtime.Scope(ctx, cache.Disabled())
//	defer exit()
func Disabled() runtime.Handlers {
	return runtime.Handlers{
		KindExists: func(context.Context, runtime.Request) (any, error) {
			return false, nil
		},
		KindGet: func(context.Context, runtime.Request) (any, error) {
			return nil, domain.ErrCacheMiss
		},
		KindSet: func(_ context.Context, req runtime.Request) (any, error) {
			return req.(SetRequest).Value, nil
		},
	}
}

func exists(ctx context.Context, req ExistsRequest) (bool, error) {
	v, err := runtime.Handle(ctx, req)
	if err != nil {
		return false, err
	}
	ok, _ := v.(bool)
	return ok, nil
}

func handleGet(ctx context.Context, req GetRequest) (any, error) {
	return runtime.Handle(ctx, req)
}

func handleSet(ctx context.Context, req SetRequest) (any, error) {
	return runtime.Handle(ctx, req)
}
