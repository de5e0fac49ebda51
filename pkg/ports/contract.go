package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreContract runs a suite of tests to verify that a Store implementation
// adheres to the defined interface contract. Stores that also implement
// Invalidator are checked for the invalidation signal.
func RunStoreContract(t *testing.T, store Store) {
	ctx := context.Background()
	prefix := fmt.Sprintf("contract-%d-", time.Now().UnixNano())
	fp := func(name string) Fingerprint { return Fingerprint(prefix + name) }

	t.Run("Set and Get", func(t *testing.T) {
		value := map[string]any{"name": "bob", "tags": []any{"a", "b"}, "ok": true}

		require.NoError(t, store.Set(ctx, fp("set"), value), "Set should not return error")

		exists, err := store.Exists(ctx, fp("set"))
		require.NoError(t, err)
		assert.True(t, exists)

		loaded, err := store.Get(ctx, fp("set"))
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, value, loaded)
	})

	t.Run("Get Missing", func(t *testing.T) {
		exists, err := store.Exists(ctx, fp("missing"))
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = store.Get(ctx, fp("missing"))
		assert.ErrorIs(t, err, domain.ErrCacheMiss)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, fp("overwrite"), "first"))
		require.NoError(t, store.Set(ctx, fp("overwrite"), "second"))

		loaded, err := store.Get(ctx, fp("overwrite"))
		require.NoError(t, err)
		assert.Equal(t, "second", loaded)
	})

	inv, ok := store.(Invalidator)
	if !ok {
		return
	}

	t.Run("Invalidate", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, fp("invalid"), "stale"))
		require.NoError(t, inv.Invalidate(ctx, fp("invalid")))

		_, err := store.Exists(ctx, fp("invalid"))
		assert.ErrorIs(t, err, domain.ErrInvalidated, "first access should report invalidation")

		exists, err := store.Exists(ctx, fp("invalid"))
		require.NoError(t, err, "invalidation is reported once")
		assert.False(t, exists)

		require.NoError(t, store.Set(ctx, fp("invalid"), "fresh"))
		loaded, err := store.Get(ctx, fp("invalid"))
		require.NoError(t, err)
		assert.Equal(t, "fresh", loaded)
	})

	t.Run("Invalidate Get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, fp("invalid-get"), "stale"))
		require.NoError(t, inv.Invalidate(ctx, fp("invalid-get")))

		_, err := store.Get(ctx, fp("invalid-get"))
		assert.ErrorIs(t, err, domain.ErrInvalidated)

		_, err = store.Get(ctx, fp("invalid-get"))
		assert.ErrorIs(t, err, domain.ErrCacheMiss)
	})
}
