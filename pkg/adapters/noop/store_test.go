package noop_test

import (
	"context"
	"testing"

	"github.com/aretw0/espalier/pkg/adapters/noop"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopStore(t *testing.T) {
	ctx := context.Background()
	store := noop.NewStore()

	require.NoError(t, store.Set(ctx, "fp", 1))
	exists, err := store.Exists(ctx, "fp")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Get(ctx, "fp")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}
