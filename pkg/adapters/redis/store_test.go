package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/espalier/pkg/adapters/redis"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err, "Failed to start miniredis")
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := setup(t)
	store := redis.NewFromClient(client)
	ports.RunStoreContract(t, store)
}

func TestRedisStore_NormalizesThroughJSON(t *testing.T) {
	_, client := setup(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "fp", map[string]int{"n": 1}))
	v, err := store.Get(ctx, "fp")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": float64(1)}, v)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "fp-ttl", "value"))
	exists, err := store.Exists(ctx, "fp-ttl")
	require.NoError(t, err)
	assert.True(t, exists)

	mr.FastForward(2 * time.Second)

	_, err = store.Get(ctx, "fp-ttl")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "my-fp", "v"))
	assert.True(t, mr.Exists("custom:app:my-fp"), "Expected key with custom prefix to exist")

	require.NoError(t, store.Invalidate(ctx, "my-fp"))
	assert.False(t, mr.Exists("custom:app:my-fp"))
	assert.True(t, mr.Exists("custom:app:invalid:my-fp"))
}

func TestRedisStore_Clear(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewFromClient(client, redis.WithPrefix("c:"))
	ctx := context.Background()

	require.NoError(t, mr.Set("other", "kept"))
	for _, fp := range []ports.Fingerprint{"a", "b", "c"} {
		require.NoError(t, store.Set(ctx, fp, string(fp)))
	}
	require.NoError(t, store.Invalidate(ctx, "b"))

	require.NoError(t, store.Clear(ctx))
	exists, err := store.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = store.Exists(ctx, "b")
	require.NoError(t, err, "clearing drops pending invalidations")
	assert.False(t, exists)
	assert.True(t, mr.Exists("other"))
}
