package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/aretw0/espalier/pkg/adapters/memory"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunStoreContract(t, store)
}

func TestMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	value := map[string]any{"list": []any{1, 2}}
	require.NoError(t, store.Set(ctx, "fp", value))
	value["list"].([]any)[0] = 99

	loaded, err := store.Get(ctx, "fp")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.(map[string]any)["list"].([]any)[0])

	loaded.(map[string]any)["list"] = nil
	again, err := store.Get(ctx, "fp")
	require.NoError(t, err)
	assert.NotNil(t, again.(map[string]any)["list"])
}

func TestMemoryStore_ClearAndDelete(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	require.NoError(t, store.Set(ctx, "a", 1))
	require.NoError(t, store.Set(ctx, "b", 2))
	require.NoError(t, store.Delete(ctx, "a"))
	assert.Equal(t, 1, store.Len())

	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	store.Clear()
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fp := ports.Fingerprint(fmt.Sprintf("fp-%d", i%5))
			for j := 0; j < 50; j++ {
				_ = store.Set(ctx, fp, j)
				_, _ = store.Exists(ctx, fp)
				_, _ = store.Get(ctx, fp)
				if j%10 == 0 {
					_ = store.Invalidate(ctx, fp)
				}
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, store.Len(), 5)
}
