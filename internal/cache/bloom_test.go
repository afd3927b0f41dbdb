package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demoreport/pkg/contracts/domain"
)

// backendStore lets countingStore embed Store without the field name
// shadowing the promoted Store method.
type backendStore = Store

// countingStore records HasEntry calls reaching the backend
type countingStore struct {
	backendStore
	hasEntryCalls int
}

func (c *countingStore) HasEntry(ctx context.Context, id domain.MatchIdentity) bool {
	c.hasEntryCalls++
	return c.backendStore.HasEntry(ctx, id)
}

func TestBloomIndex_WarmsFromBackend(t *testing.T) {
	ctx := context.Background()
	backend := NewObjectStore(newMemoryObjects(), "cache", 2, nil)
	known := testIdentity("40")
	require.NoError(t, backend.Store(ctx, sampleMatch(known)))

	counting := &countingStore{backendStore: backend}
	index, err := NewBloomIndex(ctx, counting, 100, 0.001, nil)
	require.NoError(t, err)

	assert.True(t, index.MayContain(known))
	assert.True(t, index.HasEntry(ctx, known))
	assert.Equal(t, 1, counting.hasEntryCalls)

	assert.False(t, index.HasEntry(ctx, testIdentity("41")))
	assert.Equal(t, 1, counting.hasEntryCalls, "negative lookups never reach the backend")
}

func TestBloomIndex_StoreAddsIdentity(t *testing.T) {
	ctx := context.Background()
	backend, err := NewFileStore(t.TempDir(), 2, nil)
	require.NoError(t, err)
	index, err := NewBloomIndex(ctx, backend, 100, 0.001, nil)
	require.NoError(t, err)

	id := testIdentity("42")
	assert.False(t, index.MayContain(id))
	require.NoError(t, index.Store(ctx, sampleMatch(id)))
	assert.True(t, index.MayContain(id))
	assert.True(t, index.HasEntry(ctx, id))

	require.NoError(t, index.Delete(ctx, id))
	assert.False(t, index.HasEntry(ctx, id), "deleted entries fall through to the backend")
	assert.Same(t, backend, index.Unwrap())
	assert.Equal(t, "file", index.Name())
}
