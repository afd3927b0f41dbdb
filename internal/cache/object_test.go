package cache

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "demoreport/internal/errors"
)

func TestObjectStore_PublishesCurrentLast(t *testing.T) {
	objects := newMemoryObjects()
	store := NewObjectStore(objects, "/demoreport/cache/", 2, nil)
	id := testIdentity("30")

	require.NoError(t, store.Store(context.Background(), sampleMatch(id)))

	require.Len(t, objects.puts, len(PartNames)+1)
	assert.Equal(t, "demoreport/cache/"+string(id)+"/CURRENT", objects.puts[len(objects.puts)-1])
	for _, key := range objects.puts[:len(PartNames)] {
		assert.True(t, strings.HasPrefix(key, "demoreport/cache/"+string(id)+"/"))
	}
}

func TestObjectStore_FailedPartLeavesNoEntry(t *testing.T) {
	objects := newMemoryObjects()
	store := NewObjectStore(objects, "cache", 2, nil)
	id := testIdentity("31")

	objects.failPut = func(key string) error {
		if strings.HasSuffix(key, PartPlayerBlinded) {
			return errors.New("connection reset")
		}
		return nil
	}

	err := store.Store(context.Background(), sampleMatch(id))
	assert.ErrorIs(t, err, apperrors.ErrCacheWrite)
	assert.False(t, store.HasEntry(context.Background(), id))

	keys, err := objects.List(context.Background(), "cache/")
	require.NoError(t, err)
	assert.Empty(t, keys, "uploaded parts of a failed write are removed")
}

func TestObjectStore_FailedPublishKeepsPreviousEntry(t *testing.T) {
	objects := newMemoryObjects()
	store := NewObjectStore(objects, "cache", 2, nil)
	ctx := context.Background()
	id := testIdentity("32")
	require.NoError(t, store.Store(ctx, sampleMatch(id)))

	objects.failPut = func(key string) error {
		if strings.HasSuffix(key, currentFile) {
			return errors.New("quota exceeded")
		}
		return nil
	}
	updated := sampleMatch(id)
	updated.Teams[0].Score = 1
	assert.Error(t, store.Store(ctx, updated))

	got, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 16, got.Teams[0].Score)
}

func TestObjectStore_PrunesSnapshots(t *testing.T) {
	objects := newMemoryObjects()
	store := NewObjectStore(objects, "cache", 1, nil)
	ctx := context.Background()
	id := testIdentity("33")

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Store(ctx, sampleMatch(id)))
	}

	snapshots, err := store.snapshots(ctx, id)
	require.NoError(t, err)
	assert.Len(t, snapshots, 1)

	_, err = store.Load(ctx, id)
	assert.NoError(t, err)
}

func TestObjectStore_CorruptPart(t *testing.T) {
	objects := newMemoryObjects()
	store := NewObjectStore(objects, "cache", 2, nil)
	ctx := context.Background()
	id := testIdentity("34")
	require.NoError(t, store.Store(ctx, sampleMatch(id)))

	for key := range objects.objects {
		if strings.HasSuffix(key, PartCore) {
			objects.objects[key] = []byte("tampered")
		}
	}

	_, err := store.Load(ctx, id)
	assert.ErrorIs(t, err, apperrors.ErrCacheCorrupt)
}
