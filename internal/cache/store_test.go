package cache

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "demoreport/internal/errors"
	"demoreport/pkg/contracts/domain"
)

type backendFactory struct {
	name string
	open func(t *testing.T) Store
}

func backends() []backendFactory {
	return []backendFactory{
		{"file", func(t *testing.T) Store {
			s, err := NewFileStore(t.TempDir(), 2, nil)
			require.NoError(t, err)
			return s
		}},
		{"sqlite", func(t *testing.T) Store {
			s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "cache.db"), nil)
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		}},
		{"object", func(t *testing.T) Store {
			return NewObjectStore(newMemoryObjects(), "demoreport/cache", 2, nil)
		}},
		{"bloom+file", func(t *testing.T) Store {
			inner, err := NewFileStore(t.TempDir(), 2, nil)
			require.NoError(t, err)
			s, err := NewBloomIndex(context.Background(), inner, 1000, 0.01, nil)
			require.NoError(t, err)
			return s
		}},
	}
}

func TestStoreContract_RoundTrip(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			store := b.open(t)
			id := testIdentity("10")

			assert.False(t, store.HasEntry(ctx, id))
			require.NoError(t, store.Store(ctx, sampleMatch(id)))
			assert.True(t, store.HasEntry(ctx, id))

			got, err := store.Load(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, id, got.Identity)
			assert.Len(t, got.WeaponFired, 2)
			assert.Len(t, got.PlayerBlinded, 1)
			assert.Equal(t, "Alpha", got.Teams[0].Name)
		})
	}
}

func TestStoreContract_NotFound(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			store := b.open(t)

			_, err := store.Load(ctx, testIdentity("11"))
			assert.ErrorIs(t, err, apperrors.ErrNotFound)

			err = store.Delete(ctx, testIdentity("11"))
			assert.ErrorIs(t, err, apperrors.ErrNotFound)
		})
	}
}

func TestStoreContract_Overwrite(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			store := b.open(t)
			id := testIdentity("12")

			first := sampleMatch(id)
			require.NoError(t, store.Store(ctx, first))

			second := sampleMatch(id)
			second.Teams[0].Score = 13
			second.WeaponFired = second.WeaponFired[:1]
			for i := 0; i < 3; i++ {
				require.NoError(t, store.Store(ctx, second))
			}

			got, err := store.Load(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, 13, got.Teams[0].Score)
			assert.Len(t, got.WeaponFired, 1)
		})
	}
}

func TestStoreContract_ListAndDelete(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			store := b.open(t)
			a, c := testIdentity("aa"), testIdentity("cc")

			require.NoError(t, store.Store(ctx, sampleMatch(a)))
			require.NoError(t, store.Store(ctx, sampleMatch(c)))

			ids, err := store.List(ctx)
			require.NoError(t, err)
			assert.ElementsMatch(t, []domain.MatchIdentity{a, c}, ids)

			require.NoError(t, store.Delete(ctx, a))
			assert.False(t, store.HasEntry(ctx, a))
			_, err = store.Load(ctx, a)
			assert.ErrorIs(t, err, apperrors.ErrNotFound)

			ids, err = store.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []domain.MatchIdentity{c}, ids)
		})
	}
}

func TestStoreContract_RejectsUnsafeIdentity(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			store := b.open(t)
			err := store.Store(context.Background(), sampleMatch("../escape"))
			assert.ErrorIs(t, err, apperrors.ErrCacheWrite)
		})
	}
}

func TestStoreContract_ConcurrentLoadDuringStore(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			store := b.open(t)
			id := testIdentity("13")
			require.NoError(t, store.Store(ctx, sampleMatch(id)))

			var wg sync.WaitGroup
			for i := 0; i < 4; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < 10; j++ {
						got, err := store.Load(ctx, id)
						if assert.NoError(t, err) {
							assert.Len(t, got.PlayerBlinded, 1)
						}
					}
				}()
			}
			for i := 0; i < 10; i++ {
				require.NoError(t, store.Store(ctx, sampleMatch(id)))
			}
			wg.Wait()
		})
	}
}

func TestStore_CancelledLoad(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			_, err := b.open(t).Load(ctx, testIdentity("14"))
			assert.True(t, apperrors.IsCancelled(err))
		})
	}
}
