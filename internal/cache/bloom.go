package cache

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"

	"demoreport/pkg/contracts/domain"
)

// BloomIndex answers negative HasEntry lookups from memory. Positives
// fall through to the wrapped store. A stale negative only costs a
// re-analysis, which produces the same entry again.
type BloomIndex struct {
	inner  Store
	logger *slog.Logger

	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewBloomIndex wraps inner and warms the filter from its listing
func NewBloomIndex(ctx context.Context, inner Store, capacity uint, falsePositive float64, logger *slog.Logger) (*BloomIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}
	b := &BloomIndex{
		inner:  inner,
		logger: logger.With("component", "cache_bloom"),
		filter: bloom.NewWithEstimates(capacity, falsePositive),
	}

	ids, err := inner.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		b.filter.AddString(string(id))
	}

	b.logger.DebugContext(ctx, "bloom_index_warmed",
		slog.Int("entries", len(ids)),
		slog.Int("bits", int(b.filter.Cap())))
	return b, nil
}

// Unwrap returns the wrapped store
func (b *BloomIndex) Unwrap() Store { return b.inner }

// Name returns the wrapped backend name
func (b *BloomIndex) Name() string { return b.inner.Name() }

// Close closes the wrapped store
func (b *BloomIndex) Close() error { return b.inner.Close() }

// MayContain tests the filter only
func (b *BloomIndex) MayContain(id domain.MatchIdentity) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.filter.TestString(string(id))
}

// HasEntry short-circuits on a filter miss
func (b *BloomIndex) HasEntry(ctx context.Context, id domain.MatchIdentity) bool {
	if !b.MayContain(id) {
		return false
	}
	return b.inner.HasEntry(ctx, id)
}

// Load passes through
func (b *BloomIndex) Load(ctx context.Context, id domain.MatchIdentity) (*domain.Match, error) {
	return b.inner.Load(ctx, id)
}

// Store writes through and records the identity on success
func (b *BloomIndex) Store(ctx context.Context, match *domain.Match) error {
	if err := b.inner.Store(ctx, match); err != nil {
		return err
	}
	b.mu.Lock()
	b.filter.AddString(string(match.Identity))
	b.mu.Unlock()
	return nil
}

// Delete passes through; the filter keeps the identity as a harmless
// false positive
func (b *BloomIndex) Delete(ctx context.Context, id domain.MatchIdentity) error {
	return b.inner.Delete(ctx, id)
}

// List passes through
func (b *BloomIndex) List(ctx context.Context) ([]domain.MatchIdentity, error) {
	return b.inner.List(ctx)
}
