package export

import (
	"context"

	"demoreport/pkg/contracts/domain"
)

// Exporter produces a report for a configured run
type Exporter interface {
	Generate(ctx context.Context, cfg Configuration) *Result
}

// Decoder reads demo files. ReadHeader must be cheap; Analyze performs
// the full pass.
type Decoder interface {
	ReadHeader(ctx context.Context, path string) (*domain.MatchHeader, error)
	Analyze(ctx context.Context, header *domain.MatchHeader) (*domain.Match, error)
}

// Cache is the part of the analysis cache the export flow needs
type Cache interface {
	HasEntry(ctx context.Context, id domain.MatchIdentity) bool
	Load(ctx context.Context, id domain.MatchIdentity) (*domain.Match, error)
	Store(ctx context.Context, match *domain.Match) error
}

// cacheName returns the backend name for logs and metrics
func cacheName(c Cache) string {
	if n, ok := c.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "cache"
}
