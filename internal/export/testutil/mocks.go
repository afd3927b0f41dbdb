// Package testutil provides call-tracking doubles for the export flow.
package testutil

import (
	"context"
	"sync"
	"time"

	apperrors "demoreport/internal/errors"
	"demoreport/internal/export"
	"demoreport/pkg/contracts/domain"
)

// MockDecoder is a configurable Decoder
type MockDecoder struct {
	Header *domain.MatchHeader
	Match  *domain.Match

	// Configurable functions, used instead of Header/Match when set
	ReadHeaderFunc func(ctx context.Context, path string) (*domain.MatchHeader, error)
	AnalyzeFunc    func(ctx context.Context, header *domain.MatchHeader) (*domain.Match, error)

	// Call tracking
	mu              sync.Mutex
	ReadHeaderCalls int
	AnalyzeCalls    int
	AnalyzeArgs     []AnalyzeCall
}

// AnalyzeCall tracks arguments passed to Analyze
type AnalyzeCall struct {
	Header domain.MatchHeader
	Time   time.Time
}

// ReadHeader returns the configured header
func (m *MockDecoder) ReadHeader(ctx context.Context, path string) (*domain.MatchHeader, error) {
	m.mu.Lock()
	m.ReadHeaderCalls++
	m.mu.Unlock()

	if m.ReadHeaderFunc != nil {
		return m.ReadHeaderFunc(ctx, path)
	}
	if m.Header == nil {
		return nil, apperrors.NewInvalidInputError(path, nil)
	}
	h := *m.Header
	h.Path = path
	return &h, nil
}

// Analyze returns a copy of the configured match
func (m *MockDecoder) Analyze(ctx context.Context, header *domain.MatchHeader) (*domain.Match, error) {
	m.mu.Lock()
	m.AnalyzeCalls++
	m.AnalyzeArgs = append(m.AnalyzeArgs, AnalyzeCall{Header: *header, Time: time.Now()})
	m.mu.Unlock()

	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, header)
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewCancelledError("analysis", err)
	}
	match := *m.Match
	return &match, nil
}

// Analyzed returns the number of Analyze calls
func (m *MockDecoder) Analyzed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.AnalyzeCalls
}

// MockCache is an in-memory Cache that records every call
type MockCache struct {
	// Configurable functions
	LoadFunc  func(ctx context.Context, id domain.MatchIdentity) (*domain.Match, error)
	StoreFunc func(ctx context.Context, match *domain.Match) error

	mu      sync.Mutex
	entries map[domain.MatchIdentity]*domain.Match

	HasEntryCalls int
	LoadCalls     int
	StoreCalls    int
	// Events lists calls in order, e.g. "has", "load", "store"
	Events []string
}

// NewMockCache creates an empty cache
func NewMockCache() *MockCache {
	return &MockCache{entries: make(map[domain.MatchIdentity]*domain.Match)}
}

// Put seeds an entry without recording a call
func (m *MockCache) Put(match *domain.Match) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[match.Identity] = match
}

// Get returns the stored entry without recording a call
func (m *MockCache) Get(id domain.MatchIdentity) (*domain.Match, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	match, ok := m.entries[id]
	return match, ok
}

// Name identifies the backend
func (m *MockCache) Name() string { return "mock" }

// HasEntry reports whether an entry exists
func (m *MockCache) HasEntry(ctx context.Context, id domain.MatchIdentity) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HasEntryCalls++
	m.Events = append(m.Events, "has")
	_, ok := m.entries[id]
	return ok
}

// Load returns the stored entry
func (m *MockCache) Load(ctx context.Context, id domain.MatchIdentity) (*domain.Match, error) {
	m.mu.Lock()
	m.LoadCalls++
	m.Events = append(m.Events, "load")
	match, ok := m.entries[id]
	m.mu.Unlock()

	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, id)
	}
	if !ok {
		return nil, apperrors.NewNotFoundError("cache entry " + id.Short())
	}
	return match, nil
}

// Store saves the match, replacing any previous entry
func (m *MockCache) Store(ctx context.Context, match *domain.Match) error {
	m.mu.Lock()
	m.StoreCalls++
	m.Events = append(m.Events, "store")
	m.mu.Unlock()

	if m.StoreFunc != nil {
		if err := m.StoreFunc(ctx, match); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[match.Identity] = match
	return nil
}

// Calls returns a copy of the recorded call order
func (m *MockCache) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Events...)
}

// RecordingObserver keeps every progress update
type RecordingObserver struct {
	mu      sync.Mutex
	updates []export.Progress
	// OnObserve is called after recording, from the run goroutine
	OnObserve func(p export.Progress)
}

// Observe records p
func (o *RecordingObserver) Observe(ctx context.Context, p export.Progress) {
	o.mu.Lock()
	o.updates = append(o.updates, p)
	o.mu.Unlock()
	if o.OnObserve != nil {
		o.OnObserve(p)
	}
}

// Updates returns a copy of the recorded updates
func (o *RecordingObserver) Updates() []export.Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]export.Progress(nil), o.updates...)
}

// SheetUpdates returns the names of sheets reported as generated
func (o *RecordingObserver) SheetUpdates() []string {
	var names []string
	for _, p := range o.Updates() {
		if p.Sheet != "" {
			names = append(names, p.Sheet)
		}
	}
	return names
}
