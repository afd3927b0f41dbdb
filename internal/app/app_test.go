package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demoreport/internal/config"
	apperrors "demoreport/internal/errors"
	"demoreport/internal/export"
	"demoreport/internal/export/testutil"
	sharedtestutil "demoreport/internal/shared/testutil"
	"demoreport/internal/validation"
	"demoreport/pkg/contracts/domain"
)

// identities maps demo file names to match identities; copies of a demo
// share one
var identities = map[string]domain.MatchIdentity{
	"alpha.dem":      "match-alpha",
	"alpha-copy.dem": "match-alpha",
	"bravo.dem":      "match-bravo",
}

func newDecoder() *testutil.MockDecoder {
	return &testutil.MockDecoder{
		ReadHeaderFunc: func(_ context.Context, path string) (*domain.MatchHeader, error) {
			id, ok := identities[filepath.Base(path)]
			if !ok {
				return nil, apperrors.NewInvalidInputError(path, errors.New("unknown demo"))
			}
			h := sharedtestutil.SampleHeader()
			h.Identity = id
			h.Path = path
			return h, nil
		},
		AnalyzeFunc: func(_ context.Context, h *domain.MatchHeader) (*domain.Match, error) {
			m := sharedtestutil.SampleMatch()
			m.Identity = h.Identity
			m.Header = *h
			return m, nil
		},
	}
}

func writeDemos(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	var paths []string
	for _, name := range names {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("HL2DEMO"), 0644))
		paths = append(paths, p)
	}
	return paths
}

func newTestApp(t *testing.T, mutate func(cfg *config.Config)) (*Application, *testutil.MockDecoder, string) {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	paths := cfg.ResolvePaths(base)
	require.NoError(t, paths.EnsureDirectories())

	logger, _ := sharedtestutil.NewTestLogger(t)
	dec := newDecoder()
	a, err := NewApplication(context.Background(), cfg, paths, logger, WithDecoder(dec))
	require.NoError(t, err)
	return a, dec, base
}

func TestApplication_ExportFile(t *testing.T) {
	a, dec, base := newTestApp(t, nil)
	defer a.Close(context.Background())
	demo := writeDemos(t, base, "alpha.dem")[0]

	analyzing := 0
	rep := a.ExportFile(context.Background(), Request{
		DemoPath:       demo,
		OnAnalyzeStart: func() { analyzing++ },
	})
	require.NoError(t, rep.Err)
	assert.Equal(t, export.StatusCompleted, rep.Status)
	assert.Equal(t, domain.MatchIdentity("match-alpha"), rep.Identity)
	assert.False(t, rep.CacheHit)
	assert.Equal(t, 1, analyzing)

	want := filepath.Join(a.Paths.ReportsDir, "alpha.xlsx")
	require.NotNil(t, rep.Output)
	assert.Equal(t, []string{want}, rep.Output.Paths)
	assert.FileExists(t, want)

	rep = a.ExportFile(context.Background(), Request{DemoPath: demo, Format: validation.FormatCSV})
	require.NoError(t, rep.Err)
	assert.True(t, rep.CacheHit, "second export reads the cache")
	assert.Len(t, rep.Output.Paths, 13)
	assert.Equal(t, 1, dec.Analyzed())
}

func TestApplication_ExportFile_Force(t *testing.T) {
	a, dec, base := newTestApp(t, nil)
	defer a.Close(context.Background())
	demo := writeDemos(t, base, "bravo.dem")[0]

	require.NoError(t, a.ExportFile(context.Background(), Request{DemoPath: demo}).Err)
	rep := a.ExportFile(context.Background(), Request{DemoPath: demo, Force: true, Source: domain.SourceFaceit})
	require.NoError(t, rep.Err)
	assert.False(t, rep.CacheHit)
	assert.Equal(t, 2, dec.Analyzed())

	m, err := a.Cache.Load(context.Background(), "match-bravo")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceFaceit, m.Source)
}

func TestApplication_ExportFile_InvalidInput(t *testing.T) {
	a, dec, base := newTestApp(t, nil)
	defer a.Close(context.Background())

	notes := filepath.Join(base, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("x"), 0644))

	rep := a.ExportFile(context.Background(), Request{DemoPath: notes})
	assert.Equal(t, export.StatusFailed, rep.Status)
	assert.ErrorIs(t, rep.Err, apperrors.ErrInvalidInput)
	assert.Equal(t, 2, ExitCode(rep.Err))
	assert.Equal(t, 0, dec.ReadHeaderCalls)

	unknown := writeDemos(t, base, "charlie.dem")[0]
	rep = a.ExportFile(context.Background(), Request{DemoPath: unknown})
	assert.ErrorIs(t, rep.Err, apperrors.ErrInvalidInput)

	demo := writeDemos(t, base, "alpha.dem")[0]
	rep = a.ExportFile(context.Background(), Request{DemoPath: demo, Output: filepath.Join(base, "out.pdf")})
	assert.ErrorIs(t, rep.Err, apperrors.ErrValidation)
}

func TestApplication_ExportFile_Cancelled(t *testing.T) {
	a, dec, base := newTestApp(t, nil)
	defer a.Close(context.Background())
	demo := writeDemos(t, base, "alpha.dem")[0]

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep := a.ExportFile(ctx, Request{DemoPath: demo})
	assert.Equal(t, export.StatusCancelled, rep.Status)
	assert.Equal(t, 130, ExitCode(rep.Err))
	assert.Nil(t, rep.Output)
	assert.Equal(t, 0, dec.Analyzed())
	assert.NoFileExists(t, filepath.Join(a.Paths.ReportsDir, "alpha.xlsx"))
}

func TestApplication_ExportBatch(t *testing.T) {
	a, dec, base := newTestApp(t, func(cfg *config.Config) {
		cfg.Export.BatchConcurrency = 3
	})
	defer a.Close(context.Background())

	in := filepath.Join(base, "in")
	require.NoError(t, os.MkdirAll(in, 0755))
	writeDemos(t, in, "alpha.dem", "alpha-copy.dem", "bravo.dem")
	require.NoError(t, os.WriteFile(filepath.Join(in, "readme.txt"), []byte("x"), 0644))
	out := filepath.Join(base, "out")

	summary, err := a.ExportBatch(context.Background(), in, out, "", false)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Completed)
	assert.Zero(t, summary.Failed)
	assert.Positive(t, summary.Bytes)
	assert.Equal(t, 2, dec.Analyzed(), "copies of one match are analyzed once")

	for _, name := range []string{"alpha.xlsx", "alpha-copy.xlsx", "bravo.xlsx"} {
		assert.FileExists(t, filepath.Join(out, name))
	}
}

func TestApplication_ExportFile_CancelWhileWaitingOnSameMatch(t *testing.T) {
	a, dec, base := newTestApp(t, nil)
	defer a.Close(context.Background())
	demos := writeDemos(t, base, "alpha.dem", "alpha-copy.dem")

	analyzing := make(chan struct{})
	release := make(chan struct{})
	dec.AnalyzeFunc = func(_ context.Context, h *domain.MatchHeader) (*domain.Match, error) {
		close(analyzing)
		<-release
		m := sharedtestutil.SampleMatch()
		m.Identity = h.Identity
		m.Header = *h
		return m, nil
	}

	first := make(chan *Report, 1)
	go func() {
		first <- a.ExportFile(context.Background(), Request{DemoPath: demos[0]})
	}()
	<-analyzing

	ctx, cancel := context.WithCancel(context.Background())
	second := make(chan *Report, 1)
	go func() {
		second <- a.ExportFile(ctx, Request{DemoPath: demos[1]})
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case rep := <-second:
		assert.Equal(t, export.StatusCancelled, rep.Status)
		assert.True(t, apperrors.IsCancelled(rep.Err))
		assert.Equal(t, 130, ExitCode(rep.Err))
		assert.Nil(t, rep.Output)
	case <-time.After(2 * time.Second):
		close(release)
		t.Fatal("waiting export ignored its cancelled context")
	}

	close(release)
	rep := <-first
	require.NoError(t, rep.Err)
	assert.Equal(t, export.StatusCompleted, rep.Status)
	assert.Equal(t, 1, dec.Analyzed())
	assert.NoFileExists(t, filepath.Join(a.Paths.ReportsDir, "alpha-copy.xlsx"))
}

func TestApplication_ExportFile_ReadsHeaderOnce(t *testing.T) {
	a, dec, base := newTestApp(t, nil)
	defer a.Close(context.Background())
	demo := writeDemos(t, base, "bravo.dem")[0]

	require.NoError(t, a.ExportFile(context.Background(), Request{DemoPath: demo}).Err)
	assert.Equal(t, 1, dec.ReadHeaderCalls)
}

func TestApplication_ExportBatch_MissingDirectory(t *testing.T) {
	a, _, base := newTestApp(t, nil)
	defer a.Close(context.Background())

	_, err := a.ExportBatch(context.Background(), filepath.Join(base, "nope"), "", "", false)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestApplication_CacheMaintenance(t *testing.T) {
	a, _, base := newTestApp(t, func(cfg *config.Config) {
		cfg.Cache.Backend = "sqlite"
	})
	defer a.Close(context.Background())
	ctx := context.Background()

	demos := writeDemos(t, base, "alpha.dem", "bravo.dem")
	for _, d := range demos {
		require.NoError(t, a.ExportFile(ctx, Request{DemoPath: d}).Err)
	}

	ids, err := a.CacheList(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.MatchIdentity{"match-alpha", "match-bravo"}, ids)

	require.NoError(t, a.CacheDelete(ctx, "match-alpha"))
	assert.ErrorIs(t, a.CacheDelete(ctx, "match-alpha"), apperrors.ErrNotFound)
	assert.ErrorIs(t, a.CacheDelete(ctx, "../etc"), apperrors.ErrValidation)

	ids, err = a.CacheList(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.MatchIdentity{"match-bravo"}, ids)
}

func TestApplication_CloseWritesMetrics(t *testing.T) {
	a, _, base := newTestApp(t, func(cfg *config.Config) {
		cfg.Telemetry.MetricsFile = "metrics.prom"
	})
	demo := writeDemos(t, base, "alpha.dem")[0]
	require.NoError(t, a.ExportFile(context.Background(), Request{DemoPath: demo}).Err)

	require.NoError(t, a.Close(context.Background()))

	data, err := os.ReadFile(filepath.Join(base, "metrics.prom"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "export_runs_total"), string(data))
	assert.Contains(t, string(data), "system_heap_in_use_bytes")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"cancelled", apperrors.NewCancelledError("sheet", context.Canceled), 130},
		{"context", context.Canceled, 130},
		{"invalid input", apperrors.NewInvalidInputError("x.dem", nil), 2},
		{"validation", apperrors.NewAppValidationError("bad", nil), 2},
		{"analysis", apperrors.NewAnalysisError(errors.New("boom")), 1},
		{"corrupt", apperrors.NewCacheCorruptError("abc", nil), 1},
		{"plain", errors.New("boom"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
