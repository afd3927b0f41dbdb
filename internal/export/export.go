package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	apperrors "demoreport/internal/errors"
	"demoreport/internal/infrastructure"
	"demoreport/internal/sheets"
	"demoreport/internal/workbook"
	"demoreport/pkg/contracts/domain"
)

// SingleExport exports one demo at a time. It holds no per-run state and
// may be shared; callers that run the same demo concurrently are expected
// to serialize on its identity.
type SingleExport struct {
	decoder   Decoder
	cache     Cache
	registry  *sheets.Registry
	logger    *slog.Logger
	observer  Observer
	telemetry *Telemetry
	now       func() time.Time
}

// Option configures a SingleExport
type Option func(*SingleExport)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *SingleExport) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRegistry replaces the default sheet registry
func WithRegistry(r *sheets.Registry) Option {
	return func(e *SingleExport) {
		if r != nil {
			e.registry = r
		}
	}
}

// WithObserver sets the progress observer
func WithObserver(o Observer) Option {
	return func(e *SingleExport) { e.observer = o }
}

// WithTelemetry sets the tracing and metrics instrumentation
func WithTelemetry(t *Telemetry) Option {
	return func(e *SingleExport) {
		if t != nil {
			e.telemetry = t
		}
	}
}

// WithClock sets the time source
func WithClock(now func() time.Time) Option {
	return func(e *SingleExport) {
		if now != nil {
			e.now = now
		}
	}
}

// NewSingleExport creates an exporter over a decoder and a cache
func NewSingleExport(decoder Decoder, cache Cache, opts ...Option) *SingleExport {
	e := &SingleExport{
		decoder:   decoder,
		cache:     cache,
		registry:  sheets.DefaultRegistry(),
		logger:    slog.Default(),
		telemetry: defaultTelemetry(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = infrastructure.WithComponent(e.logger, "export")
	return e
}

// Generate runs one export. It always returns a result; failures and
// cancellation are reported through Result.Status and Result.Err.
func (e *SingleExport) Generate(ctx context.Context, cfg Configuration) *Result {
	ctx = infrastructure.EnsureTraceID(ctx)
	run := NewRunState(uuid.NewString(), cfg.DemoPath, e.now)

	ctx, span := e.telemetry.startRun(ctx, run)
	logger := e.logger.With(slog.String("run_id", run.ID))

	res := e.execute(ctx, logger, run, cfg)
	res.Run = run.Clone()
	e.telemetry.endRun(ctx, span, run, res.Status, res.Err)

	attrs := []any{
		slog.String("status", string(res.Status)),
		slog.String("branch", string(res.Run.Branch)),
		slog.Int("sheets", res.Run.SheetsCompleted()),
		slog.Int("warnings", len(res.Warnings)),
		slog.Duration("duration", res.Run.Duration()),
	}
	switch res.Status {
	case StatusCompleted:
		logger.InfoContext(ctx, "export_completed", attrs...)
	case StatusCancelled:
		logger.WarnContext(ctx, "export_cancelled", append(attrs, slog.String("error", res.Err.Error()))...)
	default:
		infrastructure.WithError(logger, res.Err).ErrorContext(ctx, "export_failed", append(attrs,
			slog.String("error_type", string(apperrors.TypeOf(res.Err))))...)
	}
	return res
}

func (e *SingleExport) execute(ctx context.Context, logger *slog.Logger, run *RunState, cfg Configuration) *Result {
	if err := cfg.Validate(); err != nil {
		return e.finish(ctx, run, err, nil)
	}
	if e.decoder == nil || e.cache == nil {
		return e.finish(ctx, run, apperrors.NewConfigError("export needs a decoder and a cache", nil), nil)
	}

	logger.InfoContext(ctx, "export_started",
		slog.String("demo_path", cfg.DemoPath),
		slog.Bool("force_analyze", cfg.ForceAnalyze))

	header, err := e.readHeader(ctx, cfg)
	if err != nil {
		return e.finish(ctx, run, err, nil)
	}
	run.setIdentity(header.Identity)
	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"demo.identity": string(header.Identity),
		"demo.map":      header.MapName,
		"demo.server":   header.ServerName,
		"demo.source":   string(header.Source),
		"demo.ticks":    header.PlaybackTicks,
	})
	logger = logger.With(slog.String("identity", header.Identity.Short()))
	e.moveTo(ctx, logger, run, StateIdentityResolved)

	if err := checkpoint(ctx, "identity_resolved"); err != nil {
		return e.finish(ctx, run, err, nil)
	}

	match, warnings, err := e.resolveModel(ctx, logger, run, cfg, header)
	if err != nil {
		return e.finish(ctx, run, err, warnings)
	}
	e.moveTo(ctx, logger, run, StateModelReady)

	if err := checkpoint(ctx, "model_ready"); err != nil {
		return e.finish(ctx, run, err, warnings)
	}

	wb, err := e.generate(ctx, logger, run, match)
	if err != nil {
		return e.finish(ctx, run, err, warnings)
	}
	e.moveTo(ctx, logger, run, StateDone)

	return &Result{Status: StatusCompleted, Workbook: wb, Warnings: warnings}
}

// readHeader resolves the match identity from the demo header
func (e *SingleExport) readHeader(ctx context.Context, cfg Configuration) (*domain.MatchHeader, error) {
	path := cfg.DemoPath
	sctx, span := e.telemetry.startState(ctx, StateStart)
	var (
		header *domain.MatchHeader
		err    error
	)
	if cfg.Header != nil {
		h := *cfg.Header
		if h.Path == "" {
			h.Path = path
		}
		header = &h
	} else {
		header, err = e.decoder.ReadHeader(sctx, path)
	}

	switch {
	case ctx.Err() != nil:
		err = apperrors.NewCancelledError("header", ctx.Err())
	case err != nil && !apperrors.IsCancelled(err) && !apperrors.IsType(err, apperrors.ErrTypeInvalidInput):
		err = apperrors.NewInvalidInputError(path, err)
	case err == nil && (header == nil || header.Identity == ""):
		err = apperrors.NewInvalidInputError(path, errors.New("demo header has no identity"))
	}
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return header, nil
}

// resolveModel picks the analyze or cache branch and returns the match
// model. Warnings are failures the run survives.
func (e *SingleExport) resolveModel(ctx context.Context, logger *slog.Logger, run *RunState, cfg Configuration, header *domain.MatchHeader) (*domain.Match, []error, error) {
	var warnings []error
	id := header.Identity

	analyze := true
	switch {
	case cfg.ForceAnalyze:
		e.telemetry.cacheLookup(ctx, "forced")
		logger.InfoContext(ctx, "cache_bypassed")
	case e.cache.HasEntry(ctx, id):
		e.telemetry.cacheLookup(ctx, "hit")
		analyze = false
	default:
		e.telemetry.cacheLookup(ctx, "miss")
		logger.InfoContext(ctx, "cache_miss")
	}

	if !analyze {
		run.setBranch(BranchCache, true)
		e.moveTo(ctx, logger, run, StateCacheLoading)

		match, err := e.load(ctx, id)
		if err == nil {
			logger.InfoContext(ctx, "cache_hit",
				slog.Int("rounds", len(match.Rounds)),
				slog.String("backend", cacheName(e.cache)))
			return match, nil, nil
		}
		if apperrors.IsCancelled(err) || cfg.readPolicy() != ReanalyzeOnCacheError {
			return nil, nil, err
		}

		e.telemetry.cacheLookup(ctx, "error")
		infrastructure.WithError(logger, err).WarnContext(ctx, "cache_load_failed_reanalyzing",
			slog.String("error_type", string(apperrors.TypeOf(err))))
		warnings = append(warnings, err)
	}

	run.setBranch(BranchAnalyze, false)
	e.moveTo(ctx, logger, run, StateAnalyzing)

	match, err := e.analyze(ctx, cfg, header)
	if err != nil {
		return nil, warnings, err
	}

	if err := checkpoint(ctx, "before_store"); err != nil {
		return nil, warnings, err
	}

	if err := e.cache.Store(ctx, match); err != nil {
		if !apperrors.IsType(err, apperrors.ErrTypeCacheWrite) {
			err = apperrors.NewCacheWriteError(string(id), err)
		}
		backend := cacheName(e.cache)
		e.telemetry.cacheWriteFailure(ctx, backend)
		infrastructure.WithError(logger, err).WarnContext(ctx, "cache_store_failed",
			slog.String("backend", backend))
		warnings = append(warnings, err)
	} else {
		logger.DebugContext(ctx, "cache_entry_written", slog.String("backend", cacheName(e.cache)))
	}

	return match, warnings, nil
}

func (e *SingleExport) load(ctx context.Context, id domain.MatchIdentity) (*domain.Match, error) {
	sctx, span := e.telemetry.startState(ctx, StateCacheLoading)
	match, err := e.cache.Load(sctx, id)

	switch {
	case ctx.Err() != nil:
		err = apperrors.NewCancelledError("cache_load", ctx.Err())
	case err == nil && match == nil:
		err = apperrors.NewCacheCorruptError(string(id), errors.New("cache returned no match"))
	}
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return match, nil
}

// analyze runs the full decoder pass, applying the source override
func (e *SingleExport) analyze(ctx context.Context, cfg Configuration, header *domain.MatchHeader) (*domain.Match, error) {
	if cfg.OnAnalyzeStart != nil {
		cfg.OnAnalyzeStart()
	}

	h := *header
	if cfg.Source != "" {
		h.Source = cfg.Source
	}

	actx := ctx
	if cfg.AnalysisTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, cfg.AnalysisTimeout)
		defer cancel()
	}

	sctx, span := e.telemetry.startState(actx, StateAnalyzing)
	start := e.now()
	match, err := e.decoder.Analyze(sctx, &h)
	elapsed := e.now().Sub(start)

	switch {
	case ctx.Err() != nil:
		err = apperrors.NewCancelledError("analysis", ctx.Err())
	case err != nil && errors.Is(actx.Err(), context.DeadlineExceeded):
		// a timeout is an analysis failure, not a user cancellation
		err = apperrors.NewAnalysisError(fmt.Errorf("analysis exceeded %s", cfg.AnalysisTimeout))
	case err != nil && !apperrors.IsCancelled(err) && !apperrors.IsType(err, apperrors.ErrTypeAnalysis):
		err = apperrors.NewAnalysisError(err)
	case err == nil && match == nil:
		err = apperrors.NewAnalysisError(errors.New("decoder returned no match"))
	}

	e.telemetry.analysis(ctx, string(h.Source), fileSize(h.Path), elapsed, err)
	endSpan(span, err)
	if err != nil {
		return nil, err
	}

	if cfg.Source != "" {
		match.Source = cfg.Source
		match.Header.Source = cfg.Source
	}
	return match, nil
}

// generate runs every registered generator, in order, against a new
// workbook. The workbook is closed on any error.
func (e *SingleExport) generate(ctx context.Context, logger *slog.Logger, run *RunState, match *domain.Match) (*workbook.Workbook, error) {
	entries := e.registry.Entries()
	run.planSheets(e.registry.Names())
	e.moveTo(ctx, logger, run, StateGenerating)

	wb, err := workbook.New()
	if err != nil {
		return nil, apperrors.NewGenerationError("", err)
	}

	total := len(entries)
	for i, entry := range entries {
		if err := e.generateSheet(ctx, run, wb, match, entry, i, total); err != nil {
			wb.Close()
			return nil, err
		}

		logger.DebugContext(ctx, "sheet_generated",
			slog.String("sheet", entry.Name),
			slog.Int("index", i+1),
			slog.Int("total", total))
		e.notify(ctx, run, StateGenerating, entry.Name, i, total)

		if err := checkpoint(ctx, "sheet:"+entry.Name); err != nil {
			wb.Close()
			return nil, err
		}
	}

	return wb, nil
}

func (e *SingleExport) generateSheet(ctx context.Context, run *RunState, wb *workbook.Workbook, match *domain.Match, entry sheets.Entry, i, total int) error {
	sctx, span := e.telemetry.startSheet(ctx, entry.Name, i, total)
	run.startSheet(i)

	err := entry.New(wb, match).Generate()
	if err == nil {
		err = checkAppended(wb, entry.Name, i)
	}
	if err != nil {
		err = apperrors.NewGenerationError(entry.Name, err)
		run.failSheet(i, err)
		endSpan(span, err)
		return err
	}

	rows := 0
	if s, ok := wb.Sheet(entry.Name); ok {
		rows = s.RowCount()
	}
	run.completeSheet(i, rows)
	e.telemetry.sheetGenerated(sctx, entry.Name)
	endSpan(span, nil)
	return nil
}

// checkAppended verifies a generator added exactly its own sheet
func checkAppended(wb *workbook.Workbook, name string, i int) error {
	names := wb.SheetNames()
	if len(names) != i+1 || names[i] != name {
		return fmt.Errorf("generator %s left %d sheets %v, want %d", name, len(names), names, i+1)
	}
	return nil
}

// finish moves the run to its terminal state for err
func (e *SingleExport) finish(ctx context.Context, run *RunState, err error, warnings []error) *Result {
	prev := run.Current()
	status := StatusFailed
	if apperrors.IsCancelled(err) {
		status = StatusCancelled
		run.Cancel(err)
	} else {
		infrastructure.RecordError(ctx, err)
		run.Fail(err)
	}
	e.notify(ctx, run, prev, "", 0, 0)
	return &Result{Status: status, Err: err, Warnings: warnings}
}

func (e *SingleExport) moveTo(ctx context.Context, logger *slog.Logger, run *RunState, to State) {
	prev := run.Current()
	if err := run.Transition(to); err != nil {
		infrastructure.WithError(logger, err).ErrorContext(ctx, "export_transition_rejected")
		return
	}
	logger.DebugContext(ctx, "export_state_changed",
		slog.String("from", string(prev)),
		slog.String("to", string(to)))
	e.notify(ctx, run, prev, "", 0, 0)
}

func (e *SingleExport) notify(ctx context.Context, run *RunState, prev State, sheet string, index, total int) {
	if e.observer == nil {
		return
	}
	snap := run.Clone()
	p := Progress{
		RunID:      snap.ID,
		Identity:   snap.Identity,
		Previous:   prev,
		State:      snap.State,
		Sheet:      sheet,
		SheetIndex: index,
		SheetTotal: total,
		Percent:    percentFor(snap.State, snap.SheetsCompleted(), len(snap.Sheets)),
		At:         e.now(),
	}
	if snap.Error != nil {
		p.Error = snap.Error.Error()
	}
	e.observer.Observe(ctx, p)
}

// checkpoint reports cancellation of ctx as a typed error
func checkpoint(ctx context.Context, name string) error {
	select {
	case <-ctx.Done():
		return apperrors.NewCancelledError(name, ctx.Err())
	default:
		return nil
	}
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
