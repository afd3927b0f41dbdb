package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"demoreport/internal/cache"
	"demoreport/internal/config"
	"demoreport/internal/demo"
	apperrors "demoreport/internal/errors"
	"demoreport/internal/export"
	"demoreport/internal/exporter"
	"demoreport/internal/files"
	"demoreport/internal/infrastructure"
	"demoreport/internal/validation"
	"demoreport/pkg/contracts/domain"
)

// Application wires the export pipeline for the command line
type Application struct {
	Config    *config.Config
	Paths     *config.Paths
	Logger    *slog.Logger
	OTel      *infrastructure.OTelProviders
	Cache     cache.Store
	Exporter  *export.SingleExport
	Writer    *exporter.ReportWriter
	Validator *validation.FileValidator

	decoder export.Decoder
	system  *infrastructure.SystemMetrics
	started time.Time
	// flight serializes runs of the same match identity
	flight singleflight.Group
}

// Option overrides a collaborator, mostly for tests
type Option func(*options)

type options struct {
	decoder  export.Decoder
	store    cache.Store
	observer export.Observer
}

// WithDecoder replaces the demo parser
func WithDecoder(d export.Decoder) Option {
	return func(o *options) { o.decoder = d }
}

// WithCache replaces the configured cache backend
func WithCache(s cache.Store) Option {
	return func(o *options) { o.store = s }
}

// WithObserver adds a progress observer
func WithObserver(obs export.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// NewApplication creates the application from a loaded configuration
func NewApplication(ctx context.Context, cfg *config.Config, paths *config.Paths, logger *slog.Logger, opts ...Option) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	telemetry, err := export.NewTelemetry(providers)
	if err != nil {
		providers.Shutdown(ctx)
		return nil, err
	}

	system, err := infrastructure.NewSystemMetrics(providers.Meter)
	if err != nil {
		providers.Shutdown(ctx)
		return nil, err
	}

	store := o.store
	if store == nil {
		store, err = cache.Open(ctx, cfg.Cache, paths, logger)
		if err != nil {
			providers.Shutdown(ctx)
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
	}

	decoder := o.decoder
	if decoder == nil {
		decoder = demo.NewParser(logger)
	}

	observers := export.MultiObserver{export.NewLogObserver(logger)}
	if o.observer != nil {
		observers = append(observers, o.observer)
	}

	a := &Application{
		Config:    cfg,
		Paths:     paths,
		Logger:    logger,
		OTel:      providers,
		Cache:     store,
		Validator: validation.NewFileValidator(logger),
		Writer:    exporter.NewReportWriter(files.NewManager(paths.ReportsDir, logger), logger),
		decoder:   decoder,
		system:    system,
		started:   time.Now(),
	}
	a.Exporter = export.NewSingleExport(decoder, store,
		export.WithLogger(logger),
		export.WithTelemetry(telemetry),
		export.WithObserver(observers))

	logger.InfoContext(ctx, "application_ready",
		slog.String("cache_backend", store.Name()),
		slog.String("reports_dir", paths.ReportsDir))
	return a, nil
}

// Request describes one export
type Request struct {
	DemoPath string
	// Output defaults to the demo's name in the reports directory
	Output string
	// Format defaults to the configured export format
	Format string
	Force  bool
	Source domain.Source
	// OnAnalyzeStart is called when the demo has to be analyzed
	OnAnalyzeStart func()
}

// Report is the outcome of one export
type Report struct {
	DemoPath string
	Status   export.Status
	Identity domain.MatchIdentity
	CacheHit bool
	Output   *exporter.Output
	Warnings []error
	Err      error
	Duration time.Duration
}

// ExportFile exports one demo and writes the report
func (a *Application) ExportFile(ctx context.Context, req Request) *Report {
	rep := &Report{DemoPath: req.DemoPath, Status: export.StatusFailed}

	format := req.Format
	if format == "" {
		format = a.Config.Export.Format
	}
	output := req.Output
	if output == "" {
		output = validation.DefaultOutput(req.DemoPath, a.Paths.ReportsDir, format)
	}
	if abs, err := filepath.Abs(output); err == nil {
		output = abs
	}

	if err := a.Validator.ValidateDemoFile(req.DemoPath); err != nil {
		rep.Err = err
		return rep
	}
	if err := a.Validator.ValidateOutput(output, format); err != nil {
		rep.Err = err
		return rep
	}

	cfg := export.ConfigurationFrom(a.Config.Export, req.DemoPath)
	cfg.ForceAnalyze = cfg.ForceAnalyze || req.Force
	cfg.Source = req.Source
	cfg.OnAnalyzeStart = req.OnAnalyzeStart

	res := a.generate(ctx, cfg)
	rep.Status = res.Status
	rep.Warnings = res.Warnings
	rep.Err = res.Err
	if res.Run != nil {
		rep.Identity = res.Run.Identity
		rep.CacheHit = res.Run.CacheHit
		rep.Duration = res.Run.Duration()
	}
	if !res.OK() {
		return rep
	}
	defer res.Workbook.Close()

	out, err := a.Writer.Write(res.Workbook, format, output)
	if err != nil {
		rep.Status = export.StatusFailed
		rep.Err = err
		return rep
	}
	rep.Output = out
	return rep
}

// generate runs the export, letting only one run per match identity
// proceed at a time. Callers that waited on another run of the same match
// generate again, which then reads the cache the first run wrote. The
// header read here is handed to the exporter so the demo is opened once.
// A waiting caller whose context ends stops waiting.
func (a *Application) generate(ctx context.Context, cfg export.Configuration) *export.Result {
	header, err := a.decoder.ReadHeader(ctx, cfg.DemoPath)
	if err != nil || header == nil {
		// the exporter reports the header error with its run state
		return a.Exporter.Generate(ctx, cfg)
	}
	cfg.Header = header

	leader := false
	ch := a.flight.DoChan(string(header.Identity), func() (any, error) {
		leader = true
		return a.Exporter.Generate(ctx, cfg), nil
	})

	select {
	case res := <-ch:
		if leader {
			return res.Val.(*export.Result)
		}
	case <-ctx.Done():
		go func() {
			// a run this caller started still owns its workbook
			r := <-ch
			if res, ok := r.Val.(*export.Result); ok && leader && res.Workbook != nil {
				res.Workbook.Close()
			}
		}()
		a.Logger.InfoContext(ctx, "export_cancelled_while_waiting",
			slog.String("identity", header.Identity.Short()),
			slog.String("demo_path", cfg.DemoPath))
		return &export.Result{
			Status: export.StatusCancelled,
			Err:    apperrors.NewCancelledError("single_flight", ctx.Err()),
		}
	}

	a.Logger.DebugContext(ctx, "export_joined_concurrent_run",
		slog.String("identity", header.Identity.Short()),
		slog.String("demo_path", cfg.DemoPath))
	cfg.ForceAnalyze = false
	return a.Exporter.Generate(ctx, cfg)
}

// BatchSummary aggregates the reports of a batch
type BatchSummary struct {
	Reports   []*Report
	Completed int
	Failed    int
	Cancelled int
	Bytes     int64
	Duration  time.Duration
}

// ExportBatch exports every demo in dir into outDir with bounded
// concurrency. A failing demo does not stop the others.
func (a *Application) ExportBatch(ctx context.Context, dir, outDir, format string, force bool) (*BatchSummary, error) {
	start := time.Now()
	demos, err := a.Validator.ValidateInputDirectory(dir)
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = a.Config.Export.Format
	}
	if outDir == "" {
		outDir = a.Paths.ReportsDir
	}

	a.Logger.InfoContext(ctx, "batch_started",
		slog.String("directory", dir),
		slog.Int("demos", len(demos)),
		slog.String("total_size", humanize.Bytes(uint64(files.TotalSize(demos)))),
		slog.Int("concurrency", a.Config.Export.BatchConcurrency))

	reports := make([]*Report, len(demos))
	var g errgroup.Group
	g.SetLimit(max(1, a.Config.Export.BatchConcurrency))
	for i, d := range demos {
		g.Go(func() error {
			reports[i] = a.ExportFile(ctx, Request{
				DemoPath: d.Path,
				Output:   validation.DefaultOutput(d.Path, outDir, format),
				Format:   format,
				Force:    force,
			})
			return nil
		})
	}
	g.Wait()

	summary := &BatchSummary{Reports: reports, Duration: time.Since(start)}
	for _, r := range reports {
		switch r.Status {
		case export.StatusCompleted:
			summary.Completed++
			if r.Output != nil {
				summary.Bytes += r.Output.Bytes
			}
		case export.StatusCancelled:
			summary.Cancelled++
		default:
			summary.Failed++
		}
	}

	a.Logger.InfoContext(ctx, "batch_finished",
		slog.Int("completed", summary.Completed),
		slog.Int("failed", summary.Failed),
		slog.Int("cancelled", summary.Cancelled),
		slog.Duration("duration", summary.Duration))
	return summary, nil
}

// CacheList returns the identities in the cache
func (a *Application) CacheList(ctx context.Context) ([]domain.MatchIdentity, error) {
	return a.Cache.List(ctx)
}

// CacheDelete removes one cache entry
func (a *Application) CacheDelete(ctx context.Context, id domain.MatchIdentity) error {
	if err := cache.ValidateIdentity(id); err != nil {
		return err
	}
	return a.Cache.Delete(ctx, id)
}

// Close records process stats, flushes metrics and releases the cache
func (a *Application) Close(ctx context.Context) error {
	var errs []error
	stats := a.system.Collect(ctx, a.started)
	a.Logger.InfoContext(ctx, "process_stats", stats.FormatStats()...)

	if path := a.metricsFile(); path != "" {
		if err := a.OTel.WriteMetricsFile(path); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.Cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close cache: %w", err))
	}
	if err := a.OTel.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *Application) metricsFile() string {
	path := a.Config.Telemetry.MetricsFile
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(a.Paths.BaseDir, path)
}

// ExitCode maps an outcome to the process exit status: 0 success,
// 2 invalid input, 130 cancelled, 1 anything else
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case apperrors.IsCancelled(err):
		return 130
	case apperrors.IsType(err, apperrors.ErrTypeInvalidInput),
		apperrors.IsType(err, apperrors.ErrTypeValidation):
		return 2
	default:
		return 1
	}
}
