package export

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "demoreport/internal/errors"
	"demoreport/internal/infrastructure"
)

const (
	TracerName = "demoreport.export"
)

// Telemetry provides OpenTelemetry instrumentation for export runs
type Telemetry struct {
	tracer  trace.Tracer
	metrics *infrastructure.BusinessMetrics
}

// NewTelemetry creates run instrumentation on the given providers
func NewTelemetry(providers *infrastructure.OTelProviders) (*Telemetry, error) {
	if providers == nil {
		return defaultTelemetry(), nil
	}
	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	tracer := providers.Tracer
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}
	return &Telemetry{tracer: tracer, metrics: metrics}, nil
}

// defaultTelemetry traces through the global provider and records no
// metrics
func defaultTelemetry() *Telemetry {
	return &Telemetry{tracer: otel.Tracer(TracerName)}
}

// startRun creates the span covering a whole run
func (t *Telemetry) startRun(ctx context.Context, run *RunState) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "export.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("export.run_id", run.ID),
			attribute.String("export.demo_path", run.DemoPath),
		),
	)
	infrastructure.RecordActiveExportChange(ctx, t.metrics, 1)
	return ctx, span
}

// endRun records the run outcome on the span and in metrics
func (t *Telemetry) endRun(ctx context.Context, span trace.Span, run *RunState, status Status, err error) {
	duration := run.Duration()
	span.SetAttributes(
		attribute.String("export.identity", string(run.Identity)),
		attribute.String("export.branch", string(run.Branch)),
		attribute.Bool("export.cache_hit", run.CacheHit),
		attribute.String("export.status", string(status)),
		attribute.Int("export.sheets", run.SheetsCompleted()),
		attribute.Float64("export.duration_seconds", duration.Seconds()),
	)
	switch {
	case status == StatusFailed:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case status == StatusCancelled:
		span.SetStatus(codes.Unset, "cancelled")
	default:
		span.SetStatus(codes.Ok, "")
	}

	infrastructure.RecordExportRun(ctx, t.metrics, string(run.Branch), string(status), duration)
	infrastructure.RecordActiveExportChange(ctx, t.metrics, -1)
	span.End()
}

// startState creates a span for one state of the machine
func (t *Telemetry) startState(ctx context.Context, state State) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "export.state."+string(state),
		trace.WithAttributes(attribute.String("export.state", string(state))))
}

// startSheet creates a span for one sheet generator
func (t *Telemetry) startSheet(ctx context.Context, name string, index, total int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "export.sheet",
		trace.WithAttributes(
			attribute.String("sheet.name", name),
			attribute.Int("sheet.index", index),
			attribute.Int("sheet.total", total),
		))
}

// endSpan closes a state or sheet span, marking failures
func endSpan(span trace.Span, err error) {
	if err != nil && !apperrors.IsCancelled(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (t *Telemetry) cacheLookup(ctx context.Context, result string) {
	infrastructure.RecordCacheLookup(ctx, t.metrics, result)
}

func (t *Telemetry) analysis(ctx context.Context, source string, bytes int64, d time.Duration, err error) {
	infrastructure.RecordAnalysis(ctx, t.metrics, source, bytes, d, err)
}

func (t *Telemetry) cacheWriteFailure(ctx context.Context, backend string) {
	infrastructure.RecordCacheWriteFailure(ctx, t.metrics, backend)
}

func (t *Telemetry) sheetGenerated(ctx context.Context, sheet string) {
	infrastructure.RecordSheetGenerated(ctx, t.metrics, sheet)
}
