package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"demoreport/internal/config"
	"demoreport/pkg/contracts"
)

const (
	// MeterName is the instrumentation scope for all metrics and spans
	MeterName = "demoreport"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "prometheus", "none"
	SampleRatio    float64
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	// Registry holds the prometheus exporter's collector
	Registry *promclient.Registry
	Logger   *slog.Logger
}

// OTelConfigFrom maps the telemetry section of the application config
func OTelConfigFrom(cfg config.TelemetryConfig) *OTelConfig {
	return &OTelConfig{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: contracts.Version,
		Environment:    cfg.Environment,
		TraceExporter:  cfg.TraceExporter,
		MetricExporter: cfg.MetricExporter,
		SampleRatio:    cfg.SampleRatio,
	}
}

// DefaultOTelConfig returns a configuration with metrics on and tracing off
func DefaultOTelConfig() *OTelConfig {
	return OTelConfigFrom(config.Default().Telemetry)
}

// InitializeOTel initializes tracing and metrics providers
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}
	if logger == nil {
		logger = GetLogger()
	}

	ctx := context.Background()

	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{Logger: logger}

	if err := initializeTracing(ctx, cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.DebugContext(ctx, "otel_initialized",
		slog.String("service", cfg.ServiceName),
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.String("metric_exporter", cfg.MetricExporter))

	return providers, nil
}

func createResource(cfg *OTelConfig) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	), nil
}

func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		// Spans go to stderr so report output on stdout stays clean
		exporter, err = stdouttrace.New(
			stdouttrace.WithWriter(os.Stderr),
			stdouttrace.WithPrettyPrint(),
		)
	case "none", "":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetTracerProvider(tp)

	providers.Logger.DebugContext(ctx, "tracing_initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return nil
}

func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
		registry := promclient.NewRegistry()
		exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)

		providers.Registry = registry
		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
		otel.SetMeterProvider(mp)
	case "none", "":
		return nil
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	providers.Logger.DebugContext(ctx, "metrics_initialized",
		slog.String("exporter", cfg.MetricExporter))

	return nil
}

// WriteMetricsFile writes the current metric values in the Prometheus text
// format. It is a no-op when metrics are disabled.
func (p *OTelProviders) WriteMetricsFile(path string) error {
	if p == nil || p.Registry == nil || path == "" {
		return nil
	}
	if err := promclient.WriteToTextfile(path, p.Registry); err != nil {
		return fmt.Errorf("write metrics file: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}
	return nil
}

// BusinessMetrics holds all export pipeline metrics
type BusinessMetrics struct {
	ExportRunsTotal      metric.Int64Counter
	ExportRunDuration    metric.Float64Histogram
	ActiveExports        metric.Int64UpDownCounter
	CacheLookupsTotal    metric.Int64Counter
	AnalysesTotal        metric.Int64Counter
	AnalysisDuration     metric.Float64Histogram
	DemoBytesAnalyzed    metric.Int64Counter
	CacheWriteFailures   metric.Int64Counter
	SheetsGeneratedTotal metric.Int64Counter
}

// CreateBusinessMetrics creates the export pipeline instruments
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	if meter == nil {
		meter = otel.Meter(MeterName)
	}

	exportRunsTotal, err := meter.Int64Counter(
		"export_runs_total",
		metric.WithDescription("Total number of export runs by outcome"),
	)
	if err != nil {
		return nil, err
	}

	exportRunDuration, err := meter.Float64Histogram(
		"export_run_duration_seconds",
		metric.WithDescription("Export run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	activeExports, err := meter.Int64UpDownCounter(
		"export_active_runs",
		metric.WithDescription("Number of export runs in progress"),
	)
	if err != nil {
		return nil, err
	}

	cacheLookupsTotal, err := meter.Int64Counter(
		"cache_lookups_total",
		metric.WithDescription("Cache lookups by result (hit, miss, forced)"),
	)
	if err != nil {
		return nil, err
	}

	analysesTotal, err := meter.Int64Counter(
		"demo_analyses_total",
		metric.WithDescription("Total number of full demo analyses by outcome"),
	)
	if err != nil {
		return nil, err
	}

	analysisDuration, err := meter.Float64Histogram(
		"demo_analysis_duration_seconds",
		metric.WithDescription("Full demo analysis duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	demoBytesAnalyzed, err := meter.Int64Counter(
		"demo_bytes_analyzed_total",
		metric.WithDescription("Total bytes of demo files analyzed"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	cacheWriteFailures, err := meter.Int64Counter(
		"cache_write_failures_total",
		metric.WithDescription("Total number of failed cache writes"),
	)
	if err != nil {
		return nil, err
	}

	sheetsGenerated, err := meter.Int64Counter(
		"sheets_generated_total",
		metric.WithDescription("Total number of worksheets generated"),
	)
	if err != nil {
		return nil, err
	}

	return &BusinessMetrics{
		ExportRunsTotal:      exportRunsTotal,
		ExportRunDuration:    exportRunDuration,
		ActiveExports:        activeExports,
		CacheLookupsTotal:    cacheLookupsTotal,
		AnalysesTotal:        analysesTotal,
		AnalysisDuration:     analysisDuration,
		DemoBytesAnalyzed:    demoBytesAnalyzed,
		CacheWriteFailures:   cacheWriteFailures,
		SheetsGeneratedTotal: sheetsGenerated,
	}, nil
}

// RecordExportRun records the outcome and duration of one export run
func RecordExportRun(ctx context.Context, metrics *BusinessMetrics, branch, status string, duration time.Duration) {
	if metrics == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("branch", branch),
		attribute.String("status", status),
	)
	metrics.ExportRunsTotal.Add(ctx, 1, attrs)
	metrics.ExportRunDuration.Record(ctx, duration.Seconds(), attrs)

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("export.metrics_recorded",
			trace.WithAttributes(
				attribute.String("status", status),
				attribute.Float64("duration_seconds", duration.Seconds()),
			),
		)
	}
}

// RecordActiveExportChange records changes in the number of running exports
func RecordActiveExportChange(ctx context.Context, metrics *BusinessMetrics, delta int64) {
	if metrics == nil {
		return
	}
	metrics.ActiveExports.Add(ctx, delta)
}

// RecordCacheLookup records a cache decision: hit, miss or forced
func RecordCacheLookup(ctx context.Context, metrics *BusinessMetrics, result string) {
	if metrics == nil {
		return
	}
	metrics.CacheLookupsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordAnalysis records a full analysis pass
func RecordAnalysis(ctx context.Context, metrics *BusinessMetrics, source string, bytes int64, duration time.Duration, err error) {
	if metrics == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
	}
	attrs := metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("status", status),
	)
	metrics.AnalysesTotal.Add(ctx, 1, attrs)
	metrics.AnalysisDuration.Record(ctx, duration.Seconds(), attrs)
	if bytes > 0 {
		metrics.DemoBytesAnalyzed.Add(ctx, bytes)
	}
}

// RecordCacheWriteFailure records a cache write that did not persist
func RecordCacheWriteFailure(ctx context.Context, metrics *BusinessMetrics, backend string) {
	if metrics == nil {
		return
	}
	metrics.CacheWriteFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("backend", backend)))
}

// RecordSheetGenerated records one worksheet written to a workbook
func RecordSheetGenerated(ctx context.Context, metrics *BusinessMetrics, sheet string) {
	if metrics == nil {
		return
	}
	metrics.SheetsGeneratedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("sheet", sheet)))
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts trace ID from context for logging correlation
func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() || err == nil {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanAttributes sets attributes on the current span
func SetSpanAttributes(ctx context.Context, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			span.SetAttributes(attribute.String(k, val))
		case int:
			span.SetAttributes(attribute.Int(k, val))
		case int64:
			span.SetAttributes(attribute.Int64(k, val))
		case float64:
			span.SetAttributes(attribute.Float64(k, val))
		case bool:
			span.SetAttributes(attribute.Bool(k, val))
		default:
			span.SetAttributes(attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
}
