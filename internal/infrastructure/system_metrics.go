package infrastructure

import (
	"context"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// SystemMetrics records process resource usage after a run. Demo analysis
// holds whole event streams in memory, so heap size is the figure to watch.
type SystemMetrics struct {
	goRoutines    metric.Int64Gauge
	heapInUse     metric.Int64Gauge
	totalAlloc    metric.Int64Gauge
	gcCount       metric.Int64Gauge
	processUptime metric.Float64Gauge
}

// SystemStats holds current system statistics
type SystemStats struct {
	GoRoutines    int64
	HeapInUse     uint64
	TotalAlloc    uint64
	GCCount       uint32
	ProcessUptime time.Duration
	Timestamp     time.Time
}

// NewSystemMetrics creates a new system metrics collector
func NewSystemMetrics(meter metric.Meter) (*SystemMetrics, error) {
	if meter == nil {
		meter = otel.Meter(MeterName)
	}

	goRoutines, err := meter.Int64Gauge(
		"system_goroutines",
		metric.WithDescription("Number of active goroutines"),
	)
	if err != nil {
		return nil, err
	}

	heapInUse, err := meter.Int64Gauge(
		"system_heap_in_use_bytes",
		metric.WithDescription("Heap memory in use in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	totalAlloc, err := meter.Int64Gauge(
		"system_memory_allocated_bytes",
		metric.WithDescription("Cumulative bytes allocated by the Go runtime"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	gcCount, err := meter.Int64Gauge(
		"system_gc_count",
		metric.WithDescription("Number of completed GC cycles"),
	)
	if err != nil {
		return nil, err
	}

	processUptime, err := meter.Float64Gauge(
		"system_process_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &SystemMetrics{
		goRoutines:    goRoutines,
		heapInUse:     heapInUse,
		totalAlloc:    totalAlloc,
		gcCount:       gcCount,
		processUptime: processUptime,
	}, nil
}

// Collect collects and records system metrics
func (sm *SystemMetrics) Collect(ctx context.Context, startTime time.Time) *SystemStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := &SystemStats{
		GoRoutines:    int64(runtime.NumGoroutine()),
		HeapInUse:     memStats.HeapInuse,
		TotalAlloc:    memStats.TotalAlloc,
		GCCount:       memStats.NumGC,
		ProcessUptime: time.Since(startTime),
		Timestamp:     time.Now(),
	}

	if sm != nil {
		sm.goRoutines.Record(ctx, stats.GoRoutines)
		sm.heapInUse.Record(ctx, int64(stats.HeapInUse))
		sm.totalAlloc.Record(ctx, int64(stats.TotalAlloc))
		sm.gcCount.Record(ctx, int64(stats.GCCount))
		sm.processUptime.Record(ctx, stats.ProcessUptime.Seconds())
	}

	return stats
}

// FormatStats formats stats as log attributes
func (stats *SystemStats) FormatStats() []any {
	return []any{
		"goroutines", stats.GoRoutines,
		"heap_in_use", humanize.Bytes(stats.HeapInUse),
		"total_alloc", humanize.Bytes(stats.TotalAlloc),
		"gc_count", stats.GCCount,
		"uptime", stats.ProcessUptime.Round(time.Millisecond).String(),
	}
}
