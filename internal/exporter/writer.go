package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"demoreport/internal/files"
	"demoreport/internal/validation"
	"demoreport/internal/workbook"
)

// Output describes a written report
type Output struct {
	Format string
	// Paths lists the written files: one workbook, or one CSV per sheet
	Paths []string
	Bytes int64
}

// ReportWriter persists finished workbooks
type ReportWriter struct {
	files  *files.Manager
	csv    *CSVWriter
	logger *slog.Logger
}

// NewReportWriter creates a writer; relative targets resolve against the
// manager's base directory
func NewReportWriter(manager *files.Manager, logger *slog.Logger) *ReportWriter {
	if logger == nil {
		logger = slog.Default()
	}
	if manager == nil {
		manager = files.NewManager("", logger)
	}
	return &ReportWriter{
		files:  manager,
		csv:    NewCSVWriter(manager, logger),
		logger: logger,
	}
}

// Write saves wb to target in the given format. An xlsx target is a file
// that is replaced atomically; a csv target is a directory.
func (w *ReportWriter) Write(wb *workbook.Workbook, format, target string) (*Output, error) {
	out := &Output{Format: format}

	switch format {
	case validation.FormatXLSX:
		err := w.files.WriteAtomic(target, func(dst io.Writer) error {
			_, err := wb.WriteTo(dst)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("save workbook: %w", err)
		}
		path := w.files.Path(target)
		out.Paths = []string{path}
		if info, err := os.Stat(path); err == nil {
			out.Bytes = info.Size()
		}
	case validation.FormatCSV:
		paths, n, err := w.csv.WriteWorkbook(wb, target)
		if err != nil {
			return nil, err
		}
		out.Paths = paths
		out.Bytes = n
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}

	w.logger.Info("report_written",
		slog.String("format", format),
		slog.String("target", w.files.Path(target)),
		slog.Int("files", len(out.Paths)),
		slog.String("size", humanize.Bytes(uint64(out.Bytes))))
	return out, nil
}
