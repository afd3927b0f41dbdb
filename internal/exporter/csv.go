package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"demoreport/internal/files"
	"demoreport/internal/workbook"
)

// utf8BOM helps Excel recognize UTF-8 player names
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	files  *files.Manager
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance. Relative paths are
// resolved against the manager's base directory.
func NewCSVWriter(manager *files.Manager, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	if manager == nil {
		manager = files.NewManager("", logger)
	}
	return &CSVWriter{files: manager, logger: logger}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes a CSV file atomically and returns the bytes written
func (w *CSVWriter) WriteCSV(path string, options WriteOptions) (int64, error) {
	w.logger.Debug("Writing CSV file",
		slog.String("file_path", w.files.Path(path)),
		slog.Int("record_count", len(options.Records)))

	var size int64
	err := w.files.WriteAtomic(path, func(out io.Writer) error {
		cw := &countingWriter{w: out}
		if options.BOMPrefix {
			if _, err := cw.Write(utf8BOM); err != nil {
				return fmt.Errorf("failed to write BOM: %w", err)
			}
		}

		writer := csv.NewWriter(cw)
		if len(options.Headers) > 0 {
			if err := writer.Write(options.Headers); err != nil {
				return fmt.Errorf("failed to write headers: %w", err)
			}
		}
		for i, record := range options.Records {
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("failed to write record %d: %w", i, err)
			}
		}
		writer.Flush()
		size = cw.n
		return writer.Error()
	})
	if err != nil {
		return 0, err
	}
	return size, nil
}

// WriteWorkbook writes every sheet of wb to its own file in dir, in sheet
// order, and returns the written paths
func (w *CSVWriter) WriteWorkbook(wb *workbook.Workbook, dir string) ([]string, int64, error) {
	var (
		paths []string
		total int64
	)
	for i, name := range wb.SheetNames() {
		rows, err := wb.Rows(name)
		if err != nil {
			return paths, total, fmt.Errorf("read sheet %s: %w", name, err)
		}

		path := filepath.Join(dir, SheetFileName(i, name))
		n, err := w.WriteCSV(path, WriteOptions{Records: rows, BOMPrefix: true})
		if err != nil {
			return paths, total, fmt.Errorf("write sheet %s: %w", name, err)
		}
		paths = append(paths, w.files.Path(path))
		total += n
	}
	return paths, total, nil
}

// SheetFileName returns the CSV file name of a sheet, prefixed with its
// position so directory listings keep workbook order
func SheetFileName(index int, sheet string) string {
	name := strings.ToLower(strings.Join(strings.Fields(sheet), "_"))
	return fmt.Sprintf("%02d_%s.csv", index+1, name)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
