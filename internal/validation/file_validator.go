package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "demoreport/internal/errors"
	"demoreport/internal/files"
)

// Output formats
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// FileValidator provides the file checks the CLI runs before an export
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateDemoFile checks that path is a readable regular file with the
// demo extension. Failures are InvalidInput errors.
func (v *FileValidator) ValidateDemoFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return apperrors.NewInvalidInputError(path, err)
	}

	ext := filepath.Ext(path)
	if !strings.EqualFold(ext, files.DemoExtension) {
		v.logger.Error("File is not a demo",
			slog.String("file", path),
			slog.String("extension", ext))
		return apperrors.NewInvalidInputError(path,
			fmt.Errorf("unexpected extension %q, want %s", ext, files.DemoExtension))
	}
	return nil
}

// ValidateInputDirectory validates that dir exists and returns the demo
// files it contains. An empty directory is not an error.
func (v *FileValidator) ValidateInputDirectory(dir string) ([]files.FileInfo, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		v.logger.Error("Input directory does not exist",
			slog.String("directory", dir))
		return nil, apperrors.NewInvalidInputError(dir, fmt.Errorf("input directory %s does not exist", dir))
	}
	if err != nil {
		return nil, apperrors.NewInvalidInputError(dir, fmt.Errorf("failed to stat directory %s: %w", dir, err))
	}
	if !info.IsDir() {
		v.logger.Error("Input path is not a directory",
			slog.String("path", dir))
		return nil, apperrors.NewInvalidInputError(dir, fmt.Errorf("%s is not a directory", dir))
	}

	demos, err := files.NewDiscovery("").FindDemoFiles(dir)
	if err != nil {
		return nil, apperrors.NewInvalidInputError(dir, err)
	}
	if len(demos) == 0 {
		v.logger.Warn("No demo files found",
			slog.String("directory", dir))
		return nil, nil
	}

	v.logger.Info("Input directory validated",
		slog.String("directory", dir),
		slog.Int("files_found", len(demos)))
	return demos, nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	// Verify it's writable by creating a test file
	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutput checks an output target for format. An xlsx target is a
// file ending in .xlsx; a csv target is a directory that receives one
// file per sheet. The parent directory is created.
func (v *FileValidator) ValidateOutput(path, format string) error {
	switch format {
	case FormatXLSX:
		if ext := strings.ToLower(filepath.Ext(path)); ext != ".xlsx" {
			return apperrors.NewAppValidationError(
				fmt.Sprintf("output %s is not an Excel file (extension: %s)", path, ext), nil)
		}
		base := filepath.Base(path)
		if strings.HasPrefix(base, "~$") {
			return apperrors.NewAppValidationError(fmt.Sprintf("output %s is an Excel lock file name", path), nil)
		}
		return v.ValidateOutputDirectory(filepath.Dir(path))
	case FormatCSV:
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return apperrors.NewAppValidationError(fmt.Sprintf("csv output %s must be a directory", path), nil)
		}
		return v.ValidateOutputDirectory(path)
	default:
		return apperrors.NewAppValidationError(fmt.Sprintf("unknown output format %q", format), nil)
	}
}

// DefaultOutput derives the output target for a demo: the demo's base
// name inside dir, with .xlsx for workbooks and no extension for csv
// directories.
func DefaultOutput(demoPath, dir, format string) string {
	name := strings.TrimSuffix(filepath.Base(demoPath), filepath.Ext(demoPath))
	if format == FormatXLSX {
		name += ".xlsx"
	}
	return filepath.Join(dir, name)
}
