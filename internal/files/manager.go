package files

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Manager provides file management operations rooted at a base directory
type Manager struct {
	baseDir string
	logger  *slog.Logger
}

// NewManager creates a new file manager instance
func NewManager(baseDir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{baseDir: baseDir, logger: logger}
}

// BaseDir returns the directory relative paths are resolved against
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// Path resolves a path relative to the base directory
func (m *Manager) Path(elem ...string) string {
	p := filepath.Join(elem...)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(append([]string{m.baseDir}, elem...)...)
}

// FileExists checks if a file exists at the given path
func (m *Manager) FileExists(path string) bool {
	fullPath := m.Path(path)
	_, err := os.Stat(fullPath)
	return err == nil
}

// EnsureDirectory creates a directory with all parent directories
func (m *Manager) EnsureDirectory(path string) error {
	fullPath := m.Path(path)
	m.logger.Debug("Ensuring directory exists", slog.String("full_path", fullPath))
	return os.MkdirAll(fullPath, 0755)
}

// ReadFile reads the entire content of a file
func (m *Manager) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(m.Path(path))
}

// WriteFile writes data to a file, creating parent directories
func (m *Manager) WriteFile(path string, data []byte) error {
	fullPath := m.Path(path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return os.WriteFile(fullPath, data, 0644)
}

// WriteFileAtomic writes data next to path under a temporary name, syncs
// it, then renames it into place. Readers see either the old or the new
// content, never a partial file.
func (m *Manager) WriteFileAtomic(path string, data []byte) error {
	return m.WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// WriteAtomic is WriteFileAtomic for streamed content
func (m *Manager) WriteAtomic(path string, write func(io.Writer) error) error {
	fullPath := m.Path(path)
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := filepath.Join(dir, "."+filepath.Base(fullPath)+".tmp-"+uuid.NewString())
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	err = write(f)
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", fullPath, err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to publish %s: %w", fullPath, err)
	}

	m.logger.Debug("File written atomically",
		slog.String("full_path", fullPath),
		slog.Int("size_bytes", sizeOf(fullPath)))
	return nil
}

// MoveFile moves a file or directory. Rename is tried first; files fall
// back to copy and delete across filesystems.
func (m *Manager) MoveFile(src, dst string) error {
	srcPath := m.Path(src)
	dstPath := m.Path(dst)

	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	if err := os.Rename(srcPath, dstPath); err == nil {
		return nil
	}

	info, err := os.Stat(srcPath)
	if err != nil {
		return fmt.Errorf("failed to stat source: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("cannot move directory %s across filesystems", srcPath)
	}

	if err := m.CopyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(srcPath)
}

// CopyFile copies a file from source to destination
func (m *Manager) CopyFile(src, dst string) error {
	srcFile, err := os.Open(m.Path(src))
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer srcFile.Close()

	return m.WriteAtomic(dst, func(w io.Writer) error {
		_, err := io.Copy(w, srcFile)
		return err
	})
}

// RemoveAll deletes a path and everything below it. Missing paths are
// reported as os.ErrNotExist.
func (m *Manager) RemoveAll(path string) error {
	fullPath := m.Path(path)
	if _, err := os.Stat(fullPath); err != nil {
		return err
	}

	m.logger.Info("Deleting path", slog.String("full_path", fullPath))
	return os.RemoveAll(fullPath)
}

// ListDirectories returns the names of the subdirectories of dir, skipping
// hidden ones
func (m *Manager) ListDirectories(dir string) ([]string, error) {
	return m.listDirectories(dir, func(name string) bool { return name[0] != '.' })
}

// ListDirectoriesWithPrefix returns the subdirectories of dir whose names
// start with prefix, hidden ones included
func (m *Manager) ListDirectoriesWithPrefix(dir, prefix string) ([]string, error) {
	return m.listDirectories(dir, func(name string) bool { return strings.HasPrefix(name, prefix) })
}

func (m *Manager) listDirectories(dir string, keep func(string) bool) ([]string, error) {
	entries, err := os.ReadDir(m.Path(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() && keep(entry.Name()) {
			dirs = append(dirs, entry.Name())
		}
	}
	return dirs, nil
}

func sizeOf(path string) int {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return int(info.Size())
}
