package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the application paths, resolved to absolute form
type Paths struct {
	BaseDir    string
	DataDir    string
	CacheDir   string
	ReportsDir string
	LogsDir    string
	SQLiteFile string
	LogFile    string
}

// GetPaths resolves the configured paths relative to the executable directory
func GetPaths(cfg *Config) (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	// Resolve symlinks to get the actual executable location
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	return cfg.ResolvePaths(filepath.Dir(exe)), nil
}

// ResolvePaths resolves relative directories against baseDir. Absolute
// entries are kept as they are.
func (c *Config) ResolvePaths(baseDir string) *Paths {
	abs := func(p, fallback string) string {
		if p == "" {
			p = fallback
		}
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(baseDir, p)
	}

	dataDir := abs(c.Paths.DataDir, "data")
	paths := &Paths{
		BaseDir:    baseDir,
		DataDir:    dataDir,
		CacheDir:   abs(c.Paths.CacheDir, filepath.Join("data", "cache")),
		ReportsDir: abs(c.Paths.ReportsDir, filepath.Join("data", "reports")),
		LogsDir:    abs(c.Paths.LogsDir, "logs"),
	}

	paths.SQLiteFile = c.Cache.SQLiteFile
	if paths.SQLiteFile != "" && !filepath.IsAbs(paths.SQLiteFile) {
		paths.SQLiteFile = filepath.Join(paths.CacheDir, paths.SQLiteFile)
	}

	paths.LogFile = c.Logging.FilePath
	if paths.LogFile != "" && !filepath.IsAbs(paths.LogFile) {
		paths.LogFile = filepath.Join(baseDir, paths.LogFile)
	}

	return paths
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.CacheDir,
		p.ReportsDir,
		p.LogsDir,
	}

	logger := slog.Default()
	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		logger.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// GetReportPath returns the path for a report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetCachePath returns the path for a cache file
func (p *Paths) GetCachePath(filename string) string {
	return filepath.Join(p.CacheDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs path resolution information for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("data", p.DataDir),
			slog.String("cache", p.CacheDir),
			slog.String("reports", p.ReportsDir),
			slog.String("logs", p.LogsDir),
		),
		slog.String("sqlite_file", p.SQLiteFile),
	)
}
