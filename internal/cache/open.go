package cache

import (
	"context"
	"fmt"
	"log/slog"

	"demoreport/internal/config"
)

// Open builds the configured backend, wrapped in a BloomIndex when enabled
func Open(ctx context.Context, cfg config.CacheConfig, paths *config.Paths, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		store Store
		err   error
	)
	switch cfg.Backend {
	case "", "file":
		store, err = NewFileStore(paths.CacheDir, cfg.KeepSnapshots, logger)
	case "sqlite":
		store, err = OpenSQLite(ctx, paths.SQLiteFile, logger)
	case "object":
		var client *MinioClient
		client, err = NewMinioClient(ctx, cfg.ObjectStore)
		if err == nil {
			store = NewObjectStore(client, cfg.ObjectStore.Prefix, cfg.KeepSnapshots, logger)
		}
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s cache: %w", cfg.Backend, err)
	}

	if cfg.BloomEnabled {
		indexed, err := NewBloomIndex(ctx, store, cfg.BloomCapacity, cfg.BloomFalsePositive, logger)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("warm cache index: %w", err)
		}
		store = indexed
	}

	logger.InfoContext(ctx, "cache_opened",
		slog.String("backend", store.Name()),
		slog.Bool("bloom", cfg.BloomEnabled))
	return store, nil
}
