package cache

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	apperrors "demoreport/internal/errors"
	"demoreport/internal/files"
	"demoreport/pkg/contracts/domain"
)

const (
	currentFile   = "CURRENT"
	stagingPrefix = ".staging-"
	stagingGrace  = 10 * time.Minute
)

// FileStore keeps entries on the local filesystem:
//
//	<dir>/<identity>/CURRENT                    manifest of the published snapshot
//	<dir>/<identity>/<snapshot>/<part>          immutable snapshot parts
//
// A snapshot is staged under a hidden directory, renamed into place, and
// only then published by atomically replacing CURRENT.
type FileStore struct {
	files  *files.Manager
	keep   int
	logger *slog.Logger
	now    func() time.Time

	writeMu sync.Mutex
}

// NewFileStore creates a file-backed cache rooted at dir
func NewFileStore(dir string, keepSnapshots int, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if keepSnapshots < 1 {
		keepSnapshots = 1
	}
	manager := files.NewManager(dir, logger)
	if err := manager.EnsureDirectory(""); err != nil {
		return nil, apperrors.NewConfigError("cannot create cache directory", err)
	}
	return &FileStore{
		files:  manager,
		keep:   keepSnapshots,
		logger: logger.With("component", "file_cache"),
		now:    time.Now,
	}, nil
}

// Name returns the backend name
func (s *FileStore) Name() string { return "file" }

// Close is a no-op
func (s *FileStore) Close() error { return nil }

// HasEntry checks for a published manifest
func (s *FileStore) HasEntry(ctx context.Context, id domain.MatchIdentity) bool {
	if ValidateIdentity(id) != nil {
		return false
	}
	return s.files.FileExists(filepath.Join(string(id), currentFile))
}

// Load reads the published snapshot of id
func (s *FileStore) Load(ctx context.Context, id domain.MatchIdentity) (*domain.Match, error) {
	if err := ValidateIdentity(id); err != nil {
		return nil, apperrors.NewNotFoundError("cache entry " + string(id))
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewCancelledError("cache_load", err)
	}

	match, err := loadSnapshot(id,
		func() ([]byte, error) {
			return s.read(filepath.Join(string(id), currentFile))
		},
		func(snapshot, part string) ([]byte, error) {
			return s.read(filepath.Join(string(id), snapshot, part))
		})
	if err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "cache_entry_loaded", slog.String("identity", id.Short()))
	return match, nil
}

func (s *FileStore) read(path string) ([]byte, error) {
	data, err := s.files.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errMissing
	}
	return data, err
}

// Store writes a new snapshot and publishes it
func (s *FileStore) Store(ctx context.Context, match *domain.Match) error {
	if match == nil {
		return apperrors.NewCacheWriteError("", errors.New("nil match"))
	}
	id := match.Identity
	if err := ValidateIdentity(id); err != nil {
		return apperrors.NewCacheWriteError(string(id), err)
	}

	now := s.now()
	snapshot := newSnapshotID(now)
	entry, err := Encode(match, snapshot, now)
	if err != nil {
		return apperrors.NewCacheWriteError(string(id), err)
	}
	manifest, err := MarshalManifest(entry.Manifest)
	if err != nil {
		return apperrors.NewCacheWriteError(string(id), err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	staging := filepath.Join(string(id), stagingPrefix+snapshot)
	for _, name := range PartNames {
		if err := s.files.WriteFileAtomic(filepath.Join(staging, name), entry.Parts[name]); err != nil {
			s.files.RemoveAll(staging)
			return apperrors.NewCacheWriteError(string(id), err)
		}
	}
	if err := s.files.MoveFile(staging, filepath.Join(string(id), snapshot)); err != nil {
		s.files.RemoveAll(staging)
		return apperrors.NewCacheWriteError(string(id), err)
	}
	if err := s.files.WriteFileAtomic(filepath.Join(string(id), currentFile), manifest); err != nil {
		s.files.RemoveAll(filepath.Join(string(id), snapshot))
		return apperrors.NewCacheWriteError(string(id), err)
	}

	s.prune(ctx, id, snapshot)

	s.logger.InfoContext(ctx, "cache_entry_stored",
		slog.String("identity", id.Short()),
		slog.String("snapshot", snapshot),
		slog.String("size", humanize.Bytes(entry.Size())))
	return nil
}

func (s *FileStore) prune(ctx context.Context, id domain.MatchIdentity, current string) {
	snapshots, err := s.files.ListDirectories(string(id))
	if err != nil {
		s.logger.WarnContext(ctx, "cache_prune_failed",
			slog.String("identity", id.Short()), slog.String("error", err.Error()))
		return
	}
	for _, stale := range staleSnapshots(snapshots, current, s.keep) {
		if err := s.files.RemoveAll(filepath.Join(string(id), stale)); err != nil {
			s.logger.WarnContext(ctx, "cache_prune_failed",
				slog.String("identity", id.Short()),
				slog.String("snapshot", stale),
				slog.String("error", err.Error()))
		}
	}
	s.pruneStaging(ctx, id)
}

// pruneStaging removes staging directories left by writers that died
// before publishing. Recent ones may belong to another live writer.
func (s *FileStore) pruneStaging(ctx context.Context, id domain.MatchIdentity) {
	staging, err := s.files.ListDirectoriesWithPrefix(string(id), stagingPrefix)
	if err != nil {
		s.logger.WarnContext(ctx, "cache_prune_failed",
			slog.String("identity", id.Short()), slog.String("error", err.Error()))
		return
	}
	cutoff := s.now().Add(-stagingGrace)
	for _, name := range staging {
		if created, ok := snapshotTime(strings.TrimPrefix(name, stagingPrefix)); ok && created.After(cutoff) {
			continue
		}
		if err := s.files.RemoveAll(filepath.Join(string(id), name)); err != nil {
			s.logger.WarnContext(ctx, "cache_prune_failed",
				slog.String("identity", id.Short()),
				slog.String("staging", name),
				slog.String("error", err.Error()))
			continue
		}
		s.logger.InfoContext(ctx, "cache_staging_removed",
			slog.String("identity", id.Short()), slog.String("staging", name))
	}
}

// Delete removes an entry with all its snapshots
func (s *FileStore) Delete(ctx context.Context, id domain.MatchIdentity) error {
	if err := ValidateIdentity(id); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	// unpublish first so readers stop seeing the entry
	if err := os.Remove(s.files.Path(string(id), currentFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	err := s.files.RemoveAll(string(id))
	if errors.Is(err, os.ErrNotExist) {
		return apperrors.NewNotFoundError("cache entry " + id.Short())
	}
	return err
}

// List returns the identities with a published entry
func (s *FileStore) List(ctx context.Context) ([]domain.MatchIdentity, error) {
	dirs, err := s.files.ListDirectories("")
	if err != nil {
		return nil, err
	}
	var ids []domain.MatchIdentity
	for _, d := range dirs {
		id := domain.MatchIdentity(d)
		if ValidateIdentity(id) == nil && s.files.FileExists(filepath.Join(d, currentFile)) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
