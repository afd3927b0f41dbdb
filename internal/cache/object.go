package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	apperrors "demoreport/internal/errors"
	"demoreport/pkg/contracts/domain"
)

// ErrObjectNotFound is returned by an ObjectClient for absent keys
var ErrObjectNotFound = errors.New("object not found")

// ObjectClient is the subset of S3 operations the cache needs
type ObjectClient interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Remove(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// ObjectStore keeps entries in an S3-compatible bucket:
//
//	<prefix>/<identity>/<snapshot>/<part>
//	<prefix>/<identity>/CURRENT
//
// Parts are uploaded first; the single PUT of CURRENT publishes them.
type ObjectStore struct {
	client ObjectClient
	prefix string
	keep   int
	logger *slog.Logger
	now    func() time.Time

	writeMu sync.Mutex
}

// NewObjectStore creates an object-store backed cache
func NewObjectStore(client ObjectClient, prefix string, keepSnapshots int, logger *slog.Logger) *ObjectStore {
	if logger == nil {
		logger = slog.Default()
	}
	if keepSnapshots < 1 {
		keepSnapshots = 1
	}
	return &ObjectStore{
		client: client,
		prefix: strings.Trim(prefix, "/"),
		keep:   keepSnapshots,
		logger: logger.With("component", "object_cache"),
		now:    time.Now,
	}
}

// Name returns the backend name
func (s *ObjectStore) Name() string { return "object" }

// Close is a no-op
func (s *ObjectStore) Close() error { return nil }

func (s *ObjectStore) key(elem ...string) string {
	return path.Join(append([]string{s.prefix}, elem...)...)
}

func (s *ObjectStore) entryPrefix(id domain.MatchIdentity) string {
	return s.key(string(id)) + "/"
}

// HasEntry checks for the CURRENT object
func (s *ObjectStore) HasEntry(ctx context.Context, id domain.MatchIdentity) bool {
	if ValidateIdentity(id) != nil {
		return false
	}
	ok, err := s.client.Exists(ctx, s.key(string(id), currentFile))
	if err != nil {
		s.logger.WarnContext(ctx, "cache_exists_check_failed",
			slog.String("identity", id.Short()), slog.String("error", err.Error()))
		return false
	}
	return ok
}

// Load reads the published snapshot of id
func (s *ObjectStore) Load(ctx context.Context, id domain.MatchIdentity) (*domain.Match, error) {
	if err := ValidateIdentity(id); err != nil {
		return nil, apperrors.NewNotFoundError("cache entry " + string(id))
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewCancelledError("cache_load", err)
	}

	return loadSnapshot(id,
		func() ([]byte, error) {
			return s.get(ctx, s.key(string(id), currentFile))
		},
		func(snapshot, part string) ([]byte, error) {
			return s.get(ctx, s.key(string(id), snapshot, part))
		})
}

func (s *ObjectStore) get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key)
	if errors.Is(err, ErrObjectNotFound) {
		return nil, errMissing
	}
	return data, err
}

// Store uploads a new snapshot and publishes it
func (s *ObjectStore) Store(ctx context.Context, match *domain.Match) error {
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

	for _, name := range PartNames {
		if err := s.client.Put(ctx, s.key(string(id), snapshot, name), entry.Parts[name], "application/gzip"); err != nil {
			s.removeSnapshot(ctx, id, snapshot)
			return apperrors.NewCacheWriteError(string(id), err)
		}
	}
	if err := s.client.Put(ctx, s.key(string(id), currentFile), manifest, "application/json"); err != nil {
		s.removeSnapshot(ctx, id, snapshot)
		return apperrors.NewCacheWriteError(string(id), err)
	}

	s.prune(ctx, id, snapshot)

	s.logger.InfoContext(ctx, "cache_entry_stored",
		slog.String("identity", id.Short()),
		slog.String("snapshot", snapshot),
		slog.String("size", humanize.Bytes(entry.Size())))
	return nil
}

func (s *ObjectStore) removeSnapshot(ctx context.Context, id domain.MatchIdentity, snapshot string) {
	for _, name := range PartNames {
		_ = s.client.Remove(ctx, s.key(string(id), snapshot, name))
	}
}

// snapshots groups the keys under an entry by snapshot id
func (s *ObjectStore) snapshots(ctx context.Context, id domain.MatchIdentity) ([]string, error) {
	keys, err := s.client.List(ctx, s.entryPrefix(id))
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var snapshots []string
	for _, k := range keys {
		rest := strings.TrimPrefix(k, s.entryPrefix(id))
		snap, _, ok := strings.Cut(rest, "/")
		if !ok || seen[snap] {
			continue
		}
		seen[snap] = true
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

func (s *ObjectStore) prune(ctx context.Context, id domain.MatchIdentity, current string) {
	snapshots, err := s.snapshots(ctx, id)
	if err != nil {
		s.logger.WarnContext(ctx, "cache_prune_failed",
			slog.String("identity", id.Short()), slog.String("error", err.Error()))
		return
	}
	for _, stale := range staleSnapshots(snapshots, current, s.keep) {
		s.removeSnapshot(ctx, id, stale)
	}
}

// Delete removes the CURRENT object first, then every snapshot
func (s *ObjectStore) Delete(ctx context.Context, id domain.MatchIdentity) error {
	if err := ValidateIdentity(id); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	keys, err := s.client.List(ctx, s.entryPrefix(id))
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return apperrors.NewNotFoundError("cache entry " + id.Short())
	}

	currentKey := s.key(string(id), currentFile)
	if err := s.client.Remove(ctx, currentKey); err != nil && !errors.Is(err, ErrObjectNotFound) {
		return fmt.Errorf("unpublish %s: %w", id.Short(), err)
	}
	for _, k := range keys {
		if k == currentKey {
			continue
		}
		if err := s.client.Remove(ctx, k); err != nil && !errors.Is(err, ErrObjectNotFound) {
			return fmt.Errorf("remove %s: %w", k, err)
		}
	}
	return nil
}

// List returns identities that have a CURRENT object
func (s *ObjectStore) List(ctx context.Context) ([]domain.MatchIdentity, error) {
	root := s.prefix + "/"
	if s.prefix == "" {
		root = ""
	}
	keys, err := s.client.List(ctx, root)
	if err != nil {
		return nil, err
	}

	var ids []domain.MatchIdentity
	for _, k := range keys {
		rest := strings.TrimPrefix(k, root)
		idPart, tail, ok := strings.Cut(rest, "/")
		if !ok || tail != currentFile {
			continue
		}
		id := domain.MatchIdentity(idPart)
		if ValidateIdentity(id) == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
