package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	_ "modernc.org/sqlite"

	apperrors "demoreport/internal/errors"
	"demoreport/pkg/contracts/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entries (
	identity       TEXT PRIMARY KEY,
	schema_version INTEGER NOT NULL,
	created_at     TEXT NOT NULL,
	manifest       BLOB NOT NULL,
	core           BLOB NOT NULL,
	weapon_fired   BLOB NOT NULL,
	player_blinded BLOB NOT NULL
);
`

// SQLiteStore keeps one row per identity. A row is replaced in a single
// transaction, so readers never see a mix of two writes.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// OpenSQLite opens (and creates if needed) the cache database at path
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// pragmas are per connection
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:     db,
		path:   path,
		logger: logger.With("component", "sqlite_cache"),
		now:    time.Now,
	}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// init sets pragmas and creates the schema
func (s *SQLiteStore) init(ctx context.Context) error {
	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		sqliteSchema,
	} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize cache database: %w", err)
		}
	}
	return nil
}

// Name returns the backend name
func (s *SQLiteStore) Name() string { return "sqlite" }

// Close closes the database
func (s *SQLiteStore) Close() error { return s.db.Close() }

// HasEntry checks for a row
func (s *SQLiteStore) HasEntry(ctx context.Context, id domain.MatchIdentity) bool {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM entries WHERE identity = ?", string(id)).Scan(&one)
	return err == nil
}

// Load reads and verifies the row of id
func (s *SQLiteStore) Load(ctx context.Context, id domain.MatchIdentity) (*domain.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewCancelledError("cache_load", err)
	}

	var manifest []byte
	entry := &Entry{Parts: make(map[string][]byte, len(PartNames))}
	var core, fired, blinded []byte

	err := s.db.QueryRowContext(ctx,
		"SELECT manifest, core, weapon_fired, player_blinded FROM entries WHERE identity = ?",
		string(id)).Scan(&manifest, &core, &fired, &blinded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("cache entry " + id.Short())
	}
	if err != nil {
		return nil, apperrors.NewCacheCorruptError(string(id), err)
	}

	if entry.Manifest, err = ParseManifest(manifest); err != nil {
		return nil, apperrors.NewCacheCorruptError(string(id), err)
	}
	if entry.Manifest.Identity != id {
		return nil, apperrors.NewCacheCorruptError(string(id),
			fmt.Errorf("row belongs to %s", entry.Manifest.Identity.Short()))
	}
	entry.Parts[PartCore] = core
	entry.Parts[PartWeaponFired] = fired
	entry.Parts[PartPlayerBlinded] = blinded

	match, err := Decode(entry)
	if err != nil {
		return nil, apperrors.NewCacheCorruptError(string(id), err)
	}
	return match, nil
}

// Store upserts the row of the match
func (s *SQLiteStore) Store(ctx context.Context, match *domain.Match) error {
	if match == nil {
		return apperrors.NewCacheWriteError("", errors.New("nil match"))
	}
	id := match.Identity
	if err := ValidateIdentity(id); err != nil {
		return apperrors.NewCacheWriteError(string(id), err)
	}

	now := s.now()
	entry, err := Encode(match, newSnapshotID(now), now)
	if err != nil {
		return apperrors.NewCacheWriteError(string(id), err)
	}
	manifest, err := MarshalManifest(entry.Manifest)
	if err != nil {
		return apperrors.NewCacheWriteError(string(id), err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewCacheWriteError(string(id), err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries (identity, schema_version, created_at, manifest, core, weapon_fired, player_blinded)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			schema_version = excluded.schema_version,
			created_at = excluded.created_at,
			manifest = excluded.manifest,
			core = excluded.core,
			weapon_fired = excluded.weapon_fired,
			player_blinded = excluded.player_blinded`,
		string(id), entry.Manifest.SchemaVersion, entry.Manifest.CreatedAt.Format(time.RFC3339Nano),
		manifest, entry.Parts[PartCore], entry.Parts[PartWeaponFired], entry.Parts[PartPlayerBlinded])
	if err != nil {
		return apperrors.NewCacheWriteError(string(id), err)
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewCacheWriteError(string(id), err)
	}

	s.logger.InfoContext(ctx, "cache_entry_stored",
		slog.String("identity", id.Short()),
		slog.String("size", humanize.Bytes(entry.Size())))
	return nil
}

// Delete removes the row of id
func (s *SQLiteStore) Delete(ctx context.Context, id domain.MatchIdentity) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE identity = ?", string(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NewNotFoundError("cache entry " + id.Short())
	}
	return nil
}

// List returns all stored identities
func (s *SQLiteStore) List(ctx context.Context) ([]domain.MatchIdentity, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT identity FROM entries ORDER BY identity")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []domain.MatchIdentity
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, domain.MatchIdentity(id))
	}
	return ids, rows.Err()
}
