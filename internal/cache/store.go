package cache

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "demoreport/internal/errors"
	"demoreport/pkg/contracts/domain"
)

// Store is the analysis cache keyed by match identity.
//
// Implementations must make Store atomic with respect to Load: a reader
// either sees the previous complete entry or the new complete entry.
type Store interface {
	// HasEntry reports whether a complete entry exists. It never fails;
	// backend errors count as absent.
	HasEntry(ctx context.Context, id domain.MatchIdentity) bool
	// Load returns NotFound when absent and CacheCorrupt when the entry
	// exists but cannot be read back completely.
	Load(ctx context.Context, id domain.MatchIdentity) (*domain.Match, error)
	// Store returns CacheWrite on any failure.
	Store(ctx context.Context, match *domain.Match) error
	Delete(ctx context.Context, id domain.MatchIdentity) error
	List(ctx context.Context) ([]domain.MatchIdentity, error)
	Name() string
	Close() error
}

var identityPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ValidateIdentity rejects identities that are not safe as a path or key
// component
func ValidateIdentity(id domain.MatchIdentity) error {
	if !identityPattern.MatchString(string(id)) {
		return apperrors.NewAppValidationError(fmt.Sprintf("invalid match identity %q", string(id)), nil)
	}
	return nil
}

// manifestReads bounds re-reading CURRENT after a concurrent prune
const manifestReads = 3

// errMissing is returned by backend readers for absent objects
var errMissing = errors.New("missing")

const snapshotTimeLayout = "20060102T150405.000000000Z"

// newSnapshotID returns an id that sorts by creation time
func newSnapshotID(now time.Time) string {
	return now.UTC().Format(snapshotTimeLayout) + "-" + uuid.NewString()[:8]
}

// snapshotTime parses the creation time a snapshot id starts with
func snapshotTime(snapshot string) (time.Time, bool) {
	stamp, _, ok := strings.Cut(snapshot, "-")
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(snapshotTimeLayout, stamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// staleSnapshots returns the snapshots to prune, keeping the newest keep
// ones and always the current one
func staleSnapshots(all []string, current string, keep int) []string {
	if keep < 1 {
		keep = 1
	}
	sorted := append([]string(nil), all...)
	sort.Sort(sort.Reverse(sort.StringSlice(sorted)))

	var stale []string
	others := keep - 1
	for _, s := range sorted {
		if s == current {
			continue
		}
		if others > 0 {
			others--
			continue
		}
		stale = append(stale, s)
	}
	return stale
}

// loadSnapshot reads the published manifest and its parts. A snapshot can
// be pruned by a concurrent writer between reading the manifest and the
// parts; in that case the manifest is read again.
func loadSnapshot(
	id domain.MatchIdentity,
	readManifest func() ([]byte, error),
	readPart func(snapshot, part string) ([]byte, error),
) (*domain.Match, error) {
	var lastErr error
	for attempt := 0; attempt < manifestReads; attempt++ {
		raw, err := readManifest()
		if errors.Is(err, errMissing) {
			return nil, apperrors.NewNotFoundError("cache entry " + id.Short())
		}
		if err != nil {
			return nil, apperrors.NewCacheCorruptError(string(id), err)
		}

		manifest, err := ParseManifest(raw)
		if err != nil {
			return nil, apperrors.NewCacheCorruptError(string(id), err)
		}
		if manifest.Identity != id {
			return nil, apperrors.NewCacheCorruptError(string(id),
				fmt.Errorf("manifest belongs to %s", manifest.Identity.Short()))
		}

		entry := &Entry{Manifest: manifest, Parts: make(map[string][]byte, len(PartNames))}
		lastErr = nil
		for _, name := range PartNames {
			data, err := readPart(manifest.Snapshot, name)
			if errors.Is(err, errMissing) {
				lastErr = fmt.Errorf("snapshot %s is missing %s", manifest.Snapshot, name)
				break
			}
			if err != nil {
				return nil, apperrors.NewCacheCorruptError(string(id), err)
			}
			entry.Parts[name] = data
		}
		if lastErr != nil {
			continue
		}

		match, err := Decode(entry)
		if err != nil {
			return nil, apperrors.NewCacheCorruptError(string(id), err)
		}
		return match, nil
	}
	return nil, apperrors.NewCacheCorruptError(string(id), lastErr)
}
