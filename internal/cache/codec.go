package cache

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"demoreport/pkg/contracts/domain"
)

// Part names of a persisted entry
const (
	PartCore          = "core.json.gz"
	PartWeaponFired   = "weapon_fired.jsonl.gz"
	PartPlayerBlinded = "player_blinded.jsonl.gz"
)

// PartNames lists every part an entry must carry, in write order
var PartNames = []string{PartCore, PartWeaponFired, PartPlayerBlinded}

// PartInfo describes one stored part
type PartInfo struct {
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

// Manifest is the pointer record of an entry. Publishing it is what makes
// a snapshot visible to readers.
type Manifest struct {
	Identity      domain.MatchIdentity `json:"identity"`
	SchemaVersion int                  `json:"schema_version"`
	Snapshot      string               `json:"snapshot"`
	CreatedAt     time.Time            `json:"created_at"`
	Parts         map[string]PartInfo  `json:"parts"`
}

// Entry is the backend-neutral persisted form of a match
type Entry struct {
	Manifest Manifest
	Parts    map[string][]byte
}

// Size is the total stored size of the parts
func (e *Entry) Size() uint64 {
	var total uint64
	for _, p := range e.Parts {
		total += uint64(len(p))
	}
	return total
}

// Encode serializes a match into an entry for the given snapshot
func Encode(match *domain.Match, snapshot string, now time.Time) (*Entry, error) {
	if match == nil {
		return nil, errors.New("nil match")
	}

	core, err := gzipJSON(match.WithoutStreams())
	if err != nil {
		return nil, fmt.Errorf("encode core: %w", err)
	}
	fired, err := encodeLines(match.WeaponFired)
	if err != nil {
		return nil, fmt.Errorf("encode weapon fired: %w", err)
	}
	blinded, err := encodeLines(match.PlayerBlinded)
	if err != nil {
		return nil, fmt.Errorf("encode player blinded: %w", err)
	}

	entry := &Entry{
		Manifest: Manifest{
			Identity:      match.Identity,
			SchemaVersion: domain.SchemaVersion,
			Snapshot:      snapshot,
			CreatedAt:     now.UTC(),
			Parts:         make(map[string]PartInfo, len(PartNames)),
		},
		Parts: map[string][]byte{
			PartCore:          core,
			PartWeaponFired:   fired,
			PartPlayerBlinded: blinded,
		},
	}
	for name, data := range entry.Parts {
		entry.Manifest.Parts[name] = PartInfo{SHA256: checksum(data), Size: int64(len(data))}
	}
	return entry, nil
}

// Decode verifies an entry and rebuilds the match. Any mismatch in schema,
// identity or checksums is an error; there are no partial results.
func Decode(entry *Entry) (*domain.Match, error) {
	if entry == nil {
		return nil, errors.New("nil entry")
	}
	m := entry.Manifest
	if m.SchemaVersion != domain.SchemaVersion {
		return nil, fmt.Errorf("schema version %d, want %d", m.SchemaVersion, domain.SchemaVersion)
	}

	for _, name := range PartNames {
		data, ok := entry.Parts[name]
		if !ok {
			return nil, fmt.Errorf("part %s missing", name)
		}
		info, ok := m.Parts[name]
		if !ok {
			return nil, fmt.Errorf("part %s not in manifest", name)
		}
		if int64(len(data)) != info.Size || checksum(data) != info.SHA256 {
			return nil, fmt.Errorf("part %s checksum mismatch", name)
		}
	}

	var match domain.Match
	if err := gunzipJSON(entry.Parts[PartCore], &match); err != nil {
		return nil, fmt.Errorf("decode core: %w", err)
	}
	if match.Identity != m.Identity {
		return nil, fmt.Errorf("core identity %s does not match manifest %s", match.Identity.Short(), m.Identity.Short())
	}
	if match.SchemaVersion != domain.SchemaVersion {
		return nil, fmt.Errorf("core schema version %d, want %d", match.SchemaVersion, domain.SchemaVersion)
	}

	var err error
	if match.WeaponFired, err = decodeLines[domain.WeaponFire](entry.Parts[PartWeaponFired]); err != nil {
		return nil, fmt.Errorf("decode weapon fired: %w", err)
	}
	if match.PlayerBlinded, err = decodeLines[domain.PlayerBlind](entry.Parts[PartPlayerBlinded]); err != nil {
		return nil, fmt.Errorf("decode player blinded: %w", err)
	}
	return &match, nil
}

// MarshalManifest renders a manifest for storage
func MarshalManifest(m Manifest) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// ParseManifest reads a stored manifest
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Snapshot == "" || m.Identity == "" {
		return Manifest{}, errors.New("manifest without identity or snapshot")
	}
	return m, nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func gzipJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(v); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzipJSON(data []byte, v any) error {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer zr.Close()
	return json.NewDecoder(zr).Decode(v)
}

// encodeLines writes one JSON value per line, gzip-compressed
func encodeLines[T any](items []T) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	enc := json.NewEncoder(zw)
	for i := range items {
		if err := enc.Encode(&items[i]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeLines[T any](data []byte) ([]T, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var items []T
	dec := json.NewDecoder(zr)
	for {
		var item T
		err := dec.Decode(&item)
		if errors.Is(err, io.EOF) {
			return items, nil
		}
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
}
