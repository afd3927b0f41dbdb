// Package cache persists analyzed matches keyed by match identity.
//
// Three backends implement Store: FileStore (local directory, default),
// SQLiteStore (single database file) and ObjectStore (S3-compatible bucket
// via minio-go). All share the Entry codec: a manifest with per-part
// checksums, a gzip JSON core record, and two gzip JSON-lines streams for
// weapon-fired and player-blinded events. A BloomIndex can wrap any backend
// to answer negative existence checks from memory.
package cache
