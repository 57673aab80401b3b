package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	// Drivers for the tabular backends.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/inboxpraveen/Audio-Fingerprint/internal/fingerprint"
)

// dialect captures the per-driver differences of the tabular schema. The
// logical schema is identical everywhere: songs(track_id PK, ..., metadata
// JSON blob), fingerprints(hash, track_id, anchor_time) with a secondary
// index on hash, and a single-row index_params table.
type dialect struct {
	name         string
	driver       string
	placeholders bool // true when the driver uses $1-style placeholders
	schema       []string
}

var (
	dialectSQLite = dialect{
		name:   "sqlite",
		driver: "sqlite3",
		schema: []string{
			`CREATE TABLE IF NOT EXISTS songs (
				track_id TEXT PRIMARY KEY,
				title TEXT,
				artist TEXT,
				filepath TEXT,
				duration REAL,
				metadata TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS fingerprints (
				hash INTEGER NOT NULL,
				track_id TEXT NOT NULL,
				anchor_time INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_fingerprints_hash ON fingerprints(hash)`,
			`CREATE TABLE IF NOT EXISTS index_params (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				params TEXT NOT NULL
			)`,
		},
	}

	dialectPostgres = dialect{
		name:         "postgres",
		driver:       "postgres",
		placeholders: true,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS songs (
				track_id TEXT PRIMARY KEY,
				title TEXT,
				artist TEXT,
				filepath TEXT,
				duration DOUBLE PRECISION,
				metadata TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS fingerprints (
				hash BIGINT NOT NULL,
				track_id TEXT NOT NULL,
				anchor_time INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_fingerprints_hash ON fingerprints(hash)`,
			`CREATE TABLE IF NOT EXISTS index_params (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				params TEXT NOT NULL
			)`,
		},
	}

	dialectMySQL = dialect{
		name:   "mysql",
		driver: "mysql",
		schema: []string{
			`CREATE TABLE IF NOT EXISTS songs (
				track_id VARCHAR(64) PRIMARY KEY,
				title TEXT,
				artist TEXT,
				filepath TEXT,
				duration DOUBLE,
				metadata TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS fingerprints (
				hash BIGINT NOT NULL,
				track_id VARCHAR(64) NOT NULL,
				anchor_time INT NOT NULL,
				INDEX idx_fingerprints_hash (hash)
			)`,
			`CREATE TABLE IF NOT EXISTS index_params (
				id INT PRIMARY KEY,
				params TEXT NOT NULL
			)`,
		},
	}
)

// rebind rewrites ?-style placeholders to $n-style for drivers that need
// it.
func (d dialect) rebind(query string) string {
	if !d.placeholders {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// insertBatchSize bounds the number of rows per multi-row INSERT so the
// statement stays under every driver's placeholder limit.
const insertBatchSize = 500

// SQLStore is the tabular backend over database/sql. Store and Delete run
// in transactions, so concurrent readers observe either all or none of a
// track's rows.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// NewSQLStore opens (and if necessary creates) a tabular index with the
// given dialect and DSN.
func NewSQLStore(d dialect, dsn string) (*SQLStore, error) {
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open %s database: %v", d.name, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: failed to connect to %s database: %v", d.name, err)
	}

	for _, stmt := range d.schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("storage: failed to create schema: %v", err)
		}
	}
	return &SQLStore{db: db, dialect: d}, nil
}

// Store inserts a track's metadata and hashes in one transaction,
// replacing any previous rows for the same track ID.
func (s *SQLStore) Store(ctx context.Context, trackID string, meta Metadata, hashes []fingerprint.Hash) error {
	meta.TrackID = trackID
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("storage: failed to encode metadata: %v", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.dialect.rebind(
		`DELETE FROM fingerprints WHERE track_id = ?`), trackID); err != nil {
		return fmt.Errorf("storage: failed to clear old fingerprints: %v", err)
	}
	if _, err := tx.ExecContext(ctx, s.dialect.rebind(
		`DELETE FROM songs WHERE track_id = ?`), trackID); err != nil {
		return fmt.Errorf("storage: failed to clear old song row: %v", err)
	}

	if _, err := tx.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO songs (track_id, title, artist, filepath, duration, metadata)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		trackID, meta.Title, meta.Artist, meta.Filepath, meta.Duration, string(metaJSON)); err != nil {
		return fmt.Errorf("storage: failed to insert song: %v", err)
	}

	for start := 0; start < len(hashes); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(hashes) {
			end = len(hashes)
		}
		batch := hashes[start:end]

		var b strings.Builder
		b.WriteString(`INSERT INTO fingerprints (hash, track_id, anchor_time) VALUES `)
		args := make([]any, 0, len(batch)*3)
		for i, h := range batch {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("(?, ?, ?)")
			args = append(args, int64(h.Value), trackID, int64(h.AnchorTime))
		}
		if _, err := tx.ExecContext(ctx, s.dialect.rebind(b.String()), args...); err != nil {
			return fmt.Errorf("storage: failed to insert fingerprints: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: failed to commit: %v", err)
	}
	return nil
}

// Query returns all occurrences of a hash.
func (s *SQLStore) Query(ctx context.Context, hash uint32) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(
		`SELECT track_id, anchor_time FROM fingerprints WHERE hash = ?`), int64(hash))
	if err != nil {
		return nil, fmt.Errorf("storage: hash query failed: %v", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var anchor int64
		if err := rows.Scan(&e.TrackID, &anchor); err != nil {
			return nil, fmt.Errorf("storage: failed to scan fingerprint row: %v", err)
		}
		e.AnchorTime = uint32(anchor)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: hash query failed: %v", err)
	}
	return entries, nil
}

// Metadata returns a track's metadata from its JSON column, or nil when
// the track is unknown.
func (s *SQLStore) Metadata(ctx context.Context, trackID string) (*Metadata, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(
		`SELECT metadata FROM songs WHERE track_id = ?`), trackID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: metadata query failed: %v", err)
	}

	var meta Metadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("storage: failed to decode metadata: %v", err)
	}
	return &meta, nil
}

// AllTracks returns metadata for every indexed track.
func (s *SQLStore) AllTracks(ctx context.Context) ([]Metadata, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT metadata FROM songs`)
	if err != nil {
		return nil, fmt.Errorf("storage: song listing failed: %v", err)
	}
	defer rows.Close()

	var out []Metadata
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("storage: failed to scan song row: %v", err)
		}
		var meta Metadata
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			return nil, fmt.Errorf("storage: failed to decode metadata: %v", err)
		}
		out = append(out, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: song listing failed: %v", err)
	}
	return out, nil
}

// Delete removes a track and its fingerprints in one transaction.
// Idempotent: deleting an unknown track succeeds.
func (s *SQLStore) Delete(ctx context.Context, trackID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.dialect.rebind(
		`DELETE FROM fingerprints WHERE track_id = ?`), trackID); err != nil {
		return fmt.Errorf("storage: failed to delete fingerprints: %v", err)
	}
	if _, err := tx.ExecContext(ctx, s.dialect.rebind(
		`DELETE FROM songs WHERE track_id = ?`), trackID); err != nil {
		return fmt.Errorf("storage: failed to delete song: %v", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: failed to commit delete: %v", err)
	}
	return nil
}

// Stats reports index counts.
func (s *SQLStore) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Backend: s.dialect.name}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM songs`).Scan(&stats.Tracks); err != nil {
		return Stats{}, fmt.Errorf("storage: stats query failed: %v", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fingerprints`).Scan(&stats.HashEntries); err != nil {
		return Stats{}, fmt.Errorf("storage: stats query failed: %v", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT hash) FROM fingerprints`).Scan(&stats.UniqueHashes); err != nil {
		return Stats{}, fmt.Errorf("storage: stats query failed: %v", err)
	}
	return stats, nil
}

// Clear empties both relations. Persisted parameters are kept.
func (s *SQLStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fingerprints`); err != nil {
		return fmt.Errorf("storage: failed to clear fingerprints: %v", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM songs`); err != nil {
		return fmt.Errorf("storage: failed to clear songs: %v", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: failed to commit clear: %v", err)
	}
	return nil
}

// Params returns the persisted indexing parameters, nil when the index is
// fresh.
func (s *SQLStore) Params(ctx context.Context) (*Params, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT params FROM index_params WHERE id = 1`).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: params query failed: %v", err)
	}

	var p Params
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("storage: failed to decode params: %v", err)
	}
	return &p, nil
}

// SetParams records the indexing parameters, replacing any previous row.
func (s *SQLStore) SetParams(ctx context.Context, p Params) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("storage: failed to encode params: %v", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM index_params`); err != nil {
		return fmt.Errorf("storage: failed to clear params: %v", err)
	}
	if _, err := tx.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO index_params (id, params) VALUES (1, ?)`), string(raw)); err != nil {
		return fmt.Errorf("storage: failed to store params: %v", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: failed to commit params: %v", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
