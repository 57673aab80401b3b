// Package storage defines the inverted hash index contract and its
// backends. Every backend maps hash values to (track, anchor time)
// occurrences and track IDs to metadata; the only observable difference
// between backends is whether state survives a process restart.
package storage

import (
	"context"
	"fmt"

	"github.com/inboxpraveen/Audio-Fingerprint/configs"
	"github.com/inboxpraveen/Audio-Fingerprint/internal/fingerprint"
)

// Entry is one occurrence of a hash: the track it belongs to and the frame
// index of the anchor peak that produced it.
type Entry struct {
	TrackID    string
	AnchorTime uint32
}

// Metadata describes one indexed track. Extra carries fields the engine
// does not interpret; the tabular backends preserve them through their
// JSON-encoded metadata column.
type Metadata struct {
	TrackID   string         `json:"track_id"`
	Title     string         `json:"title"`
	Artist    string         `json:"artist"`
	Filepath  string         `json:"filepath"`
	Duration  float64        `json:"duration"`
	NumPeaks  int            `json:"num_peaks"`
	NumHashes int            `json:"num_hashes"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// Params records the fingerprinting parameters an index was built with.
// They participate in hash identity, so a backend persists them and the
// engine refuses to open an index built with different values.
type Params struct {
	SampleRate           int     `json:"sample_rate"`
	NFFT                 int     `json:"n_fft"`
	HopLength            int     `json:"hop_length"`
	PeakNeighborhoodSize int     `json:"peak_neighborhood_size"`
	MinAmplitude         float64 `json:"min_amplitude"`
	FanValue             int     `json:"fan_value"`
}

// Stats summarizes the index contents.
type Stats struct {
	Tracks       int    `json:"total_songs"`
	HashEntries  int64  `json:"total_hashes"`
	UniqueHashes int64  `json:"unique_hashes"`
	Backend      string `json:"storage_type"`
}

// Backend is the inverted hash index. Implementations must make Store and
// Delete atomic with respect to concurrent readers: a query that observes
// any hash of a track can also observe its metadata, and partially-deleted
// state is never visible.
//
// Store has delete-then-insert upsert semantics: storing an existing track
// ID replaces its metadata and all of its hashes.
type Backend interface {
	Store(ctx context.Context, trackID string, meta Metadata, hashes []fingerprint.Hash) error
	Query(ctx context.Context, hash uint32) ([]Entry, error)
	Metadata(ctx context.Context, trackID string) (*Metadata, error)
	AllTracks(ctx context.Context) ([]Metadata, error)
	Delete(ctx context.Context, trackID string) error
	Stats(ctx context.Context) (Stats, error)
	Clear(ctx context.Context) error

	// Params returns the persisted indexing parameters, or nil when the
	// index is fresh. SetParams records them.
	Params(ctx context.Context) (*Params, error)
	SetParams(ctx context.Context, p Params) error

	Close() error
}

// New creates a backend from the storage configuration.
func New(cfg configs.StorageConfig) (Backend, error) {
	switch cfg.Type {
	case configs.StorageMemory:
		return NewMemoryStore(), nil
	case configs.StorageSQLite:
		return NewSQLStore(dialectSQLite, cfg.Path)
	case configs.StoragePostgres:
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
		return NewSQLStore(dialectPostgres, dsn)
	case configs.StorageMySQL:
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)
		return NewSQLStore(dialectMySQL, dsn)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
