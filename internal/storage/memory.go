package storage

import (
	"context"
	"sync"

	"github.com/inboxpraveen/Audio-Fingerprint/internal/fingerprint"
)

// MemoryStore is the in-memory backend: a hash map from hash value to a
// growable entry list. A single RWMutex guards both maps, which makes the
// two-map update of Store and Delete atomic to readers.
type MemoryStore struct {
	mu          sync.RWMutex
	hashes      map[uint32][]Entry
	tracks      map[string]Metadata
	hashEntries int64
	params      *Params
}

// NewMemoryStore creates an empty in-memory index.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hashes: make(map[uint32][]Entry),
		tracks: make(map[string]Metadata),
	}
}

// Store inserts a track's metadata and hashes. An existing track with the
// same ID is removed first, so re-storing replaces rather than appends.
func (m *MemoryStore) Store(ctx context.Context, trackID string, meta Metadata, hashes []fingerprint.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tracks[trackID]; exists {
		m.removeTrackLocked(trackID)
	}

	meta.TrackID = trackID
	m.tracks[trackID] = meta
	for _, h := range hashes {
		m.hashes[h.Value] = append(m.hashes[h.Value], Entry{TrackID: trackID, AnchorTime: h.AnchorTime})
	}
	m.hashEntries += int64(len(hashes))
	return nil
}

// Query returns all occurrences of a hash. An absent hash yields an empty
// result, never an error.
func (m *MemoryStore) Query(ctx context.Context, hash uint32) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.hashes[hash]
	if len(entries) == 0 {
		return nil, nil
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out, nil
}

// Metadata returns a track's metadata, or nil when the track is unknown.
func (m *MemoryStore) Metadata(ctx context.Context, trackID string) (*Metadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	meta, ok := m.tracks[trackID]
	if !ok {
		return nil, nil
	}
	return &meta, nil
}

// AllTracks returns metadata for every indexed track.
func (m *MemoryStore) AllTracks(ctx context.Context) ([]Metadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Metadata, 0, len(m.tracks))
	for _, meta := range m.tracks {
		out = append(out, meta)
	}
	return out, nil
}

// Delete removes a track and all its hash entries. Deleting an unknown
// track is a no-op.
func (m *MemoryStore) Delete(ctx context.Context, trackID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeTrackLocked(trackID)
	return nil
}

func (m *MemoryStore) removeTrackLocked(trackID string) {
	delete(m.tracks, trackID)

	for hash, entries := range m.hashes {
		kept := entries[:0]
		for _, e := range entries {
			if e.TrackID != trackID {
				kept = append(kept, e)
			}
		}
		m.hashEntries -= int64(len(entries) - len(kept))
		if len(kept) == 0 {
			delete(m.hashes, hash)
		} else {
			m.hashes[hash] = kept
		}
	}
}

// Stats reports index counts.
func (m *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Stats{
		Tracks:       len(m.tracks),
		HashEntries:  m.hashEntries,
		UniqueHashes: int64(len(m.hashes)),
		Backend:      "memory",
	}, nil
}

// Clear empties the index. Persisted parameters are kept: the index is
// empty, not reconfigured.
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hashes = make(map[uint32][]Entry)
	m.tracks = make(map[string]Metadata)
	m.hashEntries = 0
	return nil
}

// Params returns the recorded indexing parameters, nil when unset.
func (m *MemoryStore) Params(ctx context.Context) (*Params, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.params == nil {
		return nil, nil
	}
	p := *m.params
	return &p, nil
}

// SetParams records the indexing parameters.
func (m *MemoryStore) SetParams(ctx context.Context, p Params) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = &p
	return nil
}

// Close is a no-op for the in-memory backend.
func (m *MemoryStore) Close() error {
	return nil
}
