package engine

import (
	"context"
	"sort"

	"github.com/inboxpraveen/Audio-Fingerprint/internal/fingerprint"
	"github.com/inboxpraveen/Audio-Fingerprint/internal/storage"
)

// Match is one ranked recognition candidate. Offset is the modal
// difference between reference and query anchor times, in frames: where
// the query starts inside the reference track.
type Match struct {
	TrackID    string
	Confidence float64
	Offset     int32
	Metadata   *storage.Metadata
}

// matchHashes scores index candidates by offset-histogram voting. For
// every query hash occurrence, the difference between the reference anchor
// time and the query anchor time is collected per track; a true match
// piles these differences into one histogram bin, while coincidental hash
// overlap scatters them. Confidence is the largest bin count normalized by
// the query hash count.
func (e *Engine) matchHashes(ctx context.Context, query []fingerprint.Hash, topK int) ([]Match, error) {
	if len(query) == 0 {
		return nil, nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	offsets := make(map[string][]int32)
	for _, q := range query {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entries, err := e.store.Query(ctx, q.Value)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			delta := int32(entry.AnchorTime) - int32(q.AnchorTime)
			offsets[entry.TrackID] = append(offsets[entry.TrackID], delta)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(offsets))
	for trackID, deltas := range offsets {
		histogram := make(map[int32]int)
		for _, d := range deltas {
			histogram[d]++
		}

		best := 0
		var bestOffset int32
		for offset, count := range histogram {
			if count > best || (count == best && offset < bestOffset) {
				best = count
				bestOffset = offset
			}
		}

		matches = append(matches, Match{
			TrackID:    trackID,
			Confidence: float64(best) / float64(len(query)),
			Offset:     bestOffset,
		})
	}

	// Ties break on track ID so rankings are deterministic.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		return matches[i].TrackID < matches[j].TrackID
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}

	// Attach metadata last. A track deleted mid-query has no metadata
	// anymore; those candidates are dropped rather than returned half
	// formed.
	out := matches[:0]
	for _, m := range matches {
		meta, err := e.store.Metadata(ctx, m.TrackID)
		if err != nil {
			return nil, err
		}
		if meta == nil {
			continue
		}
		m.Metadata = meta
		out = append(out, m)
	}
	return out, nil
}
