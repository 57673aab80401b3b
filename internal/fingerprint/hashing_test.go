package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestGenerateHashesSinglePair(t *testing.T) {
	peaks := []Peak{
		{T: 0, F: 100},
		{T: 5, F: 150},
	}

	hashes := GenerateHashes(peaks, 1)
	require.Len(t, hashes, 1)

	want := uint32(100)<<20 | uint32(150)<<10 | 5
	assert.Equal(t, want, hashes[0].Value)
	assert.Equal(t, uint32(0), hashes[0].AnchorTime)
}

func TestGenerateHashesDropsDegeneratePairs(t *testing.T) {
	// Same frame delta of zero must never be emitted.
	peaks := []Peak{
		{T: 10, F: 100},
		{T: 10, F: 200},
		{T: 12, F: 300},
	}

	hashes := GenerateHashes(peaks, 2)
	for _, h := range hashes {
		_, _, delta := DecodeHash(h.Value)
		assert.Greater(t, delta, uint16(0))
	}
	// (10,100)->(12,300), (10,200)->(12,300); the zero-delta pair is gone.
	assert.Len(t, hashes, 2)
}

func TestGenerateHashesDropsWideDeltas(t *testing.T) {
	peaks := []Peak{
		{T: 0, F: 100},
		{T: 1023, F: 200}, // delta 1023 fits 10 bits
		{T: 1024, F: 150}, // delta 1024 from the first anchor does not
	}

	hashes := GenerateHashes(peaks, 2)
	require.Len(t, hashes, 2)

	_, _, delta := DecodeHash(hashes[0].Value)
	assert.Equal(t, uint16(1023), delta)
	_, _, delta = DecodeHash(hashes[1].Value)
	assert.Equal(t, uint16(1), delta)
}

func TestGenerateHashesFanValue(t *testing.T) {
	peaks := make([]Peak, 10)
	for i := range peaks {
		peaks[i] = Peak{T: uint32(i), F: uint16(100 + i)}
	}

	// Every anchor pairs with up to 5 successors; the tail anchors run out
	// of targets: 5*5 + 4 + 3 + 2 + 1.
	hashes := GenerateHashes(peaks, 5)
	assert.Len(t, hashes, 35)
}

func TestGenerateHashesTooFewPeaks(t *testing.T) {
	assert.Nil(t, GenerateHashes(nil, 5))
	assert.Nil(t, GenerateHashes([]Peak{{T: 0, F: 1}}, 5))
}

func TestGenerateHashesDeterministic(t *testing.T) {
	peaks := []Peak{
		{T: 0, F: 10}, {T: 3, F: 700}, {T: 3, F: 12}, {T: 9, F: 512}, {T: 30, F: 1024},
	}
	first := GenerateHashes(peaks, 3)
	second := GenerateHashes(peaks, 3)
	assert.Equal(t, first, second)
}

func TestPackHashRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		anchor := rapid.Uint16Range(0, 1<<12-1).Draw(t, "anchor")
		target := rapid.Uint16Range(0, 1<<10-1).Draw(t, "target")
		delta := rapid.Uint16Range(1, 1023).Draw(t, "delta")

		a, f, d := DecodeHash(PackHash(anchor, target, delta))
		if a != anchor || f != target || d != delta {
			t.Fatalf("round trip mismatch: packed (%d,%d,%d), decoded (%d,%d,%d)",
				anchor, target, delta, a, f, d)
		}
	})
}

func TestGenerateHashesFieldInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 40).Draw(t, "n")
		peaks := make([]Peak, n)
		var frame uint32
		for i := range peaks {
			frame += rapid.Uint32Range(0, 1500).Draw(t, "step")
			peaks[i] = Peak{
				T: frame,
				F: rapid.Uint16Range(0, 1024).Draw(t, "freq"),
			}
		}
		fan := rapid.IntRange(1, 8).Draw(t, "fan")

		for _, h := range GenerateHashes(peaks, fan) {
			_, _, delta := DecodeHash(h.Value)
			if delta == 0 || delta > 1023 {
				t.Fatalf("emitted hash with out-of-range delta %d", delta)
			}
		}
	})
}

func TestPackHashTruncatesTargetFreq(t *testing.T) {
	// Bins above 1023 wrap into 10 bits; the truncation is symmetric
	// between indexing and querying, so it costs selectivity, not
	// correctness.
	h := PackHash(1024, 1024, 1)
	anchor, target, _ := DecodeHash(h)
	assert.Equal(t, uint16(1024), anchor)
	assert.Equal(t, uint16(0), target)
}
