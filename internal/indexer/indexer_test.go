package indexer

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxpraveen/Audio-Fingerprint/configs"
	"github.com/inboxpraveen/Audio-Fingerprint/internal/engine"
	"github.com/inboxpraveen/Audio-Fingerprint/internal/storage"
)

type sliceStreamer struct {
	samples []float32
	pos     int
}

func (s *sliceStreamer) Stream(out [][2]float64) (int, bool) {
	if s.pos >= len(s.samples) {
		return 0, false
	}
	n := 0
	for ; n < len(out) && s.pos < len(s.samples); n++ {
		v := float64(s.samples[s.pos])
		out[n][0], out[n][1] = v, v
		s.pos++
	}
	return n, true
}

func (s *sliceStreamer) Err() error { return nil }

func writeTone(t *testing.T, path string, freq float64, seconds int) {
	t.Helper()
	const rate = 11025
	samples := make([]float32, rate*seconds)
	for i := range samples {
		samples[i] = 0.8 * float32(math.Sin(2*math.Pi*freq*float64(i)/rate))
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	format := beep.Format{SampleRate: rate, NumChannels: 1, Precision: 2}
	require.NoError(t, wav.Encode(f, &sliceStreamer{samples: samples}, format))
}

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	cfg := configs.DefaultConfig()
	e, err := engine.New(&cfg, storage.NewMemoryStore())
	require.NoError(t, err)
	return e
}

func TestIndexDirectory(t *testing.T) {
	dir := t.TempDir()
	writeTone(t, filepath.Join(dir, "a.wav"), 440, 2)
	writeTone(t, filepath.Join(dir, "b.wav"), 880, 2)
	writeTone(t, filepath.Join(dir, "c.wav"), 1320, 2)
	// Unsupported files are skipped during discovery.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cover.jpg"), []byte("img"), 0o644))

	e := newTestEngine(t)
	var progressCalls int
	ix := New(e, 2, func(done, total int, path string, err error) {
		progressCalls++
		assert.Equal(t, 3, total)
	})

	summary, err := ix.IndexDirectory(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Zero(t, summary.Failed)
	assert.Equal(t, 3, progressCalls)

	stats, err := e.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Tracks)
}

func TestIndexDirectoryCollectsFailures(t *testing.T) {
	dir := t.TempDir()
	writeTone(t, filepath.Join(dir, "good.wav"), 440, 2)
	// A corrupt file fails to decode but does not abort the batch.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.wav"), []byte("RIFFgarbage"), 0o644))

	e := newTestEngine(t)
	ix := New(e, 2, nil)

	summary, err := ix.IndexDirectory(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0].Path, "bad.wav")
}

func TestIndexFilesEmpty(t *testing.T) {
	ix := New(newTestEngine(t), 2, nil)
	summary := ix.IndexFiles(context.Background(), nil)
	assert.Zero(t, summary.Total)
	assert.Zero(t, summary.Failed)
}

func TestIndexDirectoryMissing(t *testing.T) {
	ix := New(newTestEngine(t), 1, nil)
	_, err := ix.IndexDirectory(context.Background(), filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestIndexFilesCancellation(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.wav", "b.wav", "c.wav", "d.wav"} {
		path := filepath.Join(dir, name)
		writeTone(t, path, 440, 1)
		paths = append(paths, path)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ix := New(newTestEngine(t), 1, nil)
	summary := ix.IndexFiles(ctx, paths)

	// Nothing is dispatched after cancellation; pending files are failed.
	assert.Equal(t, 4, summary.Total)
	assert.Zero(t, summary.Succeeded)
	assert.Equal(t, 4, summary.Failed)
}
