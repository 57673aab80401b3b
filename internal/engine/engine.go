// Package engine wires the fingerprinting pipeline to an index backend
// and exposes the indexing and recognition operations the CLI and HTTP
// surfaces are built on.
package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/inboxpraveen/Audio-Fingerprint/configs"
	"github.com/inboxpraveen/Audio-Fingerprint/internal/audio"
	"github.com/inboxpraveen/Audio-Fingerprint/internal/fingerprint"
	"github.com/inboxpraveen/Audio-Fingerprint/internal/storage"
	"github.com/inboxpraveen/Audio-Fingerprint/utils/logger"
)

// ErrParamsMismatch indicates the configured DSP parameters differ from
// the ones the index was built with. Hashes from mismatched parameters
// silently fail to match, so the engine refuses to start instead.
var ErrParamsMismatch = errors.New("fingerprint parameters do not match the index")

// DefaultTopK is the number of ranked matches returned when the caller
// does not ask for a specific count.
const DefaultTopK = 5

// Engine combines a fingerprinter and an index backend. All methods are
// safe for concurrent use; the engine itself holds no mutable state.
type Engine struct {
	cfg   *configs.Config
	fp    *fingerprint.Fingerprinter
	store storage.Backend
}

// New creates an engine over the given backend and verifies that the
// backend's persisted indexing parameters match the configuration. A fresh
// index adopts the configured parameters.
func New(cfg *configs.Config, store storage.Backend) (*Engine, error) {
	fpCfg := fingerprint.Config{
		SampleRate:           cfg.Audio.SampleRate,
		NFFT:                 cfg.Audio.NFFT,
		HopLength:            cfg.Audio.HopLength,
		PeakNeighborhoodSize: cfg.Fingerprint.PeakNeighborhoodSize,
		MinAmplitude:         cfg.Fingerprint.MinAmplitude,
		FanValue:             cfg.Fingerprint.FanValue,
	}

	e := &Engine{
		cfg:   cfg,
		fp:    fingerprint.NewFingerprinter(fpCfg),
		store: store,
	}

	want := storage.Params{
		SampleRate:           fpCfg.SampleRate,
		NFFT:                 fpCfg.NFFT,
		HopLength:            fpCfg.HopLength,
		PeakNeighborhoodSize: fpCfg.PeakNeighborhoodSize,
		MinAmplitude:         fpCfg.MinAmplitude,
		FanValue:             fpCfg.FanValue,
	}

	ctx := context.Background()
	have, err := store.Params(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read index parameters: %v", err)
	}
	if have == nil {
		if err := store.SetParams(ctx, want); err != nil {
			return nil, fmt.Errorf("failed to record index parameters: %v", err)
		}
	} else if *have != want {
		return nil, fmt.Errorf("%w: index has %+v, config has %+v", ErrParamsMismatch, *have, want)
	}

	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() *configs.Config {
	return e.cfg
}

// Store returns the underlying index backend.
func (e *Engine) Store() storage.Backend {
	return e.store
}

// IndexFile decodes an audio file, fingerprints it, and stores it under
// the given track ID. An empty trackID gets a fresh UUID. The returned ID
// is the one the track was stored under.
func (e *Engine) IndexFile(ctx context.Context, path string, trackID string, meta storage.Metadata) (string, error) {
	if trackID == "" {
		trackID = uuid.NewString()
	}

	samples, err := audio.ReadMono(path, e.cfg.Audio.SampleRate)
	if err != nil {
		return trackID, err
	}

	peaks, hashes := e.fp.Fingerprint(samples)
	logger.Info(fmt.Sprintf("Fingerprinted %s: %d peaks, %d hashes", path, len(peaks), len(hashes)))

	meta.Filepath = path
	if meta.Title == "" {
		meta.Title = filepath.Base(path)
	}
	meta.Duration = float64(len(samples)) / float64(e.cfg.Audio.SampleRate)
	meta.NumPeaks = len(peaks)
	meta.NumHashes = len(hashes)

	if err := e.store.Store(ctx, trackID, meta, hashes); err != nil {
		return trackID, fmt.Errorf("failed to store fingerprint: %v", err)
	}
	return trackID, nil
}

// IndexSamples fingerprints raw mono samples and stores them. Useful for
// callers that decode audio themselves.
func (e *Engine) IndexSamples(ctx context.Context, samples []float32, trackID string, meta storage.Metadata) (string, error) {
	if trackID == "" {
		trackID = uuid.NewString()
	}

	peaks, hashes := e.fp.Fingerprint(fingerprint.Normalize(samples))
	meta.Duration = float64(len(samples)) / float64(e.cfg.Audio.SampleRate)
	meta.NumPeaks = len(peaks)
	meta.NumHashes = len(hashes)

	if err := e.store.Store(ctx, trackID, meta, hashes); err != nil {
		return trackID, fmt.Errorf("failed to store fingerprint: %v", err)
	}
	return trackID, nil
}

// Recognize decodes a query clip and returns up to topK ranked matches.
func (e *Engine) Recognize(ctx context.Context, path string, topK int) ([]Match, error) {
	samples, err := audio.ReadMono(path, e.cfg.Audio.SampleRate)
	if err != nil {
		return nil, err
	}
	logger.Info(fmt.Sprintf("Recognizing %s: %.2f seconds of audio",
		path, float64(len(samples))/float64(e.cfg.Audio.SampleRate)))
	return e.RecognizeSamples(ctx, samples, topK)
}

// RecognizeSamples matches raw mono samples against the index.
func (e *Engine) RecognizeSamples(ctx context.Context, samples []float32, topK int) ([]Match, error) {
	_, hashes := e.fp.Fingerprint(samples)
	return e.matchHashes(ctx, hashes, topK)
}

// Delete removes a track from the index. Idempotent.
func (e *Engine) Delete(ctx context.Context, trackID string) error {
	return e.store.Delete(ctx, trackID)
}

// List returns metadata for every indexed track.
func (e *Engine) List(ctx context.Context) ([]storage.Metadata, error) {
	return e.store.AllTracks(ctx)
}

// Track returns metadata for one track, nil when unknown.
func (e *Engine) Track(ctx context.Context, trackID string) (*storage.Metadata, error) {
	return e.store.Metadata(ctx, trackID)
}

// Stats reports index statistics.
func (e *Engine) Stats(ctx context.Context) (storage.Stats, error) {
	return e.store.Stats(ctx)
}

// Clear empties the index.
func (e *Engine) Clear(ctx context.Context) error {
	return e.store.Clear(ctx)
}
