// Package fingerprint implements the landmark fingerprinting pipeline:
// samples to spectrogram, spectrogram to peaks, peaks to packed hashes.
package fingerprint

import "math"

// Config holds every parameter that participates in hash identity. All
// indexed tracks and all queries against the same index must share these
// values.
type Config struct {
	SampleRate           int
	NFFT                 int
	HopLength            int
	PeakNeighborhoodSize int
	MinAmplitude         float64
	FanValue             int
}

// DefaultConfig returns the reference parameter set.
func DefaultConfig() Config {
	return Config{
		SampleRate:           11025,
		NFFT:                 2048,
		HopLength:            512,
		PeakNeighborhoodSize: 20,
		MinAmplitude:         10,
		FanValue:             5,
	}
}

// Fingerprinter runs the full pipeline for a fixed parameter set. It is
// stateless: the same input always produces the same peaks and hashes.
type Fingerprinter struct {
	cfg Config
}

// NewFingerprinter creates a fingerprinter with the given parameters.
func NewFingerprinter(cfg Config) *Fingerprinter {
	return &Fingerprinter{cfg: cfg}
}

// Config returns the parameter set the fingerprinter was built with.
func (fp *Fingerprinter) Config() Config {
	return fp.cfg
}

// Peaks extracts the landmark peaks of the given mono samples.
func (fp *Fingerprinter) Peaks(samples []float32) []Peak {
	frames := Spectrogram(samples, fp.cfg.NFFT, fp.cfg.HopLength)
	return ExtractPeaks(frames, fp.cfg.PeakNeighborhoodSize, fp.cfg.MinAmplitude)
}

// Fingerprint runs the full pipeline and returns both the peaks and the
// hashes derived from them.
func (fp *Fingerprinter) Fingerprint(samples []float32) ([]Peak, []Hash) {
	peaks := fp.Peaks(samples)
	return peaks, GenerateHashes(peaks, fp.cfg.FanValue)
}

// Normalize scales samples in place by the peak absolute value so the
// loudest sample has magnitude 1. Silent input is returned unchanged.
func Normalize(samples []float32) []float32 {
	var peak float32
	for _, s := range samples {
		if a := float32(math.Abs(float64(s))); a > peak {
			peak = a
		}
	}
	if peak > 0 {
		for i := range samples {
			samples[i] /= peak
		}
	}
	return samples
}
