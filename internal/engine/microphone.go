package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/inboxpraveen/Audio-Fingerprint/internal/audio"
	"github.com/inboxpraveen/Audio-Fingerprint/internal/fingerprint"
	"github.com/inboxpraveen/Audio-Fingerprint/utils/logger"
)

const (
	micBufferSeconds   = 10
	micMinimumSeconds  = 3
	micAttemptInterval = 2 * time.Second

	// micConfidenceFloor is the confidence a microphone candidate needs
	// before the listen loop reports it and stops.
	micConfidenceFloor = 0.05
)

// RecognizeFromMicrophone listens on the default input device until a
// match clears the confidence floor, the timeout elapses, or the context
// is canceled. It returns nil when nothing was recognized.
func (e *Engine) RecognizeFromMicrophone(ctx context.Context, timeout time.Duration) (*Match, error) {
	recorder, err := audio.NewRecorder(e.cfg.Audio.SampleRate, micBufferSeconds)
	if err != nil {
		return nil, fmt.Errorf("failed to create recorder: %v", err)
	}
	defer recorder.Close()

	if err := recorder.Start(); err != nil {
		return nil, fmt.Errorf("failed to start recording: %v", err)
	}

	logger.Info(fmt.Sprintf("Listening for audio (%.0fs timeout)...", timeout.Seconds()))

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(micAttemptInterval)
	defer ticker.Stop()

	minSamples := e.cfg.Audio.SampleRate * micMinimumSeconds

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-deadline.C:
			logger.Info("No match found before timeout")
			return nil, nil

		case <-ticker.C:
			buf := recorder.Buffer()
			if len(buf) < minSamples {
				continue
			}

			matches, err := e.RecognizeSamples(ctx, fingerprint.Normalize(buf), 1)
			if err != nil {
				return nil, err
			}
			if len(matches) == 0 || matches[0].Confidence < micConfidenceFloor {
				continue
			}

			m := matches[0]
			logger.Info(fmt.Sprintf("Match: %s by %s (confidence %.3f)",
				m.Metadata.Title, m.Metadata.Artist, m.Confidence))
			return &m, nil
		}
	}
}
