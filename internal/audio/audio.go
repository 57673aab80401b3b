// Package audio decodes audio files into mono float samples at the engine
// sample rate. Decoding is the boundary of the fingerprinting core: from
// here on everything operates on plain sample slices.
package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"

	"github.com/inboxpraveen/Audio-Fingerprint/internal/fingerprint"
)

// ErrUnsupportedFormat indicates a file extension no decoder is registered
// for.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

const resampleQuality = 4

// ReadMono decodes an audio file, downmixes it to mono, resamples it to
// targetRate, and normalizes it by peak absolute value. The samples are in
// [-1, 1] unless the input was silent.
func ReadMono(path string, targetRate int) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	streamer, format, err := decode(f, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	defer streamer.Close()

	var src beep.Streamer = streamer
	if int(format.SampleRate) != targetRate {
		src = beep.Resample(resampleQuality, format.SampleRate, beep.SampleRate(targetRate), streamer)
	}

	samples := drainMono(src)
	return fingerprint.Normalize(samples), nil
}

// decode picks a decoder by file extension. The beep decoders cover the
// containers the deployment allows by default.
func decode(f *os.File, ext string) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(ext) {
	case ".wav":
		return wav.Decode(f)
	case ".mp3":
		return mp3.Decode(f)
	case ".flac":
		return flac.Decode(f)
	case ".ogg":
		return vorbis.Decode(f)
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// drainMono streams everything the source has and averages the two beep
// channels into one.
func drainMono(src beep.Streamer) []float32 {
	var out []float32
	buf := make([][2]float64, 1024)
	for {
		n, ok := src.Stream(buf)
		for _, frame := range buf[:n] {
			out = append(out, float32((frame[0]+frame[1])/2))
		}
		if !ok {
			return out
		}
	}
}
