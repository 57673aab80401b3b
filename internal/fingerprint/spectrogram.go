package fingerprint

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// Spectrogram computes the magnitude spectrogram of mono samples using a
// short-time Fourier transform with a Hann window of length nFFT and the
// given hop. Frames are centered: frame t covers the window centered at
// sample t*hop, with reflection padding at both edges so frame 0 is
// centered at sample 0.
//
// The result is time-major: frames[t][f] with f in [0, nFFT/2]. Input
// shorter than one window yields an empty spectrogram, not an error.
func Spectrogram(samples []float32, nFFT, hop int) [][]float64 {
	if len(samples) < nFFT {
		return nil
	}

	numFrames := (len(samples)-nFFT+hop-1)/hop + 1
	numBins := nFFT/2 + 1
	window := hannWindow(nFFT)

	frames := make([][]float64, numFrames)
	frame := make([]float64, nFFT)
	half := nFFT / 2

	for t := 0; t < numFrames; t++ {
		center := t * hop
		for i := 0; i < nFFT; i++ {
			frame[i] = float64(sampleAt(samples, center-half+i)) * window[i]
		}

		spectrum := fft.FFTReal(frame)
		mags := make([]float64, numBins)
		for f := 0; f < numBins; f++ {
			mags[f] = cmplxAbs(spectrum[f])
		}
		frames[t] = mags
	}

	return frames
}

// sampleAt reads samples[i] with reflection at the edges, mirroring around
// the first and last sample without duplicating them.
func sampleAt(samples []float32, i int) float32 {
	n := len(samples)
	if i < 0 {
		i = -i
	}
	if i >= n {
		i = 2*n - 2 - i
	}
	return samples[i]
}

// hannWindow returns a periodic Hann window of length n.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
