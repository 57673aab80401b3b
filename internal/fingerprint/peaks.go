package fingerprint

import "math"

// Peak is a time-frequency landmark: a spectrogram cell that exceeds both
// the amplitude floor and every other cell in its local neighborhood.
type Peak struct {
	T uint32  // frame index
	F uint16  // frequency bin index
	A float32 // raw (pre-log) magnitude
}

// ExtractPeaks finds the landmark peaks of a time-major magnitude
// spectrogram. A cell is a peak when its log1p magnitude equals the local
// maximum over a square neighborhood of the given side and exceeds
// log1p(minAmplitude). Plateau cells tied with the local maximum are all
// accepted. The result is sorted by frame index ascending, frequency bin
// ascending within a frame.
func ExtractPeaks(frames [][]float64, neighborhood int, minAmplitude float64) []Peak {
	if len(frames) == 0 || len(frames[0]) == 0 {
		return nil
	}

	logSpec := make([][]float64, len(frames))
	for t, row := range frames {
		logRow := make([]float64, len(row))
		for f, v := range row {
			logRow[f] = math.Log1p(v)
		}
		logSpec[t] = logRow
	}

	localMax := maxFilter2D(logSpec, neighborhood)
	floor := math.Log1p(minAmplitude)

	var peaks []Peak
	for t, row := range logSpec {
		for f, v := range row {
			if v == localMax[t][f] && v > floor {
				peaks = append(peaks, Peak{
					T: uint32(t),
					F: uint16(f),
					A: float32(frames[t][f]),
				})
			}
		}
	}
	return peaks
}

// maxFilter2D computes a 2-D maximum filter with a square structural
// element of the given side. The window for even sizes is left-heavy,
// covering offsets [-size/2, size-size/2-1], and indices past the matrix
// edges repeat the edge value. Both choices must stay identical between
// indexing and querying: they participate in hash identity.
func maxFilter2D(m [][]float64, size int) [][]float64 {
	rows := len(m)
	cols := len(m[0])
	lo := -(size / 2)
	hi := size - size/2 - 1

	// Separable: filter along frequency within each frame, then along time.
	tmp := make([][]float64, rows)
	for t := range m {
		tmp[t] = slidingMax(m[t], lo, hi)
	}

	out := make([][]float64, rows)
	for t := range out {
		out[t] = make([]float64, cols)
	}
	col := make([]float64, rows)
	for f := 0; f < cols; f++ {
		for t := 0; t < rows; t++ {
			col[t] = tmp[t][f]
		}
		filtered := slidingMax(col, lo, hi)
		for t := 0; t < rows; t++ {
			out[t][f] = filtered[t]
		}
	}
	return out
}

// slidingMax computes, for each index i, the maximum of v over the window
// [i+lo, i+hi] clamped to the slice bounds, using a monotonic deque.
func slidingMax(v []float64, lo, hi int) []float64 {
	n := len(v)
	out := make([]float64, n)
	deque := make([]int, 0, n) // indices, values decreasing

	tail := 0 // next index to push
	for i := 0; i < n; i++ {
		for upper := i + hi; tail <= upper && tail < n; tail++ {
			for len(deque) > 0 && v[deque[len(deque)-1]] <= v[tail] {
				deque = deque[:len(deque)-1]
			}
			deque = append(deque, tail)
		}
		for len(deque) > 0 && deque[0] < i+lo {
			deque = deque[1:]
		}
		out[i] = v[deque[0]]
	}
	return out
}
