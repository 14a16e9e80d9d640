package odmr

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Smooth applies a boxcar moving average of the given window and returns a
// slice of the same length. Sample i averages values[i-window/2 ... i-window/2+window-1];
// near the edges only the samples that exist are averaged.
func Smooth(values []float64, window int) ([]float64, error) {
	if window < 1 {
		return nil, fmt.Errorf("%w: smoothing window must be >= 1, got %d", ErrInvalidOptions, window)
	}

	out := make([]float64, len(values))
	if len(values) == 0 {
		return out, nil
	}
	if window == 1 {
		copy(out, values)
		return out, nil
	}

	// prefix[k] = sum(values[:k])
	prefix := make([]float64, len(values)+1)
	floats.CumSum(prefix[1:], values)

	half := window / 2
	for i := range values {
		lo := i - half
		hi := lo + window // exclusive
		if lo < 0 {
			lo = 0
		}
		if hi > len(values) {
			hi = len(values)
		}
		out[i] = (prefix[hi] - prefix[lo]) / float64(hi-lo)
	}
	return out, nil
}
