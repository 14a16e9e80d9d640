package odmr

import (
	"fmt"
	"math"
	"sort"
)

// Kind distinguishes the two feature polarities of a dispersive ODMR signal.
type Kind int

const (
	Peak Kind = iota
	Dip
)

func (k Kind) String() string {
	switch k {
	case Peak:
		return "peak"
	case Dip:
		return "dip"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Candidate is a detected feature before refinement.
type Candidate struct {
	Kind      Kind
	Index     int
	Amplitude float64 // smoothed voltage at Index
}

// DetectOptions are the detector thresholds. They are expected to be tuned
// to the instrument noise floor by the caller.
type DetectOptions struct {
	MinHeight     float64 // V, applied to the voltage for peaks and to its negation for dips
	MinProminence float64 // V
	MinDistanceHz float64 // minimum feature separation; <= 0 disables
}

// Detection holds the candidates of one trace in ascending index order.
type Detection struct {
	Peaks []Candidate
	Dips  []Candidate
}

// FeaturePair is the n-th peak together with the n-th dip.
type FeaturePair struct {
	Peak Candidate
	Dip  Candidate
}

// Detect locates peaks (maxima of smoothed) and dips (maxima of -smoothed).
// smoothed must have the same length as the trace.
func Detect(t *Trace, smoothed []float64, opts DetectOptions) (Detection, error) {
	if len(smoothed) != t.Len() {
		return Detection{}, fmt.Errorf("%w: smoothed length %d does not match trace length %d", ErrInvalidOptions, len(smoothed), t.Len())
	}

	distance := 0
	if opts.MinDistanceHz > 0 {
		distance = int(math.Ceil(opts.MinDistanceHz / t.Pitch()))
		if distance < 1 {
			distance = 1
		}
	}

	negated := make([]float64, len(smoothed))
	for i, v := range smoothed {
		negated[i] = -v
	}

	var det Detection
	for _, idx := range findPeaks(smoothed, opts.MinHeight, opts.MinProminence, distance) {
		det.Peaks = append(det.Peaks, Candidate{Kind: Peak, Index: idx, Amplitude: smoothed[idx]})
	}
	for _, idx := range findPeaks(negated, opts.MinHeight, opts.MinProminence, distance) {
		det.Dips = append(det.Dips, Candidate{Kind: Dip, Index: idx, Amplitude: smoothed[idx]})
	}
	return det, nil
}

// Pair matches peaks and dips one to one in ascending frequency order.
// Mismatched counts are reported, never truncated.
func Pair(det Detection) ([]FeaturePair, error) {
	if len(det.Peaks) != len(det.Dips) || len(det.Peaks) == 0 {
		return nil, &DetectionError{Peaks: len(det.Peaks), Dips: len(det.Dips)}
	}

	pairs := make([]FeaturePair, len(det.Peaks))
	for i := range det.Peaks {
		pairs[i] = FeaturePair{Peak: det.Peaks[i], Dip: det.Dips[i]}
	}
	return pairs, nil
}

// findPeaks finds local maxima and then filters them by height, distance and
// prominence, in that order.
func findPeaks(x []float64, minHeight, minProminence float64, distance int) []int {
	peaks := localMaxima(x)

	kept := peaks[:0]
	for _, p := range peaks {
		if x[p] >= minHeight {
			kept = append(kept, p)
		}
	}
	peaks = kept

	if distance > 1 {
		peaks = selectByDistance(x, peaks, distance)
	}

	kept = peaks[:0]
	for _, p := range peaks {
		if prominence(x, p) >= minProminence {
			kept = append(kept, p)
		}
	}
	return kept
}

// localMaxima returns indices of samples strictly higher than their left
// neighbour and higher than the next differing sample to the right.
// Plateaus report their middle sample. The first and last samples never count.
func localMaxima(x []float64) []int {
	var peaks []int
	i := 1
	last := len(x) - 1
	for i < last {
		if x[i-1] < x[i] {
			ahead := i + 1
			for ahead < last && x[ahead] == x[i] {
				ahead++
			}
			if x[ahead] < x[i] {
				peaks = append(peaks, (i+ahead-1)/2)
				i = ahead
			}
		}
		i++
	}
	return peaks
}

// selectByDistance keeps the highest peaks first and removes any lower peak
// closer than distance samples to a kept one.
func selectByDistance(x []float64, peaks []int, distance int) []int {
	keep := make([]bool, len(peaks))
	for i := range keep {
		keep[i] = true
	}

	order := make([]int, len(peaks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return x[peaks[order[a]]] < x[peaks[order[b]]]
	})

	for k := len(order) - 1; k >= 0; k-- {
		j := order[k]
		if !keep[j] {
			continue
		}
		for l := j - 1; l >= 0 && peaks[j]-peaks[l] < distance; l-- {
			keep[l] = false
		}
		for l := j + 1; l < len(peaks) && peaks[l]-peaks[j] < distance; l++ {
			keep[l] = false
		}
	}

	out := make([]int, 0, len(peaks))
	for i, p := range peaks {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

// prominence is the height of x[p] above the higher of its two bases. A base
// is the minimum between p and the first strictly higher sample on that side.
func prominence(x []float64, p int) float64 {
	leftMin := x[p]
	for i := p; i >= 0 && x[i] <= x[p]; i-- {
		if x[i] < leftMin {
			leftMin = x[i]
		}
	}
	rightMin := x[p]
	for i := p; i < len(x) && x[i] <= x[p]; i++ {
		if x[i] < rightMin {
			rightMin = x[i]
		}
	}
	return x[p] - math.Max(leftMin, rightMin)
}
