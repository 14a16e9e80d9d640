package odmr

import (
	"fmt"
	"math"
)

// AggregateOptions drop boundary features that are known to fit poorly
// near the spectrum edges.
type AggregateOptions struct {
	ExcludeFirstDips int
	ExcludeLastPeaks int
}

// LinePosition is the reported line centre of one scan.
type LinePosition struct {
	Position    float64 // Hz
	Uncertainty float64 // Hz, 1σ
	Count       int     // features that entered the mean
	Excluded    int     // features dropped by AggregateOptions
	Failed      int     // features skipped because their fit failed
}

// Average reduces refined features to one line centre: the unweighted mean of
// all surviving positions, with uncertainty sqrt(Σσ²)/count assuming
// independent errors.
func Average(peaks, dips []Feature, opts AggregateOptions) (LinePosition, error) {
	line := LinePosition{Position: math.NaN(), Uncertainty: math.NaN()}
	if opts.ExcludeFirstDips < 0 || opts.ExcludeLastPeaks < 0 {
		return line, fmt.Errorf("%w: exclusion counts must not be negative", ErrInvalidOptions)
	}

	dropDips := min(opts.ExcludeFirstDips, len(dips))
	dropPeaks := min(opts.ExcludeLastPeaks, len(peaks))
	line.Excluded = dropDips + dropPeaks

	survivors := make([]Feature, 0, len(peaks)+len(dips))
	survivors = append(survivors, peaks[:len(peaks)-dropPeaks]...)
	survivors = append(survivors, dips[dropDips:]...)

	sum, sumVar := 0.0, 0.0
	for _, f := range survivors {
		if !usable(f) {
			line.Failed++
			continue
		}
		sum += f.Position
		sumVar += f.Uncertainty * f.Uncertainty
		line.Count++
	}

	if line.Count == 0 {
		return line, fmt.Errorf("%w: %d excluded, %d failed", ErrNoSurvivingFeatures, line.Excluded, line.Failed)
	}

	n := float64(line.Count)
	line.Position = sum / n
	line.Uncertainty = math.Sqrt(sumVar) / n
	return line, nil
}

func usable(f Feature) bool {
	if f.Err != nil {
		return false
	}
	for _, v := range []float64{f.Position, f.Uncertainty} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
