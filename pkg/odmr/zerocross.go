package odmr

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// ZeroCrossing is a straight-line fit through the dispersive signal between a
// peak and its paired dip. Slope is the signal's frequency sensitivity.
type ZeroCrossing struct {
	Index     int     // sample halfway between dip and peak
	Slope     float64 // V/Hz
	Intercept float64 // V at 0 Hz
	Frequency float64 // Hz where the fitted line crosses 0 V; NaN if undefined
	Window    FitWindow
}

// ZeroCrossings fits a line to the raw trace within ±halfWidthHz of the
// midpoint of every pair.
func ZeroCrossings(t *Trace, pairs []FeaturePair, halfWidthHz float64) []ZeroCrossing {
	half := max(t.samplesFor(halfWidthHz), 0)
	out := make([]ZeroCrossing, 0, len(pairs))

	for _, p := range pairs {
		idx := p.Dip.Index + (p.Peak.Index-p.Dip.Index)/2
		start := max(0, idx-half)
		end := min(t.Len()-1, idx+half)
		zc := ZeroCrossing{
			Index:     idx,
			Slope:     math.NaN(),
			Intercept: math.NaN(),
			Frequency: math.NaN(),
			Window:    FitWindow{Start: start, End: end, StartHz: t.Frequency[start], EndHz: t.Frequency[end]},
		}
		if zc.Window.Len() < 2 {
			out = append(out, zc)
			continue
		}

		// Regress on offsets from the centre sample to keep the intercept well conditioned.
		center := t.Frequency[idx]
		xs := make([]float64, zc.Window.Len())
		for k := range xs {
			xs[k] = t.Frequency[start+k] - center
		}
		alpha, beta := stat.LinearRegression(xs, t.Voltage[start:end+1], nil, false)

		zc.Slope = beta
		zc.Intercept = alpha - beta*center
		if beta != 0 {
			zc.Frequency = center - alpha/beta
		}
		out = append(out, zc)
	}
	return out
}
