package calibration

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/RMahshie/odmr/pkg/odmr"
)

// orientationSamples is how many samples at each end decide the orientation.
const orientationSamples = 10

// FitOptions controls how a calibration scan is reduced to a curve.
type FitOptions struct {
	DiscardBelowHz float64 // samples below this frequency are dropped
	SmoothWindow   int     // boxcar window over sample index
	DegeneracyTol  float64 // relative size of the quadratic term below which the fit is rejected
}

// DefaultFitOptions mirrors the reference acquisition setup.
func DefaultFitOptions() FitOptions {
	return FitOptions{
		DiscardBelowHz: 0,
		SmoothWindow:   500,
		DegeneracyTol:  1e-9,
	}
}

// Fit reduces a calibration scan to a quadratic curve. Samples are taken in
// acquisition order; the smoothing runs over that order, not over current.
func Fit(samples []Sample, opts FitOptions) (*Curve, error) {
	if opts.SmoothWindow < 1 {
		return nil, fmt.Errorf("%w: smoothing window must be >= 1, got %d", odmr.ErrInvalidOptions, opts.SmoothWindow)
	}
	if opts.DegeneracyTol < 0 {
		return nil, fmt.Errorf("%w: degeneracy tolerance must be >= 0", odmr.ErrInvalidOptions)
	}

	currents := make([]float64, 0, len(samples))
	freqs := make([]float64, 0, len(samples))
	for _, s := range samples {
		if math.IsNaN(s.Current) || math.IsNaN(s.Frequency) ||
			math.IsInf(s.Current, 0) || math.IsInf(s.Frequency, 0) {
			continue
		}
		if s.Frequency < opts.DiscardBelowHz {
			continue
		}
		currents = append(currents, s.Current)
		freqs = append(freqs, s.Frequency)
	}
	if len(currents) < 3 {
		return nil, fmt.Errorf("%w: %d usable samples, need 3", ErrInsufficientSamples, len(currents))
	}
	if distinct(currents) < 3 {
		return nil, fmt.Errorf("%w: fewer than 3 distinct currents", ErrInsufficientSamples)
	}

	smoothed, err := odmr.Smooth(freqs, opts.SmoothWindow)
	if err != nil {
		return nil, err
	}

	intercept, slope := stat.LinearRegression(currents, smoothed, nil, false)

	a, b, c, err := fitQuadratic(currents, smoothed)
	if err != nil {
		return nil, err
	}

	span := floats.Max(currents) - floats.Min(currents)
	quad := math.Abs(a) * span * span
	if math.IsNaN(a) || math.IsInf(a, 0) || quad <= opts.DegeneracyTol*(quad+math.Abs(b)*span) {
		return nil, fmt.Errorf("%w: quadratic term %.6g Hz over the current span is negligible", ErrDegenerateCalibration, quad)
	}

	curve := &Curve{
		a:        a,
		b:        b,
		c:        c,
		linear:   LinearFit{Slope: slope, Intercept: intercept},
		currents: currents,
		smoothed: smoothed,
	}
	curve.fitted = make([]float64, len(currents))
	for i, I := range currents {
		curve.fitted[i] = curve.Frequency(I)
	}

	if endMean(smoothed, false) < endMean(smoothed, true) {
		floats.Reverse(curve.currents)
		floats.Reverse(curve.smoothed)
		floats.Reverse(curve.fitted)
		curve.reversed = true
	}

	return curve, nil
}

// fitQuadratic solves the least squares problem f = a·I² + b·I + c by QR on
// a centred and scaled current axis, then maps the result back to amperes.
func fitQuadratic(currents, freqs []float64) (a, b, c float64, err error) {
	n := len(currents)
	mean := stat.Mean(currents, nil)
	scale := math.Max(math.Abs(floats.Max(currents)-mean), math.Abs(floats.Min(currents)-mean))
	if scale == 0 {
		return 0, 0, 0, fmt.Errorf("%w: currents have no spread", ErrInsufficientSamples)
	}

	design := mat.NewDense(n, 3, nil)
	for i, I := range currents {
		x := (I - mean) / scale
		design.Set(i, 0, x*x)
		design.Set(i, 1, x)
		design.Set(i, 2, 1)
	}
	rhs := mat.NewDense(n, 1, append([]float64(nil), freqs...))

	var qr mat.QR
	qr.Factorize(design)
	var sol mat.Dense
	if err := qr.SolveTo(&sol, false, rhs); err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %v", ErrDegenerateCalibration, err)
	}

	as, bs, cs := sol.At(0, 0), sol.At(1, 0), sol.At(2, 0)
	a = as / (scale * scale)
	b = bs/scale - 2*a*mean
	c = a*mean*mean - bs*mean/scale + cs
	return a, b, c, nil
}

// endMean averages the first (or last) few samples.
func endMean(values []float64, head bool) float64 {
	k := orientationSamples
	if k > len(values) {
		k = len(values)
	}
	if head {
		return stat.Mean(values[:k], nil)
	}
	return stat.Mean(values[len(values)-k:], nil)
}

func distinct(values []float64) int {
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}
