// Package calibration fits the quadratic current-to-frequency relation of an
// ODMR line and inverts it to recover current from a measured frequency.
package calibration

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInsufficientSamples   = errors.New("insufficient calibration samples")
	ErrDegenerateCalibration = errors.New("degenerate calibration")
	ErrOutOfRangeInversion   = errors.New("frequency outside calibration range")
)

// Sample is one point of a calibration scan.
type Sample struct {
	Current   float64 // A
	Frequency float64 // Hz
}

// LinearFit is frequency = Slope·current + Intercept.
type LinearFit struct {
	Slope     float64
	Intercept float64
}

// Curve is an immutable quadratic calibration, frequency = A·I² + B·I + C.
// A Curve is safe for concurrent use.
type Curve struct {
	a, b, c  float64
	linear   LinearFit
	currents []float64
	smoothed []float64
	fitted   []float64
	reversed bool
}

// NewCurve builds a curve from known coefficients.
func NewCurve(a, b, c float64) (*Curve, error) {
	for _, v := range []float64{a, b, c} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite coefficient", ErrDegenerateCalibration)
		}
	}
	if a == 0 {
		return nil, fmt.Errorf("%w: quadratic coefficient is zero", ErrDegenerateCalibration)
	}
	return &Curve{a: a, b: b, c: c, linear: LinearFit{Slope: b, Intercept: c}}, nil
}

// Coefficients returns (a, b, c).
func (c *Curve) Coefficients() (a, b, cc float64) {
	return c.a, c.b, c.c
}

// Linear returns the straight-line fit computed alongside the quadratic.
func (c *Curve) Linear() LinearFit {
	return c.linear
}

// Reversed reports whether the reference samples were flipped to put the
// higher frequencies at the end.
func (c *Curve) Reversed() bool {
	return c.reversed
}

// Currents returns a copy of the current axis in canonical orientation.
func (c *Curve) Currents() []float64 {
	return append([]float64(nil), c.currents...)
}

// Smoothed returns a copy of the smoothed reference frequencies.
func (c *Curve) Smoothed() []float64 {
	return append([]float64(nil), c.smoothed...)
}

// Fitted returns a copy of the quadratic evaluated on Currents.
func (c *Curve) Fitted() []float64 {
	return append([]float64(nil), c.fitted...)
}

// Frequency evaluates the quadratic at the given current.
func (c *Curve) Frequency(current float64) float64 {
	return c.a*current*current + c.b*current + c.c
}

// ZeroCurrentFrequency is the calibration's own frequency at I = 0.
func (c *Curve) ZeroCurrentFrequency() float64 {
	return c.c
}
