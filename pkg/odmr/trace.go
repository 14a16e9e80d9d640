// Package odmr extracts resonance-line positions from ODMR spectral scans.
//
// A scan is smoothed only to find candidate peaks and dips; every reported
// position comes from a local parabola fit on the raw samples.
package odmr

import (
	"fmt"
	"math"
)

// Trace is one spectral scan: voltage sampled at strictly increasing frequencies.
type Trace struct {
	Frequency []float64 // Hz
	Voltage   []float64 // V
}

// NewTrace validates and copies the two channels of a scan.
func NewTrace(frequency, voltage []float64) (*Trace, error) {
	if len(frequency) != len(voltage) {
		return nil, fmt.Errorf("%w: %d frequencies vs %d voltages", ErrInvalidTrace, len(frequency), len(voltage))
	}
	if len(frequency) < 3 {
		return nil, fmt.Errorf("%w: need at least 3 samples, got %d", ErrInvalidTrace, len(frequency))
	}

	for i := range frequency {
		if math.IsNaN(frequency[i]) || math.IsInf(frequency[i], 0) {
			return nil, fmt.Errorf("%w: non-finite frequency at index %d", ErrInvalidTrace, i)
		}
		if math.IsNaN(voltage[i]) || math.IsInf(voltage[i], 0) {
			return nil, fmt.Errorf("%w: non-finite voltage at index %d", ErrInvalidTrace, i)
		}
		if i > 0 && frequency[i] <= frequency[i-1] {
			return nil, fmt.Errorf("%w: frequency not strictly increasing at index %d", ErrInvalidTrace, i)
		}
	}

	t := &Trace{
		Frequency: make([]float64, len(frequency)),
		Voltage:   make([]float64, len(voltage)),
	}
	copy(t.Frequency, frequency)
	copy(t.Voltage, voltage)
	return t, nil
}

// Len returns the number of samples.
func (t *Trace) Len() int {
	return len(t.Frequency)
}

// Pitch returns the sample spacing in Hz, (f_last - f_first) / N.
func (t *Trace) Pitch() float64 {
	n := len(t.Frequency)
	return (t.Frequency[n-1] - t.Frequency[0]) / float64(n)
}

// samplesFor converts a frequency span to a whole number of samples, truncating.
func (t *Trace) samplesFor(hz float64) int {
	return int(hz / t.Pitch())
}

// Smoothed returns a boxcar-smoothed copy of the voltage channel.
func (t *Trace) Smoothed(window int) ([]float64, error) {
	return Smooth(t.Voltage, window)
}
