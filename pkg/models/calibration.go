package models

import (
	"time"

	"github.com/RMahshie/odmr/pkg/calibration"
)

// CalibrationSample is one reference point of a calibration scan
type CalibrationSample struct {
	Current   float64 `json:"current" doc:"Drive current in A"`
	Frequency float64 `json:"frequency" doc:"Line position in Hz"`
}

// CalibrationRecord represents a fitted current-to-frequency calibration
type CalibrationRecord struct {
	ID              string    `json:"id" doc:"Calibration unique identifier"`
	Name            string    `json:"name" doc:"Calibration name"`
	A               float64   `json:"a" doc:"Quadratic coefficient in Hz/A^2"`
	B               float64   `json:"b" doc:"Linear coefficient in Hz/A"`
	C               float64   `json:"c" doc:"Zero-current frequency in Hz"`
	LinearSlope     float64   `json:"linear_slope" doc:"Straight-line fit slope in Hz/A"`
	LinearIntercept float64   `json:"linear_intercept" doc:"Straight-line fit intercept in Hz"`
	Reversed        bool      `json:"reversed" doc:"Whether the reference samples were flipped"`
	DiscardBelowHz  float64   `json:"discard_below_hz" doc:"Frequency floor applied to the samples"`
	SmoothWindow    int       `json:"smooth_window" doc:"Boxcar window used"`
	Currents        []float64 `json:"currents,omitempty" doc:"Usable currents in canonical orientation"`
	Smoothed        []float64 `json:"smoothed,omitempty" doc:"Smoothed reference frequencies"`
	Fitted          []float64 `json:"fitted,omitempty" doc:"Quadratic evaluated on the currents"`
	CreatedAt       time.Time `json:"created_at" doc:"Calibration creation timestamp"`
}

// NewCalibrationRecord captures a fitted curve and the options it was fit with.
func NewCalibrationRecord(id, name string, curve *calibration.Curve, opts calibration.FitOptions) *CalibrationRecord {
	a, b, c := curve.Coefficients()
	lin := curve.Linear()
	return &CalibrationRecord{
		ID:              id,
		Name:            name,
		A:               a,
		B:               b,
		C:               c,
		LinearSlope:     lin.Slope,
		LinearIntercept: lin.Intercept,
		Reversed:        curve.Reversed(),
		DiscardBelowHz:  opts.DiscardBelowHz,
		SmoothWindow:    opts.SmoothWindow,
		Currents:        curve.Currents(),
		Smoothed:        curve.Smoothed(),
		Fitted:          curve.Fitted(),
		CreatedAt:       time.Now(),
	}
}

// Curve rebuilds the inversion curve from the stored coefficients.
func (r *CalibrationRecord) Curve() (*calibration.Curve, error) {
	return calibration.NewCurve(r.A, r.B, r.C)
}

// Samples converts wire samples to calibration samples.
func Samples(in []CalibrationSample) []calibration.Sample {
	out := make([]calibration.Sample, len(in))
	for i, s := range in {
		out[i] = calibration.Sample{Current: s.Current, Frequency: s.Frequency}
	}
	return out
}
