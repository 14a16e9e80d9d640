package calibration

import (
	"errors"
	"fmt"
	"math"
)

// InversionError reports a measurement the calibration cannot map to a current.
type InversionError struct {
	Index        int // position in the series for InvertAll, -1 for Invert
	Measured     float64
	Shifted      float64
	Discriminant float64
}

func (e *InversionError) Error() string {
	msg := fmt.Sprintf("%s: measured %.3f Hz (shifted %.3f Hz) gives discriminant %.6g",
		ErrOutOfRangeInversion, e.Measured, e.Shifted, e.Discriminant)
	if e.Index >= 0 {
		msg = fmt.Sprintf("sample %d: %s", e.Index, msg)
	}
	return msg
}

func (e *InversionError) Unwrap() error {
	return ErrOutOfRangeInversion
}

// Inversion is the current recovered from one measurement together with the
// re-baselined frequency it was computed from.
type Inversion struct {
	Current          float64 // A
	ShiftedFrequency float64 // Hz
}

// Invert maps a measured frequency back to current. The measurement is first
// moved onto the calibration's baseline,
//
//	shifted = measured - zeroCurrentRef + C,
//
// and the quadratic is solved on the "+" branch, (sqrt(B² - 4AC + 4A·shifted) - B) / 2A.
// The branch follows the field polarity of the calibration wiring and is
// kept fixed. A negative discriminant is an error, never a clamped value.
func (c *Curve) Invert(measured, zeroCurrentRef float64) (Inversion, error) {
	shifted := measured - zeroCurrentRef + c.ZeroCurrentFrequency()

	// B² - 4AC + 4A·shifted, grouped to avoid cancelling two ~1e20 terms.
	delta := shifted - c.c
	disc := c.b*c.b + 4*c.a*delta
	if math.IsNaN(disc) || math.IsInf(disc, 0) || disc < 0 {
		return Inversion{ShiftedFrequency: shifted}, &InversionError{
			Index: -1, Measured: measured, Shifted: shifted, Discriminant: disc,
		}
	}

	root := math.Sqrt(disc)
	var current float64
	if c.b > 0 {
		// Same root as (root - B) / 2A, without subtracting nearly equal values.
		current = 2 * delta / (c.b + root)
	} else {
		current = (root - c.b) / (2 * c.a)
	}

	return Inversion{Current: current, ShiftedFrequency: shifted}, nil
}

// InvertAll inverts a series of measurements against one zero-current
// reference. It stops at the first measurement outside the calibration range.
func (c *Curve) InvertAll(measured []float64, zeroCurrentRef float64) ([]Inversion, error) {
	out := make([]Inversion, 0, len(measured))
	for i, f := range measured {
		inv, err := c.Invert(f, zeroCurrentRef)
		if err != nil {
			var ie *InversionError
			if errors.As(err, &ie) {
				ie.Index = i
			}
			return out, err
		}
		out = append(out, inv)
	}
	return out, nil
}
