package odmr

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTrace        = errors.New("invalid trace")
	ErrInvalidOptions      = errors.New("invalid options")
	ErrDetection           = errors.New("feature detection failed")
	ErrFitDivergence       = errors.New("feature fit failed")
	ErrNoSurvivingFeatures = errors.New("no surviving features to aggregate")
)

// DetectionError reports peak/dip counts that cannot be paired.
type DetectionError struct {
	Peaks int
	Dips  int
}

func (e *DetectionError) Error() string {
	if e.Peaks == 0 && e.Dips == 0 {
		return fmt.Sprintf("%s: no peaks or dips found", ErrDetection)
	}
	return fmt.Sprintf("%s: %d peaks vs %d dips", ErrDetection, e.Peaks, e.Dips)
}

func (e *DetectionError) Unwrap() error {
	return ErrDetection
}

// FitError describes why a single feature could not be refined.
type FitError struct {
	Kind   Kind
	Index  int
	Reason string
	Err    error
}

func (e *FitError) Error() string {
	msg := fmt.Sprintf("%s: %s at sample %d: %s", ErrFitDivergence, e.Kind, e.Index, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FitError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrFitDivergence, e.Err}
	}
	return []error{ErrFitDivergence}
}
