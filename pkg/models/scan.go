package models

import (
	"math"
	"time"

	"github.com/RMahshie/odmr/pkg/odmr"
)

// Scan status values
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Scan represents one uploaded ODMR trace and its processing state (for internal use)
type Scan struct {
	ID          string     `json:"id"`
	Label       string     `json:"label"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	TraceKey    *string    `json:"trace_key,omitempty"`
	ErrorMsg    *string    `json:"error_message,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TracePayload is the wire format of a trace, both inline and in object storage
type TracePayload struct {
	Frequency []float64 `json:"frequency" minItems:"3" required:"true" doc:"Swept microwave frequency in Hz, strictly increasing"`
	Voltage   []float64 `json:"voltage" minItems:"3" required:"true" doc:"Lock-in voltage in V, one per frequency"`
}

// Trace validates the payload and converts it to an analysis trace.
func (p TracePayload) Trace() (*odmr.Trace, error) {
	return odmr.NewTrace(p.Frequency, p.Voltage)
}

// AnalysisOverrides replaces individual analysis parameters for one request.
// Nil fields keep the server configuration.
type AnalysisOverrides struct {
	SmoothWindow     *int     `json:"smooth_window,omitempty" minimum:"1" doc:"Boxcar window in samples"`
	MinHeight        *float64 `json:"min_height,omitempty" doc:"Minimum feature height in V"`
	MinProminence    *float64 `json:"min_prominence,omitempty" minimum:"0" doc:"Minimum feature prominence in V"`
	MinDistanceHz    *float64 `json:"min_distance_hz,omitempty" doc:"Minimum feature separation in Hz"`
	FitHalfWidthHz   *float64 `json:"fit_half_width_hz,omitempty" doc:"Half width of each parabola fit window in Hz"`
	ExcludeFirstDips *int     `json:"exclude_first_dips,omitempty" minimum:"0" doc:"Dips dropped from the start before averaging"`
	ExcludeLastPeaks *int     `json:"exclude_last_peaks,omitempty" minimum:"0" doc:"Peaks dropped from the end before averaging"`
}

// Apply returns cfg with the non-nil overrides applied.
func (o *AnalysisOverrides) Apply(cfg odmr.Config) odmr.Config {
	if o == nil {
		return cfg
	}
	if o.SmoothWindow != nil {
		cfg.SmoothWindow = *o.SmoothWindow
	}
	if o.MinHeight != nil {
		cfg.Detect.MinHeight = *o.MinHeight
	}
	if o.MinProminence != nil {
		cfg.Detect.MinProminence = *o.MinProminence
	}
	if o.MinDistanceHz != nil {
		cfg.Detect.MinDistanceHz = *o.MinDistanceHz
	}
	if o.FitHalfWidthHz != nil {
		cfg.Refine.HalfWidthHz = *o.FitHalfWidthHz
	}
	if o.ExcludeFirstDips != nil {
		cfg.Aggregate.ExcludeFirstDips = *o.ExcludeFirstDips
	}
	if o.ExcludeLastPeaks != nil {
		cfg.Aggregate.ExcludeLastPeaks = *o.ExcludeLastPeaks
	}
	return cfg
}

// FeatureResult is one refined peak or dip. Position and Uncertainty are
// null when the fit failed.
type FeatureResult struct {
	Kind          string   `json:"kind" enum:"peak,dip" doc:"Feature polarity"`
	Index         int      `json:"index" doc:"Candidate sample index"`
	Position      *float64 `json:"position" doc:"Fitted vertex in Hz"`
	Uncertainty   *float64 `json:"uncertainty" doc:"1 sigma vertex uncertainty in Hz"`
	Curvature     *float64 `json:"curvature,omitempty" doc:"Fitted curvature in V/Hz^2"`
	WindowStartHz float64  `json:"window_start_hz" doc:"First frequency of the fit window"`
	WindowEndHz   float64  `json:"window_end_hz" doc:"Last frequency of the fit window"`
	Diagnostics   []string `json:"diagnostics,omitempty" doc:"Fit warnings"`
	Error         string   `json:"error,omitempty" doc:"Fit failure reason"`
}

// LineResult is the averaged line position of a scan
type LineResult struct {
	Position    *float64 `json:"position" doc:"Line centre in Hz"`
	Uncertainty *float64 `json:"uncertainty" doc:"Propagated 1 sigma uncertainty in Hz"`
	Count       int      `json:"count" doc:"Features averaged"`
	Excluded    int      `json:"excluded" doc:"Features dropped by the exclusion rules"`
	Failed      int      `json:"failed" doc:"Features whose fit failed"`
}

// ZeroCrossingResult is the dispersive zero crossing between a peak and its dip
type ZeroCrossingResult struct {
	Index     int      `json:"index" doc:"Sample halfway between dip and peak"`
	Frequency *float64 `json:"frequency" doc:"Zero crossing in Hz"`
	Slope     *float64 `json:"slope" doc:"Local slope in V/Hz"`
}

// ScanResults represents the stored analysis output of a scan
type ScanResults struct {
	ID            string               `json:"id" doc:"Results ID"`
	ScanID        string               `json:"scan_id,omitempty" doc:"Associated scan ID"`
	Peaks         []FeatureResult      `json:"peaks" doc:"Refined peaks in frequency order"`
	Dips          []FeatureResult      `json:"dips" doc:"Refined dips in frequency order"`
	Line          LineResult           `json:"line" doc:"Averaged line position"`
	ZeroCrossings []ZeroCrossingResult `json:"zero_crossings,omitempty" doc:"Zero crossings per feature pair"`
	Error         string               `json:"error,omitempty" doc:"Aggregation failure reason"`
	CreatedAt     time.Time            `json:"created_at" doc:"Results creation timestamp"`
}

// NewScanResults converts a pipeline result to its storage and wire form.
func NewScanResults(id, scanID string, res *odmr.ScanResult) *ScanResults {
	out := &ScanResults{
		ID:            id,
		ScanID:        scanID,
		Peaks:         featureResults(res.Peaks),
		Dips:          featureResults(res.Dips),
		ZeroCrossings: make([]ZeroCrossingResult, 0, len(res.ZeroCrossings)),
		Line: LineResult{
			Position:    Finite(res.Line.Position),
			Uncertainty: Finite(res.Line.Uncertainty),
			Count:       res.Line.Count,
			Excluded:    res.Line.Excluded,
			Failed:      res.Line.Failed,
		},
		CreatedAt: time.Now(),
	}
	for _, zc := range res.ZeroCrossings {
		out.ZeroCrossings = append(out.ZeroCrossings, ZeroCrossingResult{
			Index:     zc.Index,
			Frequency: Finite(zc.Frequency),
			Slope:     Finite(zc.Slope),
		})
	}
	return out
}

func featureResults(features []odmr.Feature) []FeatureResult {
	out := make([]FeatureResult, 0, len(features))
	for _, f := range features {
		r := FeatureResult{
			Kind:          f.Kind.String(),
			Index:         f.Index,
			Position:      Finite(f.Position),
			Uncertainty:   Finite(f.Uncertainty),
			WindowStartHz: f.Window.StartHz,
			WindowEndHz:   f.Window.EndHz,
			Diagnostics:   f.Diagnostics,
		}
		if f.Err != nil {
			r.Error = f.Err.Error()
		} else {
			r.Curvature = Finite(f.Params.Curvature)
		}
		out = append(out, r)
	}
	return out
}

// Finite returns a pointer to v, or nil when v is NaN or infinite.
func Finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
