package odmr

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Config is the complete set of per-scan analysis parameters.
type Config struct {
	SmoothWindow            int
	Detect                  DetectOptions
	Refine                  RefineOptions
	Aggregate               AggregateOptions
	ZeroCrossingHalfWidthHz float64 // 0 disables zero-crossing fits
	Workers                 int     // concurrent feature fits; <= 1 refines sequentially
}

// DefaultConfig returns the parameters used for hyperfine-resolved scans.
func DefaultConfig() Config {
	return Config{
		SmoothWindow: 20,
		Detect: DetectOptions{
			MinHeight:     0.02,
			MinProminence: 0.02,
			MinDistanceHz: 0.5e6,
		},
		Refine: RefineOptions{
			HalfWidthHz:      0.2e6,
			MaxIterations:    1000,
			MaxVertexDriftHz: 0.5e6,
		},
		ZeroCrossingHalfWidthHz: 0.1e6,
		Workers:                 1,
	}
}

// Validate checks that the configuration can be used.
func (c Config) Validate() error {
	if c.SmoothWindow < 1 {
		return fmt.Errorf("%w: smooth window must be >= 1", ErrInvalidOptions)
	}
	if c.Refine.HalfWidthHz <= 0 {
		return fmt.Errorf("%w: fit half width must be positive", ErrInvalidOptions)
	}
	if c.Detect.MinProminence < 0 {
		return fmt.Errorf("%w: prominence must not be negative", ErrInvalidOptions)
	}
	if c.Aggregate.ExcludeFirstDips < 0 || c.Aggregate.ExcludeLastPeaks < 0 {
		return fmt.Errorf("%w: exclusion counts must not be negative", ErrInvalidOptions)
	}
	if c.ZeroCrossingHalfWidthHz < 0 {
		return fmt.Errorf("%w: zero-crossing half width must not be negative", ErrInvalidOptions)
	}
	return nil
}

// ScanResult is the outcome of analysing one trace.
type ScanResult struct {
	Peaks         []Feature
	Dips          []Feature
	Line          LinePosition
	ZeroCrossings []ZeroCrossing
}

// Analyzer runs the per-scan pipeline: smooth, detect, pair, refine, aggregate.
// It holds no per-scan state and may be shared between goroutines.
type Analyzer struct {
	cfg    Config
	logger zerolog.Logger
}

// NewAnalyzer validates cfg and returns an Analyzer.
func NewAnalyzer(cfg Config, logger zerolog.Logger) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{cfg: cfg, logger: logger}, nil
}

// Config returns the analyzer's configuration.
func (a *Analyzer) Config() Config {
	return a.cfg
}

// Analyze processes one trace. Detection errors are fatal. Individual fit
// failures are reported on their Feature. If no feature survives aggregation
// the partial result is returned together with ErrNoSurvivingFeatures.
func (a *Analyzer) Analyze(ctx context.Context, t *Trace) (*ScanResult, error) {
	smoothed, err := t.Smoothed(a.cfg.SmoothWindow)
	if err != nil {
		return nil, err
	}

	det, err := Detect(t, smoothed, a.cfg.Detect)
	if err != nil {
		return nil, err
	}
	pairs, err := Pair(det)
	if err != nil {
		a.logger.Warn().Int("peaks", len(det.Peaks)).Int("dips", len(det.Dips)).Msg("Peak/dip counts do not pair")
		return nil, err
	}

	res := &ScanResult{
		Peaks: make([]Feature, len(pairs)),
		Dips:  make([]Feature, len(pairs)),
	}
	if err := a.refineAll(ctx, t, pairs, res); err != nil {
		return nil, err
	}

	for _, f := range append(append([]Feature(nil), res.Peaks...), res.Dips...) {
		if f.Failed() {
			a.logger.Warn().Err(f.Err).Str("kind", f.Kind.String()).Int("index", f.Index).Msg("Feature fit failed")
			continue
		}
		for _, d := range f.Diagnostics {
			a.logger.Warn().Str("kind", f.Kind.String()).Int("index", f.Index).Msg(d)
		}
	}

	if a.cfg.ZeroCrossingHalfWidthHz > 0 {
		res.ZeroCrossings = ZeroCrossings(t, pairs, a.cfg.ZeroCrossingHalfWidthHz)
	}

	res.Line, err = Average(res.Peaks, res.Dips, a.cfg.Aggregate)
	if err != nil {
		return res, err
	}

	a.logger.Debug().
		Int("pairs", len(pairs)).
		Int("used", res.Line.Count).
		Float64("position_hz", res.Line.Position).
		Float64("uncertainty_hz", res.Line.Uncertainty).
		Msg("Scan analysed")
	return res, nil
}

func (a *Analyzer) refineAll(ctx context.Context, t *Trace, pairs []FeaturePair, res *ScanResult) error {
	if a.cfg.Workers <= 1 {
		for i, p := range pairs {
			if err := ctx.Err(); err != nil {
				return err
			}
			res.Peaks[i] = Refine(t, p.Peak, a.cfg.Refine)
			res.Dips[i] = Refine(t, p.Dip, a.cfg.Refine)
		}
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)
	for i, p := range pairs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res.Peaks[i] = Refine(t, p.Peak, a.cfg.Refine)
			return nil
		})
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res.Dips[i] = Refine(t, p.Dip, a.cfg.Refine)
			return nil
		})
	}
	return g.Wait()
}
