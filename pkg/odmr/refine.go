package odmr

import (
	"errors"
	"fmt"
	"math"

	"github.com/maorshutman/lm"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// maxCovarianceCond bounds the condition number of JᵀJ before the
// covariance is treated as singular.
const maxCovarianceCond = 1e14

// RefineOptions control the local parabola fit around each candidate.
type RefineOptions struct {
	HalfWidthHz      float64 // the fit window spans ±HalfWidthHz around the candidate
	MaxIterations    int
	MaxVertexDriftHz float64 // warn when the vertex moves further than this; <= 0 disables
}

// FitWindow is the inclusive sample range a feature was fit on.
type FitWindow struct {
	Start   int
	End     int
	StartHz float64
	EndHz   float64
}

// Len returns the number of samples in the window.
func (w FitWindow) Len() int {
	return w.End - w.Start + 1
}

// Parabola is f(x) = Curvature·(x - Vertex)² + Offset with x in Hz.
type Parabola struct {
	Vertex    float64 // Hz
	Curvature float64 // V/Hz²
	Offset    float64 // V
}

// At evaluates the parabola.
func (p Parabola) At(x float64) float64 {
	d := x - p.Vertex
	return p.Curvature*d*d + p.Offset
}

// Feature is a refined peak or dip. Position and Uncertainty are NaN when
// Err is set.
type Feature struct {
	Kind        Kind
	Index       int
	Position    float64 // Hz
	Uncertainty float64 // Hz, 1σ
	Window      FitWindow
	Params      Parabola
	Diagnostics []string
	Err         error
}

// Failed reports whether the fit for this feature failed.
func (f Feature) Failed() bool {
	return f.Err != nil
}

// Refine fits a parabola to the raw trace around a candidate. A failed fit
// never returns an error to the caller; it is recorded on the Feature so the
// remaining features of the scan can still be used.
//
// The window needs at least 3 samples for the fit and at least 4 for an
// uncertainty. A window of exactly 3 samples is reported as failed rather
// than with an infinite uncertainty.
func Refine(t *Trace, c Candidate, opts RefineOptions) Feature {
	f := Feature{
		Kind:        c.Kind,
		Index:       c.Index,
		Position:    math.NaN(),
		Uncertainty: math.NaN(),
		Params:      Parabola{Vertex: math.NaN(), Curvature: math.NaN(), Offset: math.NaN()},
	}

	fail := func(reason string, err error) Feature {
		fe := &FitError{Kind: c.Kind, Index: c.Index, Reason: reason, Err: err}
		f.Err = fe
		f.Diagnostics = append(f.Diagnostics, fe.Error())
		return f
	}

	n := t.Len()
	if c.Index < 0 || c.Index >= n {
		return fail("candidate outside trace", nil)
	}

	half := t.samplesFor(opts.HalfWidthHz)
	if half < 0 {
		half = 0
	}
	start := max(0, c.Index-half)
	end := min(n-1, c.Index+half)
	f.Window = FitWindow{
		Start:   start,
		End:     end,
		StartHz: t.Frequency[start],
		EndHz:   t.Frequency[end],
	}
	if f.Window.Len() < 3 {
		return fail(fmt.Sprintf("window holds %d samples, need at least 3", f.Window.Len()), nil)
	}

	// Fit in sample units centred on the candidate so all parameters are O(1).
	pitch := t.Pitch()
	center := t.Frequency[c.Index]
	u := make([]float64, f.Window.Len())
	y := make([]float64, f.Window.Len())
	for k := range u {
		u[k] = (t.Frequency[start+k] - center) / pitch
		y[k] = t.Voltage[start+k]
	}

	params, err := fitParabola(u, y, initialGuess(c.Kind, u, y, t.Voltage[c.Index]), opts.MaxIterations)
	if err != nil {
		return fail("solver did not converge", err)
	}
	for _, p := range params {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return fail("solver returned non-finite parameters", nil)
		}
	}

	sigma, err := vertexSigma(u, y, params)
	if err != nil {
		return fail("covariance unavailable", err)
	}

	f.Position = center + params[0]*pitch
	f.Uncertainty = sigma * pitch
	f.Params = Parabola{
		Vertex:    f.Position,
		Curvature: params[1] / (pitch * pitch),
		Offset:    params[2],
	}

	if opts.MaxVertexDriftHz > 0 {
		if drift := math.Abs(f.Position - center); drift > opts.MaxVertexDriftHz {
			f.Diagnostics = append(f.Diagnostics, fmt.Sprintf(
				"%s vertex at %.1f Hz is %.1f Hz away from the detected sample at %.1f Hz", c.Kind, f.Position, drift, center))
		}
	}
	if (c.Kind == Peak && params[1] > 0) || (c.Kind == Dip && params[1] < 0) {
		f.Diagnostics = append(f.Diagnostics, fmt.Sprintf("%s fit has curvature of the wrong sign", c.Kind))
	}

	return f
}

// initialGuess returns (u0, a, c) in sample units. The curvature comes from
// the chord between the window endpoints, floored by the endpoint-to-vertex
// drop, with its sign fixed by the feature kind.
func initialGuess(kind Kind, u, y []float64, y0 float64) []float64 {
	last := len(u) - 1
	span := u[last] - u[0]
	halfSpan := span / 2

	a := math.Abs((y[last]-y[0])/span) / span
	if drop := math.Abs((y[0]+y[last])/2-y0) / (halfSpan * halfSpan); drop > a {
		a = drop
	}
	if a == 0 || math.IsNaN(a) {
		a = 1e-9
	}
	if kind == Peak {
		a = -a
	}
	return []float64{0, a, y0}
}

// fitParabola runs Levenberg-Marquardt from init. Hitting the iteration
// limit and a singular step are both reported as errors.
func fitParabola(u, y, init []float64, iterations int) (params []float64, err error) {
	if iterations <= 0 {
		iterations = 1000
	}

	// lm panics when the damped normal equations cannot be solved.
	defer func() {
		if r := recover(); r != nil {
			params, err = nil, fmt.Errorf("solver failed: %v", r)
		}
	}()

	resFunc := func(dst, p []float64) {
		for i := range u {
			d := u[i] - p[0]
			dst[i] = y[i] - (p[1]*d*d + p[2])
		}
	}

	nj := &lm.NumJac{Func: resFunc}

	problem := lm.LMProblem{
		Dim:        3,
		Size:       len(u),
		Func:       resFunc,
		Jac:        nj.Jac,
		InitParams: init,
		Tau:        1e-6,
		Eps1:       1e-10,
		Eps2:       1e-10,
	}

	result, err := lm.LM(problem, &lm.Settings{Iterations: iterations, ObjectiveTol: 1e-16})
	if err != nil {
		return nil, err
	}
	switch result.Status {
	case optimize.IterationLimit, optimize.FunctionEvaluationLimit, optimize.RuntimeLimit, optimize.Failure:
		return nil, fmt.Errorf("solver stopped with status %v (limit %d iterations)", result.Status, iterations)
	}
	if len(result.X) != 3 {
		return nil, errors.New("unexpected parameter count")
	}
	return result.X, nil
}

// vertexSigma returns the 1σ uncertainty of u0 from s²·(JᵀJ)⁻¹ with
// s² = RSS/(n-3).
func vertexSigma(u, y, p []float64) (float64, error) {
	dof := len(u) - 3
	if dof <= 0 {
		return 0, fmt.Errorf("%d samples leave no residual degrees of freedom", len(u))
	}

	jtj := mat.NewSymDense(3, nil)
	rss := 0.0
	row := make([]float64, 3)
	for i := range u {
		d := u[i] - p[0]
		r := y[i] - (p[1]*d*d + p[2])
		rss += r * r

		row[0] = -2 * p[1] * d
		row[1] = d * d
		row[2] = 1
		for a := 0; a < 3; a++ {
			for b := a; b < 3; b++ {
				jtj.SetSym(a, b, jtj.At(a, b)+row[a]*row[b])
			}
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(jtj); !ok {
		return 0, errors.New("singular normal matrix")
	}
	if cond := chol.Cond(); cond > maxCovarianceCond {
		return 0, fmt.Errorf("ill-conditioned normal matrix (cond %.3g)", cond)
	}

	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return 0, fmt.Errorf("invert normal matrix: %w", err)
	}

	variance := inv.At(0, 0) * rss / float64(dof)
	if math.IsNaN(variance) || math.IsInf(variance, 0) || variance < 0 {
		return 0, fmt.Errorf("invalid vertex variance %v", variance)
	}
	return math.Sqrt(variance), nil
}
