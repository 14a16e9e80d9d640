package odmr

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	synthStartHz = 2.6875e9
	synthStepHz  = 25e3
	synthSamples = 1000
)

// bump is a parabolic-topped feature of the given amplitude and half width.
type bump struct {
	centerHz float64
	amp      float64
	widthHz  float64
}

func (b bump) at(f float64) float64 {
	d := (f - b.centerHz) / b.widthHz
	if math.Abs(d) >= 1 {
		return 0
	}
	return b.amp * (1 - d*d)
}

// gaussian is a feature whose shape differs from the fitted parabola.
type gaussian struct {
	centerHz float64
	amp      float64
	sigmaHz  float64
}

func (g gaussian) at(f float64) float64 {
	d := (f - g.centerHz) / g.sigmaHz
	return g.amp * math.Exp(-d*d/2)
}

type shape interface {
	at(f float64) float64
}

func synthTrace(t *testing.T, seed int64, noise float64, bumps ...bump) *Trace {
	t.Helper()

	shapes := make([]shape, len(bumps))
	for i, b := range bumps {
		shapes[i] = b
	}
	return shapedTrace(t, synthSamples, seed, noise, shapes...)
}

func shapedTrace(t *testing.T, n int, seed int64, noise float64, shapes ...shape) *Trace {
	t.Helper()

	rng := rand.New(rand.NewSource(seed))
	freq := make([]float64, n)
	volt := make([]float64, n)
	for i := range freq {
		freq[i] = synthStartHz + float64(i)*synthStepHz
		for _, s := range shapes {
			volt[i] += s.at(freq[i])
		}
		volt[i] += noise * rng.NormFloat64()
	}

	tr, err := NewTrace(freq, volt)
	require.NoError(t, err)
	return tr
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SmoothWindow = 5
	cfg.Detect = DetectOptions{MinHeight: 0.5, MinProminence: 0.5, MinDistanceHz: 0.5e6}
	cfg.Refine.HalfWidthHz = 0.3e6
	return cfg
}

func linspace(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}
