package odmr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmooth_WindowOneIsIdentity(t *testing.T) {
	tr := synthTrace(t, 7, 0.01, bump{centerHz: 2.7e9, amp: 1, widthHz: 0.5e6})

	out, err := tr.Smoothed(1)
	require.NoError(t, err)
	assert.Equal(t, tr.Voltage, out)
}

func TestSmooth(t *testing.T) {
	tests := []struct {
		name   string
		in     []float64
		window int
		want   []float64
	}{
		{
			name:   "odd window",
			in:     []float64{3, 6, 9, 12, 15},
			window: 3,
			want:   []float64{4.5, 6, 9, 12, 13.5},
		},
		{
			name:   "even window leans left",
			in:     []float64{1, 2, 3, 4},
			window: 2,
			want:   []float64{1, 1.5, 2.5, 3.5},
		},
		{
			name:   "window wider than input",
			in:     []float64{1, 2, 3},
			window: 10,
			want:   []float64{2, 2, 2},
		},
		{
			name:   "empty",
			in:     []float64{},
			window: 4,
			want:   []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Smooth(tt.in, tt.window)
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-12, "index %d", i)
			}
		})
	}
}

func TestSmooth_InvalidWindow(t *testing.T) {
	_, err := Smooth([]float64{1, 2, 3}, 0)
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestSmooth_DoesNotModifyInput(t *testing.T) {
	in := []float64{0, 10, 0}
	_, err := Smooth(in, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 10, 0}, in)
}
