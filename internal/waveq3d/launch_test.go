package waveq3d

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinear(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name               string
		first, inc, last   float64
		wantLen            int
		wantFirst, wantEnd float64
	}{
		{"degrees", -60, 1, 60, 121, -60, 60},
		{"fine", -1, 0.05, 1, 41, -1, 1},
		{"descending", 4, -1, -4, 9, 4, -4},
		{"short of last", 0, 0.3, 1, 4, 0, 0.9},
		{"single", 3, 1, 3, 1, 3, 3},
		{"zero increment", 3, 0, 10, 1, 3, 3},
		{"wrong direction", 0, 1, -5, 1, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Linear(tt.first, tt.inc, tt.last)
			require.Len(t, got, tt.wantLen)
			assert.InDelta(t, tt.wantFirst, got[0], 1e-12)
			assert.InDelta(t, tt.wantEnd, got[len(got)-1], 1e-12)
		})
	}

	de := Linear(-1, 0.05, 1)
	assert.InDelta(t, 0, de[20], 1e-12)
}

func TestLogSequence(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []float64{10e3}, LogSequence(10e3, 1, 1))
	assert.Equal(t, []float64{100, 200, 400, 800}, LogSequence(100, 2, 4))
	assert.Empty(t, LogSequence(100, 2, 0))
}

func TestCheckFan(t *testing.T) {
	t.Parallel()

	assert.NoError(t, checkFan("de", []float64{-1, 0, 1}))
	assert.NoError(t, checkFan("az", []float64{10, 5, 0}))

	assert.ErrorIs(t, checkFan("de", nil), ErrLaunchGrid)
	assert.ErrorIs(t, checkFan("de", []float64{1}), ErrLaunchGrid)
	assert.ErrorIs(t, checkFan("de", []float64{0, math.NaN()}), ErrLaunchGrid)
	assert.ErrorIs(t, checkFan("de", []float64{0, math.Inf(1)}), ErrLaunchGrid)
	assert.ErrorIs(t, checkFan("de", []float64{0, 0}), ErrNotMonotonic)
	assert.ErrorIs(t, checkFan("az", []float64{0, 1, 2, 1}), ErrNotMonotonic)

	err := checkFan("az", []float64{3, 2, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "az at index 2")
}
