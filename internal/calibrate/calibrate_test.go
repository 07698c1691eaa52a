package calibrate

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mouthwatch/internal/detector"
)

func TestSummarize(t *testing.T) {
	s, err := Summarize([]float64{0.05, 0.01, 0.03, 0.02, 0.04})
	require.NoError(t, err)

	assert.Equal(t, 5, s.Count)
	assert.InDelta(t, 0.03, s.Mean, 1e-12)
	assert.Equal(t, 0.01, s.Min)
	assert.Equal(t, 0.05, s.Max)
	assert.Equal(t, 0.03, s.P50)
	assert.Equal(t, 0.01, s.P05)
	assert.Equal(t, 0.05, s.P95)
	assert.InDelta(t, math.Sqrt(0.00025), s.StdDev, 1e-12)
}

func TestSummarizeSingle(t *testing.T) {
	s, err := Summarize([]float64{0.07})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count)
	assert.Zero(t, s.StdDev)
	assert.Equal(t, 0.07, s.P05)
	assert.Equal(t, 0.07, s.P95)
}

func TestSummarizeEmpty(t *testing.T) {
	_, err := Summarize(nil)
	assert.ErrorIs(t, err, ErrNoSamples)

	_, err = Summarize([]float64{math.NaN()})
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestSummarizeDoesNotModifyInput(t *testing.T) {
	in := []float64{0.3, 0.1, 0.2}
	_, err := Summarize(in)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.3, 0.1, 0.2}, in)
}

func TestSuggestThreshold(t *testing.T) {
	closed := []float64{0.01, 0.012, 0.015, 0.02, 0.018}
	open := []float64{0.09, 0.1, 0.12, 0.08, 0.11}

	got, err := SuggestThreshold(closed, open)
	require.NoError(t, err)
	assert.InDelta(t, (0.02+0.08)/2, got, 1e-12)
	assert.Greater(t, got, 0.02)
	assert.Less(t, got, 0.08)
}

func TestSuggestThresholdErrors(t *testing.T) {
	tests := []struct {
		name   string
		closed []float64
		open   []float64
		want   error
	}{
		{"no closed", nil, []float64{0.1}, ErrNoSamples},
		{"no open", []float64{0.01}, nil, ErrNoSamples},
		{"overlap", []float64{0.01, 0.06}, []float64{0.05, 0.1}, ErrOverlap},
		{"touching", []float64{0.05}, []float64{0.05}, ErrOverlap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SuggestThreshold(tt.closed, tt.open)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestRatios(t *testing.T) {
	closed := detector.LandmarksWithRatio(0.01)
	open := detector.LandmarksWithRatio(0.1)
	partial := detector.FaceLandmarks{Points: closed.Points[:20]}

	frames := []detector.RecordedFrame{
		{Face: &closed},
		{Face: nil},
		{Face: &partial},
		{Face: &open},
	}

	got := Ratios(frames)
	require.Len(t, got, 2)
	assert.InDelta(t, 0.01, got[0], 1e-9)
	assert.InDelta(t, 0.1, got[1], 1e-9)
}
