package mouth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mouthwatch/internal/detector"
)

// exactFrame builds a full mesh with the four measured landmarks placed on
// the y axis so that span and gap are exact in binary floating point.
func exactFrame(foreheadY, chinY, upperY, lowerY float64) *detector.FaceLandmarks {
	face := detector.FaceLandmarks{Points: make([]detector.Point3D, detector.NumLandmarks)}
	face.Points[detector.Forehead] = detector.Point3D{Y: foreheadY}
	face.Points[detector.Chin] = detector.Point3D{Y: chinY}
	face.Points[detector.UpperLipBottom] = detector.Point3D{Y: upperY}
	face.Points[detector.LowerLipTop] = detector.Point3D{Y: lowerY}
	return &face
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b detector.Point3D
		want float64
	}{
		{"same point", detector.Point3D{X: 1, Y: 2, Z: 3}, detector.Point3D{X: 1, Y: 2, Z: 3}, 0},
		{"x axis", detector.Point3D{}, detector.Point3D{X: 3}, 3},
		{"3-4-5 triangle", detector.Point3D{}, detector.Point3D{X: 3, Y: 4}, 5},
		{"uses z", detector.Point3D{}, detector.Point3D{X: 2, Y: 3, Z: 6}, 7},
		{"symmetric", detector.Point3D{X: 3, Y: 4}, detector.Point3D{}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Distance(tt.a, tt.b), 1e-12)
		})
	}
}

func TestRatio(t *testing.T) {
	ratio, ok := Ratio(exactFrame(0, 1, 0.5, 0.75))
	require.True(t, ok)
	assert.Equal(t, 0.25, ratio)

	// Scale invariance: doubling every coordinate keeps the ratio.
	ratio, ok = Ratio(exactFrame(0, 2, 1, 1.5))
	require.True(t, ok)
	assert.Equal(t, 0.25, ratio)

	_, ok = Ratio(nil)
	assert.False(t, ok)
}

func TestClassify(t *testing.T) {
	open := detector.OpenMouthLandmarks()
	closed := detector.ClosedMouthLandmarks()

	t.Run("open face above threshold", func(t *testing.T) {
		assert.True(t, Classify(&open, 0.05))
	})

	t.Run("closed face below threshold", func(t *testing.T) {
		assert.False(t, Classify(&closed, 0.05))
	})

	t.Run("ratio exactly at threshold is closed", func(t *testing.T) {
		frame := exactFrame(0, 1, 0.5, 0.75)
		assert.False(t, Classify(frame, 0.25))
		assert.True(t, Classify(frame, 0.2499))
	})

	t.Run("nil frame is closed", func(t *testing.T) {
		assert.False(t, Classify(nil, 0))
	})

	t.Run("zero span is closed regardless of gap", func(t *testing.T) {
		for _, gap := range []float64{0, 0.1, 0.5, 10} {
			frame := exactFrame(0.3, 0.3, 0, gap)
			assert.False(t, Classify(frame, 0), "gap %v", gap)
		}
	})
}

func TestClassifyMissingLandmarks(t *testing.T) {
	required := []int{
		detector.Forehead,
		detector.Chin,
		detector.UpperLipBottom,
		detector.LowerLipTop,
	}

	for _, idx := range required {
		// Truncate the mesh right before the required index.
		face := detector.OpenMouthLandmarks()
		face.Points = face.Points[:idx]
		assert.False(t, Classify(&face, 0), "mesh truncated at %d", idx)
	}

	empty := detector.FaceLandmarks{}
	assert.False(t, Classify(&empty, 0))
}

func TestClassifyMonotonic(t *testing.T) {
	const threshold = 0.05
	prev := false
	for i := 0; i <= 20; i++ {
		face := detector.LandmarksWithRatio(float64(i) * 0.005)
		got := Classify(&face, threshold)
		if prev {
			assert.True(t, got, "classification dropped back to closed at step %d", i)
		}
		prev = got
	}
	assert.True(t, prev)
}
