package detector

import (
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	faces []FaceLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFaces sets the faces that will be returned by Detect.
func (m *MockDetector) SetFaces(faces []FaceLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces = faces
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured faces or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]FaceLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.faces, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Reference geometry for the fixtures, in normalized image coordinates.
// The forehead-to-chin span is 0.5.
var (
	fixtureForehead = Point3D{X: 0.5, Y: 0.2, Z: -0.02}
	fixtureChin     = Point3D{X: 0.5, Y: 0.7, Z: -0.02}
	fixtureLipLine  = Point3D{X: 0.5, Y: 0.55, Z: -0.05}
)

// LandmarksWithRatio returns a full face mesh whose mouth-gap to face-span
// ratio equals ratio. The lips are split symmetrically around the lip line.
func LandmarksWithRatio(ratio float64) FaceLandmarks {
	face := FaceLandmarks{
		Points: make([]Point3D, NumLandmarks),
		Score:  0.97,
	}

	// Spread filler points over the face box so the mesh is not degenerate.
	for i := range face.Points {
		col := float64(i%22) / 21.0
		row := float64(i/22) / 21.0
		face.Points[i] = Point3D{
			X: 0.35 + col*0.3,
			Y: 0.2 + row*0.5,
			Z: -0.03,
		}
	}

	span := distance(fixtureForehead, fixtureChin)
	half := ratio * span / 2

	face.Points[Forehead] = fixtureForehead
	face.Points[Chin] = fixtureChin
	face.Points[UpperLipBottom] = Point3D{X: fixtureLipLine.X, Y: fixtureLipLine.Y - half, Z: fixtureLipLine.Z}
	face.Points[LowerLipTop] = Point3D{X: fixtureLipLine.X, Y: fixtureLipLine.Y + half, Z: fixtureLipLine.Z}

	return face
}

// ClosedMouthLandmarks returns a preset face with the lips touching.
func ClosedMouthLandmarks() FaceLandmarks {
	return LandmarksWithRatio(0.01)
}

// OpenMouthLandmarks returns a preset face with the mouth wide open.
func OpenMouthLandmarks() FaceLandmarks {
	return LandmarksWithRatio(0.12)
}

func distance(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
