// Package detector provides face landmark detection interfaces and types.
package detector

// Face mesh landmark indices following the MediaPipe FaceMesh topology.
// See: https://developers.google.com/mediapipe/solutions/vision/face_landmarker
const (
	Forehead       = 10
	UpperLipBottom = 13
	LowerLipTop    = 14
	Chin           = 152
	NumLandmarks   = 468
)

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FaceLandmarks is one detected face: an ordered sequence of mesh points.
// A mesh may be shorter than NumLandmarks when the source dropped points.
type FaceLandmarks struct {
	Points []Point3D `json:"points"`
	Score  float64   `json:"score"`
}

// At returns the landmark at index i and whether it is present.
func (f *FaceLandmarks) At(i int) (Point3D, bool) {
	if f == nil || i < 0 || i >= len(f.Points) {
		return Point3D{}, false
	}
	return f.Points[i], true
}

// Len returns the number of points in the mesh.
func (f *FaceLandmarks) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Points)
}

// Best returns the highest scoring face, or nil if faces is empty.
func Best(faces []FaceLandmarks) *FaceLandmarks {
	if len(faces) == 0 {
		return nil
	}
	best := &faces[0]
	for i := 1; i < len(faces); i++ {
		if faces[i].Score > best.Score {
			best = &faces[i]
		}
	}
	return best
}
