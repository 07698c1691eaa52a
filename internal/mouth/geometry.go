// Package mouth turns face landmarks into a stable mouth-open state with
// rate-limited alerting.
//
// A frame flows through three stages: Classify computes a raw open/closed
// decision from the mouth-gap to face-span ratio, DebounceState stabilizes
// it over time and AlertState decides whether to fire an alert.
package mouth

import (
	"math"

	"github.com/ayusman/mouthwatch/internal/detector"
)

// Distance returns the Euclidean distance between two landmarks.
func Distance(a, b detector.Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Ratio returns the mouth gap normalized by the forehead-to-chin span.
// ok is false when a required landmark is missing or the span is zero.
func Ratio(frame *detector.FaceLandmarks) (ratio float64, ok bool) {
	upper, ok1 := frame.At(detector.UpperLipBottom)
	lower, ok2 := frame.At(detector.LowerLipTop)
	forehead, ok3 := frame.At(detector.Forehead)
	chin, ok4 := frame.At(detector.Chin)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return 0, false
	}

	span := Distance(forehead, chin)
	if span == 0 {
		return 0, false
	}

	return Distance(upper, lower) / span, true
}

// Classify reports whether the mouth is open in frame.
// Incomplete or degenerate frames are classified as closed.
func Classify(frame *detector.FaceLandmarks, thresholdRatio float64) bool {
	ratio, ok := Ratio(frame)
	if !ok {
		return false
	}
	return ratio > thresholdRatio
}
