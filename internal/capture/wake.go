package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Wake gate defaults.
const (
	// DefaultWakePercent is the share of changed pixels that counts as activity.
	DefaultWakePercent = 1.0
	// blurSize is the Gaussian kernel applied before differencing.
	blurSize = 21
	// pixelDelta is the per-pixel intensity change that counts as changed.
	pixelDelta = 25
)

// WakeGate reports whether anything in front of the camera changed since
// the last frame it saw. While no face is tracked the app uses it to skip
// face mesh inference on a static scene.
type WakeGate struct {
	mu        sync.Mutex
	percent   float64
	region    image.Rectangle
	prev      gocv.Mat
	hasPrev   bool
	closed    bool
	lastScore float64
}

// NewWakeGate creates a gate that opens when more than percent of the
// pixels changed. Non-positive values use DefaultWakePercent.
func NewWakeGate(percent float64) *WakeGate {
	if percent <= 0 {
		percent = DefaultWakePercent
	}
	return &WakeGate{
		percent: percent,
		prev:    gocv.NewMat(),
	}
}

// SetRegion limits the comparison to r, typically the last known face box.
// An empty rectangle compares the whole frame. The baseline is dropped.
func (g *WakeGate) SetRegion(r image.Rectangle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.region = r
	g.clear()
}

// Region returns the watched rectangle. It is empty when the whole frame is
// compared.
func (g *WakeGate) Region() image.Rectangle {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.region
}

// Awake compares frame with the previous one and reports whether enough
// pixels changed. The first frame after construction or Reset only sets the
// baseline and reports false.
func (g *WakeGate) Awake(frame *gocv.Mat) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed || frame == nil || frame.Empty() {
		return false
	}

	src := *frame
	if !g.region.Empty() {
		bounds := image.Rect(0, 0, frame.Cols(), frame.Rows())
		r := g.region.Intersect(bounds)
		if !r.Empty() {
			roi := frame.Region(r)
			defer roi.Close()
			src = roi
		}
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if src.Channels() > 1 {
		gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	} else {
		src.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: blurSize, Y: blurSize}, 0, 0, gocv.BorderDefault)

	if !g.hasPrev || g.prev.Rows() != blurred.Rows() || g.prev.Cols() != blurred.Cols() {
		blurred.CopyTo(&g.prev)
		g.hasPrev = true
		g.lastScore = 0
		return false
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, g.prev, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, pixelDelta, 255, gocv.ThresholdBinary)

	changed := gocv.CountNonZero(mask)
	g.lastScore = float64(changed) / float64(mask.Rows()*mask.Cols()) * 100.0

	blurred.CopyTo(&g.prev)

	return g.lastScore > g.percent
}

// Score returns the changed-pixel percentage from the last comparison.
func (g *WakeGate) Score() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastScore
}

// Reset drops the baseline frame.
func (g *WakeGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clear()
}

// Close releases the baseline Mat. The gate stays asleep afterwards.
func (g *WakeGate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return
	}
	g.closed = true
	g.prev.Close()
	g.clear()
}

// clear forgets the baseline. The Mat is kept and overwritten by the next
// frame.
func (g *WakeGate) clear() {
	g.hasPrev = false
	g.lastScore = 0
}
