// Package calibrate derives a mouth-open threshold from recorded ratios.
//
// The user records a short session with the mouth closed and another with
// the mouth open. The suggested threshold sits halfway between the high end
// of the closed distribution and the low end of the open one.
package calibrate

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/mouthwatch/internal/detector"
	"github.com/ayusman/mouthwatch/internal/mouth"
)

var (
	// ErrNoSamples is returned when a set has no measurable frames.
	ErrNoSamples = errors.New("no samples")
	// ErrOverlap is returned when closed and open ratios cannot be separated.
	ErrOverlap = errors.New("closed and open ratios overlap")
)

// Summary describes a set of ratios.
type Summary struct {
	Count  int     `json:"count" yaml:"count"`
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"stddev" yaml:"stddev"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	P05    float64 `json:"p05" yaml:"p05"`
	P50    float64 `json:"p50" yaml:"p50"`
	P95    float64 `json:"p95" yaml:"p95"`
}

// Summarize computes summary statistics. NaN values are dropped.
func Summarize(ratios []float64) (Summary, error) {
	sorted := make([]float64, 0, len(ratios))
	for _, r := range ratios {
		if !math.IsNaN(r) {
			sorted = append(sorted, r)
		}
	}
	if len(sorted) == 0 {
		return Summary{}, ErrNoSamples
	}
	sort.Float64s(sorted)

	s := Summary{
		Count: len(sorted),
		Mean:  stat.Mean(sorted, nil),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		P05:   stat.Quantile(0.05, stat.Empirical, sorted, nil),
		P50:   stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P95:   stat.Quantile(0.95, stat.Empirical, sorted, nil),
	}
	if len(sorted) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	return s, nil
}

// SuggestThreshold returns the midpoint between the closed P95 and the open
// P05.
func SuggestThreshold(closed, open []float64) (float64, error) {
	c, err := Summarize(closed)
	if err != nil {
		return 0, fmt.Errorf("closed: %w", err)
	}
	o, err := Summarize(open)
	if err != nil {
		return 0, fmt.Errorf("open: %w", err)
	}

	if c.P95 >= o.P05 {
		return 0, fmt.Errorf("%w: closed p95 %.4f >= open p05 %.4f", ErrOverlap, c.P95, o.P05)
	}
	return (c.P95 + o.P05) / 2, nil
}

// Ratios extracts the measurable mouth ratios from recorded frames.
// Frames without a face or with missing landmarks are skipped.
func Ratios(frames []detector.RecordedFrame) []float64 {
	ratios := make([]float64, 0, len(frames))
	for _, f := range frames {
		if r, ok := mouth.Ratio(f.Face); ok {
			ratios = append(ratios, r)
		}
	}
	return ratios
}
