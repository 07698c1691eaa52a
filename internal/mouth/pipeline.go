package mouth

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ayusman/mouthwatch/internal/detector"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid mouth config")

// Default tuning values.
const (
	DefaultThreshold = 0.05
	DefaultDelay     = time.Second
	DefaultCooldown  = 60 * time.Second
)

// Config holds the live tuning values. It is passed into every Update so
// that changes take effect on the next frame.
type Config struct {
	ThresholdRatio float64
	Delay          time.Duration
	Cooldown       time.Duration
	AlertsEnabled  bool
}

// DefaultConfig returns the default tuning.
func DefaultConfig() Config {
	return Config{
		ThresholdRatio: DefaultThreshold,
		Delay:          DefaultDelay,
		Cooldown:       DefaultCooldown,
		AlertsEnabled:  true,
	}
}

// Validate checks that the values are usable.
func (c Config) Validate() error {
	if math.IsNaN(c.ThresholdRatio) || math.IsInf(c.ThresholdRatio, 0) || c.ThresholdRatio < 0 {
		return fmt.Errorf("%w: threshold must be a non-negative number, got %v", ErrInvalidConfig, c.ThresholdRatio)
	}
	if c.Delay < 0 {
		return fmt.Errorf("%w: delay must be non-negative, got %s", ErrInvalidConfig, c.Delay)
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("%w: cooldown must be non-negative, got %s", ErrInvalidConfig, c.Cooldown)
	}
	return nil
}

// Seconds converts a float number of seconds into a Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Result is the outcome of processing one frame.
type Result struct {
	At        time.Time `json:"at"`
	FaceFound bool      `json:"face_found"`
	// Ratio is zero when the frame could not be measured.
	Ratio     float64 `json:"ratio"`
	Raw       bool    `json:"raw"`
	Committed bool    `json:"open"`
	Changed   bool    `json:"changed"`
	Fired     bool    `json:"fired"`
}

// Pipeline holds the per-run debounce and alert state.
// It is not safe for concurrent use; one driver feeds frames in order.
type Pipeline struct {
	debounce DebounceState
	alert    AlertState
}

// NewPipeline creates a pipeline with the mouth committed closed and no
// alert fired yet.
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Update runs one frame through classification, debounce and the alert gate.
// A nil frame means no face was found and classifies as closed.
//
// The alert decision uses the committed state after this frame's debounce
// update.
func (p *Pipeline) Update(frame *detector.FaceLandmarks, cfg Config, now time.Time) Result {
	ratio, measured := Ratio(frame)
	raw := measured && ratio > cfg.ThresholdRatio

	before := p.debounce.Committed
	committed := p.debounce.Update(raw, now, cfg.Delay)
	fired := p.alert.MaybeAlert(committed, now, cfg.Cooldown, cfg.AlertsEnabled)

	return Result{
		At:        now,
		FaceFound: frame != nil,
		Ratio:     ratio,
		Raw:       raw,
		Committed: committed,
		Changed:   committed != before,
		Fired:     fired,
	}
}

// Reset reinitializes both the debounce and alert state.
func (p *Pipeline) Reset() {
	p.debounce = DebounceState{}
	p.alert = AlertState{}
}

// State returns copies of the current debounce and alert state.
func (p *Pipeline) State() (DebounceState, AlertState) {
	return p.debounce, p.alert
}
