package mouth

import "time"

// AlertState rate-limits alerts. A zero LastFiredAt means no alert has fired yet.
type AlertState struct {
	LastFiredAt time.Time `json:"last_fired_at"`
}

// MaybeAlert decides whether an alert fires at now and records it if so.
// The cooldown runs on wall-clock time since the last fire and is not
// reset when the committed state leaves and re-enters open.
func (s *AlertState) MaybeAlert(committed bool, now time.Time, cooldown time.Duration, enabled bool) bool {
	if !enabled || !committed {
		return false
	}

	if !s.LastFiredAt.IsZero() && now.Sub(s.LastFiredAt) < cooldown {
		return false
	}

	s.LastFiredAt = now
	return true
}

// Remaining returns how long until another alert may fire at now.
func (s *AlertState) Remaining(now time.Time, cooldown time.Duration) time.Duration {
	if s.LastFiredAt.IsZero() {
		return 0
	}
	left := cooldown - now.Sub(s.LastFiredAt)
	if left < 0 {
		return 0
	}
	return left
}
