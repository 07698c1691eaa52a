package mouth

import "time"

// DebounceState stabilizes a noisy per-frame boolean.
//
// Committed is the externally visible state. Pending is the value under
// trial and PendingSince is when the current trial started. Committed only
// changes once the raw signal has disagreed with it continuously for at
// least the configured delay.
type DebounceState struct {
	Committed    bool      `json:"committed"`
	Pending      bool      `json:"pending"`
	PendingSince time.Time `json:"pending_since"`
}

// Update feeds one raw classification observed at now and returns the
// committed state after the update.
func (s *DebounceState) Update(raw bool, now time.Time, delay time.Duration) bool {
	if raw == s.Committed {
		// Agreement confirms the committed value and cancels any trial.
		s.Pending = raw
		s.PendingSince = now
		return s.Committed
	}

	if raw != s.Pending {
		s.Pending = raw
		s.PendingSince = now
	}

	if now.Sub(s.PendingSince) >= delay {
		s.Committed = raw
	}

	return s.Committed
}

// InTrial reports whether a transition is pending.
func (s *DebounceState) InTrial() bool {
	return s.Pending != s.Committed
}
