package mouth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func at(d time.Duration) time.Time {
	return t0.Add(d)
}

func TestDebounceZeroDelayFlipsImmediately(t *testing.T) {
	var s DebounceState

	assert.True(t, s.Update(true, at(0), 0))
	assert.False(t, s.Update(false, at(100*time.Millisecond), 0))
	assert.True(t, s.Update(true, at(200*time.Millisecond), 0))
}

func TestDebounceFlipBackBeforeDelay(t *testing.T) {
	const delay = 2 * time.Second
	var s DebounceState

	assert.False(t, s.Update(true, at(0), delay))
	assert.True(t, s.InTrial())
	assert.False(t, s.Update(true, at(time.Second), delay))
	assert.False(t, s.Update(false, at(1900*time.Millisecond), delay))
	assert.False(t, s.InTrial())

	// The trial restarts; earlier time in the candidate state does not count.
	assert.False(t, s.Update(true, at(2*time.Second), delay))
	assert.False(t, s.Update(true, at(3900*time.Millisecond), delay))
	assert.True(t, s.Update(true, at(4*time.Second), delay))
}

func TestDebounceCommitsWhenElapsedReachesDelay(t *testing.T) {
	const delay = time.Second
	var s DebounceState

	for _, ms := range []int{0, 250, 500, 750, 999} {
		assert.False(t, s.Update(true, at(time.Duration(ms)*time.Millisecond), delay), "t=%dms", ms)
	}
	assert.True(t, s.Update(true, at(delay), delay), "inclusive at exactly the delay")
	assert.False(t, s.InTrial())
}

func TestDebounceClosesWithSameDelay(t *testing.T) {
	const delay = 500 * time.Millisecond
	s := DebounceState{Committed: true, Pending: true, PendingSince: t0}

	assert.True(t, s.Update(false, at(time.Second), delay))
	assert.True(t, s.Update(false, at(1400*time.Millisecond), delay))
	assert.False(t, s.Update(false, at(1500*time.Millisecond), delay))
}

func TestDebounceAgreementResetsTimer(t *testing.T) {
	const delay = time.Second
	var s DebounceState

	for i := 0; i < 10; i++ {
		now := at(time.Duration(i) * time.Second)
		assert.False(t, s.Update(false, now, delay))
		assert.Equal(t, now, s.PendingSince)
		assert.False(t, s.Pending)
	}
}

func TestDebounceOscillationNeverCommits(t *testing.T) {
	const delay = 2 * time.Second
	var s DebounceState

	for i := 0; i < 200; i++ {
		raw := i%2 == 0
		assert.False(t, s.Update(raw, at(time.Duration(i)*200*time.Millisecond), delay), "frame %d", i)
	}
}

func TestDebounceDelayChangeTakesEffectNextFrame(t *testing.T) {
	var s DebounceState

	assert.False(t, s.Update(true, at(0), 10*time.Second))
	assert.False(t, s.Update(true, at(time.Second), 10*time.Second))
	// Lowering the delay mid-trial applies to the already running episode.
	assert.True(t, s.Update(true, at(2*time.Second), time.Second))
}
