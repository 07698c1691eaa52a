package mouth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMaybeAlertCooldown(t *testing.T) {
	const cooldown = 60 * time.Second

	t.Run("30s apart fires once", func(t *testing.T) {
		var s AlertState
		fires := 0
		for _, d := range []time.Duration{0, 30 * time.Second} {
			if s.MaybeAlert(true, at(d), cooldown, true) {
				fires++
			}
		}
		assert.Equal(t, 1, fires)
	})

	t.Run("61s apart fires twice", func(t *testing.T) {
		var s AlertState
		fires := 0
		for _, d := range []time.Duration{0, 61 * time.Second} {
			if s.MaybeAlert(true, at(d), cooldown, true) {
				fires++
			}
		}
		assert.Equal(t, 2, fires)
	})

	t.Run("exactly the cooldown fires", func(t *testing.T) {
		var s AlertState
		assert.True(t, s.MaybeAlert(true, at(0), cooldown, true))
		assert.False(t, s.MaybeAlert(true, at(cooldown-time.Nanosecond), cooldown, true))
		assert.True(t, s.MaybeAlert(true, at(cooldown), cooldown, true))
		assert.Equal(t, at(cooldown), s.LastFiredAt)
	})

	t.Run("zero cooldown fires every qualifying frame", func(t *testing.T) {
		var s AlertState
		for i := 0; i < 5; i++ {
			assert.True(t, s.MaybeAlert(true, at(time.Duration(i)*time.Millisecond), 0, true))
		}
	})
}

func TestMaybeAlertDisabled(t *testing.T) {
	var s AlertState
	for i := 0; i < 10; i++ {
		assert.False(t, s.MaybeAlert(true, at(time.Duration(i)*time.Hour), 0, false))
	}
	assert.True(t, s.LastFiredAt.IsZero())
}

func TestMaybeAlertRequiresCommittedOpen(t *testing.T) {
	var s AlertState
	assert.False(t, s.MaybeAlert(false, at(0), 0, true))
	assert.True(t, s.LastFiredAt.IsZero())
}

func TestMaybeAlertReentryDoesNotResetCooldown(t *testing.T) {
	const cooldown = 60 * time.Second
	var s AlertState

	assert.True(t, s.MaybeAlert(true, at(0), cooldown, true))
	assert.False(t, s.MaybeAlert(false, at(5*time.Second), cooldown, true))
	assert.False(t, s.MaybeAlert(true, at(10*time.Second), cooldown, true))
	assert.True(t, s.MaybeAlert(true, at(60*time.Second), cooldown, true))
}

func TestRemaining(t *testing.T) {
	const cooldown = 60 * time.Second
	var s AlertState

	assert.Zero(t, s.Remaining(at(0), cooldown))
	s.MaybeAlert(true, at(0), cooldown, true)
	assert.Equal(t, 45*time.Second, s.Remaining(at(15*time.Second), cooldown))
	assert.Zero(t, s.Remaining(at(2*time.Minute), cooldown))
}
