package chime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/mouthwatch/internal/log"
)

// DefaultPlayTimeout bounds a single playback.
const DefaultPlayTimeout = 5 * time.Second

// Ringer plays the chime in the background with at most one playback in
// flight. Alerts that arrive while the chime is still sounding are dropped.
type Ringer struct {
	player  Player
	timeout time.Duration
	busy    atomic.Bool
	wg      sync.WaitGroup
	played  atomic.Int64
}

// NewRinger wraps player. A non-positive timeout uses DefaultPlayTimeout.
func NewRinger(player Player, timeout time.Duration) *Ringer {
	if timeout <= 0 {
		timeout = DefaultPlayTimeout
	}
	return &Ringer{player: player, timeout: timeout}
}

// Ring starts a playback and returns true, or returns false when one is
// already running.
func (r *Ringer) Ring() bool {
	if !r.busy.CompareAndSwap(false, true) {
		return false
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.busy.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := r.player.Play(ctx); err != nil {
			log.Warn("chime playback failed", "error", err)
			return
		}
		r.played.Add(1)
	}()
	return true
}

// Busy reports whether a playback is running.
func (r *Ringer) Busy() bool {
	return r.busy.Load()
}

// Played returns the number of completed playbacks.
func (r *Ringer) Played() int64 {
	return r.played.Load()
}

// Wait blocks until the running playback, if any, has finished.
func (r *Ringer) Wait() {
	r.wg.Wait()
}
