package app

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/mouthwatch/internal/log"
	"github.com/ayusman/mouthwatch/internal/mouth"
)

// subscriberBuffer is how many results a slow subscriber may lag behind
// before results are dropped for it.
const subscriberBuffer = 16

// Subscribe returns a channel that receives every processed result and a
// function that ends the subscription. Results are dropped for subscribers
// that do not keep up.
func (a *App) Subscribe() (<-chan mouth.Result, func()) {
	ch := make(chan mouth.Result, subscriberBuffer)

	a.subMu.Lock()
	a.subscribers[ch] = struct{}{}
	a.subMu.Unlock()

	return ch, func() {
		a.subMu.Lock()
		defer a.subMu.Unlock()
		if _, ok := a.subscribers[ch]; ok {
			delete(a.subscribers, ch)
			close(ch)
		}
	}
}

func (a *App) publish(res mouth.Result) {
	a.subMu.Lock()
	defer a.subMu.Unlock()

	for ch := range a.subscribers {
		select {
		case ch <- res:
		default:
		}
	}
}

// WatchPreview returns a channel of JPEG encoded camera frames and a
// function that stops watching. Frames are only encoded while at least one
// watcher exists.
func (a *App) WatchPreview() (<-chan []byte, func()) {
	ch := make(chan []byte, 1)

	a.subMu.Lock()
	a.watchers[ch] = struct{}{}
	a.subMu.Unlock()

	return ch, func() {
		a.subMu.Lock()
		defer a.subMu.Unlock()
		if _, ok := a.watchers[ch]; ok {
			delete(a.watchers, ch)
			close(ch)
		}
	}
}

func (a *App) hasWatchers() bool {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	return len(a.watchers) > 0
}

func (a *App) publishPreview(frame *gocv.Mat) {
	if !a.hasWatchers() {
		return
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		log.Debug("preview encode failed", "error", err)
		return
	}
	jpeg := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	a.subMu.Lock()
	defer a.subMu.Unlock()

	for ch := range a.watchers {
		// Replace a stale frame the watcher has not picked up yet.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- jpeg:
		default:
		}
	}
}
