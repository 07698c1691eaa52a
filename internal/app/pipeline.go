package app

import (
	"image"
	"math"
	"time"

	"github.com/ayusman/mouthwatch/internal/detector"
	"github.com/ayusman/mouthwatch/internal/log"
	"github.com/ayusman/mouthwatch/internal/mouth"
	"github.com/ayusman/mouthwatch/internal/plugin"
	"github.com/ayusman/mouthwatch/internal/store"
)

func frameInterval(fps int) time.Duration {
	return time.Second / time.Duration(fps)
}

// runPipeline is the detection loop that processes frames from the camera.
//
//  1. Start in idle mode (IdleFPS).
//  2. While idle, skip inference on a static scene, except for one probe
//     every IdleProbeInterval. Skipped frames count as no face.
//  3. When a face is found, switch to active mode (ActiveFPS).
//  4. After IdleTimeout without a face, switch back to idle mode and point
//     the wake gate at the last face box.
func (a *App) runPipeline(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	active := false
	var lastFace, lastProbe time.Time
	var lastBox image.Rectangle

	ticker := time.NewTicker(frameInterval(a.idleFPS))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}

		frame, err := a.camera.ReadFrame()
		if err != nil {
			log.Debug("read frame failed", "error", err)
			continue
		}
		a.publishPreview(frame)

		now := time.Now()

		if !active && a.wake != nil {
			awake := a.wake.Awake(frame)
			if !awake && now.Sub(lastProbe) < IdleProbeInterval {
				frame.Close()
				a.ProcessFaces(nil, now)
				continue
			}
			lastProbe = now
		}

		cols, rows := frame.Cols(), frame.Rows()
		faces, err := a.detector.Detect(frame)
		frame.Close()
		if err != nil {
			if a.metrics != nil {
				a.metrics.DetectError()
			}
			log.Warn("face detection failed", "error", err)
			continue
		}

		res := a.ProcessFaces(faces, now)

		switch {
		case res.FaceFound:
			lastFace = now
			lastBox = faceBox(detector.Best(faces), cols, rows)
			if !active {
				active = true
				a.active.Store(true)
				a.camera.SetFPS(a.activeFPS)
				ticker.Reset(frameInterval(a.activeFPS))
				log.Debug("face found, switched to active mode")
			}
		case active && now.Sub(lastFace) > IdleTimeout:
			active = false
			a.active.Store(false)
			a.camera.SetFPS(a.idleFPS)
			ticker.Reset(frameInterval(a.idleFPS))
			if a.wake != nil {
				a.wake.SetRegion(lastBox)
			}
			log.Debug("face lost, switched to idle mode", "watch", lastBox)
		}
	}
}

// faceBoxMargin pads the face box on each side, as a share of its size.
const faceBoxMargin = 0.1

// faceBox returns the pixel bounding box of face in a cols x rows frame,
// padded by faceBoxMargin and clipped to the frame. It is empty for a nil
// face.
func faceBox(face *detector.FaceLandmarks, cols, rows int) image.Rectangle {
	if face == nil || len(face.Points) == 0 {
		return image.Rectangle{}
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range face.Points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	box := image.Rect(
		int(math.Floor(minX*float64(cols))), int(math.Floor(minY*float64(rows))),
		int(math.Ceil(maxX*float64(cols))), int(math.Ceil(maxY*float64(rows))),
	)
	padX := int(float64(box.Dx()) * faceBoxMargin)
	padY := int(float64(box.Dy()) * faceBoxMargin)

	padded := image.Rect(box.Min.X-padX, box.Min.Y-padY, box.Max.X+padX, box.Max.Y+padY)
	return padded.Intersect(image.Rect(0, 0, cols, rows))
}

// ProcessFaces runs one frame through the mouth pipeline and performs the
// side effects of the result. The best scoring face is used; an empty
// slice is a frame without a face. Calls must be made in time order.
func (a *App) ProcessFaces(faces []detector.FaceLandmarks, now time.Time) mouth.Result {
	start := time.Now()
	face := detector.Best(faces)
	cfg := a.MouthConfig()

	a.pipeMu.Lock()
	res := a.pipeline.Update(face, cfg, now)
	a.latest = res
	if res.Fired {
		a.lastAlert = now
		a.alerts++
	}
	if a.recorder == nil && a.config.Recording != nil {
		a.recorder = detector.NewRecordingWriter(a.config.Recording, now)
	}
	if a.recorder != nil {
		if err := a.recorder.Write(now, face); err != nil {
			log.Warn("recording frame failed", "error", err)
		}
	}
	a.pipeMu.Unlock()

	if res.Changed {
		log.Info("mouth state changed", "open", res.Committed, "ratio", res.Ratio)
		a.recordEvent(store.EventStateChange, res)
		a.dispatch(plugin.EventStateChange, res)
	}

	if res.Fired {
		log.Info("mouth open alert", "ratio", res.Ratio, "cooldown", cfg.Cooldown)
		if !a.ringer.Ring() {
			log.Debug("chime still playing, skipped")
		}
		a.recordEvent(store.EventAlert, res)
		a.dispatch(plugin.EventAlert, res)
	}

	if a.metrics != nil {
		a.metrics.Observe(res, time.Since(start))
	}

	a.publish(res)
	return res
}

func (a *App) recordEvent(kind store.EventKind, res mouth.Result) {
	if a.config.Store == nil {
		return
	}

	err := a.config.Store.Events().Create(&store.Event{
		Kind:       kind,
		Open:       res.Committed,
		Ratio:      res.Ratio,
		OccurredAt: res.At,
	})
	if err != nil {
		log.Warn("failed to store event", "kind", kind, "error", err)
	}
}

func (a *App) dispatch(event string, res mouth.Result) {
	n := a.dispatcher.Dispatch(plugin.Request{
		Event:      event,
		Open:       res.Committed,
		Ratio:      res.Ratio,
		OccurredAt: res.At,
	})
	if n > 0 {
		log.Debug("dispatched hooks", "event", event, "plugins", n)
	}
}
