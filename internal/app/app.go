// Package app wires the camera, face detector and mouth pipeline together
// and fans results out to the chime, plugin hooks, history and subscribers.
package app

import (
	"fmt"
	"image"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/mouthwatch/internal/capture"
	"github.com/ayusman/mouthwatch/internal/chime"
	"github.com/ayusman/mouthwatch/internal/detector"
	"github.com/ayusman/mouthwatch/internal/log"
	"github.com/ayusman/mouthwatch/internal/metrics"
	"github.com/ayusman/mouthwatch/internal/mouth"
	"github.com/ayusman/mouthwatch/internal/plugin"
	"github.com/ayusman/mouthwatch/internal/store"
)

// Pipeline timing constants.
const (
	// IdleFPS is the frame rate while no face is tracked.
	IdleFPS = 5
	// ActiveFPS is the frame rate while a face is visible.
	ActiveFPS = 15
	// IdleTimeout is how long the face may be missing before going idle.
	IdleTimeout = 2 * time.Second
	// IdleProbeInterval forces a detection pass while idle even when the
	// wake gate sees a static scene.
	IdleProbeInterval = time.Second
)

// Config holds configuration options for the application.
type Config struct {
	Store *store.Store

	// Camera defaults to a device camera built from CameraOptions.
	Camera        capture.Camera
	CameraOptions capture.Options

	// Detector defaults to the MediaPipe service, or a mock when Python is
	// not available.
	Detector       detector.Detector
	DetectorConfig detector.Config

	// Mouth is the startup tuning. Nil uses mouth.DefaultConfig.
	Mouth *mouth.Config

	// Player plays the alert chime. Nil plays nothing.
	Player chime.Player

	PluginDir     string
	PluginTimeout time.Duration

	Metrics *metrics.Metrics

	// Recording receives every processed frame as a landmark recording.
	// Offsets are relative to the first processed frame.
	Recording io.Writer

	// WakePercent configures the wake gate. Negative disables it.
	WakePercent float64

	IdleFPS   int
	ActiveFPS int
}

// Snapshot is the current state of the app.
type Snapshot struct {
	Result    mouth.Result `json:"result"`
	Config    ConfigView   `json:"config"`
	Running   bool         `json:"running"`
	Active    bool         `json:"active"`
	LastAlert time.Time    `json:"last_alert,omitzero"`
	Alerts    int          `json:"alerts"`

	// Pending is true while a state change is waiting out the delay.
	Pending bool `json:"pending"`
	// NextAlertIn is the cooldown left at the latest frame, in seconds.
	NextAlertIn float64 `json:"next_alert_in"`
}

// App is the main application that orchestrates mouth detection and alerts.
type App struct {
	config     Config
	camera     capture.Camera
	wake       *capture.WakeGate
	detector   detector.Detector
	pipeline   *mouth.Pipeline
	ringer     *chime.Ringer
	pluginMgr  *plugin.Manager
	dispatcher *plugin.Dispatcher
	metrics    *metrics.Metrics
	recorder   *detector.RecordingWriter

	idleFPS   int
	activeFPS int

	cfgMu    sync.RWMutex
	mouthCfg mouth.Config

	// pipeMu guards the pipeline and everything derived from its results.
	pipeMu    sync.Mutex
	latest    mouth.Result
	lastAlert time.Time
	alerts    int

	subMu       sync.Mutex
	subscribers map[chan mouth.Result]struct{}
	watchers    map[chan []byte]struct{}

	runMu  sync.Mutex
	stopCh chan struct{}
	done   chan struct{}
	active atomic.Bool
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	mouthCfg := mouth.DefaultConfig()
	if config.Mouth != nil {
		mouthCfg = *config.Mouth
	}
	if config.IdleFPS <= 0 {
		config.IdleFPS = IdleFPS
	}
	if config.ActiveFPS <= 0 {
		config.ActiveFPS = ActiveFPS
	}
	if config.Player == nil {
		config.Player = chime.NopPlayer{}
	}

	manager := plugin.NewManager(config.PluginDir)

	a := &App{
		config:      config,
		camera:      config.Camera,
		detector:    config.Detector,
		pipeline:    mouth.NewPipeline(),
		ringer:      chime.NewRinger(config.Player, 0),
		pluginMgr:   manager,
		dispatcher:  plugin.NewDispatcher(manager, plugin.NewExecutor(config.PluginTimeout)),
		metrics:     config.Metrics,
		idleFPS:     config.IdleFPS,
		activeFPS:   config.ActiveFPS,
		mouthCfg:    mouthCfg,
		subscribers: make(map[chan mouth.Result]struct{}),
		watchers:    make(map[chan []byte]struct{}),
	}

	if a.camera == nil {
		a.camera = capture.NewCamera(config.CameraOptions)
	}

	if config.WakePercent >= 0 {
		a.wake = capture.NewWakeGate(config.WakePercent)
	}

	if a.detector == nil {
		if mp, err := detector.NewMediaPipeDetector(config.DetectorConfig); err == nil {
			a.detector = mp
			log.Info("using MediaPipe face mesh")
		} else {
			log.Warn("MediaPipe not available, using mock detector", "error", err)
			a.detector = detector.NewMockDetector()
		}
	}

	return a
}

// LoadSettings replaces the startup tuning with values saved in the store.
func (a *App) LoadSettings() error {
	if a.config.Store == nil {
		return nil
	}

	cfg, err := loadMouthConfig(a.config.Store.Settings(), a.MouthConfig())
	if err != nil {
		return err
	}

	a.cfgMu.Lock()
	a.mouthCfg = cfg
	a.cfgMu.Unlock()

	log.Info("loaded mouth settings",
		"threshold", cfg.ThresholdRatio,
		"delay", cfg.Delay,
		"cooldown", cfg.Cooldown,
		"alerts_enabled", cfg.AlertsEnabled)
	return nil
}

// MouthConfig returns the live tuning.
func (a *App) MouthConfig() mouth.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.mouthCfg
}

// SetMouthConfig validates cfg, persists it and applies it from the next frame.
func (a *App) SetMouthConfig(cfg mouth.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if a.config.Store != nil {
		if err := saveMouthConfig(a.config.Store.Settings(), cfg); err != nil {
			return fmt.Errorf("save mouth settings: %w", err)
		}
	}

	a.cfgMu.Lock()
	a.mouthCfg = cfg
	a.cfgMu.Unlock()

	log.Info("mouth settings updated",
		"threshold", cfg.ThresholdRatio,
		"delay", cfg.Delay,
		"cooldown", cfg.Cooldown,
		"alerts_enabled", cfg.AlertsEnabled)
	return nil
}

// SetAlertsEnabled toggles alerts without touching the other values.
func (a *App) SetAlertsEnabled(enabled bool) error {
	cfg := a.MouthConfig()
	cfg.AlertsEnabled = enabled
	return a.SetMouthConfig(cfg)
}

// AlertsEnabled reports whether alerts may fire.
func (a *App) AlertsEnabled() bool {
	return a.MouthConfig().AlertsEnabled
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// Reset forgets the debounce and alert state. The mouth is committed
// closed again and the next open episode may alert immediately.
func (a *App) Reset() {
	a.pipeMu.Lock()
	defer a.pipeMu.Unlock()
	a.pipeline.Reset()
	a.latest = mouth.Result{}
}

// Snapshot returns the latest result and run state.
func (a *App) Snapshot() Snapshot {
	cfg := a.MouthConfig()

	a.pipeMu.Lock()
	debounce, alert := a.pipeline.State()
	s := Snapshot{
		Result:      a.latest,
		LastAlert:   a.lastAlert,
		Alerts:      a.alerts,
		Pending:     debounce.InTrial(),
		NextAlertIn: alert.Remaining(a.latest.At, cfg.Cooldown).Seconds(),
	}
	a.pipeMu.Unlock()

	s.Config = NewConfigView(cfg)
	s.Running = a.IsRunning()
	s.Active = a.active.Load()
	return s
}

// Start begins the detection loop.
func (a *App) Start() error {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(a.idleFPS)

	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	go a.runPipeline(a.stopCh, a.done)

	log.Info("detection pipeline started", "idle_fps", a.idleFPS, "active_fps", a.activeFPS)
	return nil
}

// Stop halts the detection loop and closes the camera. The app can be
// started again.
func (a *App) Stop() {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	if a.stopCh == nil {
		return
	}

	close(a.stopCh)
	<-a.done
	a.stopCh = nil
	a.done = nil
	a.active.Store(false)

	if err := a.camera.Close(); err != nil {
		log.Warn("error closing camera", "error", err)
	}
	if a.wake != nil {
		a.wake.SetRegion(image.Rectangle{})
	}

	log.Info("detection pipeline stopped")
}

// IsRunning reports whether the detection loop is running.
func (a *App) IsRunning() bool {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return a.stopCh != nil
}

// Close stops the loop, waits for the chime and hooks, and releases the
// detector.
func (a *App) Close() error {
	a.Stop()

	a.ringer.Wait()
	a.dispatcher.Close()

	if a.wake != nil {
		a.wake.Close()
	}

	a.subMu.Lock()
	for ch := range a.subscribers {
		close(ch)
		delete(a.subscribers, ch)
	}
	for ch := range a.watchers {
		close(ch)
		delete(a.watchers, ch)
	}
	a.subMu.Unlock()

	if err := a.detector.Close(); err != nil {
		return fmt.Errorf("close detector: %w", err)
	}
	return nil
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Ringer returns the chime ringer.
func (a *App) Ringer() *chime.Ringer {
	return a.ringer
}
