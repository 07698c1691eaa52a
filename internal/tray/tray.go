// Package tray provides the system tray menu for mouthwatch.
package tray

import (
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/ayusman/mouthwatch/internal/mouth"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle   func(enabled bool)
	onSettings func()
	onQuit     func()
	enabled    bool
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuState     *systray.MenuItem
	menuLastAlert *systray.MenuItem
	menuToggle    *systray.MenuItem

	state     string
	lastAlert string
}

// New creates a new Tray instance showing alertsEnabled.
func New(alertsEnabled bool) *Tray {
	return &Tray{
		enabled:   alertsEnabled,
		state:     stateTitle(mouth.Result{}),
		lastAlert: lastAlertTitle(time.Time{}),
	}
}

// OnToggle sets the callback function to be called when alerts are toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("mouthwatch")
	systray.SetTooltip("mouthwatch mouth-open alerts")

	t.mu.Lock()
	t.menuState = systray.AddMenuItem(t.state, "Committed mouth state")
	t.menuState.Disable()
	t.menuLastAlert = systray.AddMenuItem(t.lastAlert, "Time of the last alert")
	t.menuLastAlert.Disable()
	systray.AddSeparator()

	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle mouth-open alerts")
	t.mu.Unlock()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit mouthwatch")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Alerts on"
	}
	return "○ Alerts off"
}

func stateTitle(res mouth.Result) string {
	switch {
	case res.Committed:
		return "Mouth: open"
	case res.At.IsZero():
		return "Mouth: waiting for camera"
	case !res.FaceFound:
		return "Mouth: no face"
	default:
		return "Mouth: closed"
	}
}

func lastAlertTitle(at time.Time) string {
	if at.IsZero() {
		return "Last alert: never"
	}
	return "Last alert: " + at.Local().Format("15:04:05")
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleSettings handles the settings menu item click.
func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetAlertsEnabled updates the toggle after alerts were switched elsewhere.
// The toggle callback is not called.
func (t *Tray) SetAlertsEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// AlertsEnabled returns the state shown by the toggle.
func (t *Tray) AlertsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Update shows res. Only changes touch the menu.
func (t *Tray) Update(res mouth.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if title := stateTitle(res); title != t.state {
		t.state = title
		if t.menuState != nil {
			t.menuState.SetTitle(title)
		}
	}

	if res.Fired {
		t.lastAlert = lastAlertTitle(res.At)
		if t.menuLastAlert != nil {
			t.menuLastAlert.SetTitle(t.lastAlert)
		}
	}
}

// Follow updates the menu from results until the channel is closed.
func (t *Tray) Follow(results <-chan mouth.Result) {
	for res := range results {
		t.Update(res)
	}
}

// Titles returns the current state and last alert lines.
func (t *Tray) Titles() (state, lastAlert string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state, t.lastAlert
}
