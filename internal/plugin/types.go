// Package plugin runs external hook programs when the mouth state changes
// or an alert fires.
//
// A plugin lives in its own directory with a plugin.json manifest naming
// the executable and the events it subscribes to. Each event is delivered
// as one JSON request on the program's stdin; the program answers with one
// JSON response on stdout.
package plugin

import (
	"encoding/json"
	"slices"
	"time"
)

// Hook events.
const (
	EventAlert       = "alert"
	EventStateChange = "state_change"
)

// Manifest describes a plugin's metadata and subscriptions.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Events      []string        `json:"events"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Request is the event payload written to a plugin's stdin.
type Request struct {
	Event      string          `json:"event"`
	Open       bool            `json:"open"`
	Ratio      float64         `json:"ratio"`
	OccurredAt time.Time       `json:"occurred_at"`
	Config     json.RawMessage `json:"config,omitempty"`
}

// Response is read from a plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Handles reports whether the plugin subscribed to event.
func (p *Plugin) Handles(event string) bool {
	return slices.Contains(p.Manifest.Events, event)
}
