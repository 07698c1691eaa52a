// Package api provides HTTP API handlers for mouthwatch settings, state and
// event history.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/mouthwatch/internal/app"
	"github.com/ayusman/mouthwatch/internal/mouth"
)

// Controller is the part of the app the handlers drive.
type Controller interface {
	MouthConfig() mouth.Config
	SetMouthConfig(cfg mouth.Config) error
	Snapshot() app.Snapshot
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
