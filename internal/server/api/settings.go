package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/mouthwatch/internal/app"
	"github.com/ayusman/mouthwatch/internal/log"
	"github.com/ayusman/mouthwatch/internal/mouth"
)

// SettingsHandler reads and updates the live mouth settings.
type SettingsHandler struct {
	ctrl Controller
}

// NewSettingsHandler creates a SettingsHandler for ctrl.
func NewSettingsHandler(ctrl Controller) *SettingsHandler {
	return &SettingsHandler{ctrl: ctrl}
}

// updateSettingsRequest is a partial update. Omitted fields keep their
// current value.
type updateSettingsRequest struct {
	Threshold       *float64 `json:"threshold"`
	DelaySeconds    *float64 `json:"delay_seconds"`
	CooldownSeconds *float64 `json:"cooldown_seconds"`
	AlertsEnabled   *bool    `json:"alerts_enabled"`
}

func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, app.NewConfigView(h.ctrl.MouthConfig()))
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// update handles PUT /api/settings.
func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	view := app.NewConfigView(h.ctrl.MouthConfig())
	if req.Threshold != nil {
		view.Threshold = *req.Threshold
	}
	if req.DelaySeconds != nil {
		view.DelaySeconds = *req.DelaySeconds
	}
	if req.CooldownSeconds != nil {
		view.CooldownSeconds = *req.CooldownSeconds
	}
	if req.AlertsEnabled != nil {
		view.AlertsEnabled = *req.AlertsEnabled
	}

	if err := h.ctrl.SetMouthConfig(view.MouthConfig()); err != nil {
		if errors.Is(err, mouth.ErrInvalidConfig) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error("failed to update settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update settings")
		return
	}

	writeJSON(w, http.StatusOK, app.NewConfigView(h.ctrl.MouthConfig()))
}
