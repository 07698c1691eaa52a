package app

import (
	"fmt"
	"strconv"

	"github.com/ayusman/mouthwatch/internal/mouth"
	"github.com/ayusman/mouthwatch/internal/store"
)

// Store keys for the live mouth settings.
const (
	KeyThreshold     = "mouth.threshold"
	KeyDelay         = "mouth.delay_seconds"
	KeyCooldown      = "mouth.cooldown_seconds"
	KeyAlertsEnabled = "mouth.alerts_enabled"
)

// ConfigView is the float-second form of mouth.Config used by the API and
// the settings table.
type ConfigView struct {
	Threshold       float64 `json:"threshold"`
	DelaySeconds    float64 `json:"delay_seconds"`
	CooldownSeconds float64 `json:"cooldown_seconds"`
	AlertsEnabled   bool    `json:"alerts_enabled"`
}

// NewConfigView converts cfg.
func NewConfigView(cfg mouth.Config) ConfigView {
	return ConfigView{
		Threshold:       cfg.ThresholdRatio,
		DelaySeconds:    cfg.Delay.Seconds(),
		CooldownSeconds: cfg.Cooldown.Seconds(),
		AlertsEnabled:   cfg.AlertsEnabled,
	}
}

// MouthConfig converts v back. The result is not validated.
func (v ConfigView) MouthConfig() mouth.Config {
	return mouth.Config{
		ThresholdRatio: v.Threshold,
		Delay:          mouth.Seconds(v.DelaySeconds),
		Cooldown:       mouth.Seconds(v.CooldownSeconds),
		AlertsEnabled:  v.AlertsEnabled,
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func saveMouthConfig(repo *store.SettingsRepository, cfg mouth.Config) error {
	v := NewConfigView(cfg)
	return repo.SetMany(map[string]string{
		KeyThreshold:     formatFloat(v.Threshold),
		KeyDelay:         formatFloat(v.DelaySeconds),
		KeyCooldown:      formatFloat(v.CooldownSeconds),
		KeyAlertsEnabled: strconv.FormatBool(v.AlertsEnabled),
	})
}

// loadMouthConfig overlays the saved settings on base. Keys that were never
// saved keep the base value.
func loadMouthConfig(repo *store.SettingsRepository, base mouth.Config) (mouth.Config, error) {
	values, err := repo.All()
	if err != nil {
		return base, fmt.Errorf("load mouth settings: %w", err)
	}

	v := NewConfigView(base)
	floats := []struct {
		key string
		dst *float64
	}{
		{KeyThreshold, &v.Threshold},
		{KeyDelay, &v.DelaySeconds},
		{KeyCooldown, &v.CooldownSeconds},
	}
	for _, f := range floats {
		raw, ok := values[f.key]
		if !ok {
			continue
		}
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return base, fmt.Errorf("setting %s: %w", f.key, err)
		}
		*f.dst = parsed
	}

	if raw, ok := values[KeyAlertsEnabled]; ok {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return base, fmt.Errorf("setting %s: %w", KeyAlertsEnabled, err)
		}
		v.AlertsEnabled = enabled
	}

	cfg := v.MouthConfig()
	if err := cfg.Validate(); err != nil {
		return base, fmt.Errorf("saved mouth settings: %w", err)
	}
	return cfg, nil
}
