// Package config loads mouthwatch settings from defaults, an optional YAML
// file, MOUTHWATCH_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/mouthwatch/internal/chime"
	"github.com/ayusman/mouthwatch/internal/mouth"
)

// EnvPrefix is the prefix for environment overrides, e.g. MOUTHWATCH_MOUTH_THRESHOLD.
const EnvPrefix = "MOUTHWATCH"

// Settings is the full application configuration.
type Settings struct {
	DataDir  string `mapstructure:"data_dir" yaml:"data_dir"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	Tray     bool   `mapstructure:"tray" yaml:"tray"`

	// Record, when set, writes every processed frame to this landmark recording.
	Record string `mapstructure:"record" yaml:"record"`

	Camera   CameraSettings   `mapstructure:"camera" yaml:"camera"`
	Detector DetectorSettings `mapstructure:"detector" yaml:"detector"`
	Mouth    MouthSettings    `mapstructure:"mouth" yaml:"mouth"`
	Chime    ChimeSettings    `mapstructure:"chime" yaml:"chime"`
	Server   ServerSettings   `mapstructure:"server" yaml:"server"`
	Plugins  PluginSettings   `mapstructure:"plugins" yaml:"plugins"`
	History  HistorySettings  `mapstructure:"history" yaml:"history"`
}

type CameraSettings struct {
	Device    int  `mapstructure:"device" yaml:"device"`
	Width     int  `mapstructure:"width" yaml:"width"`
	Height    int  `mapstructure:"height" yaml:"height"`
	Mirror    bool `mapstructure:"mirror" yaml:"mirror"`
	IdleFPS   int  `mapstructure:"idle_fps" yaml:"idle_fps"`
	ActiveFPS int  `mapstructure:"active_fps" yaml:"active_fps"`

	// WakePercent is the share of changed pixels that wakes face detection
	// while no face is tracked. Zero uses the default and a negative value
	// disables the wake gate.
	WakePercent float64 `mapstructure:"wake_percent" yaml:"wake_percent"`
}

type DetectorSettings struct {
	MaxFaces               int     `mapstructure:"max_faces" yaml:"max_faces"`
	MinDetectionConfidence float64 `mapstructure:"min_detection_confidence" yaml:"min_detection_confidence"`
	MinTrackingConfidence  float64 `mapstructure:"min_tracking_confidence" yaml:"min_tracking_confidence"`
	RefineLandmarks        bool    `mapstructure:"refine_landmarks" yaml:"refine_landmarks"`
}

// MouthSettings are the startup defaults for the live mouth config. Values
// saved through the API take precedence on the next start.
type MouthSettings struct {
	Threshold       float64 `mapstructure:"threshold" yaml:"threshold"`
	DelaySeconds    float64 `mapstructure:"delay_seconds" yaml:"delay_seconds"`
	CooldownSeconds float64 `mapstructure:"cooldown_seconds" yaml:"cooldown_seconds"`
	AlertsEnabled   bool    `mapstructure:"alerts_enabled" yaml:"alerts_enabled"`
}

type ChimeSettings struct {
	// Mode is device, command or none.
	Mode    string  `mapstructure:"mode" yaml:"mode"`
	Command string  `mapstructure:"command" yaml:"command"`
	Volume  float64 `mapstructure:"volume" yaml:"volume"`
}

type ServerSettings struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr      string `mapstructure:"addr" yaml:"addr"`
	StaticDir string `mapstructure:"static_dir" yaml:"static_dir"`
}

type PluginSettings struct {
	Dir            string  `mapstructure:"dir" yaml:"dir"`
	TimeoutSeconds float64 `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

type HistorySettings struct {
	// RetentionDays prunes older events at startup. Zero keeps everything.
	RetentionDays int `mapstructure:"retention_days" yaml:"retention_days"`
}

// DefaultDataDir returns ~/.mouthwatch, or .mouthwatch when the home
// directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mouthwatch"
	}
	return filepath.Join(home, ".mouthwatch")
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	dataDir := DefaultDataDir()

	v.SetDefault("data_dir", dataDir)
	v.SetDefault("log_level", "info")
	v.SetDefault("tray", true)
	v.SetDefault("record", "")

	v.SetDefault("camera.device", 0)
	v.SetDefault("camera.width", 640)
	v.SetDefault("camera.height", 480)
	v.SetDefault("camera.mirror", true)
	v.SetDefault("camera.idle_fps", 5)
	v.SetDefault("camera.active_fps", 15)
	v.SetDefault("camera.wake_percent", 1.0)

	v.SetDefault("detector.max_faces", 1)
	v.SetDefault("detector.min_detection_confidence", 0.5)
	v.SetDefault("detector.min_tracking_confidence", 0.5)
	v.SetDefault("detector.refine_landmarks", true)

	v.SetDefault("mouth.threshold", mouth.DefaultThreshold)
	v.SetDefault("mouth.delay_seconds", mouth.DefaultDelay.Seconds())
	v.SetDefault("mouth.cooldown_seconds", mouth.DefaultCooldown.Seconds())
	v.SetDefault("mouth.alerts_enabled", true)

	v.SetDefault("chime.mode", chime.ModeDevice)
	v.SetDefault("chime.command", "")
	v.SetDefault("chime.volume", 0.5)

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", "127.0.0.1:8765")
	v.SetDefault("server.static_dir", "")

	v.SetDefault("plugins.dir", "")
	v.SetDefault("plugins.timeout_seconds", 5.0)

	v.SetDefault("history.retention_days", 30)
}

// Load builds Settings from v. configFile may be empty, in which case
// config.yaml is looked up in the current directory and the default data
// directory and a missing file is not an error.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(DefaultDataDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Directories left empty live under the data directory.
	if settings.Server.StaticDir == "" {
		settings.Server.StaticDir = filepath.Join(settings.DataDir, "web")
	}
	if settings.Plugins.Dir == "" {
		settings.Plugins.Dir = filepath.Join(settings.DataDir, "plugins")
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

// Validate checks values that would otherwise fail deep inside the app.
func (s *Settings) Validate() error {
	if err := s.MouthConfig().Validate(); err != nil {
		return err
	}

	switch s.Chime.Mode {
	case chime.ModeDevice, chime.ModeCommand, chime.ModeNone:
	default:
		return fmt.Errorf("chime.mode must be %s, %s or %s, got %q",
			chime.ModeDevice, chime.ModeCommand, chime.ModeNone, s.Chime.Mode)
	}

	if s.Chime.Volume < 0 || s.Chime.Volume > 1 {
		return fmt.Errorf("chime.volume must be between 0 and 1, got %v", s.Chime.Volume)
	}
	if s.Camera.IdleFPS <= 0 || s.Camera.ActiveFPS <= 0 {
		return fmt.Errorf("camera frame rates must be positive, got idle %d active %d",
			s.Camera.IdleFPS, s.Camera.ActiveFPS)
	}
	if s.Detector.MaxFaces <= 0 {
		return fmt.Errorf("detector.max_faces must be positive, got %d", s.Detector.MaxFaces)
	}
	if s.DataDir == "" {
		return errors.New("data_dir must be set")
	}

	return nil
}

// MouthConfig converts the mouth defaults into a pipeline config.
func (s *Settings) MouthConfig() mouth.Config {
	return mouth.Config{
		ThresholdRatio: s.Mouth.Threshold,
		Delay:          mouth.Seconds(s.Mouth.DelaySeconds),
		Cooldown:       mouth.Seconds(s.Mouth.CooldownSeconds),
		AlertsEnabled:  s.Mouth.AlertsEnabled,
	}
}

// DBPath returns the SQLite database location.
func (s *Settings) DBPath() string {
	return filepath.Join(s.DataDir, "mouthwatch.db")
}

// YAML renders the settings as a config file.
func (s *Settings) YAML() ([]byte, error) {
	return yaml.Marshal(s)
}
