package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/mouthwatch/internal/app"
	"github.com/ayusman/mouthwatch/internal/capture"
	"github.com/ayusman/mouthwatch/internal/chime"
	"github.com/ayusman/mouthwatch/internal/config"
	"github.com/ayusman/mouthwatch/internal/detector"
	"github.com/ayusman/mouthwatch/internal/log"
	"github.com/ayusman/mouthwatch/internal/metrics"
	"github.com/ayusman/mouthwatch/internal/mouth"
	"github.com/ayusman/mouthwatch/internal/server"
	"github.com/ayusman/mouthwatch/internal/store"
	"github.com/ayusman/mouthwatch/internal/tray"
)

func runCommand(ctx *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Watch the camera and chime on a long open-mouth episode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), ctx.settings)
		},
	}

	flags := cmd.Flags()
	flags.Int("camera", 0, "Camera device index")
	flags.Bool("tray", true, "Show the system tray menu")
	flags.String("addr", "127.0.0.1:8765", "HTTP listen address, empty to disable")
	flags.String("record", "", "Write processed frames to this landmark recording")
	flags.String("chime", chime.ModeDevice, "Chime playback: device, command or none")

	bindFlags(ctx.v, flags, map[string]string{
		"camera.device": "camera",
		"tray":          "tray",
		"server.addr":   "addr",
		"record":        "record",
		"chime.mode":    "chime",
	})

	return cmd
}

// run starts the watcher and blocks until interrupted or quit from the tray.
func run(parent context.Context, settings *config.Settings) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(settings.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(settings.DBPath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	pruneHistory(st, settings.History.RetentionDays)

	m, err := metrics.New()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	player, err := newPlayer(settings)
	if err != nil {
		return err
	}

	mouthCfg := settings.MouthConfig()
	appCfg := app.Config{
		Store: st,
		CameraOptions: capture.Options{
			DeviceID: settings.Camera.Device,
			Width:    settings.Camera.Width,
			Height:   settings.Camera.Height,
			FPS:      settings.Camera.IdleFPS,
			Mirror:   settings.Camera.Mirror,
		},
		DetectorConfig: detector.Config{
			MaxFaces:        settings.Detector.MaxFaces,
			MinConfidence:   settings.Detector.MinDetectionConfidence,
			MinTrackingConf: settings.Detector.MinTrackingConfidence,
			RefineLandmarks: settings.Detector.RefineLandmarks,
		},
		Mouth:         &mouthCfg,
		Player:        player,
		PluginDir:     settings.Plugins.Dir,
		PluginTimeout: mouth.Seconds(settings.Plugins.TimeoutSeconds),
		Metrics:       m,
		WakePercent:   settings.Camera.WakePercent,
		IdleFPS:       settings.Camera.IdleFPS,
		ActiveFPS:     settings.Camera.ActiveFPS,
	}

	if settings.Record != "" {
		f, err := os.OpenFile(settings.Record, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("open recording: %w", err)
		}
		defer f.Close()
		appCfg.Recording = f
		log.Info("recording landmarks", "path", settings.Record)
	}

	a := app.New(appCfg)
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("shutdown", "error", err)
		}
	}()

	if err := a.LoadSettings(); err != nil {
		log.Warn("ignoring saved mouth settings", "error", err)
	}
	if err := a.DiscoverPlugins(); err != nil {
		log.Warn("plugin discovery failed", "error", err)
	}
	for _, p := range a.PluginManager().List() {
		log.Info("plugin loaded", "name", p.Manifest.Name, "events", p.Manifest.Events)
	}

	if err := a.Start(); err != nil {
		return fmt.Errorf("start camera: %w", err)
	}

	var serverErr chan error
	if settings.Server.Enabled && settings.Server.Addr != "" {
		srv := server.New(server.Config{
			StaticDir: existingDir(settings.Server.StaticDir),
			Store:     st,
			Source:    a,
			Metrics:   m.Handler(),
		})
		serverErr = make(chan error, 1)
		go func() { serverErr <- srv.ListenAndServe(ctx, settings.Server.Addr) }()
	}

	var runErr error
	if settings.Tray {
		runTray(ctx, a, settings)
	} else {
		select {
		case <-ctx.Done():
		case err := <-serverErr:
			runErr = err
			serverErr = nil
		}
	}
	stop()

	if serverErr != nil {
		runErr = <-serverErr
	}
	if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", runErr)
	}

	log.Info("shutting down")
	return nil
}

// runTray shows the tray menu until it is quit or ctx is cancelled. It must
// run on the main goroutine on macOS.
func runTray(ctx context.Context, a *app.App, settings *config.Settings) {
	t := tray.New(a.AlertsEnabled())
	t.OnToggle(func(enabled bool) {
		if err := a.SetAlertsEnabled(enabled); err != nil {
			log.Warn("toggle alerts", "error", err)
		}
	})
	t.OnSettings(func() {
		if settings.Server.Addr == "" {
			return
		}
		if err := openBrowser("http://" + settings.Server.Addr); err != nil {
			log.Warn("open settings", "error", err)
		}
	})

	results, unsubscribe := a.Subscribe()
	defer unsubscribe()
	go t.Follow(results)

	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	t.Run()
}

func newPlayer(settings *config.Settings) (chime.Player, error) {
	tone := chime.DefaultTone()
	tone.Volume = settings.Chime.Volume

	player, err := chime.NewPlayer(settings.Chime.Mode, tone, settings.Chime.Command, settings.DataDir)
	if err != nil {
		return nil, fmt.Errorf("init chime: %w", err)
	}
	return player, nil
}

func pruneHistory(st *store.Store, retentionDays int) {
	if retentionDays <= 0 {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	n, err := st.Events().DeleteBefore(cutoff)
	if err != nil {
		log.Warn("prune event history", "error", err)
		return
	}
	if n > 0 {
		log.Info("pruned event history", "deleted", n, "before", cutoff.Format(time.DateOnly))
	}
}

// existingDir returns dir if it is a directory, or "" so that no static
// files are served.
func existingDir(dir string) string {
	if dir == "" {
		return ""
	}
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		if abs, err := filepath.Abs(dir); err == nil {
			return abs
		}
		return dir
	}
	return ""
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
