package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/mouthwatch/internal/app"
	"github.com/ayusman/mouthwatch/internal/calibrate"
	"github.com/ayusman/mouthwatch/internal/capture"
	"github.com/ayusman/mouthwatch/internal/detector"
	"github.com/ayusman/mouthwatch/internal/metrics"
	"github.com/ayusman/mouthwatch/internal/mouth"
	"github.com/ayusman/mouthwatch/internal/server"
	"github.com/ayusman/mouthwatch/internal/store"
	"github.com/ayusman/mouthwatch/testdata"
)

var epoch = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func loadRecording(t *testing.T, name string) []detector.RecordedFrame {
	t.Helper()

	frames, err := testdata.LoadRecording(name)
	if err != nil {
		t.Fatalf("LoadRecording(%s) error = %v", name, err)
	}
	return frames
}

func getJSON(t *testing.T, client *http.Client, url string, v any) {
	t.Helper()

	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s error = %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s status = %d, want %d", url, resp.StatusCode, http.StatusOK)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s error = %v", url, err)
	}
}

func newApp(s *store.Store, m *metrics.Metrics) *app.App {
	return app.New(app.Config{
		Store:       s,
		Camera:      capture.NewMockCamera(nil, false),
		Detector:    detector.NewMockDetector(),
		Metrics:     m,
		WakePercent: -1,
	})
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	dbPath := filepath.Join(t.TempDir(), "mouthwatch.db")
	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	m, err := metrics.New()
	if err != nil {
		t.Fatalf("metrics.New() error = %v", err)
	}

	application := newApp(s, m)
	defer application.Close()

	ts := httptest.NewServer(server.New(server.Config{Store: s, Source: application, Metrics: m.Handler()}))
	defer ts.Close()

	client := ts.Client()

	var threshold float64
	t.Run("Calibrate", func(t *testing.T) {
		closed := calibrate.Ratios(loadRecording(t, testdata.Closed))
		open := calibrate.Ratios(loadRecording(t, testdata.Open))

		threshold, err = calibrate.SuggestThreshold(closed, open)
		if err != nil {
			t.Fatalf("SuggestThreshold() error = %v", err)
		}
		if threshold <= 0.02 || threshold >= 0.09 {
			t.Fatalf("threshold = %v, want between the closed and open ratios", threshold)
		}
	})

	t.Run("UpdateSettings", func(t *testing.T) {
		body := fmt.Sprintf(`{"threshold": %v, "delay_seconds": 1, "cooldown_seconds": 60, "alerts_enabled": true}`, threshold)
		req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/settings", bytes.NewBufferString(body))
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("PUT /api/settings error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("PUT status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		if got := application.MouthConfig().ThresholdRatio; got != threshold {
			t.Errorf("live threshold = %v, want %v", got, threshold)
		}
	})

	var live []mouth.Result
	t.Run("ProcessEpisode", func(t *testing.T) {
		for _, frame := range loadRecording(t, testdata.Episode) {
			var faces []detector.FaceLandmarks
			if frame.Face != nil {
				faces = []detector.FaceLandmarks{*frame.Face}
			}
			live = append(live, application.ProcessFaces(faces, epoch.Add(frame.Offset)))
		}

		var changes []string
		for _, res := range live {
			if res.Changed {
				changes = append(changes, fmt.Sprintf("%s open=%v fired=%v", res.At.Sub(epoch), res.Committed, res.Fired))
			}
		}
		want := []string{"3.2s open=true fired=true", "4.8s open=false fired=false"}
		if strings.Join(changes, "; ") != strings.Join(want, "; ") {
			t.Errorf("changes = %v, want %v", changes, want)
		}
	})

	t.Run("ReplayMatchesLive", func(t *testing.T) {
		pipeline := mouth.NewPipeline()
		cfg := application.MouthConfig()

		for i, frame := range loadRecording(t, testdata.Episode) {
			res := pipeline.Update(frame.Face, cfg, epoch.Add(frame.Offset))
			if res != live[i] {
				t.Fatalf("frame %d: replay = %+v, live = %+v", i, res, live[i])
			}
		}
	})

	t.Run("Events", func(t *testing.T) {
		var all struct {
			Events []store.Event `json:"events"`
			Total  int           `json:"total"`
		}
		getJSON(t, client, ts.URL+"/api/events", &all)
		if all.Total != 3 {
			t.Fatalf("total = %d, want 3", all.Total)
		}
		// Newest first.
		if all.Events[0].Kind != store.EventStateChange || all.Events[0].Open {
			t.Errorf("newest event = %+v, want closing state change", all.Events[0])
		}

		var alerts struct {
			Events []store.Event `json:"events"`
			Total  int           `json:"total"`
		}
		getJSON(t, client, ts.URL+"/api/events?kind=alert", &alerts)
		if alerts.Total != 1 {
			t.Fatalf("alert total = %d, want 1", alerts.Total)
		}
		if want := epoch.Add(3200 * time.Millisecond); !alerts.Events[0].OccurredAt.Equal(want) {
			t.Errorf("alert at %v, want %v", alerts.Events[0].OccurredAt, want)
		}
	})

	t.Run("State", func(t *testing.T) {
		var snap app.Snapshot
		getJSON(t, client, ts.URL+"/api/state", &snap)

		if snap.Result.Committed {
			t.Error("state is open, want closed")
		}
		if snap.Alerts != 1 {
			t.Errorf("alerts = %d, want 1", snap.Alerts)
		}
		if snap.Config.Threshold != threshold {
			t.Errorf("threshold = %v, want %v", snap.Config.Threshold, threshold)
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/metrics")
		if err != nil {
			t.Fatalf("GET /metrics error = %v", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if !strings.Contains(string(body), "mouthwatch_frames_total 31") {
			t.Errorf("metrics missing frame count:\n%s", body)
		}
	})

	t.Run("Restart", func(t *testing.T) {
		restarted := newApp(s, nil)
		defer restarted.Close()

		if err := restarted.LoadSettings(); err != nil {
			t.Fatalf("LoadSettings() error = %v", err)
		}
		cfg := restarted.MouthConfig()
		if cfg.ThresholdRatio != threshold || cfg.Delay != time.Second || cfg.Cooldown != time.Minute {
			t.Errorf("restored config = %+v", cfg)
		}
	})
}
