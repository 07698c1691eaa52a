// Package metrics exposes Prometheus metrics for the detection loop.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayusman/mouthwatch/internal/mouth"
)

const namespace = "mouthwatch"

// Metrics holds the collectors for one process on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	framesTotal   prometheus.Counter
	noFaceTotal   prometheus.Counter
	transitions   *prometheus.CounterVec
	alertsTotal   prometheus.Counter
	detectErrors  prometheus.Counter
	ratio         prometheus.Gauge
	open          prometheus.Gauge
	frameDuration prometheus.Histogram
}

// New creates and registers the metrics, plus Go runtime and process
// collectors.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		framesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames run through the mouth pipeline.",
		}),
		noFaceTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_no_face_total",
			Help:      "Frames in which no face was found.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Committed mouth state changes partitioned by the new state.",
		}, []string{"to"}),
		alertsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alerts fired.",
		}),
		detectErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detect_errors_total",
			Help:      "Failed capture or landmark detection attempts.",
		}),
		ratio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mouth_ratio",
			Help:      "Most recent mouth gap to face span ratio.",
		}),
		open: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mouth_open",
			Help:      "1 while the committed mouth state is open.",
		}),
		frameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_duration_seconds",
			Help:      "Time to capture, detect and evaluate one frame.",
			Buckets:   prometheus.ExponentialBuckets(0.002, 2, 10), // 2ms to ~1s
		}),
	}

	cs := []prometheus.Collector{
		m.framesTotal, m.noFaceTotal, m.transitions, m.alertsTotal,
		m.detectErrors, m.ratio, m.open, m.frameDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range cs {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}

	// Pre-create both label values so the series exist from the start.
	m.transitions.WithLabelValues("open")
	m.transitions.WithLabelValues("closed")

	return m, nil
}

// Observe records one pipeline result and how long the frame took.
func (m *Metrics) Observe(res mouth.Result, latency time.Duration) {
	m.framesTotal.Inc()
	m.frameDuration.Observe(latency.Seconds())

	if !res.FaceFound {
		m.noFaceTotal.Inc()
	}
	m.ratio.Set(res.Ratio)

	if res.Committed {
		m.open.Set(1)
	} else {
		m.open.Set(0)
	}

	if res.Changed {
		to := "closed"
		if res.Committed {
			to = "open"
		}
		m.transitions.WithLabelValues(to).Inc()
	}

	if res.Fired {
		m.alertsTotal.Inc()
	}
}

// DetectError counts a failed capture or detection.
func (m *Metrics) DetectError() {
	m.detectErrors.Inc()
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}
