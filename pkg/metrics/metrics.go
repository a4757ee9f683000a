// Package metrics exposes Prometheus metrics for tracking sessions and
// calibration runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Calibration outcomes
const (
	OutcomePersisted = "persisted"
	OutcomeFailed    = "failed"
	OutcomeAborted   = "aborted"
)

// Manager owns the metrics registry. It implements tracking.Recorder.
type Manager struct {
	namespace      string
	latencyBuckets []float64
	registry       *prometheus.Registry

	// Frame loop
	framesProcessed prometheus.Counter
	framesSkipped   *prometheus.CounterVec
	frameLatency    prometheus.Histogram
	blinks          *prometheus.CounterVec
	notCalibrated   *prometheus.CounterVec
	activeSessions  prometheus.Gauge

	// Calibration
	calibrations      *prometheus.CounterVec
	calibrationRMS    *prometheus.GaugeVec
	calibrationPoints *prometheus.GaugeVec
	fallbackPoints    *prometheus.CounterVec
}

// NewManager creates a manager on its own registry unless WithRegistry is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "gaze",
		latencyBuckets: []float64{0.005, 0.01, 0.02, 0.033, 0.05, 0.1, 0.25, 0.5},
		registry:       prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.framesProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "tracking",
		Name:      "frames_processed_total",
		Help:      "Frames that went through the full pipeline",
	})
	m.framesSkipped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "tracking",
		Name:      "frames_skipped_total",
		Help:      "Frames dropped before gaze mapping, by reason",
	}, []string{"reason"})
	m.frameLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "tracking",
		Name:      "frame_duration_seconds",
		Help:      "Time spent processing one frame",
		Buckets:   m.latencyBuckets,
	})
	m.blinks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "tracking",
		Name:      "blinks_total",
		Help:      "Classified blinks, by kind",
	}, []string{"kind"})
	m.notCalibrated = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "tracking",
		Name:      "not_calibrated_frames_total",
		Help:      "Frames whose gaze could not be mapped for lack of a transform",
	}, []string{"display"})
	m.activeSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "tracking",
		Name:      "active_sessions",
		Help:      "Tracking sessions currently running",
	})

	m.calibrations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "calibration",
		Name:      "runs_total",
		Help:      "Calibration runs, by display and outcome",
	}, []string{"display", "outcome"})
	m.calibrationRMS = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "calibration",
		Name:      "reprojection_rms_pixels",
		Help:      "Reprojection error of the last persisted transform",
	}, []string{"display"})
	m.calibrationPoints = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "calibration",
		Name:      "points",
		Help:      "Correspondences used by the last persisted transform",
	}, []string{"display"})
	m.fallbackPoints = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "calibration",
		Name:      "fallback_points_total",
		Help:      "Grid points that had no gaze samples and used the target as observation",
	}, []string{"display"})
}

// Registry returns the registry metrics are registered on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// FrameProcessed records one completed frame.
func (m *Manager) FrameProcessed(d time.Duration) {
	m.framesProcessed.Inc()
	m.frameLatency.Observe(d.Seconds())
}

// FrameSkipped records a frame dropped for reason.
func (m *Manager) FrameSkipped(reason string) {
	m.framesSkipped.WithLabelValues(reason).Inc()
}

// BlinkDetected records a classified blink.
func (m *Manager) BlinkDetected(kind string) {
	m.blinks.WithLabelValues(kind).Inc()
}

// NotCalibrated records a frame on a display without a transform.
func (m *Manager) NotCalibrated(display string) {
	m.notCalibrated.WithLabelValues(display).Inc()
}

// SessionStarted increments the active session gauge.
func (m *Manager) SessionStarted() {
	m.activeSessions.Inc()
}

// SessionStopped decrements the active session gauge.
func (m *Manager) SessionStopped() {
	m.activeSessions.Dec()
}

// CalibrationFinished records the outcome of a calibration run. rms, points
// and fallbacks are only recorded for persisted runs.
func (m *Manager) CalibrationFinished(display, outcome string, rms float64, points, fallbacks int) {
	m.calibrations.WithLabelValues(display, outcome).Inc()
	if outcome != OutcomePersisted {
		return
	}
	m.calibrationRMS.WithLabelValues(display).Set(rms)
	m.calibrationPoints.WithLabelValues(display).Set(float64(points))
	if fallbacks > 0 {
		m.fallbackPoints.WithLabelValues(display).Add(float64(fallbacks))
	}
}

// ObserveDroppedEvents exports the count reported by dropped, read at scrape
// time, as events_dropped_total.
func (m *Manager) ObserveDroppedEvents(dropped func() int64) {
	promauto.With(m.registry).NewCounterFunc(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "stream",
		Name:      "events_dropped_total",
		Help:      "Events dropped because the broadcast queue was full.",
	}, func() float64 { return float64(dropped()) })
}
