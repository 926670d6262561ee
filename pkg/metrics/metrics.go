package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the capture and try-on counters exported on /metrics.
type Metrics struct {
	ActiveSessions atomic.Int64
	FramesReceived atomic.Uint64
	FramesDropped  atomic.Uint64
	EventsDropped  atomic.Uint64

	checkFailures   *prometheus.CounterVec
	captures        *prometheus.CounterVec
	stepLatency     *prometheus.HistogramVec
	overlayRequests *prometheus.CounterVec

	registry *prometheus.Registry
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		checkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "perfectfit_validation_check_failures_total",
			Help: "Failed validation checks by check id",
		}, []string{"check"}),
		captures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "perfectfit_captures_total",
			Help: "Capture attempts by outcome",
		}, []string{"outcome"}),
		stepLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "perfectfit_processing_step_seconds",
			Help:    "Latency of remote processing steps",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"step", "result"}),
		overlayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "perfectfit_overlay_requests_total",
			Help: "Overlay computations by result",
		}, []string{"result"}),
	}

	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	m.registry.MustRegister(m.checkFailures, m.captures, m.stepLatency, m.overlayRequests)

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "perfectfit_active_capture_sessions",
			Help: "Capture sessions with an open stream",
		},
		func() float64 { return float64(m.ActiveSessions.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "perfectfit_frames_received_total",
			Help: "Preview frames received from clients",
		},
		func() float64 { return float64(m.FramesReceived.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "perfectfit_frames_dropped_total",
			Help: "Preview frames skipped while the session was busy",
		},
		func() float64 { return float64(m.FramesDropped.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "perfectfit_outbound_events_dropped_total",
			Help: "Session events not delivered because the client fell behind",
		},
		func() float64 { return float64(m.EventsDropped.Load()) },
	))
}

// The methods below are safe on a nil receiver so that callers can run without
// metrics.

func (m *Metrics) CheckFailed(check string) {
	if m == nil {
		return
	}
	m.checkFailures.WithLabelValues(check).Inc()
}

func (m *Metrics) CaptureFinished(outcome string) {
	if m == nil {
		return
	}
	m.captures.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStep(step string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.stepLatency.WithLabelValues(step, result).Observe(d.Seconds())
}

func (m *Metrics) OverlayComputed(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "placeholder"
	}
	m.overlayRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) SessionOpened() {
	if m != nil {
		m.ActiveSessions.Add(1)
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.ActiveSessions.Add(-1)
	}
}

func (m *Metrics) FrameReceived() {
	if m != nil {
		m.FramesReceived.Add(1)
	}
}

func (m *Metrics) FrameDropped() {
	if m != nil {
		m.FramesDropped.Add(1)
	}
}

func (m *Metrics) EventDropped() {
	if m != nil {
		m.EventsDropped.Add(1)
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
