// Package telemetry holds the Prometheus registry and liftlog's counters.
package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "liftlog"

// SetupPrometheus returns a registry with build, runtime and process collectors.
func SetupPrometheus() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Metrics groups the domain counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	SessionsStarted   prometheus.Counter
	SessionsCompleted prometheus.Counter
	SetsLogged        prometheus.Counter
	SnapshotsSaved    prometheus.Counter
	SnapshotFailures  prometheus.Counter
	Imports           *prometheus.CounterVec
	PlanEdits         *prometheus.CounterVec
	LiveSubscribers   prometheus.Gauge

	RequestDuration *prometheus.HistogramVec
}

// NewMetrics registers the counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Workout sessions started",
		}),
		SessionsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_completed_total",
			Help:      "Workout sessions completed",
		}),
		SetsLogged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sets_logged_total",
			Help:      "Sets logged",
		}),
		SnapshotsSaved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_saved_total",
			Help:      "Automatic local snapshots written",
		}),
		SnapshotFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_failures_total",
			Help:      "Automatic local snapshots that failed",
		}),
		Imports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Backup imports and snapshot restores by outcome",
		}, []string{"source", "outcome"}),
		PlanEdits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_edits_total",
			Help:      "Structural template edits by kind and outcome",
		}, []string{"kind", "outcome"}),
		LiveSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_subscribers",
			Help:      "Open live-change websocket connections",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP response time in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "status_code"}),
	}
}

// NewTestMetrics returns metrics on a private registry.
func NewTestMetrics() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewMetrics(reg), reg
}

// SessionStarted counts a started workout session.
func (m *Metrics) SessionStarted() {
	if m != nil {
		m.SessionsStarted.Inc()
	}
}

// SessionCompleted counts a finished workout session.
func (m *Metrics) SessionCompleted() {
	if m != nil {
		m.SessionsCompleted.Inc()
	}
}

// SetLogged counts a logged set.
func (m *Metrics) SetLogged() {
	if m != nil {
		m.SetsLogged.Inc()
	}
}

// SnapshotSaved counts a snapshot written to the slot.
func (m *Metrics) SnapshotSaved() {
	if m != nil {
		m.SnapshotsSaved.Inc()
	}
}

// SnapshotFailed counts a background snapshot that could not be saved.
func (m *Metrics) SnapshotFailed() {
	if m != nil {
		m.SnapshotFailures.Inc()
	}
}

// ImportFinished counts an import or restore. source is "file", "snapshot" or "alpha".
func (m *Metrics) ImportFinished(source string, ok bool) {
	if m == nil {
		return
	}
	m.Imports.WithLabelValues(source, outcome(ok)).Inc()
}

// PlanEdited counts a structural template edit. applied is false for no-ops.
func (m *Metrics) PlanEdited(kind string, applied bool) {
	if m == nil {
		return
	}
	label := "noop"
	if applied {
		label = "applied"
	}
	m.PlanEdits.WithLabelValues(kind, label).Inc()
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// LiveConnected tracks an opened live-change stream.
func (m *Metrics) LiveConnected() {
	if m != nil {
		m.LiveSubscribers.Inc()
	}
}

// LiveDisconnected tracks a closed live-change stream.
func (m *Metrics) LiveDisconnected() {
	if m != nil {
		m.LiveSubscribers.Dec()
	}
}

// ObserveRequest records an HTTP response time.
func (m *Metrics) ObserveRequest(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(d.Seconds())
}
