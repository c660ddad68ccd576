package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's Prometheus collectors on a private registry.
type Metrics struct {
	Registry          *prometheus.Registry
	Transitions       *prometheus.CounterVec
	Conflicts         *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homeworks_transitions_total",
			Help: "Committed status transitions by entity",
		}, []string{"entity", "from", "to"}),
		Conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homeworks_conflicts_total",
			Help: "Operations that lost a concurrent write",
		}, []string{"operation"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "homeworks_operation_duration_seconds",
			Help:    "Engine operation latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),
	}
	reg.MustRegister(m.Transitions, m.Conflicts, m.OperationDuration,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

// RecordTransition is nil-safe so callers may run without metrics.
func (m *Metrics) RecordTransition(entity, from, to string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(entity, from, to).Inc()
}

func (m *Metrics) RecordConflict(operation string) {
	if m == nil {
		return
	}
	m.Conflicts.WithLabelValues(operation).Inc()
}

// ObserveSince records the time elapsed since start for operation.
func (m *Metrics) ObserveSince(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
