// Package telemetry provides observability primitives for streamd.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the daemon.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	ActiveRequests     prometheus.Gauge
	SessionsStarted    *prometheus.CounterVec
	SessionsActive     prometheus.Gauge
	SessionDuration    *prometheus.HistogramVec
	MessagesTotal      *prometheus.CounterVec
	QueueDepth         *prometheus.GaugeVec
	HistoryQueueLength prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamd",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       "streamd",
			Name:                            "request_duration_seconds",
			Help:                            "HTTP request duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"method", "path"}),

		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "streamd",
			Name:      "active_requests",
			Help:      "Number of currently active requests.",
		}),

		SessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamd",
			Name:      "sessions_started_total",
			Help:      "Total worker sessions started.",
		}, []string{"worker"}),

		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "streamd",
			Name:      "sessions_active",
			Help:      "Number of live worker sessions.",
		}),

		SessionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       "streamd",
			Name:                            "session_duration_seconds",
			Help:                            "Worker session lifetime in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"worker", "outcome"}),

		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamd",
			Name:      "messages_total",
			Help:      "Total messages crossing the bridge.",
		}, []string{"direction", "worker"}),

		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "streamd",
			Name:      "queue_depth",
			Help:      "Messages waiting in bridge queues, summed over live sessions.",
		}, []string{"queue"}),

		HistoryQueueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "streamd",
			Name:      "history_queue_length",
			Help:      "Current number of queued session history records.",
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ActiveRequests,
		m.SessionsStarted,
		m.SessionsActive,
		m.SessionDuration,
		m.MessagesTotal,
		m.QueueDepth,
		m.HistoryQueueLength,
	)

	return m
}
