package inspect

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// serverMetrics holds the Prometheus metrics of the HTTP surface. A nil
// *serverMetrics records nothing.
type serverMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeWatches   prometheus.Gauge
	updatesSent     prometheus.Counter
	wsErrors        *prometheus.CounterVec
}

func newServerMetrics(cfg *Config) *serverMetrics {
	factory := promauto.With(cfg.registerer())
	subsystem := cfg.Subsystem
	if subsystem == "" {
		subsystem = "inspect"
	}

	return &serverMetrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status",
		}, []string{"route", "method", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		activeWatches: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: subsystem,
			Name:      "active_watches",
			Help:      "Number of open WebSocket watches",
		}),

		updatesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: subsystem,
			Name:      "updates_sent_total",
			Help:      "Total number of watch updates written to clients",
		}),

		wsErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: subsystem,
			Name:      "websocket_errors_total",
			Help:      "Total WebSocket errors by type",
		}, []string{"type"}),
	}
}

func (m *serverMetrics) recordRequest(route, method string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(seconds)
}

func (m *serverMetrics) watchOpened() {
	if m == nil {
		return
	}
	m.activeWatches.Inc()
}

func (m *serverMetrics) watchClosed() {
	if m == nil {
		return
	}
	m.activeWatches.Dec()
}

func (m *serverMetrics) updateSent() {
	if m == nil {
		return
	}
	m.updatesSent.Inc()
}

func (m *serverMetrics) recordWebSocketError(errorType string) {
	if m == nil {
		return
	}
	m.wsErrors.WithLabelValues(errorType).Inc()
}
