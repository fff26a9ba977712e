// Package observability provides Prometheus metric instruments and
// OpenTelemetry tracing for the engine.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's metric instruments, registered against any
// prometheus.Registerer.
type Metrics struct {
	DeliveriesTotal  *prometheus.CounterVec
	DeliveryLatency  prometheus.Histogram
	RefreshesTotal   prometheus.Counter
	ActiveAlerts     prometheus.Gauge
	TrackedEndpoints prometheus.Gauge
}

// NewMetrics creates and registers the engine's instruments. Pass
// prometheus.DefaultRegisterer for standalone usage or a private
// registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DeliveriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hooks_deliveries_total",
			Help: "Delivery attempts by outcome status.",
		}, []string{"status"}),
		DeliveryLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hooks_delivery_latency_seconds",
			Help:    "Observed delivery latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		RefreshesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "hooks_monitoring_refreshes_total",
			Help: "Completed monitoring refresh cycles.",
		}),
		ActiveAlerts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hooks_active_alerts",
			Help: "Currently firing alerts across all endpoints.",
		}),
		TrackedEndpoints: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hooks_tracked_endpoints",
			Help: "Endpoints tracked by the monitoring aggregator.",
		}),
	}
}

// RecordDelivery records one delivery attempt with its classified status
// and observed latency.
func (m *Metrics) RecordDelivery(status string, latencySeconds float64) {
	m.DeliveriesTotal.WithLabelValues(status).Inc()
	m.DeliveryLatency.Observe(latencySeconds)
}

// RecordRefresh records one completed monitoring refresh and the fleet
// gauges it produced.
func (m *Metrics) RecordRefresh(trackedEndpoints, activeAlerts int) {
	m.RefreshesTotal.Inc()
	m.TrackedEndpoints.Set(float64(trackedEndpoints))
	m.ActiveAlerts.Set(float64(activeAlerts))
}
