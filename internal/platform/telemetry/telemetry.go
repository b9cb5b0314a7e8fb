// Package telemetry exposes Prometheus metrics for store operations and
// published events.
package telemetry

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors the service records into. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	storeOps      *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec
	events        *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ward",
			Name:      "store_operations_total",
			Help:      "Store operations against the remote data service by outcome.",
		}, []string{"store", "op", "outcome"}),
		storeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ward",
			Name:      "store_operation_duration_seconds",
			Help:      "Duration of store operations including remote calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"store", "op"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ward",
			Name:      "events_published_total",
			Help:      "Workflow and navigation events by type and outcome.",
		}, []string{"type", "outcome"}),
	}
	reg.MustRegister(m.storeOps, m.storeDuration, m.events)
	return m
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveStore records one store operation that started at start.
func (m *Metrics) ObserveStore(store, op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.storeOps.WithLabelValues(store, op, outcome(err)).Inc()
	m.storeDuration.WithLabelValues(store, op).Observe(time.Since(start).Seconds())
}

// ObserveEvent records one published event.
func (m *Metrics) ObserveEvent(eventType string, err error) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType, outcome(err)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
