// Package metrics exposes refresh, ingestion and chart sync counters
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so several monitors can coexist in one process
type Metrics struct {
	registry         *prometheus.Registry
	refreshTotal     *prometheus.CounterVec
	refreshDuration  *prometheus.HistogramVec
	samplesDiscarded prometheus.Counter
	syncEvents       *prometheus.CounterVec
	lastRefresh      prometheus.Gauge
	seriesPoints     *prometheus.GaugeVec
}

// New creates and registers every collector
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activity_refresh_total",
			Help: "Refreshes by trigger (silent, manual, reload) and result (ok, error, stale, skipped).",
		}, []string{"trigger", "result"}),
		refreshDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "activity_refresh_duration_seconds",
			Help:    "Duration of the fetch, fill and downsample pipeline.",
			Buckets: prometheus.DefBuckets,
		}, []string{"trigger"}),
		samplesDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "activity_samples_discarded_total",
			Help: "Telemetry records dropped because their timestamp or size could not be used.",
		}),
		syncEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activity_sync_events_total",
			Help: "Viewport sync events by outcome (debounced, swallowed, propagated).",
		}, []string{"outcome"}),
		lastRefresh: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "activity_last_refresh_timestamp_seconds",
			Help: "Unix time of the last successfully applied refresh.",
		}),
		seriesPoints: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "activity_series_points",
			Help: "Points held by each chart after downsampling.",
		}, []string{"chart"}),
	}

	m.registry.MustRegister(
		m.refreshTotal,
		m.refreshDuration,
		m.samplesDiscarded,
		m.syncEvents,
		m.lastRefresh,
		m.seriesPoints,
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRefresh records one refresh attempt
func (m *Metrics) ObserveRefresh(trigger, result string, took time.Duration, at time.Time) {
	if m == nil {
		return
	}
	m.refreshTotal.WithLabelValues(trigger, result).Inc()
	m.refreshDuration.WithLabelValues(trigger).Observe(took.Seconds())
	if result == "ok" {
		m.lastRefresh.Set(float64(at.Unix()))
	}
}

// AddDiscarded counts dropped telemetry records
func (m *Metrics) AddDiscarded(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.samplesDiscarded.Add(float64(n))
}

// ObserveSync counts a chart sync outcome
func (m *Metrics) ObserveSync(outcome string) {
	if m == nil {
		return
	}
	m.syncEvents.WithLabelValues(outcome).Inc()
}

// SetSeriesPoints records the size of a chart's series
func (m *Metrics) SetSeriesPoints(chart string, n int) {
	if m == nil {
		return
	}
	m.seriesPoints.WithLabelValues(chart).Set(float64(n))
}
