// Package metrics exposes Prometheus counters for the linking pipeline.
// All recording methods are safe to call on a nil *Metrics.
package metrics

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "interlink"

// Metrics groups the collectors registered by the service.
type Metrics struct {
	registry *prometheus.Registry

	rejections      *prometheus.CounterVec
	insertions      *prometheus.CounterVec
	judgmentCalls   *prometheus.CounterVec
	judgmentLatency *prometheus.HistogramVec
	ledgerRows      prometheus.Histogram
	removals        prometheus.Counter

	dbOpen  prometheus.Gauge
	dbInUse prometheus.Gauge
	dbIdle  prometheus.Gauge
}

// New creates the collectors on a fresh registry, including the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_rejections_total",
			Help:      "Link insertions rejected, by pipeline stage.",
		}, []string{"stage"}),
		insertions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_insertions_total",
			Help:      "Link insertion outcomes (applied, not_found, already_linked, missing_field).",
		}, []string{"outcome"}),
		judgmentCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "judgment_requests_total",
			Help:      "Judgment service requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
		judgmentLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "judgment_request_duration_seconds",
			Help:      "Judgment service latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"operation"}),
		ledgerRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_rows_per_sync",
			Help:      "Number of ledger rows written by one sync.",
			Buckets:   prometheus.LinearBuckets(0, 5, 10),
		}),
		removals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_removed_total",
			Help:      "Anchor tags unwrapped by link removal.",
		}),
		dbOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_open_connections",
			Help:      "Open database connections.",
		}),
		dbInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_in_use_connections",
			Help:      "Database connections in use.",
		}),
		dbIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_idle_connections",
			Help:      "Idle database connections.",
		}),
	}

	m.registry.MustRegister(
		m.rejections, m.insertions, m.judgmentCalls, m.judgmentLatency,
		m.ledgerRows, m.removals, m.dbOpen, m.dbInUse, m.dbIdle,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRejection counts one insertion rejected at stage.
func (m *Metrics) RecordRejection(stage string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(stage).Inc()
}

// RecordInsertion counts one insertion outcome.
func (m *Metrics) RecordInsertion(outcome string) {
	if m == nil {
		return
	}
	m.insertions.WithLabelValues(outcome).Inc()
}

// ObserveJudgment records one judgment request. Outcome is "ok" or "fallback".
func (m *Metrics) ObserveJudgment(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.judgmentCalls.WithLabelValues(operation, outcome).Inc()
	m.judgmentLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveLedgerSync records how many rows a sync wrote.
func (m *Metrics) ObserveLedgerSync(rows int) {
	if m == nil {
		return
	}
	m.ledgerRows.Observe(float64(rows))
}

// RecordRemovals counts unwrapped anchor tags.
func (m *Metrics) RecordRemovals(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.removals.Add(float64(n))
}

// UpdateDBStats copies connection pool statistics into gauges.
func (m *Metrics) UpdateDBStats(stats sql.DBStats) {
	if m == nil {
		return
	}
	m.dbOpen.Set(float64(stats.OpenConnections))
	m.dbInUse.Set(float64(stats.InUse))
	m.dbIdle.Set(float64(stats.Idle))
}
