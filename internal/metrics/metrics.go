package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the attribution service.
type Metrics struct {
	// Report metrics
	ReportRuns     *prometheus.CounterVec
	ReportDuration prometheus.Histogram

	// Waterfall metrics
	TierAttempts    *prometheus.CounterVec
	TierResolutions *prometheus.CounterVec
	CandidatesFound prometheus.Histogram

	// Store metrics
	StoreQueries     *prometheus.CounterVec
	StoreQueryErrors *prometheus.CounterVec
	StoreLatency     *prometheus.HistogramVec

	// Ad metadata metrics
	AdLookups       *prometheus.CounterVec
	AdPlatformCalls *prometheus.CounterVec

	// Outcome metrics
	CustomersExtracted  prometheus.Counter
	CustomersAttributed prometheus.Counter
	EventsDropped       *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ReportRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_runs_total",
				Help:      "Total number of report runs by outcome",
			},
			[]string{"outcome"},
		),
		ReportDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "report_duration_seconds",
				Help:      "Wall time of a full report run",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		TierAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "waterfall_tier_attempts_total",
				Help:      "Waterfall tier evaluations per customer",
			},
			[]string{"tier"},
		),
		TierResolutions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "waterfall_tier_resolutions_total",
				Help:      "Waterfall tiers that produced at least one candidate",
			},
			[]string{"tier"},
		),
		CandidatesFound: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "waterfall_candidates_per_customer",
				Help:      "Attribution candidates resolved per customer",
				Buckets:   []float64{0, 1, 2, 3, 5, 10, 25},
			},
		),
		StoreQueries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_queries_total",
				Help:      "External store queries issued",
			},
			[]string{"store", "op"},
		),
		StoreQueryErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_query_errors_total",
				Help:      "External store queries that failed",
			},
			[]string{"store", "op"},
		),
		StoreLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_query_latency_seconds",
				Help:      "External store query latency",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"store", "op"},
		),
		AdLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ad_lookups_total",
				Help:      "Ad metadata lookups by source (cache, api, unresolved, error)",
			},
			[]string{"source"},
		),
		AdPlatformCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ad_platform_calls_total",
				Help:      "Remote ad-platform API calls by object and status",
			},
			[]string{"object", "status"},
		),
		CustomersExtracted: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "customers_extracted_total",
				Help:      "Customers with purchasable line items extracted from funnel events",
			},
		),
		CustomersAttributed: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "customers_attributed_total",
				Help:      "Customers that reached the final report with resolved ads",
			},
		),
		EventsDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_dropped_total",
				Help:      "Raw events excluded from processing by reason",
			},
			[]string{"reason"},
		),
	}
}

// ObserveStoreQuery records one store query with its latency and outcome.
func (m *Metrics) ObserveStoreQuery(store, op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.StoreQueries.WithLabelValues(store, op).Inc()
	m.StoreLatency.WithLabelValues(store, op).Observe(time.Since(start).Seconds())
	if err != nil {
		m.StoreQueryErrors.WithLabelValues(store, op).Inc()
	}
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
