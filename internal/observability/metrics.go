// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Frame transport metrics
	FrameRequests *prometheus.CounterVec
	FrameLatency  *prometheus.HistogramVec

	// Engine metrics
	Decisions            *prometheus.CounterVec
	CollaboratorFailures *prometheus.CounterVec
	MintOutcomes         *prometheus.CounterVec
	LastSuccessfulMint   prometheus.Gauge

	// Collaborator latency metrics
	ChainCallLatency *prometheus.HistogramVec
	ChainCallErrors  *prometheus.CounterVec
	IdentityLookups  *prometheus.CounterVec

	// Analytics metrics
	AnalyticsDelivered *prometheus.CounterVec
	AnalyticsDropped   prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "hat_store"
	}

	return &Metrics{
		FrameRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frame",
			Name:      "requests_total",
			Help:      "Total number of frame requests by route and branch",
		}, []string{"route", "branch"}),
		FrameLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "frame",
			Name:      "request_duration_seconds",
			Help:      "Frame request handling latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"route"}),

		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "decisions_total",
			Help:      "Total number of engine decisions by decision type and outcome",
		}, []string{"decision", "outcome"}),
		CollaboratorFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "collaborator_failures_total",
			Help:      "Total number of caught collaborator failures by kind",
		}, []string{"kind", "op"}),
		MintOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "mint_outcomes_total",
			Help:      "Total number of gated mint outcomes by status",
		}, []string{"status"}),
		LastSuccessfulMint: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "last_successful_mint_timestamp",
			Help:      "Unix timestamp of last confirmed sponsored mint",
		}),

		ChainCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "call_latency_seconds",
			Help:      "Chain RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		ChainCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "call_errors_total",
			Help:      "Total number of failed chain RPC calls",
		}, []string{"method"}),
		IdentityLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "identity",
			Name:      "lookups_total",
			Help:      "Total number of identity lookups by result",
		}, []string{"result"}),

		AnalyticsDelivered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "events_total",
			Help:      "Total number of analytics events handed to sinks by status",
		}, []string{"sink", "status"}),
		AnalyticsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "events_dropped_total",
			Help:      "Total number of analytics events dropped because the buffer was full",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordFrameRequest records a handled frame request.
func RecordFrameRequest(route, branch string, seconds float64) {
	DefaultMetrics.FrameRequests.WithLabelValues(route, branch).Inc()
	DefaultMetrics.FrameLatency.WithLabelValues(route).Observe(seconds)
}

// RecordDecision records an engine decision.
func RecordDecision(decision, outcome string) {
	DefaultMetrics.Decisions.WithLabelValues(decision, outcome).Inc()
}

// RecordFailure records a caught collaborator failure.
func RecordFailure(kind, op string) {
	DefaultMetrics.CollaboratorFailures.WithLabelValues(kind, op).Inc()
}

// RecordMintOutcome records a gated mint outcome.
func RecordMintOutcome(status string) {
	DefaultMetrics.MintOutcomes.WithLabelValues(status).Inc()
	if status == "submitted" {
		DefaultMetrics.LastSuccessfulMint.Set(float64(time.Now().Unix()))
	}
}

// RecordChainCall records chain RPC call latency and errors.
func RecordChainCall(method string, seconds float64, err error) {
	DefaultMetrics.ChainCallLatency.WithLabelValues(method).Observe(seconds)
	if err != nil {
		DefaultMetrics.ChainCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordIdentityLookup records an identity lookup result ("found", "none", "error").
func RecordIdentityLookup(result string) {
	DefaultMetrics.IdentityLookups.WithLabelValues(result).Inc()
}

// RecordAnalyticsDelivery records an analytics sink write.
func RecordAnalyticsDelivery(sink string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.AnalyticsDelivered.WithLabelValues(sink, status).Inc()
}

// RecordAnalyticsDropped records an analytics event dropped on a full buffer.
func RecordAnalyticsDropped() {
	DefaultMetrics.AnalyticsDropped.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
