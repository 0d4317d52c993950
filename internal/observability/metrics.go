// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// API client metrics
	APIRequests     *prometheus.CounterVec
	APIRetries      prometheus.Counter
	APIErrors       *prometheus.CounterVec
	APIPagesFetched *prometheus.CounterVec
	APILatency      *prometheus.HistogramVec

	// Discovery metrics
	MarketsDiscovered prometheus.Counter
	VaultsDiscovered  *prometheus.CounterVec
	ChainsFailed      prometheus.Counter

	// Analysis metrics
	AssessmentsComputed *prometheus.CounterVec
	ProfilesBuilt       *prometheus.CounterVec
	ItemErrors          *prometheus.CounterVec

	// Run metrics
	StageRunsTotal *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
	ReportsWritten prometheus.Counter

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "morpho_exposure_lab"
	}

	return &Metrics{
		// API client metrics
		APIRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of GraphQL requests by operation",
		}, []string{"operation"}),
		APIRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "retries_total",
			Help:      "Total number of request retries",
		}),
		APIErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Total number of request errors by type",
		}, []string{"error_type"}),
		APIPagesFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "pages_fetched_total",
			Help:      "Total number of result pages fetched by operation",
		}, []string{"operation"}),
		APILatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_latency_seconds",
			Help:      "GraphQL request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),

		// Discovery metrics
		MarketsDiscovered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "markets_total",
			Help:      "Total number of toxic markets discovered",
		}),
		VaultsDiscovered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "vaults_total",
			Help:      "Total number of exposed vaults discovered by method",
		}, []string{"method"}),
		ChainsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "chains_failed_total",
			Help:      "Total number of chain scans that failed",
		}),

		// Analysis metrics
		AssessmentsComputed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "assessments_total",
			Help:      "Total number of bad-debt assessments by status",
		}, []string{"status"}),
		ProfilesBuilt: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "profiles_total",
			Help:      "Total number of curator profiles by response class",
		}, []string{"class"}),
		ItemErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "item_errors_total",
			Help:      "Total number of per-item failures by stage",
		}, []string{"stage"}),

		// Run metrics
		StageRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "stages_total",
			Help:      "Total number of stage executions by status",
		}, []string{"stage", "status"}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "stage_duration_seconds",
			Help:      "Stage execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}, []string{"stage"}),
		ReportsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "reports_written_total",
			Help:      "Total number of report sets written",
		}),

		// Health metrics
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of the last successful full run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordAPIRequest increments the request counter for an operation.
func RecordAPIRequest(operation string) {
	DefaultMetrics.APIRequests.WithLabelValues(operation).Inc()
}

// RecordAPIRetry increments the retry counter.
func RecordAPIRetry() {
	DefaultMetrics.APIRetries.Inc()
}

// RecordAPIError records a request error.
func RecordAPIError(errorType string) {
	DefaultMetrics.APIErrors.WithLabelValues(errorType).Inc()
}

// RecordPageFetched increments the page counter for an operation.
func RecordPageFetched(operation string) {
	DefaultMetrics.APIPagesFetched.WithLabelValues(operation).Inc()
}

// RecordAPILatency records request latency for an operation.
func RecordAPILatency(operation string, seconds float64) {
	DefaultMetrics.APILatency.WithLabelValues(operation).Observe(seconds)
}

// RecordStage records a stage execution with its duration.
func RecordStage(stage, status string, seconds float64) {
	DefaultMetrics.StageRunsTotal.WithLabelValues(stage, status).Inc()
	DefaultMetrics.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordItemError records a per-item failure in a stage.
func RecordItemError(stage string) {
	DefaultMetrics.ItemErrors.WithLabelValues(stage).Inc()
}
