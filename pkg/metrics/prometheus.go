package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	rowsIngested *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastClose    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
	apiRequests  *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		rowsIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kabufeed_rows_ingested_total",
				Help: "Total number of daily rows routed to a backend",
			},
			[]string{"backend"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kabufeed_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastClose: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kabufeed_last_close",
				Help: "Last ingested close price for a security code",
			},
			[]string{"code"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kabufeed_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		apiRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kabufeed_jquants_requests_total",
				Help: "Total number of upstream J-Quants API requests",
			},
			[]string{"endpoint", "status"},
		),
	}
}

// RecordRowsIngested records rows routed to a backend.
func (r *Recorder) RecordRowsIngested(backend string, n int) {
	r.rowsIngested.WithLabelValues(backend).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastClose records the last ingested close price for a code.
func (r *Recorder) RecordLastClose(code string, price float64) {
	r.lastClose.WithLabelValues(code).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordUpstreamRequest records a J-Quants API request by endpoint and status.
func (r *Recorder) RecordUpstreamRequest(endpoint, status string) {
	r.apiRequests.WithLabelValues(endpoint, status).Inc()
}
