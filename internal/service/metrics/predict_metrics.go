package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	PredictLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kabufeed",
			Subsystem: "predict",
			Name:      "latency_seconds",
			Help:      "Latency of model scoring calls",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"model"},
	)

	PredictErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kabufeed",
			Subsystem: "predict",
			Name:      "errors_total",
			Help:      "Scoring errors by model",
		},
		[]string{"model"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(PredictLatency, PredictErrors)
	})
}
