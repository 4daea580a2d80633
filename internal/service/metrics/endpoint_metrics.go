package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	EndpointLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "travelfx",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of forecast and currency endpoints",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 240},
		},
		[]string{"endpoint"},
	)

	EndpointErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "travelfx",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by endpoint and error kind",
		},
		[]string{"endpoint", "kind"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(EndpointLatency, EndpointErrors)
	})
}

// Observe records the latency of one endpoint call started at start.
func Observe(endpoint string, start time.Time) {
	EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func Error(endpoint, kind string) {
	EndpointErrors.WithLabelValues(endpoint, kind).Inc()
}
