package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	forecasts   *prometheus.CounterVec
	fallbacks   *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	runsSent    *prometheus.CounterVec
	queueDepth  prometheus.Gauge
	latency     *prometheus.HistogramVec
}

// New registers the forecast metrics on reg. Pass prometheus.DefaultRegisterer in
// the server and a fresh registry in tests.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		forecasts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travelfx_forecasts_total",
				Help: "Total number of forecasts computed",
			},
			[]string{"path", "model"},
		),
		fallbacks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travelfx_cross_fallbacks_total",
				Help: "Direct fetches that fell back to a cross rate",
			},
			[]string{"reason"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travelfx_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		runsSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travelfx_runs_sent_total",
				Help: "Forecast runs delivered to the backend",
			},
			[]string{"backend"},
		),
		queueDepth: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "travelfx_forecast_queue_depth",
				Help: "Forecast units waiting for a worker",
			},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "travelfx_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordForecast(path, model string) {
	r.forecasts.WithLabelValues(path, model).Inc()
}

// RecordFallback records a switch from the direct path to the cross path.
func (r *Recorder) RecordFallback(reason string) {
	r.fallbacks.WithLabelValues(reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordQueueDepth(depth int) {
	r.queueDepth.Set(float64(depth))
}

func (r *Recorder) RecordRunSent(backend string) {
	r.runsSent.WithLabelValues(backend).Inc()
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordForecast(string, string) {}
func (Nop) RecordFallback(string)         {}
func (Nop) RecordError(string)            {}
func (Nop) RecordLatency(string, float64) {}
func (Nop) RecordQueueDepth(int)          {}
func (Nop) RecordRunSent(string)          {}
