package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cozy-creator/cropguard/internal/classifier"
)

const namespace = "cropguard"

// Metrics owns a private registry so several servers can live in one process
// (tests do this).
type Metrics struct {
	registry *prometheus.Registry

	predictions *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    prometheus.Histogram
	requests    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "predictions_total",
				Help:      "Number of successful predictions by class.",
			},
			[]string{"class_name", "healthy"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "prediction_failures_total",
				Help:      "Number of failed predictions by failure kind.",
			},
			[]string{"kind"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "prediction_duration_seconds",
				Help:      "Time spent decoding, preprocessing and running inference.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Number of HTTP requests by route and status.",
			},
			[]string{"method", "route", "status"},
		),
	}

	m.registry.MustRegister(
		m.predictions,
		m.failures,
		m.duration,
		m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) ObservePrediction(result *classifier.PredictionResult, elapsed time.Duration) {
	m.predictions.WithLabelValues(result.ClassName, strconv.FormatBool(result.IsHealthy)).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveFailure(kind string) {
	m.failures.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// WatchQueue exports the number of classifications waiting for a free worker.
// It must be called at most once per Metrics.
func (m *Metrics) WatchQueue(waiting func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inference_queue_depth",
			Help:      "Classifications waiting for a free inference worker.",
		},
		func() float64 { return float64(waiting()) },
	))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
