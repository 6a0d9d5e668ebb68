package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics содержит метрики HTTP API.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewHTTPMetrics создаёт HTTP метрики в DefaultRegisterer.
func NewHTTPMetrics() *HTTPMetrics {
	return NewHTTPMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewHTTPMetricsWithRegisterer создаёт HTTP метрики в переданном реестре.
func NewHTTPMetricsWithRegisterer(registerer prometheus.Registerer) *HTTPMetrics {
	return &HTTPMetrics{
		requests: register(registerer, "restaurant_http_requests_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "restaurant_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"})),
		duration: register(registerer, "restaurant_http_request_duration_seconds", prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "restaurant_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "route"})),
		inFlight: register(registerer, "restaurant_http_requests_in_flight", prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "restaurant_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		})),
	}
}

// RequestStarted увеличивает количество активных запросов.
func (m *HTTPMetrics) RequestStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// RequestFinished фиксирует завершённый запрос. route: шаблон маршрута, не сырой путь.
func (m *HTTPMetrics) RequestFinished(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
