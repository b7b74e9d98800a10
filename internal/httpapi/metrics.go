package httpapi

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records backend calls made by the terminal.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the API metrics on reg. A nil reg yields a no-op.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tokoku_api_requests_total",
		Help: "Backend API requests by route, method and status.",
	}, []string{"endpoint", "method", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tokoku_api_request_duration_seconds",
		Help:    "Latency of backend API requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	reg.MustRegister(requests, duration)
	return &Metrics{requests: requests, duration: duration}
}

// Observe records one request. status 0 means the request never got a
// response.
func (m *Metrics) Observe(endpoint, method string, status int, elapsed time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(normalizeLabel(endpoint), method, label).Inc()
	m.duration.WithLabelValues(normalizeLabel(endpoint)).Observe(elapsed.Seconds())
}

func normalizeLabel(endpoint string) string {
	if endpoint == "" {
		return "unknown"
	}
	return endpoint
}
