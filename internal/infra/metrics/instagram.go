package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(instagramRequestsTotal, instagramLatencyMs, instagramLoginsTotal) }

var (
	instagramRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instagram_requests_total",
			Help:      "Instagram API requests by endpoint and HTTP status (0 for transport errors).",
		},
		[]string{"endpoint", "status"},
	)

	instagramLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "instagram_request_latency_ms",
			Help:      "Instagram API latency in milliseconds.",
			Buckets:   []float64{50, 100, 200, 400, 800, 1600, 3000, 6000, 12000},
		},
		[]string{"endpoint"},
	)

	instagramLoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instagram_logins_total",
			Help:      "Login attempts by result.",
		},
		[]string{"success"},
	)
)

func ObserveInstagramRequest(endpoint string, status int, took time.Duration) {
	instagramRequestsTotal.WithLabelValues(label(endpoint), strconv.Itoa(status)).Inc()
	instagramLatencyMs.WithLabelValues(label(endpoint)).Observe(float64(took.Milliseconds()))
}

func IncInstagramLogin(success bool) {
	instagramLoginsTotal.WithLabelValues(strconv.FormatBool(success)).Inc()
}
