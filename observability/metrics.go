package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "miniack_requests_total",
			Help: "Requests handled, by transport and ack.",
		},
		[]string{"network", "ack"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "miniack_request_duration_seconds",
			Help:    "Handler chain latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"network"},
	)
	MalformedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "miniack_malformed_requests_total",
			Help: "Requests that could not be read or were the wrong size.",
		},
		[]string{"network"},
	)
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "miniack_active_connections",
			Help: "Stream connections currently being served.",
		},
	)
)

func init() {
	prometheus.MustRegister(RequestsTotal, RequestDuration, MalformedTotal, ActiveConnections)
}
