package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		gatewayInitiatesTotal,
		gatewayCallbacksTotal,
		gatewayRequestDuration,
	)
}

var (
	gatewayInitiatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_initiates_total",
			Help: "Outbound checkout initiations by vendor and outcome.",
		},
		[]string{"vendor", "outcome"},
	)

	gatewayCallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_callbacks_total",
			Help: "Inbound callbacks by vendor, path (redirect/webhook) and normalized status.",
		},
		[]string{"vendor", "path", "status"},
	)

	gatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Latency of outbound vendor HTTP calls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"vendor", "op"},
	)
)

func IncGatewayInitiate(vendor, outcome string) {
	gatewayInitiatesTotal.WithLabelValues(norm(vendor), norm(outcome)).Inc()
}

func IncGatewayCallback(vendor, path, status string) {
	gatewayCallbacksTotal.WithLabelValues(norm(vendor), norm(path), norm(status)).Inc()
}

func ObserveGatewayRequest(vendor, op string, d time.Duration) {
	gatewayRequestDuration.WithLabelValues(norm(vendor), norm(op)).Observe(d.Seconds())
}
