package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(attemptsTotal, attemptsExpiredTotal)
}

var (
	attemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pending_attempts_total",
			Help: "Pending attempts created, by vendor and subject type.",
		},
		[]string{"vendor", "subject"},
	)

	attemptsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pending_attempts_expired_total",
			Help: "Stale pending attempts expired by the reconciler.",
		},
	)
)

func IncAttempt(vendor, subject string) {
	attemptsTotal.WithLabelValues(norm(vendor), norm(subject)).Inc()
}

func AddExpiredAttempts(n int64) {
	attemptsExpiredTotal.Add(float64(n))
}
