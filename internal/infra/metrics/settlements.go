package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		settlementsTotal,
		settlementsDuplicateTotal,
		settlementsFlaggedTotal,
		settlementRevenueTotal,
	)
}

var (
	settlementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlements_total",
			Help: "Settlement outcomes by vendor and result (applied/duplicate/rejected).",
		},
		[]string{"vendor", "result"},
	)

	settlementsDuplicateTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlements_duplicate_total",
			Help: "Settle calls that hit the unique-constraint duplicate path.",
		},
		[]string{"vendor"},
	)

	settlementsFlaggedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlements_flagged_total",
			Help: "Settlements flagged for manual review (amount mismatch or inferred amount).",
		},
		[]string{"vendor", "reason"},
	)

	settlementRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_revenue_total",
			Help: "Total monetary value of applied settlements, labeled by currency.",
		},
		[]string{"currency"},
	)
)

func IncSettlement(vendor, result string) {
	settlementsTotal.WithLabelValues(norm(vendor), norm(result)).Inc()
}

func IncDuplicateSettlement(vendor string) {
	settlementsDuplicateTotal.WithLabelValues(norm(vendor)).Inc()
}

func IncFlaggedSettlement(vendor, reason string) {
	settlementsFlaggedTotal.WithLabelValues(norm(vendor), norm(reason)).Inc()
}

func AddSettlementRevenue(currency string, amount float64) {
	settlementRevenueTotal.WithLabelValues(norm(currency)).Add(amount)
}
