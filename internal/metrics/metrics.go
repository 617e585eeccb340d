package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ledgerOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "frontdesk",
			Name:      "ledger_operations_total",
			Help:      "Ledger mutations by operation and result.",
		},
		[]string{"operation", "result"},
	)

	rejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "frontdesk",
			Name:      "ledger_rejections_total",
			Help:      "Rejected ledger mutations by reason.",
		},
		[]string{"reason"},
	)

	mismatches = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "frontdesk",
			Name:      "reconcile_mismatches",
			Help:      "Drift found by the last reconciliation pass.",
		},
		[]string{"kind"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "frontdesk",
			Name:      "summary_cache_lookups_total",
			Help:      "Booking summary cache lookups by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(ledgerOps, rejections, mismatches, cacheLookups)
	})
}

// ObserveOperation counts a ledger mutation. reason is empty for successes and
// infrastructure failures.
func ObserveOperation(operation string, err error, reason string) {
	switch {
	case err == nil:
		ledgerOps.WithLabelValues(operation, "ok").Inc()
	case reason != "":
		ledgerOps.WithLabelValues(operation, "rejected").Inc()
		rejections.WithLabelValues(reason).Inc()
	default:
		ledgerOps.WithLabelValues(operation, "error").Inc()
	}
}

// SetMismatches records how much drift a reconciliation pass found.
func SetMismatches(kind string, n int) {
	mismatches.WithLabelValues(kind).Set(float64(n))
}

// IncCache counts a summary cache hit or miss.
func IncCache(outcome string) {
	cacheLookups.WithLabelValues(outcome).Inc()
}
