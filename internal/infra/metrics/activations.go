package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		activationsTotal,
		revocationsTotal,
		codesGeneratedTotal,
		codesTotal,
		bindingsTotal,
	)
}

var (
	activationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activations_total",
			Help: "Activation attempts by outcome.",
		},
		[]string{"result"}, // 'success', 'invalid_code', 'already_bound', 'fault'
	)

	revocationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "revocations_total",
			Help: "Total number of device revocations.",
		},
	)

	codesGeneratedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "activation_codes_generated_total",
			Help: "Total number of activation codes generated.",
		},
	)

	codesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "activation_codes_total",
			Help: "Current number of activation codes by redemption state.",
		},
		[]string{"state"}, // 'unused', 'used'
	)

	bindingsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "device_bindings_total",
			Help: "Current number of device bindings by entitlement state.",
		},
		[]string{"state"}, // 'active', 'expired'
	)
)

func IncActivation(result string) {
	activationsTotal.WithLabelValues(result).Inc()
}

func IncRevocation() {
	revocationsTotal.Inc()
}

func AddCodesGenerated(n int) {
	codesGeneratedTotal.Add(float64(n))
}

func SetEntitlementTotals(codesUnused, codesUsed, bindingsActive, bindingsExpired int) {
	codesTotal.WithLabelValues("unused").Set(float64(codesUnused))
	codesTotal.WithLabelValues("used").Set(float64(codesUsed))
	bindingsTotal.WithLabelValues("active").Set(float64(bindingsActive))
	bindingsTotal.WithLabelValues("expired").Set(float64(bindingsExpired))
}
