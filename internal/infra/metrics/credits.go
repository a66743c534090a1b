package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		creditsGrantedTotal,
		creditsChargedTotal,
		chargesDeniedTotal,
	)
}

var (
	creditsGrantedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credits_granted_total",
			Help: "Credits granted to users, labeled by reason (purchase/bonus/register).",
		},
		[]string{"reason"},
	)

	creditsChargedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "credits_charged_total",
			Help: "Successful single-credit charges for LLM calls.",
		},
	)

	chargesDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "charges_denied_total",
			Help: "ChargeOne calls that found an empty balance.",
		},
	)
)

func AddCreditsGranted(reason string, n int64) {
	creditsGrantedTotal.WithLabelValues(norm(reason)).Add(float64(n))
}

func IncCreditCharged() { creditsChargedTotal.Inc() }
func IncChargeDenied()  { chargesDeniedTotal.Inc() }
