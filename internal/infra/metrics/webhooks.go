package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhooksTotal,
		webhookLatencyMs,
	)
}

var (
	webhooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhooks_total",
			Help: "Inbound webhook deliveries by source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	webhookLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webhook_latency_ms",
			Help:    "Webhook handler latency distribution in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"source"},
	)
)

// IncWebhook counts one delivery; outcome is ok|unauthorized|malformed|duplicate|store_error.
func IncWebhook(source, outcome string) {
	webhooksTotal.WithLabelValues(norm(source), norm(outcome)).Inc()
}

func ObserveWebhookLatency(source string, ms float64) {
	webhookLatencyMs.WithLabelValues(norm(source)).Observe(ms)
}
