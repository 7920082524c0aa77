package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		webhookEventsTotal,
		webhookDroppedTotal,
		activationsTotal,
		gatewayLookupLatencyMs,
		notificationFailuresTotal,
	)
}

var (
	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Inbound payment notifications by terminal outcome.",
		},
		[]string{"outcome"},
	)

	// Handled-terminal drops are acknowledged 200 and thus invisible to the
	// sender; this counter is how operators detect silent drops.
	webhookDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_dropped_total",
			Help: "Events acknowledged but dropped, by reason (decode/account/plan).",
		},
		[]string{"reason"},
	)

	activationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_activations_total",
			Help: "Successful activations/renewals by plan and kind (first/renewal).",
		},
		[]string{"plan", "kind"},
	)

	gatewayLookupLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_lookup_latency_ms",
			Help:    "Payment lookup latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
		},
		[]string{"success"},
	)

	notificationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_failures_total",
			Help: "Confirmation emails that failed to send (best effort, never fatal).",
		},
	)
)

func IncWebhookEvent(outcome string) {
	webhookEventsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncWebhookDropped(reason string) {
	webhookDroppedTotal.WithLabelValues(norm(reason)).Inc()
}

func IncActivation(plan, kind string) {
	activationsTotal.WithLabelValues(norm(plan), norm(kind)).Inc()
}

func ObserveGatewayLookup(d time.Duration, success bool) {
	label := "false"
	if success {
		label = "true"
	}
	gatewayLookupLatencyMs.WithLabelValues(label).Observe(float64(d.Milliseconds()))
}

func IncNotificationFailure() {
	notificationFailuresTotal.Inc()
}
