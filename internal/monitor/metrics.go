package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	webhookTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fbconv_webhook_total",
			Help: "Total number of handled webhook triggers",
		},
		[]string{"resource", "outcome"},
	)

	dispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fbconv_dispatch_total",
			Help: "Total number of conversion event submissions",
		},
		[]string{"event_name", "status"},
	)

	dispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fbconv_dispatch_duration_seconds",
			Help:    "Conversion event submission duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"event_name"},
	)

	enrichmentRetryTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fbconv_enrichment_retry_total",
			Help: "Total number of delayed enrichment retries",
		},
	)
)

// CountWebhook records one handled trigger with its business outcome
func CountWebhook(resource, outcome string) {
	if resource == "" {
		resource = "unknown"
	}
	webhookTotal.WithLabelValues(resource, outcome).Inc()
}

// ObserveDispatch records one conversion submission
func ObserveDispatch(eventName string, ok bool, duration time.Duration) {
	status := "error"
	if ok {
		status = "ok"
	}
	dispatchTotal.WithLabelValues(eventName, status).Inc()
	dispatchDuration.WithLabelValues(eventName).Observe(duration.Seconds())
}

// CountEnrichmentRetry records one fixed-delay enrichment retry
func CountEnrichmentRetry() {
	enrichmentRetryTotal.Inc()
}
