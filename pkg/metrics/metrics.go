package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_received_total",
			Help: "Total number of webhook deliveries by outcome (count)",
		},
		[]string{"outcome"},
	)

	DedupChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedup_checks_total",
			Help: "Total number of idempotency ledger checks (count)",
		},
		[]string{"status"},
	)

	DedupCheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dedup_check_duration_ms",
			Help:    "Idempotency ledger check duration in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"status"},
	)

	ExtractedURLsPerEvent = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "extracted_urls_per_event",
			Help:    "Number of URLs extracted per processed event (count)",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
		},
	)

	SummarizerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summarizer_requests_total",
			Help: "Total number of summarizer calls (count)",
		},
		[]string{"status"},
	)

	SummarizerDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "summarizer_duration_ms",
			Help:    "Summarizer call duration in milliseconds",
			Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		},
	)

	DeliverySendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_sends_total",
			Help: "Total number of outbound message sends (count)",
		},
		[]string{"status"},
	)

	DeliveryQueueWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "delivery_queue_wait_ms",
			Help:    "Time a send spent queued behind the per-channel pace in milliseconds",
			Buckets: []float64{1, 10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
	)

	DeliveryQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "delivery_queue_depth",
			Help: "Number of sends currently queued across all channels (count)",
		},
	)

	DeliveryDestinations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "delivery_destinations",
			Help: "Number of channels with live rate-limit state (count)",
		},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"operation"},
	)

	FallbackUsageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_usage_total",
			Help: "Total number of fallback decisions taken on dependency errors (count)",
		},
		[]string{"component", "policy"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures observed by circuit breaker (count)",
		},
		[]string{"name"},
	)
)

func RegisterPipelineMetrics() {
	prometheus.MustRegister(
		EventsReceivedTotal,
		ExtractedURLsPerEvent,
		SummarizerRequestsTotal,
		SummarizerDuration,
	)
}

func RegisterDedupMetrics() {
	prometheus.MustRegister(
		DedupChecksTotal,
		DedupCheckDuration,
	)
}

func RegisterDeliveryMetrics() {
	prometheus.MustRegister(
		DeliverySendsTotal,
		DeliveryQueueWait,
		DeliveryQueueDepth,
		DeliveryDestinations,
	)
}

func RegisterResilienceMetrics() {
	prometheus.MustRegister(
		RetryAttemptsTotal,
		FallbackUsageTotal,
		CircuitBreakerState,
		CircuitBreakerRequests,
		CircuitBreakerFailures,
	)
}

func ObserveDedupDuration(d time.Duration, status string) {
	DedupCheckDuration.WithLabelValues(status).Observe(float64(d.Milliseconds()))
}

func ObserveQueueWait(d time.Duration) {
	DeliveryQueueWait.Observe(float64(d.Milliseconds()))
}

func ObserveSummarizerDuration(d time.Duration) {
	SummarizerDuration.Observe(float64(d.Milliseconds()))
}
