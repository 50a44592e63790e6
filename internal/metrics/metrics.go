package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "staybook",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingsCommitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "staybook",
			Name:      "bookings_committed_total",
			Help:      "Bookings written, by payment status.",
		},
		[]string{"payment_status"},
	)

	commitRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "staybook",
			Name:      "commit_rejections_total",
			Help:      "Checkout rejections by rule code.",
		},
		[]string{"code"},
	)

	webhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "staybook",
			Name:      "webhook_events_total",
			Help:      "Payment webhook events by outcome.",
		},
		[]string{"outcome"},
	)

	discrepancies = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "staybook",
			Name:      "payment_discrepancies_total",
			Help:      "Paid events that could not be booked.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingsCommitted, commitRejections, webhookEvents, discrepancies)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncBookingsCommitted(paymentStatus string, n int) {
	bookingsCommitted.WithLabelValues(paymentStatus).Add(float64(n))
}

func IncCommitRejection(code string) {
	commitRejections.WithLabelValues(code).Inc()
}

func IncWebhookEvent(outcome string) {
	webhookEvents.WithLabelValues(outcome).Inc()
}

func IncDiscrepancy() {
	discrepancies.Inc()
}
