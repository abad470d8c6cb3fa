package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vinylbook",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		},
		[]string{"endpoint", "status"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vinylbook",
			Name:      "bookings_created_total",
			Help:      "Bookings created since start.",
		},
	)

	sheetsSyncFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vinylbook",
			Name:      "sheets_sync_failures_total",
			Help:      "Sheets sync tasks that exhausted their retries.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingsCreated, sheetsSyncFailures)
	})
}

// IncHTTP increments the request counter for an endpoint/status pair.
func IncHTTP(endpoint, status string) {
	httpRequests.WithLabelValues(endpoint, status).Inc()
}

// IncBookingCreated counts a successful booking creation.
func IncBookingCreated() {
	bookingsCreated.Inc()
}

// IncSheetsSyncFailure counts a permanently failed sync task.
func IncSheetsSyncFailure() {
	sheetsSyncFailures.Inc()
}
