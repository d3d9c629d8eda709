package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barberclub",
			Name:      "booking_submitted_total",
			Help:      "Count of booking submissions by outcome.",
		},
		[]string{"outcome"},
	)

	guardRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "barberclub",
			Name:      "booking_guard_rejected_total",
			Help:      "Count of submissions refused by the pending-appointment guard.",
		},
	)

	slotsComputed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "barberclub",
			Name:      "slots_computed_total",
			Help:      "Count of availability computations.",
		},
	)

	locatorQueries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "barberclub",
			Name:      "locator_queries_total",
			Help:      "Count of proximity locator queries.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barberclub",
			Name:      "http_requests_total",
			Help:      "Count of gateway HTTP requests by handler.",
		},
		[]string{"handler"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingSubmitted, guardRejected, slotsComputed, locatorQueries, httpRequests)
	})
}

func IncBookingSubmitted(outcome string) {
	bookingSubmitted.WithLabelValues(outcome).Inc()
}

func IncGuardRejected() {
	guardRejected.Inc()
}

func IncSlotsComputed() {
	slotsComputed.Inc()
}

func IncLocatorQueries() {
	locatorQueries.Inc()
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}
