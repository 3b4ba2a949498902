// Package metrics holds the Prometheus collectors for booking transitions
// and seat allocation.  Collectors register with the default registry and
// are served on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Results used as label values.
const (
	ResultOK          = "ok"
	ResultNoSeat      = "no_seat"
	ResultDenied      = "denied"
	ResultInvalid     = "invalid"
	ResultLockTimeout = "lock_timeout"
	ResultError       = "error"
)

var (
	bookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_transitions_total",
			Help: "Booking status transitions by target status and result",
		},
		[]string{"to", "result"},
	)

	seatAllocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seat_allocations_total",
			Help: "Seat allocation attempts by result",
		},
		[]string{"result"},
	)

	seatAllocationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seat_allocation_duration_seconds",
			Help:    "Time spent locking and claiming a seat, including lock waits",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
	)

	seatReleases = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seat_releases_total",
			Help: "Seats returned to AVAILABLE",
		},
	)
)

// RecordTransition counts one booking transition attempt.
func RecordTransition(to, result string) {
	bookingTransitions.WithLabelValues(to, result).Inc()
}

// RecordAllocation counts one allocation attempt and observes its duration.
func RecordAllocation(result string, took time.Duration) {
	seatAllocations.WithLabelValues(result).Inc()
	seatAllocationDuration.Observe(took.Seconds())
}

// RecordRelease counts one seat release.
func RecordRelease() {
	seatReleases.Inc()
}
