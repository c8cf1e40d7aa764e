package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "belleza",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	slotComputations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "belleza",
			Name:      "slot_computations_total",
			Help:      "Availability computations by outcome (ok or reason code).",
		},
		[]string{"outcome"},
	)

	slotCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "belleza",
			Name:      "slot_cache_total",
			Help:      "Slot cache lookups by result.",
		},
		[]string{"result"},
	)

	reservationsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "belleza",
			Name:      "reservations_created_total",
			Help:      "Reservations accepted by the booking guard.",
		},
	)

	slotConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "belleza",
			Name:      "slot_conflicts_total",
			Help:      "Reservation attempts rejected because the slot was taken.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			slotComputations,
			slotCacheHits,
			reservationsCreated,
			slotConflicts,
		)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncSlotComputation records an availability computation outcome; use
// "ok" for a non-empty slot list, otherwise the reason code.
func IncSlotComputation(outcome string) {
	slotComputations.WithLabelValues(outcome).Inc()
}

// IncSlotCache records a cache lookup result ("hit" or "miss").
func IncSlotCache(result string) {
	slotCacheHits.WithLabelValues(result).Inc()
}

// IncReservationCreated counts an accepted reservation.
func IncReservationCreated() {
	reservationsCreated.Inc()
}

// IncSlotConflict counts a rejected double-booking attempt.
func IncSlotConflict() {
	slotConflicts.Inc()
}
