// Package metrics holds the Prometheus collectors of the booking service.
// Collectors register with the default registry, which /metrics exposes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Booking ────────────────────────────────────────────────────────────────

// BookingsTotal counts booking attempts by outcome (booked, replayed,
// slot_unavailable, duplicate, insufficient_points, payment_declined, ...).
var BookingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "classbooking",
	Subsystem: "booking",
	Name:      "attempts_total",
	Help:      "Total booking attempts by outcome.",
}, []string{"outcome"})

// BookingDuration tracks the end-to-end latency of a booking attempt.
var BookingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "classbooking",
	Subsystem: "booking",
	Name:      "duration_seconds",
	Help:      "Latency of booking attempts including payment confirmation.",
	Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
})

// CancellationsTotal counts successful cancellations.
var CancellationsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "classbooking",
	Subsystem: "booking",
	Name:      "cancellations_total",
	Help:      "Total reservations canceled.",
})

// BestEffortFailures counts secondary effects that failed around a
// booking (event_publish, payment_refund).
var BestEffortFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "classbooking",
	Subsystem: "booking",
	Name:      "best_effort_failures_total",
	Help:      "Secondary effects that failed and were queued for reconciliation.",
}, []string{"kind"})

// ─── Payment ────────────────────────────────────────────────────────────────

// PaymentConfirmations counts payment confirmations by result.
var PaymentConfirmations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "classbooking",
	Subsystem: "payment",
	Name:      "confirmations_total",
	Help:      "Payment confirmations by result (succeeded, declined, unavailable, replayed).",
}, []string{"result"})

// ─── Slots ──────────────────────────────────────────────────────────────────

// SlotsMaterialized counts slot records created from recurring schedules.
var SlotsMaterialized = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "classbooking",
	Subsystem: "slots",
	Name:      "materialized_total",
	Help:      "Total slot records created by batch materialization.",
})
