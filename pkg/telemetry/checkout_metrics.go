package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// CheckoutMetrics is the instrument set of the seat hold and checkout flow
type CheckoutMetrics struct {
	ReservationsCreated *Counter
	ReservationsFailed  *Counter
	HoldsReleased       *Counter
	HoldsExpired        *Counter
	BookingsConfirmed   *Counter
	BookingsCancelled   *Counter
	ActiveHolds         *UpDownCounter
	ReserveDuration     *Histogram
}

// NewCheckoutMetrics registers the checkout instruments on meter (the global meter when nil)
func NewCheckoutMetrics(meter metric.Meter) (*CheckoutMetrics, error) {
	var (
		m   CheckoutMetrics
		err error
	)

	counters := []struct {
		target **Counter
		opts   MetricOpts
	}{
		{&m.ReservationsCreated, MetricOpts{Name: "checkout.reservations.created", Description: "Seat holds created", Unit: "{reservation}"}},
		{&m.ReservationsFailed, MetricOpts{Name: "checkout.reservations.failed", Description: "Seat hold attempts rejected", Unit: "{reservation}"}},
		{&m.HoldsReleased, MetricOpts{Name: "checkout.holds.released", Description: "Seat holds released without booking", Unit: "{reservation}"}},
		{&m.HoldsExpired, MetricOpts{Name: "checkout.holds.expired", Description: "Seat holds released after their deadline", Unit: "{reservation}"}},
		{&m.BookingsConfirmed, MetricOpts{Name: "checkout.bookings.confirmed", Description: "Holds converted into bookings", Unit: "{booking}"}},
		{&m.BookingsCancelled, MetricOpts{Name: "checkout.bookings.cancelled", Description: "Bookings cancelled", Unit: "{booking}"}},
	}
	for _, c := range counters {
		if *c.target, err = NewCounter(meter, c.opts); err != nil {
			return nil, err
		}
	}

	m.ActiveHolds, err = NewUpDownCounter(meter, MetricOpts{
		Name:        "checkout.holds.active",
		Description: "Seat holds currently stored",
		Unit:        "{reservation}",
	})
	if err != nil {
		return nil, err
	}

	m.ReserveDuration, err = NewHistogram(meter, MetricOpts{
		Name:        "checkout.reserve.duration",
		Description: "Time spent in the reserve critical section",
		Unit:        "ms",
	}, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500)
	if err != nil {
		return nil, err
	}

	return &m, nil
}

// ObserveReserve records the duration since start
func (m *CheckoutMetrics) ObserveReserve(ctx context.Context, start time.Time, eventID, outcome string) {
	elapsed := float64(time.Since(start).Microseconds()) / 1000
	m.ReserveDuration.Record(ctx, elapsed, EventIDAttr(eventID), OutcomeAttr(outcome))
}
