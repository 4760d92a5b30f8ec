package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/prohmpiriya/booking-rush-checkout/internal/audit"
	"github.com/prohmpiriya/booking-rush-checkout/internal/clock"
	"github.com/prohmpiriya/booking-rush-checkout/internal/domain"
	"github.com/prohmpiriya/booking-rush-checkout/internal/events"
	"github.com/prohmpiriya/booking-rush-checkout/internal/pricing"
	"github.com/prohmpiriya/booking-rush-checkout/internal/repository"
	"github.com/prohmpiriya/booking-rush-checkout/pkg/logger"
	"github.com/prohmpiriya/booking-rush-checkout/pkg/telemetry"
)

// DefaultHoldDuration is how long a reservation keeps its seats
const DefaultHoldDuration = 10 * time.Minute

// ReservationService places and releases seat holds
type ReservationService interface {
	// Reserve holds the requested seats and prices the order
	Reserve(ctx context.Context, req *ReserveRequest) (*domain.Reservation, error)
	// CheckExpired reports whether a reservation is past its deadline
	CheckExpired(reservation *domain.Reservation) bool
	// ReleaseExpired frees the seats of an expired reservation and deletes it
	ReleaseExpired(ctx context.Context, reservationID string) (bool, error)
	// ListExpired returns up to limit expired reservations, oldest deadline first
	ListExpired(ctx context.Context, limit int) ([]*domain.Reservation, error)
	// SeatAvailability returns the seat map with lapsed holds shown as available
	SeatAvailability(ctx context.Context, eventID string) ([]domain.SeatSnapshot, error)
}

// BookingService turns holds into bookings and cancels bookings
type BookingService interface {
	// Confirm applies the payment outcome to a reservation
	Confirm(ctx context.Context, req *ConfirmRequest) (*domain.ConfirmOutcome, error)
	// Cancel refunds a booking and frees its seats
	Cancel(ctx context.Context, bookingID string) (*domain.CancellationResult, error)
	// ListAll returns every booking ordered by creation time
	ListAll(ctx context.Context) ([]*domain.Booking, error)
}

// ReserveRequest describes a seat hold. An unset Multiplier prices at 1.
type ReserveRequest struct {
	EventID    string                  `json:"event_id"`
	UserID     string                  `json:"user_id"`
	Tickets    []domain.TicketLineItem `json:"tickets"`
	Seats      []string                `json:"seats"`
	PromoCode  string                  `json:"promo_code,omitempty"`
	Multiplier decimal.NullDecimal     `json:"multiplier"`
	Insurance  bool                    `json:"cancellation_insurance"`
}

// ConfirmRequest carries the payment outcome for a reservation.
// UserID, when set, must own the reservation.
type ConfirmRequest struct {
	ReservationID string               `json:"reservation_id"`
	UserID        string               `json:"user_id,omitempty"`
	PaymentStatus domain.PaymentStatus `json:"payment_status"`
}

// Dependencies wires the checkout services. Services built from the same
// Dependencies value share its Locker.
type Dependencies struct {
	Events       repository.EventRepository
	Promos       repository.PromoCodeRepository
	Reservations repository.ReservationRepository
	Bookings     repository.BookingRepository

	Pricing      *pricing.Engine
	Clock        clock.Clock
	Locker       *KeyedLocker
	HoldDuration time.Duration

	Logger    *logger.Logger
	Metrics   *telemetry.CheckoutMetrics
	Publisher events.Publisher
	Audit     audit.Recorder
}

func (d *Dependencies) applyDefaults() {
	if d.Pricing == nil {
		d.Pricing = pricing.NewEngine(pricing.DefaultPolicy())
	}
	if d.Clock == nil {
		d.Clock = clock.SystemClock{}
	}
	if d.Locker == nil {
		d.Locker = NewKeyedLocker()
	}
	if d.HoldDuration <= 0 {
		d.HoldDuration = DefaultHoldDuration
	}
	if d.Logger == nil {
		d.Logger = logger.NewNop()
	}
	if d.Publisher == nil {
		d.Publisher = events.NoopPublisher{}
	}
	if d.Audit == nil {
		d.Audit = audit.NopRecorder{}
	}
}

// seatKeeper holds what both services need to move seats and report it
type seatKeeper struct {
	deps *Dependencies
	log  *logger.Logger
}

func newSeatKeeper(deps *Dependencies, component string) seatKeeper {
	deps.applyDefaults()
	return seatKeeper{deps: deps, log: deps.Logger.Named(component)}
}

func (k seatKeeper) now() time.Time {
	return k.deps.Clock.Now()
}

// activeHolds returns the seats claimed by live reservations of an event and the lapsed reservations
func (k seatKeeper) activeHolds(ctx context.Context, eventID string, now time.Time) (map[string]string, []*domain.Reservation, error) {
	holds, err := k.deps.Reservations.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list reservations: %w", err)
	}

	claimed := make(map[string]string)
	var stale []*domain.Reservation
	for _, r := range holds {
		if r.IsExpired(now) {
			stale = append(stale, r)
			continue
		}
		for _, seat := range r.Seats {
			claimed[seat] = r.ID
		}
	}
	return claimed, stale, nil
}

// releaseHold returns the reserved seats of r to Available, skipping seats
// another live hold in claimed still owns, persists the seat map and deletes r.
// The caller holds the event lock.
func (k seatKeeper) releaseHold(ctx context.Context, event *domain.Event, r *domain.Reservation, claimed map[string]string) ([]string, error) {
	free := make([]string, 0, len(r.Seats))
	for _, seat := range r.Seats {
		if owner, ok := claimed[seat]; ok && owner != r.ID {
			continue
		}
		free = append(free, seat)
	}

	released := event.Seats.ReleaseAll(free, domain.SeatReserved)
	if len(released) > 0 {
		if err := k.deps.Events.SaveSeats(ctx, event.ID, event.Seats.States()); err != nil {
			return nil, fmt.Errorf("failed to save seat map: %w", err)
		}
	}

	if err := k.deps.Reservations.Delete(ctx, r.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return released, fmt.Errorf("failed to delete reservation: %w", err)
	}
	return released, nil
}

// holdEnded reports a hold that left the store without becoming a booking
func (k seatKeeper) holdEnded(ctx context.Context, event *domain.Event, r *domain.Reservation, expired bool, out *outbox) {
	action, eventType := audit.ActionRelease, events.ReservationReleased
	if expired {
		action, eventType = audit.ActionExpire, events.ReservationExpired
	}

	if m := k.deps.Metrics; m != nil {
		if expired {
			m.HoldsExpired.Inc(ctx, telemetry.EventIDAttr(r.EventID))
		} else {
			m.HoldsReleased.Inc(ctx, telemetry.EventIDAttr(r.EventID))
		}
		m.ActiveHolds.Add(ctx, -1, telemetry.EventIDAttr(r.EventID))
	}

	k.deps.Audit.Log(audit.NewEntry(action, r.EventID, r.ID, r.UserID, event.Seats.SnapshotOf(r.Seats), k.now()))

	e := events.New(eventType, r.EventID, r.Seats, k.now())
	e.ReservationID = r.ID
	e.UserID = r.UserID
	out.add(e)
}

// outbox collects the checkout events raised under an event lock.
// They are published only after the lock is released.
type outbox []*events.Event

func (o *outbox) add(e *events.Event) {
	*o = append(*o, e)
}

// publish sends the collected events; delivery failures never undo the state change
func (k seatKeeper) publish(ctx context.Context, out outbox) {
	for _, e := range out {
		if err := k.deps.Publisher.Publish(ctx, e); err != nil {
			k.log.WithContext(ctx).Warn("Failed to publish checkout event",
				zap.String("type", string(e.Type)),
				logger.EventID(e.EventID),
				zap.Error(err),
			)
		}
	}
}

// restoreSeats writes the seat map back after a failed step
func (k seatKeeper) restoreSeats(ctx context.Context, event *domain.Event) {
	if err := k.deps.Events.SaveSeats(ctx, event.ID, event.Seats.States()); err != nil {
		k.log.WithContext(ctx).Error("Failed to restore seat map",
			logger.EventID(event.ID),
			zap.Error(err),
		)
	}
}
