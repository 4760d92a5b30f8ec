package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/prohmpiriya/booking-rush-checkout/internal/audit"
	"github.com/prohmpiriya/booking-rush-checkout/internal/domain"
	"github.com/prohmpiriya/booking-rush-checkout/internal/events"
	"github.com/prohmpiriya/booking-rush-checkout/pkg/logger"
	"github.com/prohmpiriya/booking-rush-checkout/pkg/telemetry"
)

// bookingService implements the BookingService interface
type bookingService struct {
	seatKeeper
}

// NewBookingService creates a new BookingService
func NewBookingService(deps *Dependencies) BookingService {
	return &bookingService{seatKeeper: newSeatKeeper(deps, "booking")}
}

// Confirm books or releases a reservation according to the payment outcome
func (s *bookingService) Confirm(ctx context.Context, req *ConfirmRequest) (*domain.ConfirmOutcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.confirm")
	span.SetAttributes(
		attribute.String("reservation_id", req.ReservationID),
		attribute.String("payment_status", string(req.PaymentStatus)),
	)

	var out outbox
	outcome, err := s.confirm(ctx, req, &out)
	s.publish(ctx, out)
	telemetry.EndSpan(span, err)
	return outcome, err
}

func (s *bookingService) confirm(ctx context.Context, req *ConfirmRequest, out *outbox) (*domain.ConfirmOutcome, error) {
	reservation, err := s.deps.Reservations.GetByID(ctx, req.ReservationID)
	if err != nil {
		return nil, err
	}

	unlock := s.deps.Locker.Lock(eventLockKey(reservation.EventID))
	defer unlock()

	reservation, err = s.deps.Reservations.GetByID(ctx, req.ReservationID)
	if err != nil {
		return nil, err
	}
	if req.UserID != "" && req.UserID != reservation.UserID {
		return nil, domain.ErrForbidden
	}

	event, err := s.deps.Events.GetByID(ctx, reservation.EventID)
	if err != nil {
		return nil, err
	}

	log := s.log.WithContext(ctx).WithFields(
		logger.ReservationID(reservation.ID),
		logger.EventID(reservation.EventID),
	)

	now := s.now()
	claimed, _, err := s.activeHolds(ctx, reservation.EventID, now)
	if err != nil {
		return nil, err
	}

	// a lapsed hold is released whatever the payment status says
	if reservation.IsExpired(now) {
		if _, err := s.releaseHold(ctx, event, reservation, claimed); err != nil {
			return nil, err
		}
		s.holdEnded(ctx, event, reservation, true, out)
		log.Info("Confirm rejected, reservation expired")
		return nil, domain.ErrReservationExpired
	}

	if !req.PaymentStatus.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidPaymentStatus, req.PaymentStatus)
	}

	if req.PaymentStatus == domain.PaymentRejected {
		if _, err := s.releaseHold(ctx, event, reservation, claimed); err != nil {
			return nil, err
		}
		s.holdEnded(ctx, event, reservation, false, out)
		log.Info("Payment rejected, seats released", logger.Seats(reservation.Seats))
		return &domain.ConfirmOutcome{
			Status:        domain.ConfirmReleased,
			ReservationID: reservation.ID,
		}, nil
	}

	booking, err := s.book(ctx, event, reservation)
	if err != nil {
		return nil, err
	}

	if m := s.deps.Metrics; m != nil {
		m.BookingsConfirmed.Inc(ctx, telemetry.EventIDAttr(event.ID), telemetry.PaymentStatusAttr(string(req.PaymentStatus)))
		m.ActiveHolds.Add(ctx, -1, telemetry.EventIDAttr(event.ID))
	}
	s.deps.Audit.Log(audit.NewEntry(audit.ActionConfirm, event.ID, booking.ID, booking.UserID,
		event.Seats.SnapshotOf(booking.Seats), booking.CreatedAt))

	confirmed := events.New(events.BookingConfirmed, event.ID, booking.Seats, booking.CreatedAt).WithAmount(booking.TotalCost)
	confirmed.ReservationID = reservation.ID
	confirmed.BookingID = booking.ID
	confirmed.UserID = booking.UserID
	out.add(confirmed)

	log.Info("Booking confirmed",
		logger.BookingID(booking.ID),
		logger.Seats(booking.Seats),
		zap.String("total", booking.TotalCost.StringFixed(2)),
	)

	return &domain.ConfirmOutcome{
		Status:        domain.ConfirmBooked,
		ReservationID: reservation.ID,
		Booking:       booking,
	}, nil
}

// book converts a live reservation into a booking; the caller holds the event lock
func (s *bookingService) book(ctx context.Context, event *domain.Event, reservation *domain.Reservation) (*domain.Booking, error) {
	if err := event.Seats.TransitionAll(reservation.Seats, domain.SeatReserved, domain.SeatBooked); err != nil {
		return nil, fmt.Errorf("failed to book seats: %w", err)
	}

	booking := domain.NewBookingFromReservation(reservation, s.now())
	if err := s.deps.Bookings.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to save booking: %w", err)
	}

	if err := s.deps.Events.SaveSeats(ctx, event.ID, event.Seats.States()); err != nil {
		if delErr := s.deps.Bookings.Delete(ctx, booking.ID); delErr != nil {
			s.log.WithContext(ctx).Error("Failed to roll back booking",
				logger.BookingID(booking.ID),
				zap.Error(delErr),
			)
		}
		return nil, fmt.Errorf("failed to save seat map: %w", err)
	}

	if reservation.PromoCode != "" {
		s.recordPromoUsage(ctx, reservation.PromoCode)
	}

	if err := s.deps.Reservations.Delete(ctx, reservation.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		// the leftover record only ever releases Reserved seats, so the booked seats stay safe
		s.log.WithContext(ctx).Warn("Failed to delete confirmed reservation",
			logger.ReservationID(reservation.ID),
			zap.Error(err),
		)
	}
	return booking, nil
}

// recordPromoUsage counts one confirmed use of a promo code.
// The buyer was already quoted, so running out of supply is logged, not returned.
func (s *bookingService) recordPromoUsage(ctx context.Context, code string) {
	unlock := s.deps.Locker.Lock(promoLockKey(code))
	defer unlock()

	promo, err := s.deps.Promos.IncrementUsage(ctx, code)
	switch {
	case errors.Is(err, domain.ErrPromoCodeExhausted):
		s.log.WithContext(ctx).Warn("Promo code supply exhausted at confirm", logger.PromoCode(code))
	case err != nil:
		s.log.WithContext(ctx).Error("Failed to record promo usage", logger.PromoCode(code), zap.Error(err))
	default:
		s.log.WithContext(ctx).Debug("Promo usage recorded",
			logger.PromoCode(code),
			zap.Int("usage_count", promo.UsageCount),
			zap.Bool("active", promo.Active),
		)
	}
}

// Cancel refunds a booking according to its insurance and frees its seats
func (s *bookingService) Cancel(ctx context.Context, bookingID string) (*domain.CancellationResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.cancel")
	span.SetAttributes(attribute.String("booking_id", bookingID))

	var out outbox
	result, err := s.cancel(ctx, bookingID, &out)
	s.publish(ctx, out)
	telemetry.EndSpan(span, err)
	return result, err
}

func (s *bookingService) cancel(ctx context.Context, bookingID string, out *outbox) (*domain.CancellationResult, error) {
	booking, err := s.deps.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	unlock := s.deps.Locker.Lock(eventLockKey(booking.EventID))
	defer unlock()

	booking, err = s.deps.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	event, err := s.deps.Events.GetByID(ctx, booking.EventID)
	if err != nil {
		return nil, err
	}

	refund, fee := s.deps.Pricing.CancellationTerms(booking.TotalCost, booking.CancellationInsurance)

	released := event.Seats.ReleaseAll(booking.Seats, domain.SeatBooked)
	if len(released) > 0 {
		if err := s.deps.Events.SaveSeats(ctx, event.ID, event.Seats.States()); err != nil {
			return nil, fmt.Errorf("failed to save seat map: %w", err)
		}
	}
	if err := s.deps.Bookings.Delete(ctx, booking.ID); err != nil {
		return nil, fmt.Errorf("failed to delete booking: %w", err)
	}

	now := s.now()
	if m := s.deps.Metrics; m != nil {
		m.BookingsCancelled.Inc(ctx, telemetry.EventIDAttr(event.ID), telemetry.InsuredAttr(booking.CancellationInsurance))
	}
	s.deps.Audit.Log(audit.NewEntry(audit.ActionCancel, event.ID, booking.ID, booking.UserID,
		event.Seats.SnapshotOf(booking.Seats), now))

	cancelled := events.New(events.BookingCancelled, event.ID, booking.Seats, now).WithAmount(refund)
	cancelled.BookingID = booking.ID
	cancelled.UserID = booking.UserID
	out.add(cancelled)

	s.log.WithContext(ctx).Info("Booking cancelled",
		logger.BookingID(booking.ID),
		logger.EventID(event.ID),
		logger.Seats(released),
		zap.String("refund", refund.StringFixed(2)),
		zap.String("fee", fee.StringFixed(2)),
	)

	return &domain.CancellationResult{
		BookingID:       booking.ID,
		RefundAmount:    refund,
		CancellationFee: fee,
	}, nil
}

// ListAll returns a snapshot of every booking
func (s *bookingService) ListAll(ctx context.Context) ([]*domain.Booking, error) {
	return s.deps.Bookings.List(ctx)
}
