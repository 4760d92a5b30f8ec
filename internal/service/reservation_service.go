package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/prohmpiriya/booking-rush-checkout/internal/audit"
	"github.com/prohmpiriya/booking-rush-checkout/internal/domain"
	"github.com/prohmpiriya/booking-rush-checkout/internal/events"
	"github.com/prohmpiriya/booking-rush-checkout/internal/pricing"
	"github.com/prohmpiriya/booking-rush-checkout/pkg/logger"
	"github.com/prohmpiriya/booking-rush-checkout/pkg/telemetry"
)

// reservationService implements the ReservationService interface
type reservationService struct {
	seatKeeper
}

// NewReservationService creates a new ReservationService
func NewReservationService(deps *Dependencies) ReservationService {
	return &reservationService{seatKeeper: newSeatKeeper(deps, "reservation")}
}

// Reserve holds the requested seats for the hold duration
func (s *reservationService) Reserve(ctx context.Context, req *ReserveRequest) (*domain.Reservation, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.reserve")
	span.SetAttributes(
		attribute.String("event_id", req.EventID),
		attribute.Int("seat_count", len(req.Seats)),
	)
	start := time.Now()

	var out outbox
	reservation, err := s.reserve(ctx, req, &out)
	s.publish(ctx, out)
	telemetry.EndSpan(span, err)

	outcome := "created"
	if err != nil {
		outcome = "failed"
	}
	if m := s.deps.Metrics; m != nil {
		m.ObserveReserve(ctx, start, req.EventID, outcome)
		if err != nil {
			m.ReservationsFailed.Inc(ctx, telemetry.EventIDAttr(req.EventID), telemetry.ReasonAttr(failureReason(err)))
		}
	}
	if err != nil {
		s.log.WithContext(ctx).Info("Reservation rejected",
			logger.EventID(req.EventID),
			logger.UserID(req.UserID),
			logger.Seats(req.Seats),
			zap.Error(err),
		)
		return nil, err
	}
	return reservation, nil
}

func (s *reservationService) reserve(ctx context.Context, req *ReserveRequest, out *outbox) (*domain.Reservation, error) {
	if err := domain.ValidateTickets(req.Tickets); err != nil {
		return nil, err
	}

	unlock := s.deps.Locker.Lock(eventLockKey(req.EventID))
	defer unlock()

	event, err := s.deps.Events.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}

	if len(req.Seats) != domain.TotalQuantity(req.Tickets) {
		return nil, fmt.Errorf("%w: %d seats for %d tickets",
			domain.ErrSeatCountMismatch, len(req.Seats), domain.TotalQuantity(req.Tickets))
	}

	now := s.now()
	claimed, stale, err := s.activeHolds(ctx, req.EventID, now)
	if err != nil {
		return nil, err
	}

	// Reserved seats with no live hold behind them are free to take
	var unavailable, reclaim []string
	seen := make(map[string]struct{}, len(req.Seats))
	for _, seat := range req.Seats {
		if _, dup := seen[seat]; dup {
			unavailable = append(unavailable, seat)
			continue
		}
		seen[seat] = struct{}{}

		switch event.Seats.Status(seat) {
		case domain.SeatAvailable:
		case domain.SeatReserved:
			if _, held := claimed[seat]; held {
				unavailable = append(unavailable, seat)
			} else {
				reclaim = append(reclaim, seat)
			}
		default:
			unavailable = append(unavailable, seat)
		}
	}
	if len(unavailable) > 0 {
		return nil, &domain.SeatUnavailableError{Seats: unavailable}
	}

	promo, err := s.resolvePromo(ctx, req.PromoCode)
	if err != nil {
		return nil, err
	}

	quote, err := s.deps.Pricing.Quote(pricing.Input{
		VIPPrice:      event.VIPPrice,
		StandardPrice: event.StandardPrice,
		Tickets:       req.Tickets,
		Multiplier:    req.Multiplier,
		PromoCode:     req.PromoCode,
		Promo:         promo,
		Insurance:     req.Insurance,
	})
	if err != nil {
		return nil, err
	}

	for _, r := range stale {
		if err := s.expireLocked(ctx, event, r, claimed, out); err != nil {
			return nil, err
		}
	}
	event.Seats.ReleaseAll(reclaim, domain.SeatReserved)

	if err := event.Seats.TransitionAll(req.Seats, domain.SeatAvailable, domain.SeatReserved); err != nil {
		var conflict *domain.SeatConflictError
		if errors.As(err, &conflict) {
			return nil, &domain.SeatUnavailableError{Seats: conflict.Seats()}
		}
		return nil, err
	}
	if err := s.deps.Events.SaveSeats(ctx, event.ID, event.Seats.States()); err != nil {
		return nil, fmt.Errorf("failed to save seat map: %w", err)
	}

	reservation := domain.NewReservation(req.EventID, req.UserID, req.Tickets, req.Seats,
		req.PromoCode, quote.Total, req.Insurance, now, s.deps.HoldDuration)
	if err := s.deps.Reservations.Create(ctx, reservation); err != nil {
		event.Seats.ReleaseAll(req.Seats, domain.SeatReserved)
		s.restoreSeats(ctx, event)
		return nil, fmt.Errorf("failed to save reservation: %w", err)
	}

	if m := s.deps.Metrics; m != nil {
		m.ReservationsCreated.Inc(ctx, telemetry.EventIDAttr(req.EventID))
		m.ActiveHolds.Add(ctx, 1, telemetry.EventIDAttr(req.EventID))
	}
	s.deps.Audit.Log(audit.NewEntry(audit.ActionReserve, event.ID, reservation.ID, req.UserID,
		event.Seats.SnapshotOf(req.Seats), now))

	created := events.New(events.ReservationCreated, event.ID, req.Seats, now).WithAmount(quote.Total)
	created.ReservationID = reservation.ID
	created.UserID = req.UserID
	out.add(created)

	s.log.WithContext(ctx).Info("Reservation created",
		logger.ReservationID(reservation.ID),
		logger.EventID(event.ID),
		logger.UserID(req.UserID),
		logger.Seats(req.Seats),
		zap.String("total", quote.Total.StringFixed(2)),
		zap.Time("expires_at", reservation.ExpiresAt),
	)
	return reservation, nil
}

// resolvePromo loads a promo code; unknown codes resolve to nil and fail pricing
func (s *reservationService) resolvePromo(ctx context.Context, code string) (*domain.PromoCode, error) {
	if code == "" {
		return nil, nil
	}
	promo, err := s.deps.Promos.GetByCode(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load promo code: %w", err)
	}
	return promo, nil
}

// CheckExpired reports whether the reservation deadline has passed
func (s *reservationService) CheckExpired(reservation *domain.Reservation) bool {
	return reservation.IsExpired(s.now())
}

// ReleaseExpired frees an expired hold. Missing or live reservations are left alone.
func (s *reservationService) ReleaseExpired(ctx context.Context, reservationID string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.release_expired")
	span.SetAttributes(attribute.String("reservation_id", reservationID))

	var out outbox
	released, err := s.releaseExpired(ctx, reservationID, &out)
	s.publish(ctx, out)
	telemetry.EndSpan(span, err)
	return released, err
}

func (s *reservationService) releaseExpired(ctx context.Context, reservationID string, out *outbox) (bool, error) {
	reservation, err := s.deps.Reservations.GetByID(ctx, reservationID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	unlock := s.deps.Locker.Lock(eventLockKey(reservation.EventID))
	defer unlock()

	// another caller may have confirmed or released it while we waited
	reservation, err = s.deps.Reservations.GetByID(ctx, reservationID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	now := s.now()
	if !reservation.IsExpired(now) {
		return false, nil
	}

	event, err := s.deps.Events.GetByID(ctx, reservation.EventID)
	if err != nil {
		return false, err
	}
	claimed, _, err := s.activeHolds(ctx, reservation.EventID, now)
	if err != nil {
		return false, err
	}
	if err := s.expireLocked(ctx, event, reservation, claimed, out); err != nil {
		return false, err
	}
	return true, nil
}

// expireLocked releases a lapsed hold; the caller holds the event lock
func (s *reservationService) expireLocked(ctx context.Context, event *domain.Event, r *domain.Reservation, claimed map[string]string, out *outbox) error {
	released, err := s.releaseHold(ctx, event, r, claimed)
	if err != nil {
		return err
	}
	s.holdEnded(ctx, event, r, true, out)
	s.log.WithContext(ctx).Info("Expired reservation released",
		logger.ReservationID(r.ID),
		logger.EventID(r.EventID),
		logger.Seats(released),
	)
	return nil
}

// ListExpired returns expired reservations for the sweeper
func (s *reservationService) ListExpired(ctx context.Context, limit int) ([]*domain.Reservation, error) {
	return s.deps.Reservations.ListExpired(ctx, s.now(), limit)
}

// SeatAvailability returns the ordered seat map of an event
func (s *reservationService) SeatAvailability(ctx context.Context, eventID string) ([]domain.SeatSnapshot, error) {
	event, err := s.deps.Events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	claimed, _, err := s.activeHolds(ctx, eventID, s.now())
	if err != nil {
		return nil, err
	}

	snapshot := event.Seats.Snapshot()
	for i, seat := range snapshot {
		if seat.State != domain.SeatReserved {
			continue
		}
		if _, held := claimed[seat.SeatID]; !held {
			snapshot[i].State = domain.SeatAvailable
		}
	}
	return snapshot, nil
}

// failureReason maps a reserve error to a low-cardinality metric label
func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidTicketRequest):
		return "invalid_tickets"
	case errors.Is(err, domain.ErrEventNotFound):
		return "event_not_found"
	case errors.Is(err, domain.ErrSeatCountMismatch):
		return "seat_count_mismatch"
	case errors.Is(err, domain.ErrSeatUnavailable):
		return "seat_unavailable"
	case errors.Is(err, domain.ErrInvalidPromoCode):
		return "invalid_promo_code"
	case errors.Is(err, domain.ErrInvalidMultiplier):
		return "invalid_multiplier"
	default:
		return "internal"
	}
}
