package repository

import (
	"context"
	"time"

	"github.com/prohmpiriya/booking-rush-checkout/internal/domain"
)

// EventRepository stores events and their seat maps
type EventRepository interface {
	// Create stores a new event
	Create(ctx context.Context, event *domain.Event) error
	// GetByID returns an independent copy of an event, or domain.ErrEventNotFound
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	// SaveSeats replaces the stored seat map of an event
	SaveSeats(ctx context.Context, eventID string, seats map[string]domain.SeatState) error
}

// PromoCodeRepository stores promo codes and their usage counters
type PromoCodeRepository interface {
	// Create stores a new promo code
	Create(ctx context.Context, promo *domain.PromoCode) error
	// GetByCode returns a promo code, or domain.ErrPromoCodeNotFound
	GetByCode(ctx context.Context, code string) (*domain.PromoCode, error)
	// IncrementUsage atomically consumes one unit of supply.
	// Returns domain.ErrPromoCodeExhausted without changing the counter when none is left.
	IncrementUsage(ctx context.Context, code string) (*domain.PromoCode, error)
}

// ReservationRepository stores active holds
type ReservationRepository interface {
	// Create stores a new reservation
	Create(ctx context.Context, reservation *domain.Reservation) error
	// GetByID returns a reservation, or domain.ErrReservationNotFound
	GetByID(ctx context.Context, id string) (*domain.Reservation, error)
	// Delete removes a reservation; deleting a missing one returns domain.ErrReservationNotFound
	Delete(ctx context.Context, id string) error
	// ListByEvent returns every stored reservation of an event, oldest first
	ListByEvent(ctx context.Context, eventID string) ([]*domain.Reservation, error)
	// ListExpired returns reservations whose deadline is before now, earliest deadline first
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Reservation, error)
}

// BookingRepository stores confirmed bookings
type BookingRepository interface {
	// Create stores a new booking
	Create(ctx context.Context, booking *domain.Booking) error
	// GetByID returns a booking, or domain.ErrBookingNotFound
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	// Delete removes a booking; deleting a missing one returns domain.ErrBookingNotFound
	Delete(ctx context.Context, id string) error
	// List returns every booking ordered by creation time
	List(ctx context.Context) ([]*domain.Booking, error)
}
