package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prohmpiriya/booking-rush-checkout/internal/domain"
)

// MemoryEventRepository is an in-memory implementation of EventRepository
type MemoryEventRepository struct {
	mu     sync.RWMutex
	events map[string]*domain.Event
}

// NewMemoryEventRepository creates a new in-memory event repository
func NewMemoryEventRepository() *MemoryEventRepository {
	return &MemoryEventRepository{events: make(map[string]*domain.Event)}
}

// Create stores a new event
func (r *MemoryEventRepository) Create(ctx context.Context, event *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.events[event.ID]; exists {
		return domain.ErrAlreadyExists
	}
	r.events[event.ID] = event.Clone()
	return nil
}

// GetByID returns a copy of an event
func (r *MemoryEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, exists := r.events[id]
	if !exists {
		return nil, domain.ErrEventNotFound
	}
	return event.Clone(), nil
}

// SaveSeats replaces the seat map of an event
func (r *MemoryEventRepository) SaveSeats(ctx context.Context, eventID string, seats map[string]domain.SeatState) error {
	seatMap, err := domain.SeatMapFromStates(seats)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	event, exists := r.events[eventID]
	if !exists {
		return domain.ErrEventNotFound
	}
	event.Seats = seatMap
	return nil
}

// MemoryPromoCodeRepository is an in-memory implementation of PromoCodeRepository
type MemoryPromoCodeRepository struct {
	mu     sync.RWMutex
	promos map[string]*domain.PromoCode
}

// NewMemoryPromoCodeRepository creates a new in-memory promo code repository
func NewMemoryPromoCodeRepository() *MemoryPromoCodeRepository {
	return &MemoryPromoCodeRepository{promos: make(map[string]*domain.PromoCode)}
}

// Create stores a new promo code
func (r *MemoryPromoCodeRepository) Create(ctx context.Context, promo *domain.PromoCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.promos[promo.Code]; exists {
		return domain.ErrAlreadyExists
	}
	copied := promo.Clone()
	copied.Refresh()
	r.promos[promo.Code] = copied
	return nil
}

// GetByCode returns a copy of a promo code
func (r *MemoryPromoCodeRepository) GetByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	promo, exists := r.promos[code]
	if !exists {
		return nil, domain.ErrPromoCodeNotFound
	}
	return promo.Clone(), nil
}

// IncrementUsage consumes one unit of supply
func (r *MemoryPromoCodeRepository) IncrementUsage(ctx context.Context, code string) (*domain.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	promo, exists := r.promos[code]
	if !exists {
		return nil, domain.ErrPromoCodeNotFound
	}
	if err := promo.RecordUsage(); err != nil {
		return promo.Clone(), err
	}
	return promo.Clone(), nil
}

// MemoryReservationRepository is an in-memory implementation of ReservationRepository
type MemoryReservationRepository struct {
	mu           sync.RWMutex
	reservations map[string]*domain.Reservation
}

// NewMemoryReservationRepository creates a new in-memory reservation repository
func NewMemoryReservationRepository() *MemoryReservationRepository {
	return &MemoryReservationRepository{reservations: make(map[string]*domain.Reservation)}
}

// Create stores a new reservation
func (r *MemoryReservationRepository) Create(ctx context.Context, reservation *domain.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reservations[reservation.ID]; exists {
		return domain.ErrAlreadyExists
	}
	r.reservations[reservation.ID] = reservation.Clone()
	return nil
}

// GetByID returns a copy of a reservation
func (r *MemoryReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reservation, exists := r.reservations[id]
	if !exists {
		return nil, domain.ErrReservationNotFound
	}
	return reservation.Clone(), nil
}

// Delete removes a reservation
func (r *MemoryReservationRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reservations[id]; !exists {
		return domain.ErrReservationNotFound
	}
	delete(r.reservations, id)
	return nil
}

// ListByEvent returns the reservations of an event, oldest first
func (r *MemoryReservationRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.Reservation, error) {
	r.mu.RLock()
	result := make([]*domain.Reservation, 0)
	for _, reservation := range r.reservations {
		if reservation.EventID == eventID {
			result = append(result, reservation.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// ListExpired returns reservations past their deadline, earliest deadline first
func (r *MemoryReservationRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Reservation, error) {
	r.mu.RLock()
	result := make([]*domain.Reservation, 0)
	for _, reservation := range r.reservations {
		if reservation.IsExpired(now) {
			result = append(result, reservation.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].ExpiresAt.Equal(result[j].ExpiresAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].ExpiresAt.Before(result[j].ExpiresAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Count returns the number of stored reservations (for testing)
func (r *MemoryReservationRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.reservations)
}

// MemoryBookingRepository is an in-memory implementation of BookingRepository
type MemoryBookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*domain.Booking
}

// NewMemoryBookingRepository creates a new in-memory booking repository
func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{bookings: make(map[string]*domain.Booking)}
}

// Create stores a new booking
func (r *MemoryBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bookings[booking.ID]; exists {
		return domain.ErrAlreadyExists
	}
	r.bookings[booking.ID] = booking.Clone()
	return nil
}

// GetByID returns a copy of a booking
func (r *MemoryBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	booking, exists := r.bookings[id]
	if !exists {
		return nil, domain.ErrBookingNotFound
	}
	return booking.Clone(), nil
}

// Delete removes a booking
func (r *MemoryBookingRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bookings[id]; !exists {
		return domain.ErrBookingNotFound
	}
	delete(r.bookings, id)
	return nil
}

// List returns every booking ordered by creation time
func (r *MemoryBookingRepository) List(ctx context.Context) ([]*domain.Booking, error) {
	r.mu.RLock()
	result := make([]*domain.Booking, 0, len(r.bookings))
	for _, booking := range r.bookings {
		result = append(result, booking.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}
