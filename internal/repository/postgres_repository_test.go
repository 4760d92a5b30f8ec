package repository

import (
	"context"
	"testing"

	"github.com/prohmpiriya/booking-rush-checkout/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestPostgresRepositories_MalformedIDIsNotFound(t *testing.T) {
	ctx := context.Background()
	// No pool: malformed ids must be rejected before any query runs.
	reservations := NewPostgresReservationRepository(nil)
	bookings := NewPostgresBookingRepository(nil)

	for _, id := range []string{"abc", "", "123", "not-a-uuid-at-all"} {
		t.Run("id="+id, func(t *testing.T) {
			_, err := reservations.GetByID(ctx, id)
			assert.ErrorIs(t, err, domain.ErrReservationNotFound)
			assert.ErrorIs(t, err, domain.ErrNotFound)
			assert.ErrorIs(t, reservations.Delete(ctx, id), domain.ErrReservationNotFound)

			_, err = bookings.GetByID(ctx, id)
			assert.ErrorIs(t, err, domain.ErrBookingNotFound)
			assert.ErrorIs(t, bookings.Delete(ctx, id), domain.ErrBookingNotFound)
		})
	}
}
