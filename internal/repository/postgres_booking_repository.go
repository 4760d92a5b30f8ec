package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/booking-rush-checkout/internal/domain"
	"github.com/shopspring/decimal"
)

const bookingColumns = `
	id::text, event_id, user_id, tickets, seats, COALESCE(promo_code, ''),
	total_cost::text, cancellation_insurance, created_at`

// PostgresBookingRepository implements BookingRepository using PostgreSQL
type PostgresBookingRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresBookingRepository creates a new PostgresBookingRepository
func NewPostgresBookingRepository(pool *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{pool: pool}
}

// Create stores a new booking
func (r *PostgresBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	ticketsJSON, seatsJSON, err := marshalLineItems(booking.Tickets, booking.Seats)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO bookings (
			id, event_id, user_id, tickets, seats, promo_code,
			total_cost, cancellation_insurance, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.pool.Exec(ctx, query,
		booking.ID,
		booking.EventID,
		booking.UserID,
		ticketsJSON,
		seatsJSON,
		nullString(booking.PromoCode),
		booking.TotalCost.String(),
		booking.CancellationInsurance,
		booking.CreatedAt,
	)
	if err != nil {
		return translateWriteError(err, "booking")
	}
	return nil
}

// GetByID retrieves a booking by ID
func (r *PostgresBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrBookingNotFound
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	booking, err := scanBooking(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// Delete removes a booking
func (r *PostgresBookingRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrBookingNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

// List returns every booking ordered by creation time
func (r *PostgresBookingRepository) List(ctx context.Context) ([]*domain.Booking, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		result = append(result, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return result, nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		booking     domain.Booking
		ticketsJSON []byte
		seatsJSON   []byte
		total       string
	)
	err := row.Scan(
		&booking.ID,
		&booking.EventID,
		&booking.UserID,
		&ticketsJSON,
		&seatsJSON,
		&booking.PromoCode,
		&total,
		&booking.CancellationInsurance,
		&booking.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalLineItems(ticketsJSON, seatsJSON, &booking.Tickets, &booking.Seats); err != nil {
		return nil, err
	}
	if booking.TotalCost, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("failed to parse total cost: %w", err)
	}
	return &booking, nil
}
