package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/booking-rush-checkout/internal/domain"
	"github.com/shopspring/decimal"
)

const reservationColumns = `
	id::text, event_id, user_id, tickets, seats, COALESCE(promo_code, ''),
	total_cost::text, cancellation_insurance, created_at, expires_at`

// PostgresReservationRepository implements ReservationRepository using PostgreSQL
type PostgresReservationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresReservationRepository creates a new PostgresReservationRepository
func NewPostgresReservationRepository(pool *pgxpool.Pool) *PostgresReservationRepository {
	return &PostgresReservationRepository{pool: pool}
}

// Create stores a new reservation
func (r *PostgresReservationRepository) Create(ctx context.Context, reservation *domain.Reservation) error {
	ticketsJSON, seatsJSON, err := marshalLineItems(reservation.Tickets, reservation.Seats)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO reservations (
			id, event_id, user_id, tickets, seats, promo_code,
			total_cost, cancellation_insurance, created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.pool.Exec(ctx, query,
		reservation.ID,
		reservation.EventID,
		reservation.UserID,
		ticketsJSON,
		seatsJSON,
		nullString(reservation.PromoCode),
		reservation.TotalCost.String(),
		reservation.CancellationInsurance,
		reservation.CreatedAt,
		reservation.ExpiresAt,
	)
	if err != nil {
		return translateWriteError(err, "reservation")
	}
	return nil
}

// GetByID retrieves a reservation by ID. IDs are UUIDs; anything else cannot exist.
func (r *PostgresReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrReservationNotFound
	}
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	reservation, err := scanReservation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return reservation, nil
}

// Delete removes a reservation
func (r *PostgresReservationRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrReservationNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

// ListByEvent returns the reservations of an event, oldest first
func (r *PostgresReservationRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE event_id = $1 ORDER BY created_at, id`
	return r.query(ctx, query, eventID)
}

// ListExpired returns reservations past their deadline, earliest deadline first
func (r *PostgresReservationRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Reservation, error) {
	if limit <= 0 {
		query := `SELECT ` + reservationColumns + ` FROM reservations WHERE expires_at < $1 ORDER BY expires_at, id`
		return r.query(ctx, query, now)
	}
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE expires_at < $1 ORDER BY expires_at, id LIMIT $2`
	return r.query(ctx, query, now, limit)
}

func (r *PostgresReservationRepository) query(ctx context.Context, query string, args ...interface{}) ([]*domain.Reservation, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.Reservation, 0)
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		result = append(result, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reservations: %w", err)
	}
	return result, nil
}

func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	var (
		reservation domain.Reservation
		ticketsJSON []byte
		seatsJSON   []byte
		total       string
	)
	err := row.Scan(
		&reservation.ID,
		&reservation.EventID,
		&reservation.UserID,
		&ticketsJSON,
		&seatsJSON,
		&reservation.PromoCode,
		&total,
		&reservation.CancellationInsurance,
		&reservation.CreatedAt,
		&reservation.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalLineItems(ticketsJSON, seatsJSON, &reservation.Tickets, &reservation.Seats); err != nil {
		return nil, err
	}
	if reservation.TotalCost, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("failed to parse total cost: %w", err)
	}
	return &reservation, nil
}

func marshalLineItems(tickets []domain.TicketLineItem, seats []string) ([]byte, []byte, error) {
	ticketsJSON, err := json.Marshal(tickets)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal tickets: %w", err)
	}
	seatsJSON, err := json.Marshal(seats)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal seats: %w", err)
	}
	return ticketsJSON, seatsJSON, nil
}

func unmarshalLineItems(ticketsJSON, seatsJSON []byte, tickets *[]domain.TicketLineItem, seats *[]string) error {
	if err := json.Unmarshal(ticketsJSON, tickets); err != nil {
		return fmt.Errorf("failed to unmarshal tickets: %w", err)
	}
	if err := json.Unmarshal(seatsJSON, seats); err != nil {
		return fmt.Errorf("failed to unmarshal seats: %w", err)
	}
	return nil
}
