package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/booking-rush-checkout/internal/domain"
	"github.com/shopspring/decimal"
)

// uniqueViolation is the PostgreSQL SQLSTATE for duplicate keys
const uniqueViolation = "23505"

// PostgresEventRepository implements EventRepository using PostgreSQL
type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventRepository creates a new PostgresEventRepository
func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

// Create stores a new event with its seat map
func (r *PostgresEventRepository) Create(ctx context.Context, event *domain.Event) error {
	seats := event.Seats
	if seats == nil {
		seats = domain.NewSeatMap()
	}
	seatsJSON, err := json.Marshal(seats)
	if err != nil {
		return fmt.Errorf("failed to marshal seats: %w", err)
	}

	query := `
		INSERT INTO events (id, name, date, vip_price, standard_price, seats)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.pool.Exec(ctx, query,
		event.ID,
		event.Name,
		event.Date,
		event.VIPPrice.String(),
		event.StandardPrice.String(),
		seatsJSON,
	)
	if err != nil {
		return translateWriteError(err, "event")
	}
	return nil
}

// GetByID retrieves an event by ID
func (r *PostgresEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `
		SELECT id, name, date, vip_price::text, standard_price::text, seats
		FROM events
		WHERE id = $1
	`
	var (
		event         domain.Event
		vipPrice      string
		standardPrice string
		seatsJSON     []byte
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&event.ID,
		&event.Name,
		&event.Date,
		&vipPrice,
		&standardPrice,
		&seatsJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	if event.VIPPrice, err = decimal.NewFromString(vipPrice); err != nil {
		return nil, fmt.Errorf("failed to parse vip price: %w", err)
	}
	if event.StandardPrice, err = decimal.NewFromString(standardPrice); err != nil {
		return nil, fmt.Errorf("failed to parse standard price: %w", err)
	}

	event.Seats = domain.NewSeatMap()
	if err := json.Unmarshal(seatsJSON, event.Seats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal seats: %w", err)
	}
	return &event, nil
}

// SaveSeats replaces the stored seat map of an event
func (r *PostgresEventRepository) SaveSeats(ctx context.Context, eventID string, seats map[string]domain.SeatState) error {
	seatsJSON, err := json.Marshal(seats)
	if err != nil {
		return fmt.Errorf("failed to marshal seats: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `UPDATE events SET seats = $2 WHERE id = $1`, eventID, seatsJSON)
	if err != nil {
		return fmt.Errorf("failed to save seats: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func translateWriteError(err error, resource string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s %w", resource, domain.ErrAlreadyExists)
	}
	return fmt.Errorf("failed to create %s: %w", resource, err)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
