package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/booking-rush-checkout/internal/domain"
	"github.com/shopspring/decimal"
)

const promoColumns = `code, discount_type, discount_value::text, total_supply, usage_count`

// PostgresPromoCodeRepository implements PromoCodeRepository using PostgreSQL
type PostgresPromoCodeRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresPromoCodeRepository creates a new PostgresPromoCodeRepository
func NewPostgresPromoCodeRepository(pool *pgxpool.Pool) *PostgresPromoCodeRepository {
	return &PostgresPromoCodeRepository{pool: pool}
}

// Create stores a new promo code
func (r *PostgresPromoCodeRepository) Create(ctx context.Context, promo *domain.PromoCode) error {
	query := `
		INSERT INTO promo_codes (code, discount_type, discount_value, total_supply, usage_count, active)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		promo.Code,
		string(promo.DiscountType),
		promo.DiscountValue.String(),
		promo.TotalSupply,
		promo.UsageCount,
		promo.UsageCount < promo.TotalSupply,
	)
	if err != nil {
		return translateWriteError(err, "promo code")
	}
	return nil
}

// GetByCode retrieves a promo code
func (r *PostgresPromoCodeRepository) GetByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	query := `SELECT ` + promoColumns + ` FROM promo_codes WHERE code = $1`
	promo, err := scanPromo(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPromoCodeNotFound
		}
		return nil, fmt.Errorf("failed to get promo code: %w", err)
	}
	return promo, nil
}

// IncrementUsage consumes one unit of supply with a conditional update
func (r *PostgresPromoCodeRepository) IncrementUsage(ctx context.Context, code string) (*domain.PromoCode, error) {
	query := `
		UPDATE promo_codes
		SET usage_count = usage_count + 1,
		    active = (usage_count + 1) < total_supply
		WHERE code = $1 AND usage_count < total_supply
		RETURNING ` + promoColumns
	promo, err := scanPromo(r.pool.QueryRow(ctx, query, code))
	if err == nil {
		return promo, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to increment promo usage: %w", err)
	}

	// No row updated: either the code is unknown or its supply is gone
	current, getErr := r.GetByCode(ctx, code)
	if getErr != nil {
		return nil, getErr
	}
	return current, domain.ErrPromoCodeExhausted
}

func scanPromo(row pgx.Row) (*domain.PromoCode, error) {
	var (
		promo        domain.PromoCode
		discountType string
		value        string
	)
	if err := row.Scan(&promo.Code, &discountType, &value, &promo.TotalSupply, &promo.UsageCount); err != nil {
		return nil, err
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("failed to parse discount value: %w", err)
	}
	promo.DiscountType = domain.DiscountType(discountType)
	promo.DiscountValue = parsed
	promo.Refresh()
	return &promo, nil
}
