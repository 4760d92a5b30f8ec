package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/prohmpiriya/booking-rush-checkout/internal/domain"
	"github.com/prohmpiriya/booking-rush-checkout/pkg/redis"
	"github.com/shopspring/decimal"
)

const (
	promoKeyPrefix        = "promo:"
	createPromoScriptName = "create_promo"
	incrementScriptName   = "increment_promo_usage"
)

const createPromoScript = `
local key = KEYS[1]
if redis.call("EXISTS", key) == 1 then
    return {0, "ALREADY_EXISTS"}
end
redis.call("HSET", key,
    "discount_type", ARGV[1],
    "discount_value", ARGV[2],
    "total_supply", ARGV[3],
    "usage_count", ARGV[4]
)
return {1, "OK"}
`

// Increment-and-check runs as one script so usage never passes supply
const incrementPromoScript = `
local key = KEYS[1]
if redis.call("EXISTS", key) == 0 then
    return {0, "NOT_FOUND"}
end
local usage = tonumber(redis.call("HGET", key, "usage_count")) or 0
local supply = tonumber(redis.call("HGET", key, "total_supply")) or 0
if usage >= supply then
    return {0, "EXHAUSTED"}
end
local updated = redis.call("HINCRBY", key, "usage_count", 1)
return {1, updated}
`

// RedisPromoCodeRepository implements PromoCodeRepository with one Redis hash per code
type RedisPromoCodeRepository struct {
	client *redis.Client
}

// NewRedisPromoCodeRepository loads the promo scripts and returns the repository
func NewRedisPromoCodeRepository(ctx context.Context, client *redis.Client) (*RedisPromoCodeRepository, error) {
	if _, err := client.LoadScript(ctx, createPromoScriptName, createPromoScript); err != nil {
		return nil, err
	}
	if _, err := client.LoadScript(ctx, incrementScriptName, incrementPromoScript); err != nil {
		return nil, err
	}
	return &RedisPromoCodeRepository{client: client}, nil
}

func promoKey(code string) string {
	return promoKeyPrefix + code
}

// Create stores a new promo code
func (r *RedisPromoCodeRepository) Create(ctx context.Context, promo *domain.PromoCode) error {
	result, err := r.client.EvalShaByName(ctx, createPromoScriptName,
		[]string{promoKey(promo.Code)},
		string(promo.DiscountType),
		promo.DiscountValue.String(),
		promo.TotalSupply,
		promo.UsageCount,
	)
	if err != nil {
		return fmt.Errorf("failed to create promo code: %w", err)
	}
	if ok, _ := result[0].(int64); ok != 1 {
		return fmt.Errorf("promo code %w", domain.ErrAlreadyExists)
	}
	return nil
}

// GetByCode retrieves a promo code
func (r *RedisPromoCodeRepository) GetByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	fields, err := r.client.HGetAll(ctx, promoKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrPromoCodeNotFound
		}
		return nil, fmt.Errorf("failed to get promo code: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrPromoCodeNotFound
	}
	return parsePromoHash(code, fields)
}

// IncrementUsage consumes one unit of supply
func (r *RedisPromoCodeRepository) IncrementUsage(ctx context.Context, code string) (*domain.PromoCode, error) {
	result, err := r.client.EvalShaByName(ctx, incrementScriptName, []string{promoKey(code)})
	if err != nil {
		return nil, fmt.Errorf("failed to increment promo usage: %w", err)
	}

	if ok, _ := result[0].(int64); ok != 1 {
		reason, _ := result[1].(string)
		if reason == "NOT_FOUND" {
			return nil, domain.ErrPromoCodeNotFound
		}
		current, getErr := r.GetByCode(ctx, code)
		if getErr != nil {
			return nil, getErr
		}
		return current, domain.ErrPromoCodeExhausted
	}
	return r.GetByCode(ctx, code)
}

func parsePromoHash(code string, fields map[string]string) (*domain.PromoCode, error) {
	value, err := decimal.NewFromString(fields["discount_value"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse discount value: %w", err)
	}
	supply, err := strconv.Atoi(fields["total_supply"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse total supply: %w", err)
	}
	usage, err := strconv.Atoi(fields["usage_count"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse usage count: %w", err)
	}

	promo := &domain.PromoCode{
		Code:          code,
		DiscountType:  domain.DiscountType(fields["discount_type"]),
		DiscountValue: value,
		TotalSupply:   supply,
		UsageCount:    usage,
	}
	promo.Refresh()
	return promo, nil
}
