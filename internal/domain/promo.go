package domain

import (
	"github.com/shopspring/decimal"
)

// DiscountType is how a promo code reduces the price
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// IsValid returns true for known discount types
func (d DiscountType) IsValid() bool {
	return d == DiscountPercentage || d == DiscountFixed
}

// PromoCode is a limited-supply discount code
type PromoCode struct {
	Code          string          `json:"code"`
	DiscountType  DiscountType    `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	TotalSupply   int             `json:"total_supply"`
	UsageCount    int             `json:"usage_count"`
	Active        bool            `json:"active"`
}

// NewPromoCode creates an unused promo code
func NewPromoCode(code string, discountType DiscountType, value decimal.Decimal, supply int) *PromoCode {
	p := &PromoCode{
		Code:          code,
		DiscountType:  discountType,
		DiscountValue: value,
		TotalSupply:   supply,
	}
	p.Refresh()
	return p
}

// Refresh re-derives Active from usage and supply
func (p *PromoCode) Refresh() {
	p.Active = p.UsageCount < p.TotalSupply
}

// IsActive reports whether the code still has supply left
func (p *PromoCode) IsActive() bool {
	return p != nil && p.UsageCount < p.TotalSupply
}

// RecordUsage consumes one unit of supply
func (p *PromoCode) RecordUsage() error {
	if p.UsageCount >= p.TotalSupply {
		p.Refresh()
		return ErrPromoCodeExhausted
	}
	p.UsageCount++
	p.Refresh()
	return nil
}

// Clone returns a copy of the promo code
func (p *PromoCode) Clone() *PromoCode {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
