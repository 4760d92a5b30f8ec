package pricing

import (
	"fmt"

	"github.com/prohmpiriya/booking-rush-checkout/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Policy holds the pricing constants
type Policy struct {
	GroupThreshold      int
	GroupDiscountRate   decimal.Decimal
	ServiceFeeRate      decimal.Decimal
	PerTicketFee        decimal.Decimal
	InsuranceFee        decimal.Decimal
	CancellationFeeRate decimal.Decimal
}

// DefaultPolicy returns the standard pricing policy
func DefaultPolicy() Policy {
	return Policy{
		GroupThreshold:      4,
		GroupDiscountRate:   decimal.RequireFromString("0.90"),
		ServiceFeeRate:      decimal.RequireFromString("0.05"),
		PerTicketFee:        decimal.NewFromInt(2),
		InsuranceFee:        decimal.NewFromInt(20),
		CancellationFeeRate: decimal.RequireFromString("0.15"),
	}
}

// Input is everything needed to price a hold
type Input struct {
	VIPPrice      decimal.Decimal
	StandardPrice decimal.Decimal
	Tickets       []domain.TicketLineItem
	// Multiplier defaults to 1 when not set
	Multiplier decimal.NullDecimal
	// PromoCode is the code the caller asked for; Promo is what it resolved to
	PromoCode string
	Promo     *domain.PromoCode
	Insurance bool
}

// Quote is the price of a hold with every intermediate stage
type Quote struct {
	Base               decimal.Decimal `json:"base"`
	AfterMultiplier    decimal.Decimal `json:"after_multiplier"`
	AfterGroupDiscount decimal.Decimal `json:"after_group_discount"`
	AfterPromo         decimal.Decimal `json:"after_promo"`
	ServiceFee         decimal.Decimal `json:"service_fee"`
	InsuranceFee       decimal.Decimal `json:"insurance_fee"`
	Total              decimal.Decimal `json:"total"`
}

// Engine computes prices. It holds no mutable state.
type Engine struct {
	policy Policy
}

// NewEngine creates an engine for the given policy
func NewEngine(policy Policy) *Engine {
	return &Engine{policy: policy}
}

// Policy returns the policy in use
func (e *Engine) Policy() Policy {
	return e.policy
}

// Quote prices a hold. Intermediate stages keep full precision; only Total is rounded to cents.
func (e *Engine) Quote(in Input) (*Quote, error) {
	multiplier := decimal.NewFromInt(1)
	if in.Multiplier.Valid {
		if in.Multiplier.Decimal.IsNegative() {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidMultiplier, in.Multiplier.Decimal)
		}
		multiplier = in.Multiplier.Decimal
	}

	if in.PromoCode != "" && !in.Promo.IsActive() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidPromoCode, in.PromoCode)
	}
	if in.Promo != nil && !in.Promo.IsActive() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidPromoCode, in.Promo.Code)
	}

	q := &Quote{}
	totalTickets := 0
	base := decimal.Zero
	for _, item := range in.Tickets {
		price := in.StandardPrice
		if item.Category == domain.TicketVIP {
			price = in.VIPPrice
		}
		base = base.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		totalTickets += item.Quantity
	}
	q.Base = base

	base = base.Mul(multiplier)
	q.AfterMultiplier = base

	if totalTickets >= e.policy.GroupThreshold {
		base = base.Mul(e.policy.GroupDiscountRate)
	}
	q.AfterGroupDiscount = base

	if in.Promo != nil {
		base = applyPromo(base, in.Promo)
	}
	q.AfterPromo = base

	q.ServiceFee = e.policy.ServiceFeeRate.Mul(base).
		Add(e.policy.PerTicketFee.Mul(decimal.NewFromInt(int64(totalTickets))))

	q.InsuranceFee = decimal.Zero
	if in.Insurance {
		q.InsuranceFee = e.policy.InsuranceFee
	}

	q.Total = base.Add(q.ServiceFee).Add(q.InsuranceFee).Round(2)
	return q, nil
}

// applyPromo never takes the price below zero
func applyPromo(base decimal.Decimal, promo *domain.PromoCode) decimal.Decimal {
	reduced := base
	switch promo.DiscountType {
	case domain.DiscountPercentage:
		reduced = base.Mul(hundred.Sub(promo.DiscountValue)).Div(hundred)
	case domain.DiscountFixed:
		reduced = base.Sub(promo.DiscountValue)
	}
	if reduced.IsNegative() {
		return decimal.Zero
	}
	return reduced
}

// CancellationTerms splits a booking total into refund and fee
func (e *Engine) CancellationTerms(total decimal.Decimal, insured bool) (refund, fee decimal.Decimal) {
	if insured {
		return total, decimal.Zero
	}
	fee = total.Mul(e.policy.CancellationFeeRate).Round(2)
	return total.Sub(fee), fee
}
