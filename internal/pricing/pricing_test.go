package pricing

import (
	"testing"

	"github.com/prohmpiriya/booking-rush-checkout/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func vip(n int) []domain.TicketLineItem {
	return []domain.TicketLineItem{{Category: domain.TicketVIP, Quantity: n}}
}

func TestEngine_Quote(t *testing.T) {
	percent10 := domain.NewPromoCode("SAVE10", domain.DiscountPercentage, dec("10"), 5)
	fixed1000 := domain.NewPromoCode("BIG", domain.DiscountFixed, dec("1000"), 5)
	fixed25 := domain.NewPromoCode("OFF25", domain.DiscountFixed, dec("25"), 5)

	tests := []struct {
		name      string
		in        Input
		wantTotal string
	}{
		{
			name:      "four vip with group discount",
			in:        Input{VIPPrice: dec("150.00"), StandardPrice: dec("50.00"), Tickets: vip(4)},
			wantTotal: "575.00",
		},
		{
			name:      "four vip with 10 percent promo",
			in:        Input{VIPPrice: dec("150.00"), StandardPrice: dec("50.00"), Tickets: vip(4), PromoCode: "SAVE10", Promo: percent10},
			wantTotal: "518.30",
		},
		{
			name: "mixed tickets below group threshold",
			in: Input{
				VIPPrice:      dec("150.00"),
				StandardPrice: dec("50.00"),
				Tickets: []domain.TicketLineItem{
					{Category: domain.TicketVIP, Quantity: 1},
					{Category: domain.TicketStandard, Quantity: 2},
				},
			},
			// 250 + 12.5 + 6
			wantTotal: "268.50",
		},
		{
			name:      "multiplier applied before group discount",
			in:        Input{VIPPrice: dec("100"), StandardPrice: dec("50"), Tickets: vip(1), Multiplier: decimal.NewNullDecimal(dec("1.5"))},
			wantTotal: "159.50",
		},
		{
			name:      "unset multiplier means no multiplier",
			in:        Input{VIPPrice: dec("100"), StandardPrice: dec("50"), Tickets: vip(1)},
			wantTotal: "107.00",
		},
		{
			name:      "zero multiplier zeroes the ticket price",
			in:        Input{VIPPrice: dec("100"), StandardPrice: dec("50"), Tickets: vip(1), Multiplier: decimal.NewNullDecimal(decimal.Zero)},
			wantTotal: "2.00",
		},
		{
			name:      "fixed promo floors at zero",
			in:        Input{VIPPrice: dec("100"), StandardPrice: dec("50"), Tickets: vip(1), PromoCode: "BIG", Promo: fixed1000},
			wantTotal: "2.00",
		},
		{
			name:      "fixed promo",
			in:        Input{VIPPrice: dec("100"), StandardPrice: dec("50"), Tickets: vip(1), PromoCode: "OFF25", Promo: fixed25},
			wantTotal: "80.75",
		},
		{
			name:      "insurance adds flat fee",
			in:        Input{VIPPrice: dec("100"), StandardPrice: dec("50"), Tickets: vip(1), Insurance: true},
			wantTotal: "127.00",
		},
		{
			name:      "total rounds half up",
			in:        Input{VIPPrice: dec("10.01"), StandardPrice: dec("0"), Tickets: vip(1), Multiplier: decimal.NewNullDecimal(dec("0.5"))},
			// 5.005 + 0.25025 + 2 = 7.25525
			wantTotal: "7.26",
		},
	}

	engine := NewEngine(DefaultPolicy())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := engine.Quote(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, q.Total.StringFixed(2))
		})
	}
}

func TestEngine_QuoteBreakdown(t *testing.T) {
	engine := NewEngine(DefaultPolicy())
	promo := domain.NewPromoCode("SAVE10", domain.DiscountPercentage, dec("10"), 5)

	q, err := engine.Quote(Input{VIPPrice: dec("150"), StandardPrice: dec("50"), Tickets: vip(4), PromoCode: "SAVE10", Promo: promo})
	require.NoError(t, err)

	assert.True(t, q.Base.Equal(dec("600")))
	assert.True(t, q.AfterMultiplier.Equal(dec("600")))
	assert.True(t, q.AfterGroupDiscount.Equal(dec("540")))
	assert.True(t, q.AfterPromo.Equal(dec("486")))
	assert.True(t, q.ServiceFee.Equal(dec("32.3")))
	assert.True(t, q.InsuranceFee.IsZero())
}

func TestEngine_QuoteErrors(t *testing.T) {
	engine := NewEngine(DefaultPolicy())
	exhausted := &domain.PromoCode{Code: "GONE", DiscountType: domain.DiscountFixed, DiscountValue: dec("5"), TotalSupply: 1, UsageCount: 1}

	tests := []struct {
		name    string
		in      Input
		wantErr error
	}{
		{
			name:    "unresolved promo code",
			in:      Input{VIPPrice: dec("10"), Tickets: vip(1), PromoCode: "NOPE"},
			wantErr: domain.ErrInvalidPromoCode,
		},
		{
			name:    "inactive promo code",
			in:      Input{VIPPrice: dec("10"), Tickets: vip(1), PromoCode: "GONE", Promo: exhausted},
			wantErr: domain.ErrInvalidPromoCode,
		},
		{
			name:    "negative multiplier",
			in:      Input{VIPPrice: dec("10"), Tickets: vip(1), Multiplier: decimal.NewNullDecimal(dec("-1"))},
			wantErr: domain.ErrInvalidMultiplier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Quote(tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEngine_QuoteMonotonicInMultiplier(t *testing.T) {
	engine := NewEngine(DefaultPolicy())
	promo := domain.NewPromoCode("OFF", domain.DiscountFixed, dec("30"), 100)

	for _, tickets := range []int{1, 3, 4, 8} {
		previous := decimal.Zero
		for m := 0; m <= 40; m++ {
			multiplier := decimal.NewFromInt(int64(m)).Div(decimal.NewFromInt(10))
			q, err := engine.Quote(Input{
				VIPPrice:   dec("33.33"),
				Tickets:    vip(tickets),
				Multiplier: decimal.NewNullDecimal(multiplier),
				PromoCode:  "OFF",
				Promo:      promo,
				Insurance:  true,
			})
			require.NoError(t, err)
			assert.True(t, q.Total.GreaterThanOrEqual(previous), "tickets=%d multiplier=%s", tickets, multiplier)
			previous = q.Total
		}
	}
}

func TestEngine_CancellationTerms(t *testing.T) {
	engine := NewEngine(DefaultPolicy())

	tests := []struct {
		name       string
		total      string
		insured    bool
		wantRefund string
		wantFee    string
	}{
		{name: "insured", total: "100.00", insured: true, wantRefund: "100.00", wantFee: "0.00"},
		{name: "uninsured", total: "100.00", wantRefund: "85.00", wantFee: "15.00"},
		{name: "fee rounded to cents", total: "518.30", wantRefund: "440.55", wantFee: "77.75"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refund, fee := engine.CancellationTerms(dec(tt.total), tt.insured)
			assert.Equal(t, tt.wantRefund, refund.StringFixed(2))
			assert.Equal(t, tt.wantFee, fee.StringFixed(2))
			assert.True(t, refund.Add(fee).Equal(dec(tt.total)))
		})
	}
}
