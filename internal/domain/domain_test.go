package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTickets(t *testing.T) {
	tests := []struct {
		name    string
		items   []TicketLineItem
		wantErr bool
	}{
		{name: "single vip", items: []TicketLineItem{{Category: TicketVIP, Quantity: 1}}},
		{name: "mixed", items: []TicketLineItem{{Category: TicketVIP, Quantity: 2}, {Category: TicketStandard, Quantity: 3}}},
		{name: "empty", items: nil, wantErr: true},
		{name: "zero quantity", items: []TicketLineItem{{Category: TicketVIP, Quantity: 0}}, wantErr: true},
		{name: "negative quantity", items: []TicketLineItem{{Category: TicketStandard, Quantity: -1}}, wantErr: true},
		{name: "unknown category", items: []TicketLineItem{{Category: "Balcony", Quantity: 1}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTickets(tt.items)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTicketRequest)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestTotalQuantity(t *testing.T) {
	items := []TicketLineItem{{Category: TicketVIP, Quantity: 2}, {Category: TicketStandard, Quantity: 3}}
	assert.Equal(t, 5, TotalQuantity(items))
	assert.Equal(t, 0, TotalQuantity(nil))
}

func TestPromoCode_RecordUsage(t *testing.T) {
	p := NewPromoCode("SAVE10", DiscountPercentage, decimal.NewFromInt(10), 2)
	assert.True(t, p.Active)

	require.NoError(t, p.RecordUsage())
	assert.True(t, p.Active)
	require.NoError(t, p.RecordUsage())
	assert.False(t, p.Active)
	assert.Equal(t, 2, p.UsageCount)

	assert.ErrorIs(t, p.RecordUsage(), ErrPromoCodeExhausted)
	assert.Equal(t, 2, p.UsageCount)
	assert.False(t, p.IsActive())
}

func TestPromoCode_RefreshRederivesActive(t *testing.T) {
	p := &PromoCode{Code: "X", TotalSupply: 1, UsageCount: 1, Active: true}
	assert.False(t, p.IsActive())
	p.Refresh()
	assert.False(t, p.Active)

	var nilPromo *PromoCode
	assert.False(t, nilPromo.IsActive())
}

func TestReservation_IsExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewReservation("evt", "user", []TicketLineItem{{Category: TicketVIP, Quantity: 1}}, []string{"A1"}, "", decimal.NewFromInt(10), false, now, time.Minute)

	assert.Equal(t, now.Add(time.Minute), r.ExpiresAt)
	assert.False(t, r.IsExpired(now))
	assert.False(t, r.IsExpired(now.Add(time.Minute)))
	assert.True(t, r.IsExpired(now.Add(time.Minute+time.Nanosecond)))
	assert.NotEmpty(t, r.ID)
}

func TestReservation_CloneIsDeep(t *testing.T) {
	r := NewReservation("evt", "user", []TicketLineItem{{Category: TicketVIP, Quantity: 1}}, []string{"A1"}, "", decimal.Zero, false, time.Now(), time.Minute)
	c := r.Clone()
	c.Seats[0] = "B1"
	c.Tickets[0].Quantity = 9

	assert.Equal(t, "A1", r.Seats[0])
	assert.Equal(t, 1, r.Tickets[0].Quantity)
}

func TestNewBookingFromReservation(t *testing.T) {
	now := time.Now()
	r := NewReservation("evt", "user", []TicketLineItem{{Category: TicketStandard, Quantity: 2}}, []string{"A1", "A2"}, "SAVE", decimal.RequireFromString("99.50"), true, now, time.Minute)

	b := NewBookingFromReservation(r, now.Add(time.Second))

	assert.NotEqual(t, r.ID, b.ID)
	assert.Equal(t, r.EventID, b.EventID)
	assert.Equal(t, r.Seats, b.Seats)
	assert.Equal(t, "SAVE", b.PromoCode)
	assert.True(t, b.TotalCost.Equal(r.TotalCost))
	assert.True(t, b.CancellationInsurance)
	assert.Equal(t, now.Add(time.Second), b.CreatedAt)
}

func TestPaymentStatus_IsValid(t *testing.T) {
	assert.True(t, PaymentSuccess.IsValid())
	assert.True(t, PaymentRejected.IsValid())
	assert.False(t, PaymentStatus("pending").IsValid())
}

func TestNotFoundHierarchy(t *testing.T) {
	for _, err := range []error{ErrEventNotFound, ErrSeatNotFound, ErrReservationNotFound, ErrBookingNotFound, ErrPromoCodeNotFound} {
		assert.True(t, errors.Is(err, ErrNotFound), err.Error())
	}
	assert.False(t, errors.Is(ErrSeatConflict, ErrNotFound))
}

func TestSeatUnavailableError(t *testing.T) {
	err := error(&SeatUnavailableError{Seats: []string{"A1", "B2"}})
	assert.ErrorIs(t, err, ErrSeatUnavailable)
	assert.Contains(t, err.Error(), "A1, B2")
}

func TestEvent_PriceForAndClone(t *testing.T) {
	e := &Event{ID: "evt", VIPPrice: decimal.NewFromInt(100), StandardPrice: decimal.NewFromInt(50), Seats: NewSeatMap("A1")}
	assert.True(t, e.PriceFor(TicketVIP).Equal(decimal.NewFromInt(100)))
	assert.True(t, e.PriceFor(TicketStandard).Equal(decimal.NewFromInt(50)))

	c := e.Clone()
	require.NoError(t, c.Seats.Transition("A1", SeatAvailable, SeatReserved))
	assert.Equal(t, SeatAvailable, e.Seats.Status("A1"))
}
