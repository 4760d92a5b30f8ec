package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reservation is a time-bounded hold on a set of seats
type Reservation struct {
	ID                    string           `json:"id"`
	EventID               string           `json:"event_id"`
	UserID                string           `json:"user_id"`
	Tickets               []TicketLineItem `json:"tickets"`
	Seats                 []string         `json:"seats"`
	PromoCode             string           `json:"promo_code,omitempty"`
	TotalCost             decimal.Decimal  `json:"total_cost"`
	CancellationInsurance bool             `json:"cancellation_insurance"`
	CreatedAt             time.Time        `json:"created_at"`
	ExpiresAt             time.Time        `json:"expires_at"`
}

// NewReservation creates a hold that expires holdDuration after now
func NewReservation(eventID, userID string, tickets []TicketLineItem, seats []string, promoCode string, total decimal.Decimal, insurance bool, now time.Time, holdDuration time.Duration) *Reservation {
	return &Reservation{
		ID:                    uuid.New().String(),
		EventID:               eventID,
		UserID:                userID,
		Tickets:               cloneTickets(tickets),
		Seats:                 append([]string(nil), seats...),
		PromoCode:             promoCode,
		TotalCost:             total,
		CancellationInsurance: insurance,
		CreatedAt:             now,
		ExpiresAt:             now.Add(holdDuration),
	}
}

// IsExpired returns true once now is past the hold deadline
func (r *Reservation) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Clone returns a deep copy
func (r *Reservation) Clone() *Reservation {
	if r == nil {
		return nil
	}
	c := *r
	c.Tickets = cloneTickets(r.Tickets)
	c.Seats = append([]string(nil), r.Seats...)
	return &c
}
