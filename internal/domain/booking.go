package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the outcome reported by the payment collaborator
type PaymentStatus string

const (
	PaymentSuccess  PaymentStatus = "success"
	PaymentRejected PaymentStatus = "rejected"
)

// IsValid returns true for success and rejected
func (s PaymentStatus) IsValid() bool {
	return s == PaymentSuccess || s == PaymentRejected
}

// Booking is a confirmed purchase of seats
type Booking struct {
	ID                    string           `json:"id"`
	EventID               string           `json:"event_id"`
	UserID                string           `json:"user_id"`
	Tickets               []TicketLineItem `json:"tickets"`
	Seats                 []string         `json:"seats"`
	PromoCode             string           `json:"promo_code,omitempty"`
	TotalCost             decimal.Decimal  `json:"total_cost"`
	CancellationInsurance bool             `json:"cancellation_insurance"`
	CreatedAt             time.Time        `json:"created_at"`
}

// NewBookingFromReservation converts a hold into a booking created at now
func NewBookingFromReservation(r *Reservation, now time.Time) *Booking {
	return &Booking{
		ID:                    uuid.New().String(),
		EventID:               r.EventID,
		UserID:                r.UserID,
		Tickets:               cloneTickets(r.Tickets),
		Seats:                 append([]string(nil), r.Seats...),
		PromoCode:             r.PromoCode,
		TotalCost:             r.TotalCost,
		CancellationInsurance: r.CancellationInsurance,
		CreatedAt:             now,
	}
}

// Clone returns a deep copy
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	c := *b
	c.Tickets = cloneTickets(b.Tickets)
	c.Seats = append([]string(nil), b.Seats...)
	return &c
}

// ConfirmStatus is the result of a confirm call that did not fail
type ConfirmStatus string

const (
	ConfirmBooked   ConfirmStatus = "booked"
	ConfirmReleased ConfirmStatus = "released"
)

// ConfirmOutcome describes what happened to a reservation on confirm
type ConfirmOutcome struct {
	Status        ConfirmStatus `json:"status"`
	ReservationID string        `json:"reservation_id"`
	Booking       *Booking      `json:"booking,omitempty"`
}

// CancellationResult is the refund breakdown of a cancelled booking
type CancellationResult struct {
	BookingID       string          `json:"booking_id"`
	RefundAmount    decimal.Decimal `json:"refund_amount"`
	CancellationFee decimal.Decimal `json:"cancellation_fee"`
}
