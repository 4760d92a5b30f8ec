package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is the parent of every "does not exist" failure
	ErrNotFound = errors.New("not found")

	ErrEventNotFound       = fmt.Errorf("event %w", ErrNotFound)
	ErrSeatNotFound        = fmt.Errorf("seat %w", ErrNotFound)
	ErrReservationNotFound = fmt.Errorf("reservation %w", ErrNotFound)
	ErrBookingNotFound     = fmt.Errorf("booking %w", ErrNotFound)
	ErrPromoCodeNotFound   = fmt.Errorf("promo code %w", ErrNotFound)

	// ErrSeatConflict is returned when a seat is not in the expected state
	ErrSeatConflict = errors.New("seat state conflict")
	// ErrInvalidSeatTransition is returned for a (from, to) pair outside the transition table
	ErrInvalidSeatTransition = errors.New("invalid seat transition")
	// ErrSeatCountMismatch is returned when the seat list does not match the ticket quantity
	ErrSeatCountMismatch = errors.New("number of seats does not match number of tickets")
	// ErrSeatUnavailable is returned when requested seats are booked, held or unknown
	ErrSeatUnavailable = errors.New("seats are not available")
	// ErrInvalidPromoCode is returned when a promo code is unknown or inactive
	ErrInvalidPromoCode = errors.New("invalid or inactive promo code")
	// ErrPromoCodeExhausted is returned when a promo code has no remaining supply
	ErrPromoCodeExhausted = errors.New("promo code supply exhausted")
	// ErrReservationExpired is returned when confirming a hold past its deadline
	ErrReservationExpired = errors.New("reservation has expired")
	// ErrInvalidPaymentStatus is returned for payment statuses other than success or rejected
	ErrInvalidPaymentStatus = errors.New("invalid payment status")
	// ErrInvalidTicketRequest is returned for empty line items, unknown categories or non-positive quantities
	ErrInvalidTicketRequest = errors.New("invalid ticket request")
	// ErrInvalidMultiplier is returned for a negative price multiplier
	ErrInvalidMultiplier = errors.New("invalid price multiplier")
	// ErrForbidden is returned when a caller acts on another user's reservation
	ErrForbidden = errors.New("reservation belongs to another user")
	// ErrAlreadyExists is returned when creating a record whose key is taken
	ErrAlreadyExists = errors.New("already exists")
)

// SeatUnavailableError lists the seats that blocked a reservation
type SeatUnavailableError struct {
	Seats []string
}

func (e *SeatUnavailableError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSeatUnavailable.Error(), strings.Join(e.Seats, ", "))
}

// Unwrap lets errors.Is match ErrSeatUnavailable
func (e *SeatUnavailableError) Unwrap() error {
	return ErrSeatUnavailable
}

// SeatConflictError reports every seat that failed a bulk transition
type SeatConflictError struct {
	Missing     []string
	Conflicting []string
}

func (e *SeatConflictError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.Missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Conflicting) > 0 {
		parts = append(parts, "conflicting: "+strings.Join(e.Conflicting, ", "))
	}
	return "seat transition failed (" + strings.Join(parts, "; ") + ")"
}

// Is matches ErrSeatNotFound when any seat is missing and ErrSeatConflict when any seat is in the wrong state
func (e *SeatConflictError) Is(target error) bool {
	switch target {
	case ErrSeatConflict:
		return len(e.Conflicting) > 0
	case ErrSeatNotFound, ErrNotFound:
		return len(e.Missing) > 0
	}
	return false
}

// Seats returns every offending seat, missing first
func (e *SeatConflictError) Seats() []string {
	out := make([]string, 0, len(e.Missing)+len(e.Conflicting))
	out = append(out, e.Missing...)
	return append(out, e.Conflicting...)
}
