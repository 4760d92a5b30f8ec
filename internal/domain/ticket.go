package domain

import "fmt"

// TicketCategory is the price tier of a ticket
type TicketCategory string

const (
	TicketVIP      TicketCategory = "VIP"
	TicketStandard TicketCategory = "Standard"
)

// IsValid returns true for known ticket categories
func (c TicketCategory) IsValid() bool {
	return c == TicketVIP || c == TicketStandard
}

// TicketLineItem is a quantity of tickets of one category
type TicketLineItem struct {
	Category TicketCategory `json:"type"`
	Quantity int            `json:"quantity"`
}

// TotalQuantity returns the sum of all line item quantities
func TotalQuantity(items []TicketLineItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}

// ValidateTickets checks that there is at least one item and every item is well formed
func ValidateTickets(items []TicketLineItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: no tickets requested", ErrInvalidTicketRequest)
	}
	for i, item := range items {
		if !item.Category.IsValid() {
			return fmt.Errorf("%w: item %d has unknown type %q", ErrInvalidTicketRequest, i, item.Category)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d has quantity %d", ErrInvalidTicketRequest, i, item.Quantity)
		}
	}
	return nil
}

func cloneTickets(items []TicketLineItem) []TicketLineItem {
	if items == nil {
		return nil
	}
	out := make([]TicketLineItem, len(items))
	copy(out, items)
	return out
}
