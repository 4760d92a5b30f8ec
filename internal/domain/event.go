package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event is a ticketed show with its seat inventory
type Event struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Date          time.Time       `json:"date"`
	VIPPrice      decimal.Decimal `json:"vip_price"`
	StandardPrice decimal.Decimal `json:"standard_price"`
	Seats         *SeatMap        `json:"seats"`
}

// PriceFor returns the base price of one ticket of the given category
func (e *Event) PriceFor(category TicketCategory) decimal.Decimal {
	if category == TicketVIP {
		return e.VIPPrice
	}
	return e.StandardPrice
}

// Clone returns a deep copy, including the seat map
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	c := *e
	if e.Seats != nil {
		c.Seats = e.Seats.Clone()
	} else {
		c.Seats = NewSeatMap()
	}
	return &c
}
