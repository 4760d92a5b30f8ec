package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type names a checkout lifecycle event
type Type string

const (
	ReservationCreated  Type = "reservation.created"
	ReservationReleased Type = "reservation.released"
	ReservationExpired  Type = "reservation.expired"
	BookingConfirmed    Type = "booking.confirmed"
	BookingCancelled    Type = "booking.cancelled"
)

// Event is a checkout lifecycle notification
type Event struct {
	ID            string           `json:"id"`
	Type          Type             `json:"type"`
	EventID       string           `json:"event_id"`
	ReservationID string           `json:"reservation_id,omitempty"`
	BookingID     string           `json:"booking_id,omitempty"`
	UserID        string           `json:"user_id,omitempty"`
	Seats         []string         `json:"seats"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Reason        string           `json:"reason,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

// New creates an event of the given type
func New(eventType Type, eventID string, seats []string, at time.Time) *Event {
	return &Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		EventID:    eventID,
		Seats:      append([]string(nil), seats...),
		OccurredAt: at,
	}
}

// WithAmount sets the monetary amount and returns e
func (e *Event) WithAmount(amount decimal.Decimal) *Event {
	e.Amount = &amount
	return e
}

// Key returns the partition key; events of one show stay ordered
func (e *Event) Key() string {
	return e.EventID
}

// Publisher sends checkout events to downstream consumers
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// NoopPublisher discards every event
type NoopPublisher struct{}

// Publish does nothing
func (NoopPublisher) Publish(context.Context, *Event) error { return nil }

// Close does nothing
func (NoopPublisher) Close() error { return nil }

// MemoryPublisher records events (for testing)
type MemoryPublisher struct {
	mu     sync.Mutex
	events []*Event
	err    error
}

// NewMemoryPublisher creates an empty MemoryPublisher
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Publish records the event, or returns the configured failure
func (p *MemoryPublisher) Publish(_ context.Context, event *Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

// FailWith makes later Publish calls return err
func (p *MemoryPublisher) FailWith(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

// Events returns the recorded events in publish order
func (p *MemoryPublisher) Events() []*Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Event, len(p.events))
	copy(out, p.events)
	return out
}

// Types returns the recorded event types in publish order
func (p *MemoryPublisher) Types() []Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// Close does nothing
func (p *MemoryPublisher) Close() error { return nil }
