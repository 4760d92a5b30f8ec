package events

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	seats := []string{"A1", "A2"}
	e := New(ReservationCreated, "evt-1", seats, at).WithAmount(decimal.RequireFromString("575.00"))
	seats[0] = "changed"

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "evt-1", e.Key())
	assert.Equal(t, []string{"A1", "A2"}, e.Seats)
	assert.Equal(t, "575", e.Amount.String())
}

func TestRecord(t *testing.T) {
	at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	e := New(BookingCancelled, "evt-9", []string{"B3"}, at)
	e.BookingID = "bk-1"

	record, err := Record(e)
	require.NoError(t, err)

	assert.Equal(t, []byte("evt-9"), record.Key)
	assert.Equal(t, at, record.Timestamp)
	require.Len(t, record.Headers, 1)
	assert.Equal(t, "booking.cancelled", string(record.Headers[0].Value))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(record.Value, &decoded))
	assert.Equal(t, "booking.cancelled", decoded["type"])
	assert.Equal(t, "bk-1", decoded["booking_id"])
	assert.NotContains(t, decoded, "amount")
}

func TestMemoryPublisher(t *testing.T) {
	p := NewMemoryPublisher()
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, New(ReservationCreated, "evt", nil, time.Now())))
	require.NoError(t, p.Publish(ctx, New(BookingConfirmed, "evt", nil, time.Now())))
	assert.Equal(t, []Type{ReservationCreated, BookingConfirmed}, p.Types())

	p.FailWith(errors.New("broker down"))
	assert.Error(t, p.Publish(ctx, New(BookingCancelled, "evt", nil, time.Now())))
	assert.Len(t, p.Events(), 2)
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), New(ReservationExpired, "evt", nil, time.Now())))
	assert.NoError(t, p.Close())
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	_, err := NewKafkaPublisher(&KafkaConfig{Topic: "t"})
	assert.Error(t, err)

	_, err = NewKafkaPublisher(&KafkaConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)
}

func TestKafkaPublisher_Integration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}

	cfg := DefaultKafkaConfig()
	if brokers := os.Getenv("TEST_KAFKA_BROKERS"); brokers != "" {
		cfg.Brokers = strings.Split(brokers, ",")
	}
	p, err := NewKafkaPublisher(cfg)
	require.NoError(t, err)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, p.HealthCheck(ctx))
	assert.NoError(t, p.Publish(ctx, New(ReservationCreated, "evt-integration", []string{"A1"}, time.Now())))
}
