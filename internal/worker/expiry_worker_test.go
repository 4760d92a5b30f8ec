package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/booking-rush-checkout/internal/clock"
	"github.com/prohmpiriya/booking-rush-checkout/internal/domain"
	"github.com/prohmpiriya/booking-rush-checkout/internal/repository"
	"github.com/prohmpiriya/booking-rush-checkout/internal/service"
)

func TestDefaultExpiryWorkerConfig(t *testing.T) {
	config := DefaultExpiryWorkerConfig()

	if config.ScanInterval != 5*time.Second {
		t.Errorf("ScanInterval = %v, want %v", config.ScanInterval, 5*time.Second)
	}

	if config.BatchSize != 100 {
		t.Errorf("BatchSize = %v, want %v", config.BatchSize, 100)
	}
}

func TestNewExpiryWorker_WithDefaultConfig(t *testing.T) {
	worker := NewExpiryWorker(nil, nil, nil, nil)

	if worker == nil {
		t.Fatal("NewExpiryWorker() returned nil")
	}

	if worker.config == nil {
		t.Fatal("Worker config should not be nil")
	}

	if worker.config.ScanInterval != 5*time.Second {
		t.Errorf("Default ScanInterval = %v, want %v", worker.config.ScanInterval, 5*time.Second)
	}

	if worker.running {
		t.Error("Worker should not be running initially")
	}

	if worker.totalExpired != 0 {
		t.Errorf("TotalExpired = %v, want %v", worker.totalExpired, 0)
	}

	if worker.totalReleased != 0 {
		t.Errorf("TotalReleased = %v, want %v", worker.totalReleased, 0)
	}
}

func TestNewExpiryWorker_WithCustomConfig(t *testing.T) {
	customConfig := &ExpiryWorkerConfig{
		ScanInterval: 15 * time.Second,
		BatchSize:    200,
	}

	worker := NewExpiryWorker(nil, nil, nil, customConfig)

	if worker.config.ScanInterval != 15*time.Second {
		t.Errorf("ScanInterval = %v, want %v", worker.config.ScanInterval, 15*time.Second)
	}

	if worker.config.BatchSize != 200 {
		t.Errorf("BatchSize = %v, want %v", worker.config.BatchSize, 200)
	}
}

func TestNewExpiryWorker_FixesInvalidConfig(t *testing.T) {
	worker := NewExpiryWorker(nil, nil, nil, &ExpiryWorkerConfig{ScanInterval: -1, BatchSize: 0})

	assert.Equal(t, 5*time.Second, worker.config.ScanInterval)
	assert.Equal(t, 100, worker.config.BatchSize)
}

func TestExpiryWorker_GetStats(t *testing.T) {
	worker := NewExpiryWorker(nil, nil, nil, nil)

	stats := worker.GetStats()

	if stats.IsRunning {
		t.Error("Worker should not be running initially")
	}

	if stats.TotalExpired != 0 {
		t.Errorf("TotalExpired = %v, want %v", stats.TotalExpired, 0)
	}

	if stats.TotalReleased != 0 {
		t.Errorf("TotalReleased = %v, want %v", stats.TotalReleased, 0)
	}

	if stats.LastExpiredCount != 0 {
		t.Errorf("LastExpiredCount = %v, want %v", stats.LastExpiredCount, 0)
	}
}

// fakeSweeper serves a fixed list and records release calls
type fakeSweeper struct {
	mu        sync.Mutex
	expired   []*domain.Reservation
	listErr   error
	failIDs   map[string]bool
	goneIDs   map[string]bool
	released  []string
	lastLimit int
}

func (f *fakeSweeper) ListExpired(_ context.Context, limit int) ([]*domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := f.expired
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeSweeper) ReleaseExpired(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIDs[id] {
		return false, errors.New("store unavailable")
	}
	if f.goneIDs[id] {
		return false, nil
	}
	f.released = append(f.released, id)
	return true, nil
}

func reservationWithID(id string) *domain.Reservation {
	return &domain.Reservation{ID: id, EventID: "evt-1"}
}

func TestExpiryWorker_ScanOnce(t *testing.T) {
	sweeper := &fakeSweeper{
		expired: []*domain.Reservation{
			reservationWithID("r1"),
			reservationWithID("r2"),
			reservationWithID("r3"),
			reservationWithID("r4"),
		},
		failIDs: map[string]bool{"r2": true},
		goneIDs: map[string]bool{"r3": true},
	}
	worker := NewExpiryWorker(sweeper, nil, nil, &ExpiryWorkerConfig{ScanInterval: time.Hour, BatchSize: 10})

	released := worker.ScanOnce(context.Background())

	assert.Equal(t, 2, released)
	assert.Equal(t, []string{"r1", "r4"}, sweeper.released)
	assert.Equal(t, 10, sweeper.lastLimit)

	stats := worker.GetStats()
	assert.Equal(t, int64(4), stats.TotalExpired)
	assert.Equal(t, int64(2), stats.TotalReleased)
	assert.Equal(t, 4, stats.LastExpiredCount)
	assert.False(t, stats.LastScanTime.IsZero())
}

func TestExpiryWorker_ScanOnceListError(t *testing.T) {
	sweeper := &fakeSweeper{listErr: errors.New("db down")}
	worker := NewExpiryWorker(sweeper, nil, nil, nil)

	assert.Equal(t, 0, worker.ScanOnce(context.Background()))
	assert.True(t, worker.GetStats().LastScanTime.IsZero())
}

func TestExpiryWorker_ScanOnceWithoutSweeper(t *testing.T) {
	worker := NewExpiryWorker(nil, nil, nil, nil)
	assert.Equal(t, 0, worker.ScanOnce(context.Background()))
}

func TestExpiryWorker_StartStop(t *testing.T) {
	sweeper := &fakeSweeper{expired: []*domain.Reservation{reservationWithID("r1")}}
	worker := NewExpiryWorker(sweeper, nil, nil, &ExpiryWorkerConfig{
		ScanInterval: 10 * time.Millisecond,
		BatchSize:    10,
	})

	if worker.running {
		t.Error("Worker should not be running before Start()")
	}

	worker.Start(context.Background())
	worker.Start(context.Background())
	assert.True(t, worker.GetStats().IsRunning)

	assert.Eventually(t, func() bool {
		return worker.GetStats().TotalReleased >= 2
	}, time.Second, 5*time.Millisecond)

	worker.Stop()
	worker.Stop()
	assert.False(t, worker.GetStats().IsRunning)
}

func TestExpiryWorker_StopsWithContext(t *testing.T) {
	worker := NewExpiryWorker(&fakeSweeper{}, nil, nil, &ExpiryWorkerConfig{ScanInterval: time.Millisecond, BatchSize: 1})

	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)
	cancel()

	assert.Eventually(t, func() bool {
		return !worker.GetStats().IsRunning
	}, time.Second, 5*time.Millisecond)
}

func TestExpiryWorker_ReleasesThroughReservationService(t *testing.T) {
	ctx := context.Background()
	fake := clock.NewFake(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))

	events := repository.NewMemoryEventRepository()
	require.NoError(t, events.Create(ctx, &domain.Event{
		ID:            "evt-1",
		VIPPrice:      decimal.NewFromInt(150),
		StandardPrice: decimal.NewFromInt(50),
		Seats:         domain.NewSeatMap("A1", "A2", "A3"),
	}))
	reservations := repository.NewMemoryReservationRepository()

	svc := service.NewReservationService(&service.Dependencies{
		Events:       events,
		Promos:       repository.NewMemoryPromoCodeRepository(),
		Reservations: reservations,
		Bookings:     repository.NewMemoryBookingRepository(),
		Clock:        fake,
		HoldDuration: time.Minute,
	})

	for _, seat := range []string{"A1", "A2"} {
		_, err := svc.Reserve(ctx, &service.ReserveRequest{
			EventID: "evt-1",
			UserID:  "user-" + seat,
			Tickets: []domain.TicketLineItem{{Category: domain.TicketStandard, Quantity: 1}},
			Seats:   []string{seat},
		})
		require.NoError(t, err)
	}
	fake.Advance(30 * time.Second)
	_, err := svc.Reserve(ctx, &service.ReserveRequest{
		EventID: "evt-1",
		UserID:  "user-A3",
		Tickets: []domain.TicketLineItem{{Category: domain.TicketStandard, Quantity: 1}},
		Seats:   []string{"A3"},
	})
	require.NoError(t, err)

	fake.Advance(45 * time.Second)

	worker := NewExpiryWorker(svc, nil, nil, &ExpiryWorkerConfig{ScanInterval: time.Hour, BatchSize: 10})
	assert.Equal(t, 2, worker.ScanOnce(ctx))
	assert.Equal(t, 0, worker.ScanOnce(ctx))
	assert.Equal(t, 1, reservations.Count())

	event, err := events.GetByID(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SeatAvailable, event.Seats.Status("A1"))
	assert.Equal(t, domain.SeatAvailable, event.Seats.Status("A2"))
	assert.Equal(t, domain.SeatReserved, event.Seats.Status("A3"))
}
