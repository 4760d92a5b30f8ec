package worker

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/prohmpiriya/booking-rush-checkout/internal/domain"
	"github.com/prohmpiriya/booking-rush-checkout/pkg/logger"
	"github.com/prohmpiriya/booking-rush-checkout/pkg/telemetry"
)

// Sweeper lists and releases lapsed reservations
type Sweeper interface {
	ListExpired(ctx context.Context, limit int) ([]*domain.Reservation, error)
	ReleaseExpired(ctx context.Context, reservationID string) (bool, error)
}

// ExpiryWorkerConfig holds configuration for the expiry worker
type ExpiryWorkerConfig struct {
	ScanInterval time.Duration
	BatchSize    int
}

// DefaultExpiryWorkerConfig returns default configuration
func DefaultExpiryWorkerConfig() *ExpiryWorkerConfig {
	return &ExpiryWorkerConfig{
		ScanInterval: 5 * time.Second,
		BatchSize:    100,
	}
}

// ExpiryWorkerStats is a point-in-time view of the worker
type ExpiryWorkerStats struct {
	IsRunning        bool      `json:"is_running"`
	TotalExpired     int64     `json:"total_expired"`
	TotalReleased    int64     `json:"total_released"`
	LastScanTime     time.Time `json:"last_scan_time"`
	LastExpiredCount int       `json:"last_expired_count"`
}

// ExpiryWorker periodically releases reservations past their deadline
type ExpiryWorker struct {
	sweeper Sweeper
	log     *logger.Logger
	config  *ExpiryWorkerConfig

	scans    *telemetry.Counter
	failures *telemetry.Counter
	duration *telemetry.Histogram

	mu               sync.RWMutex
	running          bool
	cancel           context.CancelFunc
	done             chan struct{}
	totalExpired     int64
	totalReleased    int64
	lastScanTime     time.Time
	lastExpiredCount int
}

// NewExpiryWorker creates a new expiry worker. Nil arguments fall back to
// no-op logging, the global meter and the default configuration.
func NewExpiryWorker(sweeper Sweeper, meter metric.Meter, log *logger.Logger, config *ExpiryWorkerConfig) *ExpiryWorker {
	if config == nil {
		config = DefaultExpiryWorkerConfig()
	}
	if config.ScanInterval <= 0 {
		config.ScanInterval = 5 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if log == nil {
		log = logger.NewNop()
	}

	w := &ExpiryWorker{
		sweeper: sweeper,
		log:     log.Named("expiry-worker"),
		config:  config,
	}

	var err error
	if w.scans, err = telemetry.NewCounter(meter, telemetry.MetricOpts{
		Name:        "checkout.expiry.scans",
		Description: "Expiry sweeps run",
		Unit:        "{scan}",
	}); err != nil {
		w.log.Warn("Failed to create scan counter", zap.Error(err))
	}
	if w.failures, err = telemetry.NewCounter(meter, telemetry.MetricOpts{
		Name:        "checkout.expiry.failures",
		Description: "Reservations the sweep failed to release",
		Unit:        "{reservation}",
	}); err != nil {
		w.log.Warn("Failed to create failure counter", zap.Error(err))
	}
	if w.duration, err = telemetry.NewHistogram(meter, telemetry.MetricOpts{
		Name:        "checkout.expiry.scan.duration",
		Description: "Time spent in one expiry sweep",
		Unit:        "ms",
	}); err != nil {
		w.log.Warn("Failed to create scan histogram", zap.Error(err))
	}

	return w
}

// Start runs a sweep immediately and then every ScanInterval until Stop or ctx is done
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	w.running = true
	w.cancel = cancel
	w.done = make(chan struct{})
	done := w.done
	w.mu.Unlock()

	w.log.Info("Expiry worker started",
		zap.Duration("scan_interval", w.config.ScanInterval),
		zap.Int("batch_size", w.config.BatchSize),
	)

	go func() {
		defer close(done)
		defer func() {
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
		}()

		ticker := time.NewTicker(w.config.ScanInterval)
		defer ticker.Stop()

		w.ScanOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.ScanOnce(ctx)
			}
		}
	}()
}

// Stop halts the worker and waits for the current sweep to finish
func (w *ExpiryWorker) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	w.log.Info("Expiry worker stopped")
}

// ScanOnce releases one batch of expired reservations and returns how many it released
func (w *ExpiryWorker) ScanOnce(ctx context.Context) int {
	if w.sweeper == nil {
		return 0
	}
	start := time.Now()

	expired, err := w.sweeper.ListExpired(ctx, w.config.BatchSize)
	if err != nil {
		w.log.Error("Failed to list expired reservations", zap.Error(err))
		return 0
	}

	released := 0
	for _, r := range expired {
		if ctx.Err() != nil {
			break
		}
		ok, err := w.sweeper.ReleaseExpired(ctx, r.ID)
		if err != nil {
			if w.failures != nil {
				w.failures.Inc(ctx, telemetry.EventIDAttr(r.EventID))
			}
			w.log.Error("Failed to release expired reservation",
				logger.ReservationID(r.ID),
				logger.EventID(r.EventID),
				zap.Error(err),
			)
			continue
		}
		if ok {
			released++
		}
	}

	w.mu.Lock()
	w.totalExpired += int64(len(expired))
	w.totalReleased += int64(released)
	w.lastScanTime = time.Now()
	w.lastExpiredCount = len(expired)
	w.mu.Unlock()

	if w.scans != nil {
		w.scans.Inc(ctx)
	}
	if w.duration != nil {
		w.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000)
	}
	if len(expired) > 0 {
		w.log.Info("Expired reservations swept",
			zap.Int("expired", len(expired)),
			zap.Int("released", released),
		)
	}
	return released
}

// GetStats returns the worker statistics
func (w *ExpiryWorker) GetStats() *ExpiryWorkerStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return &ExpiryWorkerStats{
		IsRunning:        w.running,
		TotalExpired:     w.totalExpired,
		TotalReleased:    w.totalReleased,
		LastScanTime:     w.lastScanTime,
		LastExpiredCount: w.lastExpiredCount,
	}
}
