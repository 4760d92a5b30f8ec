package di

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/prohmpiriya/booking-rush-checkout/internal/audit"
	"github.com/prohmpiriya/booking-rush-checkout/internal/clock"
	"github.com/prohmpiriya/booking-rush-checkout/internal/events"
	"github.com/prohmpiriya/booking-rush-checkout/internal/pricing"
	"github.com/prohmpiriya/booking-rush-checkout/internal/repository"
	"github.com/prohmpiriya/booking-rush-checkout/internal/service"
	"github.com/prohmpiriya/booking-rush-checkout/internal/worker"
	"github.com/prohmpiriya/booking-rush-checkout/pkg/config"
	"github.com/prohmpiriya/booking-rush-checkout/pkg/database"
	"github.com/prohmpiriya/booking-rush-checkout/pkg/logger"
	"github.com/prohmpiriya/booking-rush-checkout/pkg/redis"
	"github.com/prohmpiriya/booking-rush-checkout/pkg/telemetry"
)

// Container holds all dependencies for the checkout engine
type Container struct {
	Config *config.Config
	Logger *logger.Logger

	// Infrastructure
	DB        *database.PostgresDB
	Redis     *redis.Client
	Publisher events.Publisher
	Audit     audit.Recorder
	Metrics   *telemetry.CheckoutMetrics

	// Repositories
	EventRepo       repository.EventRepository
	PromoRepo       repository.PromoCodeRepository
	ReservationRepo repository.ReservationRepository
	BookingRepo     repository.BookingRepository

	// Services
	ReservationService service.ReservationService
	BookingService     service.BookingService

	// Workers
	ExpiryWorker *worker.ExpiryWorker
}

// ContainerConfig contains configuration for building the container.
// DB and Redis are required only when the configured stores use them.
type ContainerConfig struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        *database.PostgresDB
	Redis     *redis.Client
	Publisher events.Publisher
	Clock     clock.Clock
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *ContainerConfig) (*Container, error) {
	if cfg == nil || cfg.Config == nil {
		return nil, errors.New("container config is required")
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}

	c := &Container{
		Config:    cfg.Config,
		Logger:    log,
		DB:        cfg.DB,
		Redis:     cfg.Redis,
		Publisher: cfg.Publisher,
	}

	if err := c.initRepositories(ctx); err != nil {
		return nil, err
	}
	if err := c.initInfrastructure(); err != nil {
		return nil, err
	}

	// Initialize services; both share one Dependencies so they share its locker
	deps := &service.Dependencies{
		Events:       c.EventRepo,
		Promos:       c.PromoRepo,
		Reservations: c.ReservationRepo,
		Bookings:     c.BookingRepo,
		Pricing:      pricing.NewEngine(pricingPolicy(&c.Config.Pricing)),
		Clock:        cfg.Clock,
		HoldDuration: c.Config.Checkout.HoldDuration,
		Logger:       log,
		Metrics:      c.Metrics,
		Publisher:    c.Publisher,
		Audit:        c.Audit,
	}
	c.ReservationService = service.NewReservationService(deps)
	c.BookingService = service.NewBookingService(deps)

	// Initialize workers
	c.ExpiryWorker = worker.NewExpiryWorker(c.ReservationService, telemetry.GetMeter(), log, &worker.ExpiryWorkerConfig{
		ScanInterval: c.Config.Worker.ScanInterval,
		BatchSize:    c.Config.Worker.BatchSize,
	})

	return c, nil
}

func (c *Container) initRepositories(ctx context.Context) error {
	checkout := c.Config.Checkout

	switch checkout.Storage {
	case config.StoragePostgres:
		if c.DB == nil {
			return errors.New("postgres storage requires a database connection")
		}
		c.EventRepo = repository.NewPostgresEventRepository(c.DB.Pool())
		c.ReservationRepo = repository.NewPostgresReservationRepository(c.DB.Pool())
		c.BookingRepo = repository.NewPostgresBookingRepository(c.DB.Pool())
	case config.StorageMemory:
		c.EventRepo = repository.NewMemoryEventRepository()
		c.ReservationRepo = repository.NewMemoryReservationRepository()
		c.BookingRepo = repository.NewMemoryBookingRepository()
	default:
		return fmt.Errorf("unsupported checkout storage: %q", checkout.Storage)
	}

	switch checkout.PromoStore {
	case config.StoragePostgres:
		if c.DB == nil {
			return errors.New("postgres promo store requires a database connection")
		}
		c.PromoRepo = repository.NewPostgresPromoCodeRepository(c.DB.Pool())
	case config.StorageRedis:
		if c.Redis == nil {
			return errors.New("redis promo store requires a redis connection")
		}
		promos, err := repository.NewRedisPromoCodeRepository(ctx, c.Redis)
		if err != nil {
			return fmt.Errorf("failed to init redis promo store: %w", err)
		}
		c.PromoRepo = promos
	case config.StorageMemory:
		c.PromoRepo = repository.NewMemoryPromoCodeRepository()
	default:
		return fmt.Errorf("unsupported promo store: %q", checkout.PromoStore)
	}
	return nil
}

func (c *Container) initInfrastructure() error {
	if c.Publisher == nil {
		if c.Config.Kafka.Enabled {
			publisher, err := events.NewKafkaPublisher(&events.KafkaConfig{
				Brokers:        c.Config.Kafka.Brokers,
				ClientID:       c.Config.Kafka.ClientID,
				Topic:          c.Config.Kafka.Topic,
				ProduceTimeout: events.DefaultKafkaConfig().ProduceTimeout,
			})
			if err != nil {
				return err
			}
			c.Publisher = publisher
		} else {
			c.Publisher = events.NoopPublisher{}
		}
	}

	if c.Config.Audit.Enabled && c.DB != nil {
		c.Audit = audit.NewLogger(&audit.Config{
			DB:            c.DB.Pool(),
			BufferSize:    c.Config.Audit.BufferSize,
			BatchSize:     c.Config.Audit.BatchSize,
			FlushInterval: c.Config.Audit.FlushInterval,
			Logger:        c.Logger,
		})
	} else {
		c.Audit = audit.NopRecorder{}
	}

	metrics, err := telemetry.NewCheckoutMetrics(telemetry.GetMeter())
	if err != nil {
		return fmt.Errorf("failed to create checkout metrics: %w", err)
	}
	c.Metrics = metrics
	return nil
}

func pricingPolicy(cfg *config.PricingConfig) pricing.Policy {
	return pricing.Policy{
		GroupThreshold:      cfg.GroupThreshold,
		GroupDiscountRate:   cfg.GroupDiscountRate,
		ServiceFeeRate:      cfg.ServiceFeeRate,
		PerTicketFee:        cfg.PerTicketFee,
		InsuranceFee:        cfg.InsuranceFee,
		CancellationFeeRate: cfg.CancellationFeeRate,
	}
}

// Close stops the worker and releases every resource the container holds
func (c *Container) Close() error {
	if c.ExpiryWorker != nil {
		c.ExpiryWorker.Stop()
	}

	var errs []error
	if c.Audit != nil {
		errs = append(errs, c.Audit.Close())
	}
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			c.Logger.Warn("Failed to close event publisher", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.DB != nil {
		c.DB.Close()
	}
	return errors.Join(errs...)
}
