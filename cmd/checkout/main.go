package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/booking-rush-checkout/internal/di"
	"github.com/prohmpiriya/booking-rush-checkout/migrations"
	"github.com/prohmpiriya/booking-rush-checkout/pkg/config"
	"github.com/prohmpiriya/booking-rush-checkout/pkg/database"
	"github.com/prohmpiriya/booking-rush-checkout/pkg/logger"
	"github.com/prohmpiriya/booking-rush-checkout/pkg/redis"
	"github.com/prohmpiriya/booking-rush-checkout/pkg/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "checkout: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := logger.Init(&logger.Config{
		Level:       cfg.Log.Level,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
		OutputPath:  cfg.Log.Output,
	}); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	log := logger.Get()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		Insecure:       cfg.OTel.Insecure,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		return fmt.Errorf("failed to init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			log.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}()

	containerCfg := &di.ContainerConfig{Config: cfg, Logger: log}

	if cfg.UsesPostgres() {
		db, err := connectPostgres(ctx, cfg, log)
		if err != nil {
			return err
		}
		containerCfg.DB = db
	}

	if cfg.Checkout.PromoStore == config.StorageRedis {
		rdb, err := redis.NewClient(ctx, &redis.Config{
			Host:          cfg.Redis.Host,
			Port:          cfg.Redis.Port,
			Password:      cfg.Redis.Password,
			DB:            cfg.Redis.DB,
			PoolSize:      cfg.Redis.PoolSize,
			MinIdleConns:  cfg.Redis.MinIdleConns,
			DialTimeout:   cfg.Redis.DialTimeout,
			ReadTimeout:   cfg.Redis.ReadTimeout,
			WriteTimeout:  cfg.Redis.WriteTimeout,
			MaxRetries:    redis.DefaultConfig().MaxRetries,
			RetryInterval: redis.DefaultConfig().RetryInterval,
		})
		if err != nil {
			if containerCfg.DB != nil {
				containerCfg.DB.Close()
			}
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		containerCfg.Redis = rdb
	}

	container, err := di.NewContainer(ctx, containerCfg)
	if err != nil {
		if containerCfg.Redis != nil {
			_ = containerCfg.Redis.Close()
		}
		if containerCfg.DB != nil {
			containerCfg.DB.Close()
		}
		return fmt.Errorf("failed to build container: %w", err)
	}
	defer func() {
		if err := container.Close(); err != nil {
			log.Warn("Shutdown finished with errors", zap.Error(err))
		}
	}()

	if cfg.Worker.Enabled {
		container.ExpiryWorker.Start(ctx)
	}

	log.Info("Checkout engine started",
		zap.String("environment", cfg.App.Environment),
		zap.String("storage", cfg.Checkout.Storage),
		zap.String("promo_store", cfg.Checkout.PromoStore),
		zap.Duration("hold_duration", cfg.Checkout.HoldDuration),
		zap.Bool("kafka", cfg.Kafka.Enabled),
		zap.Bool("audit", cfg.Audit.Enabled),
	)

	<-ctx.Done()
	log.Info("Shutting down checkout engine")
	return nil
}

func connectPostgres(ctx context.Context, cfg *config.Config, log *logger.Logger) (*database.PostgresDB, error) {
	dbCfg := database.DefaultPostgresConfig()
	dbCfg.Host = cfg.Database.Host
	dbCfg.Port = cfg.Database.Port
	dbCfg.User = cfg.Database.User
	dbCfg.Password = cfg.Database.Password
	dbCfg.Database = cfg.Database.DBName
	dbCfg.SSLMode = cfg.Database.SSLMode
	dbCfg.MaxConns = cfg.Database.MaxConns
	dbCfg.MinConns = cfg.Database.MinConns
	dbCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	dbCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if cfg.Database.AutoMigrate {
		applied, err := db.Migrate(ctx, migrations.FS)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("Migrations applied", zap.Strings("files", applied))
	}
	return db, nil
}
