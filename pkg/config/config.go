package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	OTel     OTelConfig     `mapstructure:"otel"`
	Log      LogConfig      `mapstructure:"log"`
	Checkout CheckoutConfig `mapstructure:"checkout"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Audit    AuditConfig    `mapstructure:"audit"`
}

// AppConfig holds application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"` // development, staging, production
	Version     string `mapstructure:"version"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the Redis address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// KafkaConfig holds checkout event publishing settings
type KafkaConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Brokers  []string `mapstructure:"brokers"`
	ClientID string   `mapstructure:"client_id"`
	Topic    string   `mapstructure:"topic"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	ServiceName   string  `mapstructure:"service_name"`
	CollectorAddr string  `mapstructure:"collector_addr"`
	Insecure      bool    `mapstructure:"insecure"`
	SampleRatio   float64 `mapstructure:"sample_ratio"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Output string `mapstructure:"output"`
}

// CheckoutConfig holds seat hold settings
type CheckoutConfig struct {
	HoldDuration time.Duration `mapstructure:"hold_duration"`
	Storage      string        `mapstructure:"storage"`     // memory, postgres
	PromoStore   string        `mapstructure:"promo_store"` // memory, postgres, redis
}

// PricingConfig holds the pricing policy constants
type PricingConfig struct {
	GroupThreshold      int             `mapstructure:"group_threshold"`
	GroupDiscountRate   decimal.Decimal `mapstructure:"group_discount_rate"`
	ServiceFeeRate      decimal.Decimal `mapstructure:"service_fee_rate"`
	PerTicketFee        decimal.Decimal `mapstructure:"per_ticket_fee"`
	InsuranceFee        decimal.Decimal `mapstructure:"insurance_fee"`
	CancellationFeeRate decimal.Decimal `mapstructure:"cancellation_fee_rate"`
}

// WorkerConfig holds expiry sweeper settings
type WorkerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	ScanInterval time.Duration `mapstructure:"scan_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
}

// AuditConfig holds seat-map audit trail settings
type AuditConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	BufferSize    int           `mapstructure:"buffer_size"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// Load loads configuration from environment variables and an optional .env file
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")

	// A missing .env is fine; environment variables still apply
	_ = v.ReadInConfig()

	return load(v)
}

// LoadWithPath loads configuration from a specific .env file
func LoadWithPath(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := &Config{}
	if err := bindConfig(v, cfg); err != nil {
		return nil, fmt.Errorf("failed to bind config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("APP_NAME", "booking-checkout")
	v.SetDefault("APP_ENVIRONMENT", "development")
	v.SetDefault("APP_VERSION", "1.0.0")

	// Database defaults
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_PASSWORD", "postgres")
	v.SetDefault("DATABASE_DBNAME", "booking_checkout")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_MAX_CONNS", 25)
	v.SetDefault("DATABASE_MIN_CONNS", 5)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("DATABASE_CONN_MAX_IDLE_TIME", "30m")
	v.SetDefault("DATABASE_AUTO_MIGRATE", false)

	// Redis defaults
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 50)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 5)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")
	v.SetDefault("REDIS_READ_TIMEOUT", "3s")
	v.SetDefault("REDIS_WRITE_TIMEOUT", "3s")

	// Kafka defaults
	v.SetDefault("KAFKA_ENABLED", false)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_CLIENT_ID", "booking-checkout")
	v.SetDefault("KAFKA_TOPIC", "checkout.events")

	// OTel defaults
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "booking-checkout")
	v.SetDefault("OTEL_COLLECTOR_ADDR", "localhost:4317")
	v.SetDefault("OTEL_INSECURE", true)
	v.SetDefault("OTEL_SAMPLE_RATIO", 1.0)

	// Log defaults
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_OUTPUT", "stdout")

	// Checkout defaults
	v.SetDefault("HOLD_DURATION", "10m")
	v.SetDefault("CHECKOUT_STORAGE", StorageMemory)
	v.SetDefault("CHECKOUT_PROMO_STORE", StorageMemory)

	// Pricing defaults
	v.SetDefault("PRICING_GROUP_THRESHOLD", 4)
	v.SetDefault("PRICING_GROUP_DISCOUNT_RATE", "0.90")
	v.SetDefault("PRICING_SERVICE_FEE_RATE", "0.05")
	v.SetDefault("PRICING_PER_TICKET_FEE", "2")
	v.SetDefault("PRICING_INSURANCE_FEE", "20")
	v.SetDefault("PRICING_CANCELLATION_FEE_RATE", "0.15")

	// Worker defaults
	v.SetDefault("WORKER_ENABLED", true)
	v.SetDefault("WORKER_SCAN_INTERVAL", "5s")
	v.SetDefault("WORKER_BATCH_SIZE", 100)

	// Audit defaults
	v.SetDefault("AUDIT_ENABLED", false)
	v.SetDefault("AUDIT_BUFFER_SIZE", 10000)
	v.SetDefault("AUDIT_BATCH_SIZE", 100)
	v.SetDefault("AUDIT_FLUSH_INTERVAL", "5s")
}

func bindConfig(v *viper.Viper, cfg *Config) error {
	// App
	cfg.App.Name = v.GetString("APP_NAME")
	cfg.App.Environment = v.GetString("APP_ENVIRONMENT")
	cfg.App.Version = v.GetString("APP_VERSION")

	// Database
	cfg.Database.Host = v.GetString("DATABASE_HOST")
	cfg.Database.Port = v.GetInt("DATABASE_PORT")
	cfg.Database.User = v.GetString("DATABASE_USER")
	cfg.Database.Password = v.GetString("DATABASE_PASSWORD")
	cfg.Database.DBName = v.GetString("DATABASE_DBNAME")
	cfg.Database.SSLMode = v.GetString("DATABASE_SSLMODE")
	cfg.Database.MaxConns = v.GetInt32("DATABASE_MAX_CONNS")
	cfg.Database.MinConns = v.GetInt32("DATABASE_MIN_CONNS")
	cfg.Database.ConnMaxLifetime = v.GetDuration("DATABASE_CONN_MAX_LIFETIME")
	cfg.Database.ConnMaxIdleTime = v.GetDuration("DATABASE_CONN_MAX_IDLE_TIME")
	cfg.Database.AutoMigrate = v.GetBool("DATABASE_AUTO_MIGRATE")

	// Redis
	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetInt("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")
	cfg.Redis.PoolSize = v.GetInt("REDIS_POOL_SIZE")
	cfg.Redis.MinIdleConns = v.GetInt("REDIS_MIN_IDLE_CONNS")
	cfg.Redis.DialTimeout = v.GetDuration("REDIS_DIAL_TIMEOUT")
	cfg.Redis.ReadTimeout = v.GetDuration("REDIS_READ_TIMEOUT")
	cfg.Redis.WriteTimeout = v.GetDuration("REDIS_WRITE_TIMEOUT")

	// Kafka
	cfg.Kafka.Enabled = v.GetBool("KAFKA_ENABLED")
	cfg.Kafka.Brokers = splitList(v.GetString("KAFKA_BROKERS"))
	cfg.Kafka.ClientID = v.GetString("KAFKA_CLIENT_ID")
	cfg.Kafka.Topic = v.GetString("KAFKA_TOPIC")

	// OTel
	cfg.OTel.Enabled = v.GetBool("OTEL_ENABLED")
	cfg.OTel.ServiceName = v.GetString("OTEL_SERVICE_NAME")
	cfg.OTel.CollectorAddr = v.GetString("OTEL_COLLECTOR_ADDR")
	cfg.OTel.Insecure = v.GetBool("OTEL_INSECURE")
	cfg.OTel.SampleRatio = v.GetFloat64("OTEL_SAMPLE_RATIO")

	// Log
	cfg.Log.Level = v.GetString("LOG_LEVEL")
	cfg.Log.Output = v.GetString("LOG_OUTPUT")

	// Checkout
	cfg.Checkout.HoldDuration = v.GetDuration("HOLD_DURATION")
	cfg.Checkout.Storage = strings.ToLower(v.GetString("CHECKOUT_STORAGE"))
	cfg.Checkout.PromoStore = strings.ToLower(v.GetString("CHECKOUT_PROMO_STORE"))

	// Pricing
	cfg.Pricing.GroupThreshold = v.GetInt("PRICING_GROUP_THRESHOLD")
	rates := []struct {
		key    string
		target *decimal.Decimal
	}{
		{"PRICING_GROUP_DISCOUNT_RATE", &cfg.Pricing.GroupDiscountRate},
		{"PRICING_SERVICE_FEE_RATE", &cfg.Pricing.ServiceFeeRate},
		{"PRICING_PER_TICKET_FEE", &cfg.Pricing.PerTicketFee},
		{"PRICING_INSURANCE_FEE", &cfg.Pricing.InsuranceFee},
		{"PRICING_CANCELLATION_FEE_RATE", &cfg.Pricing.CancellationFeeRate},
	}
	for _, r := range rates {
		value, err := decimal.NewFromString(v.GetString(r.key))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", r.key, err)
		}
		*r.target = value
	}

	// Worker
	cfg.Worker.Enabled = v.GetBool("WORKER_ENABLED")
	cfg.Worker.ScanInterval = v.GetDuration("WORKER_SCAN_INTERVAL")
	cfg.Worker.BatchSize = v.GetInt("WORKER_BATCH_SIZE")

	// Audit
	cfg.Audit.Enabled = v.GetBool("AUDIT_ENABLED")
	cfg.Audit.BufferSize = v.GetInt("AUDIT_BUFFER_SIZE")
	cfg.Audit.BatchSize = v.GetInt("AUDIT_BATCH_SIZE")
	cfg.Audit.FlushInterval = v.GetDuration("AUDIT_FLUSH_INTERVAL")

	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return errors.New("app name is required")
	}

	if c.Checkout.HoldDuration <= 0 {
		return fmt.Errorf("hold duration must be positive, got %s", c.Checkout.HoldDuration)
	}

	switch c.Checkout.Storage {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("unsupported checkout storage: %q", c.Checkout.Storage)
	}
	switch c.Checkout.PromoStore {
	case StorageMemory, StoragePostgres, StorageRedis:
	default:
		return fmt.Errorf("unsupported promo store: %q", c.Checkout.PromoStore)
	}
	if c.Checkout.PromoStore == StoragePostgres && c.Checkout.Storage != StoragePostgres {
		return errors.New("postgres promo store requires postgres checkout storage")
	}

	if c.UsesPostgres() {
		if c.Database.Host == "" {
			return errors.New("database host is required")
		}
		if c.Database.DBName == "" {
			return errors.New("database name is required")
		}
	}

	if c.Pricing.GroupThreshold < 1 {
		return fmt.Errorf("pricing group threshold must be at least 1, got %d", c.Pricing.GroupThreshold)
	}
	for name, rate := range map[string]decimal.Decimal{
		"group discount rate":   c.Pricing.GroupDiscountRate,
		"service fee rate":      c.Pricing.ServiceFeeRate,
		"cancellation fee rate": c.Pricing.CancellationFeeRate,
	} {
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("pricing %s must be between 0 and 1, got %s", name, rate)
		}
	}
	if c.Pricing.PerTicketFee.IsNegative() || c.Pricing.InsuranceFee.IsNegative() {
		return errors.New("pricing fees must not be negative")
	}

	if c.Worker.Enabled && (c.Worker.ScanInterval <= 0 || c.Worker.BatchSize <= 0) {
		return errors.New("worker scan interval and batch size must be positive")
	}

	if c.Audit.Enabled && !c.UsesPostgres() {
		return errors.New("audit trail requires postgres checkout storage")
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka brokers are required when kafka is enabled")
	}

	return nil
}

// UsesPostgres reports whether any store is backed by PostgreSQL
func (c *Config) UsesPostgres() bool {
	return c.Checkout.Storage == StoragePostgres || c.Checkout.PromoStore == StoragePostgres
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
