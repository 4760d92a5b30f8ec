package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validConfig() *Config {
	return &Config{
		App:      AppConfig{Name: "booking-checkout", Environment: "development"},
		Database: DatabaseConfig{Host: "localhost", DBName: "booking_checkout"},
		Checkout: CheckoutConfig{HoldDuration: 10 * time.Minute, Storage: StorageMemory, PromoStore: StorageMemory},
		Pricing: PricingConfig{
			GroupThreshold:      4,
			GroupDiscountRate:   decimal.RequireFromString("0.90"),
			ServiceFeeRate:      decimal.RequireFromString("0.05"),
			PerTicketFee:        decimal.NewFromInt(2),
			InsuranceFee:        decimal.NewFromInt(20),
			CancellationFeeRate: decimal.RequireFromString("0.15"),
		},
		Worker: WorkerConfig{Enabled: true, ScanInterval: 5 * time.Second, BatchSize: 100},
	}
}

func TestLoad_WithDefaults(t *testing.T) {
	for _, key := range []string{"APP_NAME", "HOLD_DURATION", "CHECKOUT_STORAGE", "CHECKOUT_PROMO_STORE", "PRICING_GROUP_DISCOUNT_RATE", "KAFKA_BROKERS", "WORKER_BATCH_SIZE"} {
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.App.Name != "booking-checkout" {
		t.Errorf("App.Name = %q, want %q", cfg.App.Name, "booking-checkout")
	}
	if cfg.Checkout.HoldDuration != 10*time.Minute {
		t.Errorf("Checkout.HoldDuration = %v, want %v", cfg.Checkout.HoldDuration, 10*time.Minute)
	}
	if cfg.Checkout.Storage != StorageMemory {
		t.Errorf("Checkout.Storage = %q, want %q", cfg.Checkout.Storage, StorageMemory)
	}
	if !cfg.Pricing.GroupDiscountRate.Equal(decimal.RequireFromString("0.9")) {
		t.Errorf("Pricing.GroupDiscountRate = %s, want 0.9", cfg.Pricing.GroupDiscountRate)
	}
	if cfg.Pricing.GroupThreshold != 4 {
		t.Errorf("Pricing.GroupThreshold = %d, want 4", cfg.Pricing.GroupThreshold)
	}
	if cfg.Worker.ScanInterval != 5*time.Second || cfg.Worker.BatchSize != 100 {
		t.Errorf("Worker = %+v, want 5s/100", cfg.Worker)
	}
	if len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Brokers[0] != "localhost:9092" {
		t.Errorf("Kafka.Brokers = %v, want [localhost:9092]", cfg.Kafka.Brokers)
	}
	if cfg.Database.MaxConns != 25 {
		t.Errorf("Database.MaxConns = %d, want 25", cfg.Database.MaxConns)
	}
}

func TestLoad_WithEnvOverride(t *testing.T) {
	t.Setenv("HOLD_DURATION", "90s")
	t.Setenv("CHECKOUT_STORAGE", "POSTGRES")
	t.Setenv("CHECKOUT_PROMO_STORE", "redis")
	t.Setenv("PRICING_SERVICE_FEE_RATE", "0.07")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Checkout.HoldDuration != 90*time.Second {
		t.Errorf("HoldDuration = %v, want 90s", cfg.Checkout.HoldDuration)
	}
	if cfg.Checkout.Storage != StoragePostgres {
		t.Errorf("Storage = %q, want %q", cfg.Checkout.Storage, StoragePostgres)
	}
	if cfg.Checkout.PromoStore != StorageRedis {
		t.Errorf("PromoStore = %q, want %q", cfg.Checkout.PromoStore, StorageRedis)
	}
	if !cfg.Pricing.ServiceFeeRate.Equal(decimal.RequireFromString("0.07")) {
		t.Errorf("ServiceFeeRate = %s, want 0.07", cfg.Pricing.ServiceFeeRate)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Errorf("Kafka.Brokers = %v", cfg.Kafka.Brokers)
	}
	if !cfg.UsesPostgres() {
		t.Error("UsesPostgres() = false, want true")
	}
}

func TestLoad_InvalidPricingRate(t *testing.T) {
	t.Setenv("PRICING_INSURANCE_FEE", "twenty")

	if _, err := Load(); err == nil {
		t.Error("Load() should fail for a non-numeric insurance fee")
	}
}

func TestLoadWithPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkout.env")
	content := "APP_NAME=checkout-from-file\nHOLD_DURATION=1m\nWORKER_BATCH_SIZE=25\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadWithPath(path)
	if err != nil {
		t.Fatalf("LoadWithPath() failed: %v", err)
	}
	if cfg.App.Name != "checkout-from-file" {
		t.Errorf("App.Name = %q", cfg.App.Name)
	}
	if cfg.Checkout.HoldDuration != time.Minute {
		t.Errorf("HoldDuration = %v, want 1m", cfg.Checkout.HoldDuration)
	}
	if cfg.Worker.BatchSize != 25 {
		t.Errorf("Worker.BatchSize = %d, want 25", cfg.Worker.BatchSize)
	}

	if _, err := LoadWithPath(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("LoadWithPath() should fail for a missing file")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "valid", modify: func(c *Config) {}},
		{name: "missing app name", modify: func(c *Config) { c.App.Name = "" }, wantErr: true},
		{name: "zero hold duration", modify: func(c *Config) { c.Checkout.HoldDuration = 0 }, wantErr: true},
		{name: "unknown storage", modify: func(c *Config) { c.Checkout.Storage = "mongo" }, wantErr: true},
		{name: "unknown promo store", modify: func(c *Config) { c.Checkout.PromoStore = "etcd" }, wantErr: true},
		{name: "postgres promos with memory storage", modify: func(c *Config) { c.Checkout.PromoStore = StoragePostgres }, wantErr: true},
		{name: "redis promos with memory storage", modify: func(c *Config) { c.Checkout.PromoStore = StorageRedis }},
		{name: "postgres without database name", modify: func(c *Config) {
			c.Checkout.Storage = StoragePostgres
			c.Database.DBName = ""
		}, wantErr: true},
		{name: "group threshold zero", modify: func(c *Config) { c.Pricing.GroupThreshold = 0 }, wantErr: true},
		{name: "discount rate above one", modify: func(c *Config) { c.Pricing.GroupDiscountRate = decimal.RequireFromString("1.5") }, wantErr: true},
		{name: "negative insurance fee", modify: func(c *Config) { c.Pricing.InsuranceFee = decimal.NewFromInt(-1) }, wantErr: true},
		{name: "worker without interval", modify: func(c *Config) { c.Worker.ScanInterval = 0 }, wantErr: true},
		{name: "disabled worker without interval", modify: func(c *Config) {
			c.Worker.Enabled = false
			c.Worker.ScanInterval = 0
		}},
		{name: "audit without postgres", modify: func(c *Config) { c.Audit.Enabled = true }, wantErr: true},
		{name: "kafka without brokers", modify: func(c *Config) { c.Kafka.Enabled = true }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRedisConfig_Addr(t *testing.T) {
	r := &RedisConfig{Host: "redis", Port: 6380}
	if got := r.Addr(); got != "redis:6380" {
		t.Errorf("Addr() = %q, want %q", got, "redis:6380")
	}
}

func TestConfig_Environment(t *testing.T) {
	cfg := validConfig()
	if !cfg.IsDevelopment() || cfg.IsProduction() {
		t.Error("development config misreported")
	}
	cfg.App.Environment = "production"
	if cfg.IsDevelopment() || !cfg.IsProduction() {
		t.Error("production config misreported")
	}
}
