package database

import (
	"context"
	"os"
	"strconv"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getTestConfig returns config for testing from TEST_POSTGRES_* or defaults
func getTestConfig() *PostgresConfig {
	cfg := DefaultPostgresConfig()

	if host := os.Getenv("TEST_POSTGRES_HOST"); host != "" {
		cfg.Host = host
	}
	if port, err := strconv.Atoi(os.Getenv("TEST_POSTGRES_PORT")); err == nil {
		cfg.Port = port
	}
	if user := os.Getenv("TEST_POSTGRES_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("TEST_POSTGRES_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if dbname := os.Getenv("TEST_POSTGRES_DATABASE"); dbname != "" {
		cfg.Database = dbname
	}

	return cfg
}

func connectForTest(t *testing.T) *PostgresDB {
	t.Helper()
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}

	db, err := NewPostgres(context.Background(), getTestConfig())
	require.NoError(t, err, "failed to connect to postgres")
	t.Cleanup(db.Close)
	return db
}

func TestDefaultPostgresConfig(t *testing.T) {
	cfg := DefaultPostgresConfig()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, int32(25), cfg.MaxConns)
	assert.Equal(t, int32(5), cfg.MinConns)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, "disable", cfg.SSLMode)
}

func TestPostgresConfig_DSN(t *testing.T) {
	cfg := &PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "checkout",
		Password: "secret",
		Database: "seats",
		SSLMode:  "disable",
	}

	assert.Equal(t, "host=localhost port=5432 user=checkout password=secret dbname=seats sslmode=disable", cfg.DSN())
}

func TestNewPostgres_InvalidConfig(t *testing.T) {
	cfg := &PostgresConfig{
		Host:           "invalid-host-that-does-not-exist",
		Port:           9999,
		User:           "invalid",
		Password:       "invalid",
		Database:       "invalid",
		SSLMode:        "disable",
		MaxRetries:     0,
		RetryInterval:  100 * time.Millisecond,
		ConnectTimeout: time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := NewPostgres(ctx, cfg)
	assert.Error(t, err)
}

func TestPostgresDB_Integration(t *testing.T) {
	db := connectForTest(t)
	ctx := context.Background()

	assert.NoError(t, db.Ping(ctx))
	assert.True(t, db.IsConnected(ctx))
	assert.NotNil(t, db.Pool())
	assert.NotNil(t, db.Stats())
	assert.NoError(t, db.HealthCheck(ctx))
}

func TestPostgresDB_ExecAndTransaction_Integration(t *testing.T) {
	db := connectForTest(t)
	ctx := context.Background()

	require.NoError(t, db.Exec(ctx, "CREATE TABLE IF NOT EXISTS db_tx_test (id SERIAL PRIMARY KEY, seat TEXT)"))
	t.Cleanup(func() { _ = db.Exec(context.Background(), "DROP TABLE IF EXISTS db_tx_test") })

	tx, err := db.BeginTx(ctx)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, "INSERT INTO db_tx_test (seat) VALUES ($1)", "A1")
	if err != nil {
		_ = tx.Rollback(ctx)
		t.Fatalf("insert in tx failed: %v", err)
	}
	require.NoError(t, tx.Commit(ctx))

	var seat string
	require.NoError(t, db.QueryRow(ctx, "SELECT seat FROM db_tx_test WHERE seat = $1", "A1").Scan(&seat))
	assert.Equal(t, "A1", seat)
}

func TestPostgresDB_Migrate_Integration(t *testing.T) {
	db := connectForTest(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"000002_second.up.sql":  {Data: []byte("INSERT INTO db_migrate_test (step) VALUES (2);")},
		"000001_first.up.sql":   {Data: []byte("CREATE TABLE IF NOT EXISTS db_migrate_test (step INT); DELETE FROM db_migrate_test;")},
		"000001_first.down.sql": {Data: []byte("DROP TABLE db_migrate_test;")},
	}
	t.Cleanup(func() { _ = db.Exec(context.Background(), "DROP TABLE IF EXISTS db_migrate_test") })

	applied, err := db.Migrate(ctx, fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_first.up.sql", "000002_second.up.sql"}, applied)

	var step int
	require.NoError(t, db.QueryRow(ctx, "SELECT step FROM db_migrate_test").Scan(&step))
	assert.Equal(t, 2, step)
}

func TestPostgresDB_Close(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}

	ctx := context.Background()
	db, err := NewPostgres(ctx, getTestConfig())
	require.NoError(t, err)

	db.Close()
	assert.Error(t, db.Ping(ctx), "ping should fail after Close")
}
