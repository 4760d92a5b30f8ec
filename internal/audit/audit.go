package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/prohmpiriya/booking-rush-checkout/internal/domain"
	"github.com/prohmpiriya/booking-rush-checkout/pkg/logger"
)

// Action represents the seat-map mutation being audited
type Action string

const (
	ActionReserve Action = "reserve"
	ActionConfirm Action = "confirm"
	ActionRelease Action = "release"
	ActionExpire  Action = "expire"
	ActionCancel  Action = "cancel"
)

// Entry is a single audit record: the seats a mutation touched and their state afterwards
type Entry struct {
	ID         string                `json:"id"`
	Action     Action                `json:"action"`
	EventID    string                `json:"event_id"`
	ResourceID string                `json:"resource_id,omitempty"`
	UserID     string                `json:"user_id,omitempty"`
	Seats      []domain.SeatSnapshot `json:"seats"`
	CreatedAt  time.Time             `json:"created_at"`
}

// NewEntry creates an entry with a fresh id
func NewEntry(action Action, eventID, resourceID, userID string, seats []domain.SeatSnapshot, at time.Time) *Entry {
	return &Entry{
		ID:         uuid.New().String(),
		Action:     action,
		EventID:    eventID,
		ResourceID: resourceID,
		UserID:     userID,
		Seats:      seats,
		CreatedAt:  at,
	}
}

// Recorder accepts audit entries
type Recorder interface {
	Log(entry *Entry)
	Close() error
}

// NopRecorder drops every entry
type NopRecorder struct{}

// Log does nothing
func (NopRecorder) Log(*Entry) {}

// Close does nothing
func (NopRecorder) Close() error { return nil }

// Config holds configuration for the audit logger
type Config struct {
	// DB is the PostgreSQL connection pool for storing audit logs
	DB *pgxpool.Pool
	// BufferSize is the size of the async audit buffer (default: 1000)
	BufferSize int
	// FlushInterval is how often to flush the buffer (default: 5 seconds)
	FlushInterval time.Duration
	// BatchSize is the maximum number of entries to insert in one batch (default: 100)
	BatchSize int
	// Logger reports dropped entries and failed flushes
	Logger *logger.Logger
}

// DefaultConfig returns default configuration
func DefaultConfig(db *pgxpool.Pool) *Config {
	return &Config{
		DB:            db,
		BufferSize:    1000,
		FlushInterval: 5 * time.Second,
		BatchSize:     100,
	}
}

// Logger handles async audit logging
type Logger struct {
	config    *Config
	log       *logger.Logger
	buffer    chan *Entry
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	closed    bool
	closeMu   sync.RWMutex

	// For testing: collect entries instead of writing to DB
	testMode    bool
	testEntries []*Entry
	testMu      sync.Mutex
}

// NewLogger creates a new audit logger and starts its background worker
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig(nil)
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 1000
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = 5 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	log := config.Logger
	if log == nil {
		log = logger.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	al := &Logger{
		config: config,
		log:    log.Named("audit"),
		buffer: make(chan *Entry, config.BufferSize),
		ctx:    ctx,
		cancel: cancel,
	}

	al.wg.Add(1)
	go al.worker()

	return al
}

// Log adds an audit entry to the buffer (non-blocking)
func (al *Logger) Log(entry *Entry) {
	if entry == nil {
		return
	}
	al.closeMu.RLock()
	defer al.closeMu.RUnlock()
	if al.closed {
		return
	}

	select {
	case al.buffer <- entry:
	default:
		al.log.Warn("Audit buffer full, dropping entry",
			zap.String("action", string(entry.Action)),
			logger.EventID(entry.EventID),
		)
	}
}

// Close flushes buffered entries and stops the worker
func (al *Logger) Close() error {
	al.closeOnce.Do(func() {
		al.closeMu.Lock()
		al.closed = true
		close(al.buffer)
		al.closeMu.Unlock()
		al.wg.Wait()
		al.cancel()
	})
	return nil
}

// SetTestMode enables test mode which collects entries instead of writing to DB
func (al *Logger) SetTestMode(enabled bool) {
	al.testMu.Lock()
	defer al.testMu.Unlock()
	al.testMode = enabled
	if enabled {
		al.testEntries = make([]*Entry, 0)
	}
}

// GetTestEntries returns collected test entries (only in test mode)
func (al *Logger) GetTestEntries() []*Entry {
	al.testMu.Lock()
	defer al.testMu.Unlock()
	result := make([]*Entry, len(al.testEntries))
	copy(result, al.testEntries)
	return result
}

// ClearTestEntries clears collected test entries
func (al *Logger) ClearTestEntries() {
	al.testMu.Lock()
	defer al.testMu.Unlock()
	al.testEntries = make([]*Entry, 0)
}

// worker processes audit entries in the background
func (al *Logger) worker() {
	defer al.wg.Done()

	ticker := time.NewTicker(al.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]*Entry, 0, al.config.BatchSize)

	for {
		select {
		case entry, ok := <-al.buffer:
			if !ok {
				al.flush(batch)
				return
			}
			batch = append(batch, entry)
			if len(batch) >= al.config.BatchSize {
				al.flush(batch)
				batch = make([]*Entry, 0, al.config.BatchSize)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				al.flush(batch)
				batch = make([]*Entry, 0, al.config.BatchSize)
			}
		}
	}
}

const insertAuditQuery = `
	INSERT INTO seat_audit_logs (id, action, event_id, resource_id, user_id, seats, created_at)
	VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7)
`

// flush writes a batch of entries to the database
func (al *Logger) flush(entries []*Entry) {
	if len(entries) == 0 {
		return
	}

	al.testMu.Lock()
	if al.testMode {
		al.testEntries = append(al.testEntries, entries...)
		al.testMu.Unlock()
		return
	}
	al.testMu.Unlock()

	if al.config.DB == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	batch := &pgx.Batch{}
	for _, entry := range entries {
		seats, err := json.Marshal(entry.Seats)
		if err != nil {
			al.log.Warn("Failed to encode audit seats", zap.Error(err), logger.EventID(entry.EventID))
			continue
		}
		batch.Queue(insertAuditQuery,
			entry.ID, string(entry.Action), entry.EventID, entry.ResourceID, entry.UserID, seats, entry.CreatedAt,
		)
	}

	results := al.config.DB.SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			// audit writes never fail the checkout path
			al.log.Error("Failed to write audit entry", zap.Error(err))
		}
	}
}
