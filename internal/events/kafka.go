package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaConfig contains configuration for the Kafka publisher
type KafkaConfig struct {
	Brokers        []string
	ClientID       string
	Topic          string
	ProduceTimeout time.Duration
}

// DefaultKafkaConfig returns a default publisher configuration
func DefaultKafkaConfig() *KafkaConfig {
	return &KafkaConfig{
		Brokers:        []string{"localhost:9092"},
		ClientID:       "booking-checkout",
		Topic:          "checkout.events",
		ProduceTimeout: 5 * time.Second,
	}
}

// KafkaPublisher publishes checkout events as JSON records keyed by event id
type KafkaPublisher struct {
	client *kgo.Client
	config *KafkaConfig
}

// NewKafkaPublisher creates a franz-go producer client
func NewKafkaPublisher(cfg *KafkaConfig) (*KafkaPublisher, error) {
	if cfg == nil {
		cfg = DefaultKafkaConfig()
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	return &KafkaPublisher{client: client, config: cfg}, nil
}

// Record encodes an event as a Kafka record
func Record(event *Event) (*kgo.Record, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return &kgo.Record{
		Key:   []byte(event.Key()),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(event.Type)},
		},
		Timestamp: event.OccurredAt,
	}, nil
}

// Publish produces the event synchronously
func (p *KafkaPublisher) Publish(ctx context.Context, event *Event) error {
	record, err := Record(event)
	if err != nil {
		return err
	}

	if p.config.ProduceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.ProduceTimeout)
		defer cancel()
	}

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

// HealthCheck pings the brokers
func (p *KafkaPublisher) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close flushes pending records and closes the client
func (p *KafkaPublisher) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := p.client.Flush(ctx)
	p.client.Close()
	return err
}
