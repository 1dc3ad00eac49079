package repository

import (
	"context"
	"time"

	"MarketPulse/internal/domain/models"
	pkgkafka "MarketPulse/pkg/kafka"
)

// Event types emitted to the bus.
const (
	eventRunCompleted = "run_completed"
	eventSubmission   = "update_submitted"
)

type runEvent struct {
	Type    string            `json:"type"`
	At      time.Time         `json:"at"`
	Summary models.RunSummary `json:"summary"`
}

type submissionEvent struct {
	Type      string    `json:"type"`
	At        time.Time `json:"at"`
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	TxHash    string    `json:"tx_hash"`
	Confirmed bool      `json:"confirmed"`
}

// KafkaEventPublisher pushes run and submission events to a Kafka topic,
// keyed by symbol so per-symbol events stay ordered within a partition.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaEventPublisher creates a KafkaEventPublisher.
func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) PublishRun(ctx context.Context, summary models.RunSummary) error {
	return p.producer.Publish(ctx, p.topic, []byte("run"), runEvent{
		Type:    eventRunCompleted,
		At:      time.Now().UTC(),
		Summary: summary,
	})
}

func (p *KafkaEventPublisher) PublishSubmission(ctx context.Context, symbol string, tf models.Timeframe, result models.SubmissionResult) error {
	return p.producer.Publish(ctx, p.topic, []byte(symbol), submissionEvent{
		Type:      eventSubmission,
		At:        time.Now().UTC(),
		Symbol:    symbol,
		Timeframe: tf.String(),
		TxHash:    result.TxHash,
		Confirmed: result.Confirmed,
	})
}

func (p *KafkaEventPublisher) Close() error {
	return p.producer.Close()
}

// NoopEventPublisher satisfies the publisher port when no brokers are
// configured.
type NoopEventPublisher struct{}

func (NoopEventPublisher) PublishRun(context.Context, models.RunSummary) error { return nil }

func (NoopEventPublisher) PublishSubmission(context.Context, string, models.Timeframe, models.SubmissionResult) error {
	return nil
}

func (NoopEventPublisher) Close() error { return nil }
