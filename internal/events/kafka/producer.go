package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Event is the wire shape of a workflow lifecycle event.
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	EnvelopeID string      `json:"envelope_id"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload,omitempty"`
}

// Producer publishes workflow events. Publishing is fire-and-forget for
// callers: failures are logged, never returned to the workflow.
type Producer struct {
	writer *kafka.Writer
	topic  string
	logger *zap.Logger
}

// NewProducer creates a producer writing to a single topic.
func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
	return &Producer{writer: writer, topic: topic, logger: logger.Named("kafka_producer")}
}

// Close closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Publish sends an event keyed by envelope id so events of one envelope
// stay ordered within a partition.
func (p *Producer) Publish(ctx context.Context, eventType string, envelopeID string, payload interface{}) {
	event := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		EnvelopeID: envelopeID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}

	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal event", zap.Error(err), zap.String("type", eventType))
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = p.writer.WriteMessages(writeCtx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(envelopeID),
		Value: value,
		Time:  time.Now(),
	})
	if err != nil {
		p.logger.Error("Failed to write message to Kafka",
			zap.String("topic", p.topic),
			zap.String("type", eventType),
			zap.String("envelope_id", envelopeID),
			zap.Error(err),
		)
		return
	}

	p.logger.Debug(fmt.Sprintf("Published %s", eventType), zap.String("envelope_id", envelopeID))
}
