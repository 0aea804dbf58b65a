package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/logging"
)

// DefaultTopic is the Kafka topic used when none is configured.
const DefaultTopic = "ffdl.transcript.exported"

// kafkaWriter is the subset of kafka.Writer the publisher needs.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig holds Kafka producer settings.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaPublisher publishes export events to a Kafka topic, keyed by
// transcript id so results for one transcript stay on one partition.
type KafkaPublisher struct {
	writer kafkaWriter
	topic  string
	logger logging.Logger
}

// NewKafkaPublisher creates a producer for the configured brokers.
func NewKafkaPublisher(cfg KafkaConfig, logger logging.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}
	return newKafkaPublisher(w, topic, logger), nil
}

func newKafkaPublisher(w kafkaWriter, topic string, logger logging.Logger) *KafkaPublisher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &KafkaPublisher{
		writer: w,
		topic:  topic,
		logger: logger.With(logging.F("component", "kafka_publisher")),
	}
}

// Topic returns the topic events are written to.
func (p *KafkaPublisher) Topic() string {
	return p.topic
}

// PublishTranscriptExported writes the event for one transcript result.
func (p *KafkaPublisher) PublishTranscriptExported(ctx context.Context, params TranscriptExportedParams) error {
	event := NewTranscriptExportedEvent(params)
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.TranscriptID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "run_id", Value: []byte(event.RunID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("Failed to write event",
			logging.Err(err),
			logging.F("topic", p.topic))
		return fmt.Errorf("failed to write event: %w", err)
	}

	p.logger.Debug("Wrote event", logging.F("topic", p.topic))
	return nil
}

// Close flushes pending messages and closes the producer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
