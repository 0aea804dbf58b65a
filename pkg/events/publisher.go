// Package events publishes export events to Redis and Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/buildinfo"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/logging"
)

// DefaultChannel is the Redis channel used when none is configured.
const DefaultChannel = "events.transcript.exported"

// EventTypeTranscriptExported tags TranscriptExportedEvent payloads.
const EventTypeTranscriptExported = "transcript.exported"

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
}

// NewBaseEvent creates a BaseEvent with a fresh id.
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Source:    "ffdl",
		Version:   buildinfo.Version,
	}
}

// TranscriptExportedEvent is published once per processed transcript,
// whether or not its export succeeded.
type TranscriptExportedEvent struct {
	BaseEvent

	RunID        string   `json:"run_id"`
	TranscriptID string   `json:"transcript_id"`
	Title        string   `json:"title"`
	BasePath     string   `json:"base_path"`
	Artifacts    []string `json:"artifacts"`
	Skipped      []string `json:"skipped,omitempty"`
	Success      bool     `json:"success"`
	Error        *string  `json:"error,omitempty"`
	ErrorCode    *string  `json:"error_code,omitempty"`
	DurationMs   int64    `json:"duration_ms"`
}

// TranscriptExportedParams carries the values for a TranscriptExportedEvent.
type TranscriptExportedParams struct {
	RunID        string
	TranscriptID string
	Title        string
	BasePath     string
	Artifacts    []string
	Skipped      []string
	Err          error
	ErrorCode    string
	Duration     time.Duration
}

// redisPublisher is the subset of the Redis client the publisher needs.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// Publisher publishes export events to Redis.
type Publisher struct {
	client  redisPublisher
	channel string
	logger  logging.Logger
}

// PublisherConfig holds Redis connection configuration.
type PublisherConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// NewPublisher creates a new event publisher on an existing client.
func NewPublisher(client *redis.Client, channel string, logger logging.Logger) *Publisher {
	return newPublisher(client, channel, logger)
}

func newPublisher(client redisPublisher, channel string, logger logging.Logger) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Publisher{
		client:  client,
		channel: channel,
		logger:  logger.With(logging.F("component", "event_publisher")),
	}
}

// NewPublisherFromConfig creates a publisher with a new Redis connection.
func NewPublisherFromConfig(ctx context.Context, cfg PublisherConfig, logger logging.Logger) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewPublisher(client, cfg.Channel, logger), nil
}

// Channel returns the channel events are published to.
func (p *Publisher) Channel() string {
	return p.channel
}

// NewTranscriptExportedEvent builds the event for one transcript result.
func NewTranscriptExportedEvent(params TranscriptExportedParams) TranscriptExportedEvent {
	event := TranscriptExportedEvent{
		BaseEvent:    NewBaseEvent(EventTypeTranscriptExported),
		RunID:        params.RunID,
		TranscriptID: params.TranscriptID,
		Title:        params.Title,
		BasePath:     params.BasePath,
		Artifacts:    params.Artifacts,
		Skipped:      params.Skipped,
		Success:      params.Err == nil,
		DurationMs:   params.Duration.Milliseconds(),
	}
	if event.Artifacts == nil {
		event.Artifacts = []string{}
	}
	if params.Err != nil {
		msg := params.Err.Error()
		event.Error = &msg
	}
	if params.ErrorCode != "" {
		code := params.ErrorCode
		event.ErrorCode = &code
	}
	return event
}

// PublishTranscriptExported publishes the event for one transcript result.
func (p *Publisher) PublishTranscriptExported(ctx context.Context, params TranscriptExportedParams) error {
	return p.publish(ctx, NewTranscriptExportedEvent(params))
}

// Close closes the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}

// publish serializes and publishes an event to Redis.
func (p *Publisher) publish(ctx context.Context, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		p.logger.Warn("Failed to publish event",
			logging.Err(err),
			logging.F("channel", p.channel))
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Published event", logging.F("channel", p.channel))
	return nil
}
