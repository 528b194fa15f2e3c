package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

// BookingEventsChannel is the pub/sub channel booking transitions are published on.
const BookingEventsChannel = "bookings.events"

// RedisEventPublisher fans booking events out over Redis pub/sub.
type RedisEventPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisEventPublisher constructs a publisher on channel, defaulting to BookingEventsChannel.
func NewRedisEventPublisher(client *redis.Client, channel string) *RedisEventPublisher {
	if channel == "" {
		channel = BookingEventsChannel
	}
	return &RedisEventPublisher{client: client, channel: channel}
}

// Publish encodes the event as JSON and publishes it.
func (p *RedisEventPublisher) Publish(ctx context.Context, event models.BookingEvent) error {
	if p.client == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal booking event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish booking event: %w", err)
	}
	return nil
}

// LogEventPublisher writes booking events to the log. Used when Redis is disabled.
type LogEventPublisher struct {
	logger *zap.Logger
}

// NewLogEventPublisher constructs a LogEventPublisher.
func NewLogEventPublisher(logger *zap.Logger) *LogEventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogEventPublisher{logger: logger}
}

// Publish logs the event at info level.
func (p *LogEventPublisher) Publish(ctx context.Context, event models.BookingEvent) error {
	p.logger.Info("booking event",
		zap.String("booking_id", event.BookingID),
		zap.String("kind", string(event.Kind)),
		zap.String("from", string(event.From)),
		zap.String("to", string(event.To)),
		zap.String("reason", event.Reason),
		zap.Time("at", event.At),
	)
	return nil
}
