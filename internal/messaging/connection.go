package messaging

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Connection retry defaults.
const (
	DefaultDialAttempts = 5
	DefaultDialDelay    = 5 * time.Second
)

// Dial connects to RabbitMQ, retrying while the broker starts up.
func Dial(ctx context.Context, url string, logger *zap.Logger) (*amqp.Connection, error) {
	log := logger.Named("RabbitMQ")
	var lastErr error
	for attempt := 1; attempt <= DefaultDialAttempts; attempt++ {
		conn, err := amqp.Dial(url)
		if err == nil {
			log.Info("Connected to RabbitMQ", zap.Int("attempt", attempt))
			return conn, nil
		}
		lastErr = err
		log.Warn("Failed to connect to RabbitMQ, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", DefaultDialAttempts),
			zap.Duration("delay", DefaultDialDelay),
			zap.Error(err))
		if attempt == DefaultDialAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(DefaultDialDelay):
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", DefaultDialAttempts, lastErr)
}
