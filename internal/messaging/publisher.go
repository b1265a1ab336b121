package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const appID = "gameforge"

// Publisher is the part of *amqp.Channel used to publish.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Channel is what TaskPublisher and Notifier need from *amqp.Channel.
type Channel interface {
	Declarer
	Publisher
}

// TaskPublisher sends generation tasks to the worker.
type TaskPublisher interface {
	PublishTask(ctx context.Context, payload GenerationTaskPayload) error
}

// Notifier reports finished generation tasks.
type Notifier interface {
	Notify(ctx context.Context, payload NotificationPayload) error
}

func publishJSON(ctx context.Context, ch Publisher, queue, messageID string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message %s: %w", messageID, err)
	}
	return ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Timestamp:    time.Now(),
		AppId:        appID,
		MessageId:    messageID,
	})
}

type rabbitMQTaskPublisher struct {
	channel Publisher
	queue   string
	logger  *zap.Logger
}

// NewRabbitMQTaskPublisher declares the task topology and returns a publisher for it.
// The channel is owned by the caller.
func NewRabbitMQTaskPublisher(ch Channel, topology Topology, logger *zap.Logger) (TaskPublisher, error) {
	if err := topology.Declare(ch); err != nil {
		return nil, err
	}
	return &rabbitMQTaskPublisher{
		channel: ch,
		queue:   topology.TaskQueue,
		logger:  logger.Named("TaskPublisher"),
	}, nil
}

func (p *rabbitMQTaskPublisher) PublishTask(ctx context.Context, payload GenerationTaskPayload) error {
	log := p.logger.With(zap.String("task_id", payload.TaskID), zap.String("user_id", payload.UserID))
	if err := publishJSON(ctx, p.channel, p.queue, payload.TaskID, payload); err != nil {
		log.Error("Failed to publish generation task", zap.Error(err))
		return fmt.Errorf("failed to publish task %s: %w", payload.TaskID, err)
	}
	log.Info("Generation task published", zap.String("queue", p.queue))
	return nil
}

type rabbitMQNotifier struct {
	channel Publisher
	queue   string
	logger  *zap.Logger
}

// NewRabbitMQNotifier declares the durable lazy notification queue.
// The channel is owned by the caller.
func NewRabbitMQNotifier(ch Channel, queue string, logger *zap.Logger) (Notifier, error) {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, amqp.Table{"x-queue-mode": "lazy"}); err != nil {
		return nil, fmt.Errorf("failed to declare notification queue '%s': %w", queue, err)
	}
	return &rabbitMQNotifier{
		channel: ch,
		queue:   queue,
		logger:  logger.Named("Notifier"),
	}, nil
}

func (n *rabbitMQNotifier) Notify(ctx context.Context, payload NotificationPayload) error {
	log := n.logger.With(zap.String("task_id", payload.TaskID), zap.String("status", string(payload.Status)))
	if err := publishJSON(ctx, n.channel, n.queue, payload.TaskID+"-notif", payload); err != nil {
		log.Error("Failed to publish notification", zap.Error(err))
		return fmt.Errorf("failed to publish notification for task %s: %w", payload.TaskID, err)
	}
	log.Info("Notification sent", zap.String("queue", n.queue))
	return nil
}
