package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// TaskHandler processes one decoded generation task.
// A non-nil error dead-letters the message.
type TaskHandler interface {
	Handle(ctx context.Context, payload GenerationTaskPayload) error
}

// TaskConsumer feeds the task queue to a TaskHandler, one message at a time.
type TaskConsumer struct {
	channel  *amqp.Channel
	topology Topology
	handler  TaskHandler
	onReject func(reason string)
	logger   *zap.Logger
	tag      string
	done     chan struct{}
}

// ConsumerOption customizes a TaskConsumer.
type ConsumerOption func(*TaskConsumer)

// WithRejectHook is called with a reason each time a message is dead-lettered.
func WithRejectHook(fn func(reason string)) ConsumerOption {
	return func(c *TaskConsumer) { c.onReject = fn }
}

func NewTaskConsumer(ch *amqp.Channel, topology Topology, handler TaskHandler, logger *zap.Logger, opts ...ConsumerOption) *TaskConsumer {
	c := &TaskConsumer{
		channel:  ch,
		topology: topology,
		handler:  handler,
		onReject: func(string) {},
		logger:   logger.Named("TaskConsumer"),
		tag:      "gameforge-worker",
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start declares the topology, sets prefetch to 1 and consumes until ctx is
// cancelled or the delivery channel closes. Done is closed afterwards.
func (c *TaskConsumer) Start(ctx context.Context) error {
	if err := c.topology.Declare(c.channel); err != nil {
		return err
	}
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}
	msgs, err := c.channel.Consume(c.topology.TaskQueue, c.tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}
	c.logger.Info("Task consumer started", zap.String("queue", c.topology.TaskQueue))

	go func() {
		defer close(c.done)
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Info("Delivery channel closed, stopping consumer")
					return
				}
				c.handleDelivery(ctx, msg)
			case <-ctx.Done():
				c.logger.Info("Context cancelled, stopping consumer")
				return
			}
		}
	}()
	return nil
}

// Stop cancels the subscription and waits for the in-flight message.
func (c *TaskConsumer) Stop(timeout time.Duration) {
	if err := c.channel.Cancel(c.tag, false); err != nil {
		c.logger.Warn("Failed to cancel consumer", zap.Error(err))
	}
	select {
	case <-c.done:
		c.logger.Info("Task consumer stopped")
	case <-time.After(timeout):
		c.logger.Warn("Timeout waiting for task consumer to stop")
	}
}

// Done is closed when the consume loop exits.
func (c *TaskConsumer) Done() <-chan struct{} {
	return c.done
}

func (c *TaskConsumer) handleDelivery(ctx context.Context, msg amqp.Delivery) {
	payload, err := decodeTask(msg.Body)
	if err != nil {
		c.logger.Error("Rejecting undecodable task", zap.Error(err), zap.ByteString("body", msg.Body))
		c.reject(msg, "deserialization")
		return
	}

	log := c.logger.With(zap.String("task_id", payload.TaskID))
	if err := c.handler.Handle(ctx, payload); err != nil {
		log.Error("Task failed, dead-lettering", zap.Error(err))
		c.reject(msg, "handler")
		return
	}
	if err := msg.Ack(false); err != nil {
		log.Error("Failed to ack task", zap.Error(err))
		return
	}
	log.Debug("Task acknowledged")
}

func (c *TaskConsumer) reject(msg amqp.Delivery, reason string) {
	c.onReject(reason)
	if err := msg.Nack(false, false); err != nil {
		c.logger.Error("Failed to nack task", zap.Error(err))
	}
}

var errMissingIdentity = errors.New("task_id and user_id are required")

func decodeTask(body []byte) (GenerationTaskPayload, error) {
	var payload GenerationTaskPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	if payload.TaskID == "" || payload.UserID == "" {
		return payload, errMissingIdentity
	}
	return payload, nil
}
