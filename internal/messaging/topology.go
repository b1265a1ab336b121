package messaging

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const deadLetterRoutingKey = "dlq"

// Topology names the task queue and its dead-letter pair.
type Topology struct {
	TaskQueue          string
	DeadLetterExchange string
	DeadLetterQueue    string
}

// Declarer is the part of *amqp.Channel used to declare queues.
type Declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// Declare creates the dead-letter exchange and queue, then the durable lazy task queue
// routed to them. Publishers and consumers must declare the task queue with the same arguments.
func (t Topology) Declare(ch Declarer) error {
	if t.DeadLetterExchange != "" {
		if err := ch.ExchangeDeclare(t.DeadLetterExchange, "direct", true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare dead-letter exchange '%s': %w", t.DeadLetterExchange, err)
		}
		if _, err := ch.QueueDeclare(t.DeadLetterQueue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare dead-letter queue '%s': %w", t.DeadLetterQueue, err)
		}
		if err := ch.QueueBind(t.DeadLetterQueue, deadLetterRoutingKey, t.DeadLetterExchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind dead-letter queue '%s': %w", t.DeadLetterQueue, err)
		}
	}

	if _, err := ch.QueueDeclare(t.TaskQueue, true, false, false, false, t.taskQueueArgs()); err != nil {
		return fmt.Errorf("failed to declare task queue '%s': %w", t.TaskQueue, err)
	}
	return nil
}

func (t Topology) taskQueueArgs() amqp.Table {
	args := amqp.Table{"x-queue-mode": "lazy"}
	if t.DeadLetterExchange != "" {
		args["x-dead-letter-exchange"] = t.DeadLetterExchange
		args["x-dead-letter-routing-key"] = deadLetterRoutingKey
	}
	return args
}
