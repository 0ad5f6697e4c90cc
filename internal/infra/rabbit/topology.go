// Package rabbit implements event publishing and consumption over RabbitMQ.
package rabbit

import (
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Broker topology. The main exchange is a topic exchange so consumers can
// bind by pattern; the dead-letter exchange is direct and routes rejected
// messages to the DLQ by exact key.
const (
	UserExchange = "user.exchange"
	DLXExchange  = "user.dlx"
	UserQueue    = "user.queue"
	UserDLQ      = "user.queue.dlq"

	// UserEventsBinding routes every user.* event into the main queue.
	UserEventsBinding = "user.#"

	// RoutingKeyUserEvent is the key user lifecycle events are published under.
	RoutingKeyUserEvent = "user.event"
)

// DeclareTopology declares the exchanges, queues and bindings this service
// depends on. Declaration is idempotent; both the publisher and the consumer
// call it so either side can start first.
func DeclareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(UserExchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return errors.Wrapf(err, "failed to declare exchange %s", UserExchange)
	}

	if err := ch.ExchangeDeclare(DLXExchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return errors.Wrapf(err, "failed to declare exchange %s", DLXExchange)
	}

	// Rejected deliveries leave the main queue through the DLX with the DLQ's
	// name as routing key.
	if _, err := ch.QueueDeclare(UserQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    DLXExchange,
		"x-dead-letter-routing-key": UserDLQ,
	}); err != nil {
		return errors.Wrapf(err, "failed to declare queue %s", UserQueue)
	}

	if _, err := ch.QueueDeclare(UserDLQ, true, false, false, false, nil); err != nil {
		return errors.Wrapf(err, "failed to declare queue %s", UserDLQ)
	}

	if err := ch.QueueBind(UserQueue, UserEventsBinding, UserExchange, false, nil); err != nil {
		return errors.Wrapf(err, "failed to bind queue %s", UserQueue)
	}

	if err := ch.QueueBind(UserDLQ, UserDLQ, DLXExchange, false, nil); err != nil {
		return errors.Wrapf(err, "failed to bind queue %s", UserDLQ)
	}

	return nil
}
