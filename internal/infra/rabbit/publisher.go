package rabbit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"bookwise/config"
	domainerrors "bookwise/internal/domain/errors"
	"bookwise/internal/domain/service"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

// rabbitPublisher implements EventPublisher on a confirm-mode AMQP channel.
// Every publish waits for the broker's acknowledgement before returning.
type rabbitPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *slog.Logger
}

// NewRabbitPublisher connects to the broker, declares the topology and puts
// the channel into confirm mode.
func NewRabbitPublisher(cfg *config.RabbitConfig, logger *slog.Logger) (service.EventPublisher, error) {
	conn, err := amqp.DialConfig(cfg.URL(), amqp.Config{
		Heartbeat: cfg.Heartbeat,
		Dial:      amqp.DefaultDial(cfg.ConnectionTimeout),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to RabbitMQ")
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()

		return nil, errors.Wrap(err, "failed to open channel")
	}

	if err := DeclareTopology(channel); err != nil {
		conn.Close()

		return nil, err
	}

	if err := channel.Confirm(false); err != nil {
		conn.Close()

		return nil, errors.Wrap(err, "failed to enable publisher confirms")
	}

	logger.Info("RabbitMQ publisher initialized",
		slog.String("exchange", UserExchange),
		slog.String("routing_key", RoutingKeyUserEvent),
	)

	return &rabbitPublisher{
		conn:    conn,
		channel: channel,
		logger:  logger,
	}, nil
}

// Publish sends a user event to the topic exchange and waits for the broker
// confirm. A transport failure fails the publish; a broker nack is logged and
// swallowed because the broker accepted the frame but declined to queue it,
// and the mutation that produced the event has already committed.
func (p *rabbitPublisher) Publish(ctx context.Context, event *service.UserEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errors.WithStack(err)
	}

	correlationID := uuid.NewString()

	p.logger.Info("[Rabbit] Publishing user event",
		slog.String("event_type", string(event.EventType)),
		slog.String("user_id", event.UserID.String()),
		slog.String("correlation_id", correlationID),
	)

	confirmation, err := p.channel.PublishWithDeferredConfirmWithContext(
		ctx,
		UserExchange,
		RoutingKeyUserEvent,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			CorrelationId: correlationID,
			Timestamp:     time.Now(),
			Body:          body,
		},
	)
	if err != nil {
		return errors.Wrap(domainerrors.ErrEventPublish, err.Error())
	}

	acked, err := confirmation.WaitContext(ctx)
	if err != nil {
		return errors.Wrap(domainerrors.ErrEventPublish, err.Error())
	}
	if !acked {
		p.logger.Error("[Rabbit] Broker nacked user event",
			slog.String("event_type", string(event.EventType)),
			slog.String("correlation_id", correlationID),
		)

		return nil
	}

	p.logger.Info("[Rabbit] User event confirmed",
		slog.String("event_type", string(event.EventType)),
		slog.String("correlation_id", correlationID),
	)

	return nil
}

// Close releases the channel and connection.
func (p *rabbitPublisher) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			p.logger.Warn("Failed to close RabbitMQ channel", slog.Any("error", err))
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			return errors.WithStack(err)
		}
	}

	return nil
}
