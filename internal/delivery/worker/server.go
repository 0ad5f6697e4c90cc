package worker

import (
	"context"
	"log/slog"

	"bookwise/config"
	"bookwise/internal/delivery"
	"bookwise/internal/delivery/worker/handler"
	"bookwise/internal/infra/rabbit"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
)

// workerServer consumes user events from the queue with manual
// acknowledgements. Deliveries the handler gives up on are rejected without
// requeue, which routes them to the dead-letter queue.
type workerServer struct {
	cfg     *config.Config
	logger  *slog.Logger
	handler *handler.UserEventHandler
	conn    *amqp.Connection
	channel *amqp.Channel
}

// ServerParams holds dependencies for the worker server
type ServerParams struct {
	fx.In

	Lc      fx.Lifecycle
	Cfg     *config.Config
	Logger  *slog.Logger
	Handler *handler.UserEventHandler
}

// NewServer connects the worker to the broker and declares the topology.
func NewServer(params ServerParams) (delivery.Delivery, error) {
	cfg := params.Cfg.Rabbit
	if cfg == nil || cfg.Host == "" {
		return nil, errors.New("rabbit configuration is required for the event worker")
	}

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

	if err := rabbit.DeclareTopology(channel); err != nil {
		conn.Close()

		return nil, err
	}

	// One unacked delivery at a time: the handler retries in-process, so a
	// slow message must not starve the prefetch window.
	if err := channel.Qos(1, 0, false); err != nil {
		conn.Close()

		return nil, errors.Wrap(err, "failed to set channel QoS")
	}

	srv := &workerServer{
		cfg:     params.Cfg,
		logger:  params.Logger,
		handler: params.Handler,
		conn:    conn,
		channel: channel,
	}

	params.Lc.Append(fx.Hook{
		OnStop: srv.stop,
	})

	return srv, nil
}

// Serve consumes the user queue until the context ends or the channel dies.
func (s *workerServer) Serve(ctx context.Context) error {
	deliveries, err := s.channel.Consume(
		rabbit.UserQueue,
		"",    // consumer tag, broker-generated
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return errors.Wrap(err, "failed to start consuming")
	}

	s.logger.Info("Starting event worker", slog.String("queue", rabbit.UserQueue))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Event worker context cancelled")

			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}

			s.dispatch(ctx, &d)
		}
	}
}

// dispatch runs the handler for one delivery and settles it. Ack/Nack errors
// mean the channel is gone; the consume loop will observe that on its next
// receive, so they are only logged here.
func (s *workerServer) dispatch(ctx context.Context, d *amqp.Delivery) {
	err := s.handler.Handle(ctx, d.Body)
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			s.logger.Error("[Worker] Failed to ack delivery", slog.Any("error", ackErr))
		}

		return
	}

	// Shutdown interrupted the attempts. Leave the delivery unacked so the
	// broker requeues it when the connection closes, instead of dead-lettering
	// a message that never got its full retry budget.
	if ctx.Err() != nil {
		s.logger.Info("[Worker] Leaving delivery unsettled on shutdown")

		return
	}

	if nackErr := d.Nack(false, false); nackErr != nil {
		s.logger.Error("[Worker] Failed to nack delivery", slog.Any("error", nackErr))
	}
}

// stop closes the consumer's channel and connection.
func (s *workerServer) stop(ctx context.Context) error {
	s.logger.Info("Shutting down event worker")

	if s.channel != nil {
		if err := s.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			s.logger.Warn("Failed to close RabbitMQ channel", slog.Any("error", err))
		}
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			return errors.WithStack(err)
		}
	}

	return nil
}
