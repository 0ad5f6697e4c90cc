// Package handler contains the message handlers for the event worker.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"bookwise/config"
	"bookwise/internal/domain/service"
	"bookwise/internal/util"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// permanentError wraps an error that no amount of retrying can fix, such as
// an undecodable payload. The handler dead-letters these immediately.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string {
	return fmt.Sprintf("permanent: %v", e.err)
}

func (e *permanentError) Unwrap() error {
	return e.err
}

// newPermanentError wraps an error as non-retryable
func newPermanentError(err error) error {
	return &permanentError{err: err}
}

// isPermanentError checks if an error is non-retryable
func isPermanentError(err error) bool {
	var pe *permanentError

	return errors.As(err, &pe)
}

// UserEventHandler consumes user lifecycle events from the queue. Each
// delivery gets a bounded number of in-process attempts with exponential
// backoff; once the attempts are exhausted the caller dead-letters it.
type UserEventHandler struct {
	logger            *slog.Logger
	maxAttempts       int
	initialBackoff    time.Duration
	backoffMultiplier float64
	maxBackoff        time.Duration
}

// UserEventHandlerParams holds dependencies for the UserEventHandler
type UserEventHandlerParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

// NewUserEventHandler creates a new user event handler
func NewUserEventHandler(params UserEventHandlerParams) *UserEventHandler {
	rabbit := params.Config.Rabbit

	return &UserEventHandler{
		logger:            params.Logger,
		maxAttempts:       rabbit.ConsumerMaxAttempts,
		initialBackoff:    rabbit.ConsumerInitialBackoff,
		backoffMultiplier: rabbit.ConsumerBackoffMultiplier,
		maxBackoff:        rabbit.ConsumerMaxBackoff,
	}
}

// Handle processes one delivery body. A nil return means the message is done
// and should be acked; an error means every attempt failed (or the payload is
// beyond repair) and the message should be rejected without requeue so the
// dead-letter exchange picks it up.
func (h *UserEventHandler) Handle(ctx context.Context, body []byte) error {
	// The checksum ties a dead-lettered message back to the delivery that
	// failed, without logging the payload itself.
	digest := util.Checksum(body)

	var event service.UserEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.logger.Error("[Worker] Undecodable event payload",
			slog.String("payload_sha256", digest),
			slog.Any("error", err),
		)

		return newPermanentError(errors.WithStack(err))
	}

	var lastErr error
	for attempt := 1; attempt <= h.maxAttempts; attempt++ {
		lastErr = h.processEvent(ctx, &event)
		if lastErr == nil {
			if attempt > 1 {
				h.logger.Info("[Worker] Event processed after retry",
					slog.String("event_type", string(event.EventType)),
					slog.Int("attempt", attempt),
				)
			}

			return nil
		}

		if isPermanentError(lastErr) {
			break
		}

		if attempt < h.maxAttempts {
			backoff := h.backoffFor(attempt)
			h.logger.Warn("[Worker] Event processing failed, backing off",
				slog.String("event_type", string(event.EventType)),
				slog.String("payload_sha256", digest),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", backoff),
				slog.Any("error", lastErr),
			)

			if err := sleepCtx(ctx, backoff); err != nil {
				return errors.WithStack(err)
			}
		}
	}

	h.logger.Error("[Worker] Event processing exhausted, dead-lettering",
		slog.String("event_type", string(event.EventType)),
		slog.String("payload_sha256", digest),
		slog.Int("attempts", h.maxAttempts),
		slog.Any("error", lastErr),
	)

	return errors.WithStack(lastErr)
}

// processEvent applies one user lifecycle event.
func (h *UserEventHandler) processEvent(ctx context.Context, event *service.UserEvent) error {
	logger := h.logger.With(
		slog.String("event_type", string(event.EventType)),
		slog.String("user_id", event.UserID.String()),
	)

	switch event.EventType {
	case service.EventTypeUserCreated:
		logger.Info("[Worker] User created",
			slog.String("user_email", event.UserEmail),
			slog.String("user_name", event.UserName),
		)
	case service.EventTypeUserUpdated:
		logger.Info("[Worker] User updated",
			slog.String("user_email", event.UserEmail),
		)
	default:
		return newPermanentError(errors.Errorf("unknown event type: %s", event.EventType))
	}

	return nil
}

// backoffFor returns the delay before the next attempt: the initial backoff
// grown by the multiplier per completed attempt, capped at the maximum.
func (h *UserEventHandler) backoffFor(attempt int) time.Duration {
	backoff := h.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff = time.Duration(float64(backoff) * h.backoffMultiplier)
		if backoff >= h.maxBackoff {
			return h.maxBackoff
		}
	}

	return backoff
}

// sleepCtx waits for the duration unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
