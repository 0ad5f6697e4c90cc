package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"bookwise/config"
	"bookwise/internal/domain/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandlerForTest() *UserEventHandler {
	cfg := &config.Config{
		Rabbit: &config.RabbitConfig{
			Host:                      "localhost",
			ConsumerMaxAttempts:       3,
			ConsumerInitialBackoff:    time.Second,
			ConsumerBackoffMultiplier: 2.0,
			ConsumerMaxBackoff:        5 * time.Second,
		},
	}

	return NewUserEventHandler(UserEventHandlerParams{
		Config: cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestUserEventHandler_BackoffSchedule(t *testing.T) {
	h := newHandlerForTest()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: time.Second},
		{attempt: 2, want: 2 * time.Second},
		{attempt: 3, want: 4 * time.Second},
		{attempt: 4, want: 5 * time.Second}, // capped
		{attempt: 10, want: 5 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, h.backoffFor(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestUserEventHandler_HandleCreatedEvent(t *testing.T) {
	h := newHandlerForTest()

	body, err := json.Marshal(&service.UserEvent{
		UserID:    uuid.New(),
		UserName:  "Reader",
		UserEmail: "reader@example.com",
		EventType: service.EventTypeUserCreated,
	})
	require.NoError(t, err)

	assert.NoError(t, h.Handle(context.Background(), body))
}

func TestUserEventHandler_HandleUpdatedEvent(t *testing.T) {
	h := newHandlerForTest()

	body, err := json.Marshal(&service.UserEvent{
		UserID:    uuid.New(),
		UserEmail: "reader@example.com",
		EventType: service.EventTypeUserUpdated,
	})
	require.NoError(t, err)

	assert.NoError(t, h.Handle(context.Background(), body))
}

func TestUserEventHandler_UndecodablePayloadIsPermanent(t *testing.T) {
	h := newHandlerForTest()

	start := time.Now()
	err := h.Handle(context.Background(), []byte("not json"))

	require.Error(t, err)
	assert.True(t, isPermanentError(err))
	// A permanent failure must not burn through the backoff schedule.
	assert.Less(t, time.Since(start), time.Second)
}

func TestUserEventHandler_UnknownEventTypeIsPermanent(t *testing.T) {
	h := newHandlerForTest()

	body, err := json.Marshal(&service.UserEvent{
		UserID:    uuid.New(),
		EventType: service.EventType("USER_VAPORIZED"),
	})
	require.NoError(t, err)

	start := time.Now()
	handleErr := h.Handle(context.Background(), body)

	require.Error(t, handleErr)
	assert.True(t, isPermanentError(handleErr))
	assert.Less(t, time.Since(start), time.Second)
}

func TestUserEventHandler_SleepRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sleepCtx(ctx, time.Minute)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
