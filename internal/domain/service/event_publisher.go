package service

import (
	"context"

	"github.com/google/uuid"
)

// EventType identifies the kind of user lifecycle change an event describes.
type EventType string

const (
	EventTypeUserCreated EventType = "USER_CREATED"
	EventTypeUserUpdated EventType = "USER_UPDATED"
)

// UserEvent is the immutable record of a user lifecycle change handed to the
// event channel. It is constructed once per mutation; ownership passes to the
// broker on publish.
type UserEvent struct {
	UserID       uuid.UUID `json:"userId"`
	UserName     string    `json:"userName"`
	UserEmail    string    `json:"userEmail"`
	UserPassword string    `json:"userPassword"` // Bcrypt digest, never plaintext.
	EventType    EventType `json:"eventType"`
}

// EventPublisher emits user lifecycle events to the message channel with
// at-least-once semantics. A broker-side negative acknowledgement is logged
// but not surfaced; a transport failure during send is.
type EventPublisher interface {
	// Publish serializes the event, attaches a fresh correlation id and
	// sends it to the user topic.
	Publish(ctx context.Context, event *UserEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
