package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	ChatCreated   = "chat.created"
	ChatDeleted   = "chat.deleted"
	DocumentSaved = "document.saved"
	TurnCompleted = "turn.completed"
)

// Event defines the contract for all domain events.
type Event interface {
	// EventType returns the dotted code of the event, e.g. "chat.created".
	EventType() string

	// Recipient is the user the event concerns.
	Recipient() uuid.UUID

	Payload() map[string]interface{}

	Timestamp() time.Time
}

// Publisher sends events somewhere. Failures are reported, never retried.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type BaseEvent struct {
	Type       string                 `json:"type"`
	UserID     uuid.UUID              `json:"userId"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurredAt"`
}

func New(eventType string, userID uuid.UUID, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		Type:       eventType,
		UserID:     userID,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Recipient() uuid.UUID {
	return e.UserID
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
