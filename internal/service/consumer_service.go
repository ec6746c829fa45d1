package service

import (
	"context"
	"encoding/json"

	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// NotificationDelivery pushes an event to a user's live connections.
// Typically implemented by the WebSocket Hub.
type NotificationDelivery interface {
	Send(userID uuid.UUID, kind string, data interface{})
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService relays every domain event from the in-process bus to the optional NATS
// relay and to the recipient's websocket clients.
type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	relay      events.Publisher
	delivery   NotificationDelivery
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	relay events.Publisher,
	delivery NotificationDelivery,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		relay:      relay,
		delivery:   delivery,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var event events.BaseEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		cs.logger.Error("ConsumerService", "Failed to unmarshal event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		// a malformed payload will never parse; ack so it is not redelivered
		msg.Ack()
		return
	}

	if cs.relay != nil {
		if err := cs.relay.Publish(ctx, event); err != nil {
			// NATS is auxiliary; local delivery still happens
			cs.logger.Warn("ConsumerService", "Failed to relay event to NATS", map[string]interface{}{
				"type":  event.Type,
				"error": err.Error(),
			})
		}
	}

	if cs.delivery != nil && event.UserID != uuid.Nil {
		cs.delivery.Send(event.UserID, event.Type, event.Data)
	}

	cs.logger.Debug("ConsumerService", "Event processed", map[string]interface{}{
		"type":    event.Type,
		"user_id": event.UserID.String(),
	})
	msg.Ack()
}
