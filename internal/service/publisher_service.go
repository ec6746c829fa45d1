package service

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-chat-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

type IPublisherService interface {
	events.Publisher
}

// publisherService puts domain events on the in-process bus. Delivery to NATS and
// websockets happens in the consumer so a slow broker never blocks a turn.
type publisherService struct {
	topicName string
	publisher message.Publisher
}

func NewPublisherService(topicName string, publisher message.Publisher) IPublisherService {
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
	}
}

func (p *publisherService) Publish(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(events.BaseEvent{
		Type:       event.EventType(),
		UserID:     event.Recipient(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.EventType(), err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", event.EventType())

	return p.publisher.Publish(p.topicName, msg)
}
