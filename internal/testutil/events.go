package testutil

import (
	"context"
	"sync"

	"ai-chat-be/pkg/events"
)

// EventRecorder is an events.Publisher that keeps what it is given.
type EventRecorder struct {
	mu     sync.Mutex
	Events []events.Event
}

func (r *EventRecorder) Publish(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, event)
	return nil
}

// Types returns the recorded event types in publish order.
func (r *EventRecorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.EventType()
	}
	return out
}
