// Package events provides the typed notification bus connecting build
// pipeline collaborators to the supervisor host wiring.
package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher for event broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// PublishRebuild broadcasts a rebuild-completed notification to all
// subscribers.
func (b *Bus) PublishRebuild(e RebuildEvent) {
	event.Publish(b.dispatcher, e)
}

// SubscribeRebuild registers a handler for rebuild notifications and returns
// an unsubscribe function.
func (b *Bus) SubscribeRebuild(handler func(RebuildEvent)) func() {
	return event.Subscribe(b.dispatcher, handler)
}
