package eventbus

import (
	"context"

	"github.com/amirasaad/presale/pkg/domain/events"
)

// HandlerFunc handles a single event delivered by a Bus.
type HandlerFunc func(ctx context.Context, event events.Event) error

// Bus publishes domain events and dispatches them to registered handlers.
type Bus interface {
	// Emit publishes an event. Implementations may deliver asynchronously.
	Emit(ctx context.Context, event events.Event) error
	// Register adds a handler for the given event type.
	Register(eventType string, handler HandlerFunc)
}
