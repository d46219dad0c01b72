package shared

import "context"

// EventHandler consumes domain events
type EventHandler interface {
	// Handle processes a domain event
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes returns the event types this handler subscribes to
	EventTypes() []string
}

// EventPublisher publishes domain events. The pipeline treats publication
// as best effort; a failed publish never fails the originating operation.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}
