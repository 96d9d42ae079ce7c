package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/arledger/backend/internal/domain/shared"
)

// InMemoryEventBus dispatches domain events to registered handlers in
// process. Services publish through it after their transaction commits, so
// handlers must tolerate observing state that has moved on since the event
// was recorded.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
}

// Publish delivers events to all registered handlers synchronously.
// Handler failures are logged and do not stop delivery.
func (b *InMemoryEventBus) Publish(events ...shared.DomainEvent) {
	ctx := context.Background()
	for _, evt := range events {
		for _, handler := range b.registry.GetHandlers(evt.EventType()) {
			if err := b.dispatchToHandler(ctx, handler, evt); err != nil {
				b.logger.Error("handler failed to process event",
					zap.String("event_type", evt.EventType()),
					zap.String("event_id", evt.EventID().String()),
					zap.Error(err),
				)
			}
		}
	}
}

// Subscribe registers a handler for specific event types.
// Without explicit types the handler's own EventTypes are used.
func (b *InMemoryEventBus) Subscribe(handler Handler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed",
		zap.Strings("event_types", eventTypes),
	)
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler Handler) {
	b.registry.Unregister(handler)
	b.logger.Debug("handler unsubscribed")
}

// dispatchToHandler safely dispatches an event to a handler
func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler Handler, evt shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_type", evt.EventType()),
				zap.Any("panic", r),
			)
		}
	}()

	return handler.Handle(ctx, evt)
}

// Ensure InMemoryEventBus implements EventPublisher
var _ shared.EventPublisher = (*InMemoryEventBus)(nil)
