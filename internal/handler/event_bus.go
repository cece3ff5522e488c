// internal/handler/event_bus.go
package handler

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"printer-service/internal/model"
)

// EventBus fans printer events out to subscribers. Publishing never blocks:
// when the bus or a subscriber is full the event is dropped for it.
type EventBus struct {
	subscribers map[int]chan model.PrinterEvent
	nextID      int
	events      chan model.PrinterEvent
	mutex       sync.RWMutex
	logger      *zap.Logger
}

// NewEventBus creates a new event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[int]chan model.PrinterEvent),
		events:      make(chan model.PrinterEvent, 1000),
		logger:      logger,
	}
}

// Start distributes events until ctx is done
func (eb *EventBus) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-eb.events:
			eb.distributeEvent(event)
		}
	}
}

// PublishPrinterEvent queues an event for distribution
func (eb *EventBus) PublishPrinterEvent(event model.PrinterEvent) {
	select {
	case eb.events <- event:
	default:
		if eb.logger != nil {
			eb.logger.Warn("Event bus full, dropping event",
				zap.String("event_type", string(event.Type)),
				zap.String("printer_id", event.Identity),
			)
		}
	}
}

// Subscribe returns a channel receiving every event and a function removing it
func (eb *EventBus) Subscribe() (<-chan model.PrinterEvent, func()) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	id := eb.nextID
	eb.nextID++
	subscriber := make(chan model.PrinterEvent, 100)
	eb.subscribers[id] = subscriber

	var once sync.Once
	return subscriber, func() {
		once.Do(func() {
			eb.mutex.Lock()
			defer eb.mutex.Unlock()
			delete(eb.subscribers, id)
			close(subscriber)
		})
	}
}

// SubscriberCount returns the number of live subscriptions
func (eb *EventBus) SubscriberCount() int {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()
	return len(eb.subscribers)
}

func (eb *EventBus) distributeEvent(event model.PrinterEvent) {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()

	for _, subscriber := range eb.subscribers {
		select {
		case subscriber <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}
