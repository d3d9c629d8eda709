// Package events provides in-process pub/sub so appointment data
// consumers can be invalidated precisely instead of on a polling timer.
package events

import (
	"sync"
	"time"
)

// Event types published by the booking wizard.
const (
	TypeAppointmentsRefreshed = "appointments.refreshed"
	TypeBookingSucceeded      = "booking.succeeded"
	TypeBookingFailed         = "booking.failed"
)

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	UserID    int64
	CreatedAt time.Time
}

// Handler reacts to an event.
type Handler func(event Event)

// Bus provides in-process pub/sub for events.
type Bus struct {
	subscribers map[string][]Handler
	mu          sync.RWMutex
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		handler(event)
	}
}
