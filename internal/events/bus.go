package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventZoneCreated   EventType = "ZONE_CREATED"
	EventZoneRotated   EventType = "ZONE_ROTATED"
	EventZoneReclaimed EventType = "ZONE_RECLAIMED"
	EventZoneSnapshot  EventType = "ZONE_SNAPSHOT"
	EventFeedConnected EventType = "FEED_CONNECTED"
	EventFeedLost      EventType = "FEED_LOST"
	EventDrawRect      EventType = "DRAW_RECT"
	EventDrawLabel     EventType = "DRAW_LABEL"
	EventRemoveDrawing EventType = "REMOVE_DRAWING"
	EventError         EventType = "ERROR"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// Bus manages event publishing and subscriptions
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
	}
}

// Subscribe registers a subscriber for a specific event type
func (b *Bus) Subscribe(eventType EventType, subscriber Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers[eventType] = append(b.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (b *Bus) SubscribeAll(subscriber Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.allSubs = append(b.allSubs, subscriber)
}

// Publish sends an event to all subscribers
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if subs, ok := b.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event) // Run in goroutine to avoid blocking
		}
	}

	for _, sub := range b.allSubs {
		go sub(event)
	}
}

// PublishZoneCreated publishes a zone created event
func (b *Bus) PublishZoneCreated(symbol, side string, zone interface{}) {
	b.Publish(Event{
		Type: EventZoneCreated,
		Data: map[string]interface{}{
			"symbol": symbol,
			"side":   side,
			"zone":   zone,
		},
	})
}

// PublishZoneRotated publishes a zone rotation event carrying the new
// head and the evicted zone
func (b *Bus) PublishZoneRotated(symbol, side string, newHead, evicted interface{}) {
	b.Publish(Event{
		Type: EventZoneRotated,
		Data: map[string]interface{}{
			"symbol":   symbol,
			"side":     side,
			"new_head": newHead,
			"evicted":  evicted,
		},
	})
}

// PublishZoneReclaimed publishes a zone reclaimed (closed) event
func (b *Bus) PublishZoneReclaimed(symbol, side string, zone interface{}) {
	b.Publish(Event{
		Type: EventZoneReclaimed,
		Data: map[string]interface{}{
			"symbol": symbol,
			"side":   side,
			"zone":   zone,
		},
	})
}

// PublishZoneSnapshot publishes a full per-symbol state snapshot,
// emitted once per bar close
func (b *Bus) PublishZoneSnapshot(symbol string, snapshot interface{}) {
	b.Publish(Event{
		Type: EventZoneSnapshot,
		Data: map[string]interface{}{
			"symbol":   symbol,
			"snapshot": snapshot,
		},
	})
}

// PublishFeedConnected publishes a feed connected event
func (b *Bus) PublishFeedConnected(url string, symbols []string) {
	b.Publish(Event{
		Type: EventFeedConnected,
		Data: map[string]interface{}{
			"url":     url,
			"symbols": symbols,
		},
	})
}

// PublishFeedLost publishes a feed disconnect event
func (b *Bus) PublishFeedLost(url string, err error) {
	data := map[string]interface{}{
		"url": url,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	b.Publish(Event{
		Type: EventFeedLost,
		Data: data,
	})
}

// PublishError publishes an error event
func (b *Bus) PublishError(source, message string, err error) {
	data := map[string]interface{}{
		"source":  source,
		"message": message,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	b.Publish(Event{
		Type: EventError,
		Data: data,
	})
}
