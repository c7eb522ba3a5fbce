package render

import (
	"github.com/Vittorio94/fatcat-reclaims/internal/events"
)

// Sink is where broadcast drawing ops go; the WebSocket hub satisfies
// it.
type Sink interface {
	BroadcastEvent(event events.Event)
}

// Broadcaster serializes drawing operations as events and pushes them
// to connected chart clients.
type Broadcaster struct {
	sink Sink
}

func NewBroadcaster(sink Sink) *Broadcaster {
	return &Broadcaster{sink: sink}
}

func (b *Broadcaster) UpsertRectangle(rect Rectangle) error {
	b.sink.BroadcastEvent(events.Event{
		Type: events.EventDrawRect,
		Data: map[string]interface{}{
			"rect": rect,
		},
	})
	return nil
}

func (b *Broadcaster) UpsertLabel(label Label) error {
	b.sink.BroadcastEvent(events.Event{
		Type: events.EventDrawLabel,
		Data: map[string]interface{}{
			"label": label,
		},
	})
	return nil
}

func (b *Broadcaster) Remove(zoneID string) error {
	b.sink.BroadcastEvent(events.Event{
		Type: events.EventRemoveDrawing,
		Data: map[string]interface{}{
			"zone_id": zoneID,
		},
	})
	return nil
}
