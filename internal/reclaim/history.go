package reclaim

import (
	"fmt"
	"time"
)

// History is the fixed-capacity, newest-first sequence of zones for one
// side. Index 0 is the live zone; higher indexes are progressively
// older retired zones. Capacity never changes after construction: the
// oldest zone is evicted whenever a new head is rotated in.
type History struct {
	zones []Zone
}

// NewHistory creates a history of the given capacity with the head zone
// seeded at price and every other slot inert.
func NewHistory(side Side, capacity int, price float64, t time.Time) (*History, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("reclaim: history capacity must be positive, got %d", capacity)
	}
	zones := make([]Zone, capacity)
	for i := range zones {
		zones[i] = emptyZone(side)
	}
	zones[0] = NewZone(side, price, t)
	return &History{zones: zones}, nil
}

// Capacity returns the fixed slot count.
func (h *History) Capacity() int {
	return len(h.zones)
}

// Head returns the live zone.
func (h *History) Head() *Zone {
	return &h.zones[0]
}

// At returns the zone at index i, newest first.
func (h *History) At(i int) *Zone {
	return &h.zones[i]
}

// Zones returns a copy of all slots, newest first.
func (h *History) Zones() []Zone {
	out := make([]Zone, len(h.zones))
	copy(out, h.zones)
	return out
}

// Rotate evicts the oldest zone, shifts every retained zone one slot
// toward the tail preserving relative order, and installs newHead at
// index 0. The evicted zone is returned so the caller can remove its
// visuals before it disappears from the history.
func (h *History) Rotate(newHead Zone) Zone {
	evicted := h.zones[len(h.zones)-1]
	copy(h.zones[1:], h.zones[:len(h.zones)-1])
	h.zones[0] = newHead
	return evicted
}
