package reclaim

import "time"

// Renderer receives zone visual updates. Implementations draw and
// remove rectangles/labels; they never mutate zone state, and the
// engine never depends on their success.
type Renderer interface {
	Draw(z Zone, s Sample)
	Remove(zoneID string)
}

// NopRenderer discards all drawing calls.
type NopRenderer struct{}

func (NopRenderer) Draw(Zone, Sample) {}
func (NopRenderer) Remove(string)     {}

// Result reports what one tracker pass did, so the engine can publish
// lifecycle events without re-deriving them.
type Result struct {
	Reclaimed []Zone
	Rotated   bool
	NewHead   Zone
	Evicted   Zone
}

// Tracker is one side's reclaim state machine: it owns the side's zone
// history and runs the full update/score/trigger/draw pass for each
// sample. The two sides never share state.
type Tracker struct {
	side     Side
	opts     Options
	hist     *History
	renderer Renderer
}

// NewTracker seeds one side from the first observed price.
func NewTracker(side Side, opts Options, firstPrice float64, t time.Time, r Renderer) (*Tracker, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	hist, err := NewHistory(side, opts.MaxZones, firstPrice, t)
	if err != nil {
		return nil, err
	}
	if r == nil {
		r = NopRenderer{}
	}
	return &Tracker{side: side, opts: opts, hist: hist, renderer: r}, nil
}

// Head returns the live zone.
func (t *Tracker) Head() *Zone {
	return t.hist.Head()
}

// Zones returns the side's history, newest first.
func (t *Tracker) Zones() []Zone {
	return t.hist.Zones()
}

// Process runs one full pass: boundary updates, reclaim detection,
// pullback scoring, rotation, and the draw projection. bars is the
// engine's closed-bar window, newest last; it is only consulted on bar
// close for the opposite-bar filter.
func (t *Tracker) Process(s Sample, bars []Bar) Result {
	var res Result

	headRetracement := updateHead(t.hist.Head(), s, !t.opts.UpdateOnBarClose)

	for i := 1; i < t.hist.Capacity(); i++ {
		z := t.hist.At(i)
		if z.Deleted {
			continue
		}
		if updateRetired(z, s, t.opts.MinZoneSizeTicks) {
			t.renderer.Remove(z.ID)
			res.Reclaimed = append(res.Reclaimed, *z)
		}
	}

	if s.IsNewBar {
		for i := 1; i < t.hist.Capacity(); i++ {
			z := t.hist.At(i)
			if z.Deleted {
				continue
			}
			scoreZone(z, s.Bar, s.TickSize, t.opts.EVPullbackTicks, t.opts.SwingPullbackTicks)
		}

		if shouldRotate(headRetracement, bars, t.opts) {
			newHead := NewZone(t.side, s.LastPrice, s.Time)
			evicted := t.hist.Rotate(newHead)
			t.renderer.Remove(evicted.ID)
			res.Rotated = true
			res.NewHead = newHead
			res.Evicted = evicted
		}
	}

	t.draw(s)
	return res
}

// draw projects every visible zone to the renderer.
func (t *Tracker) draw(s Sample) {
	for i := 0; i < t.hist.Capacity(); i++ {
		if i == 0 && !t.opts.ShowCurrentZone {
			continue
		}
		z := t.hist.At(i)
		if z.Deleted {
			continue
		}
		t.renderer.Draw(*z, s)
	}
}
