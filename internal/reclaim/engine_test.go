package reclaim

import (
	"testing"
	"time"
)

// recordingRenderer captures draw and remove calls for assertions.
type recordingRenderer struct {
	drawn   []string
	removed []string
}

func (r *recordingRenderer) Draw(z Zone, _ Sample) { r.drawn = append(r.drawn, z.ID) }
func (r *recordingRenderer) Remove(zoneID string)  { r.removed = append(r.removed, zoneID) }

func engineOpts() Options {
	return Options{
		MaxZones:                3,
		NewZoneRetracementTicks: 2,
		UpdateOnBarClose:        true,
	}
}

func newTestEngine(t *testing.T, opts Options, r Renderer) *Engine {
	t.Helper()
	e, err := NewEngine("ESU6", 0.25, opts, r, nil, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func barSample(idx int64, o, h, l, c float64) Sample {
	return Sample{
		Time:      time.Unix(1700000000+idx*60, 0),
		TickSize:  0.25,
		LastPrice: c,
		Bar:       Bar{Index: idx, Open: o, High: h, Low: l, Close: c},
		HasBar:    true,
	}
}

func TestEngineRejectsBadOptions(t *testing.T) {
	if _, err := NewEngine("ESU6", 0.25, Options{MaxZones: 0}, nil, nil, nil); err == nil {
		t.Fatal("expected error for zero max zones")
	}
}

func TestEngineSeedsFromFirstPrice(t *testing.T) {
	e := newTestEngine(t, engineOpts(), nil)

	// Events with no usable price must not seed.
	e.ProcessSample(Sample{Time: time.Now()})
	if snap := e.Snapshot(); snap.Up != nil {
		t.Fatal("engine seeded from a zero price")
	}

	e.ProcessSample(Sample{Time: time.Now(), LastPrice: 100.0})
	snap := e.Snapshot()
	if len(snap.Up) != 3 || len(snap.Down) != 3 {
		t.Fatalf("expected 3 slots per side, got up=%d down=%d", len(snap.Up), len(snap.Down))
	}
	for _, side := range [][]Zone{snap.Up, snap.Down} {
		if side[0].FixedSidePrice != 100.0 || side[0].Deleted {
			t.Errorf("head not seeded at first price: %+v", side[0])
		}
		if !side[1].Deleted || !side[2].Deleted {
			t.Error("non-head slots must start deleted")
		}
	}
}

// TestEngineTickModeBreachInvariant drives tick-granularity updates: a
// live trade through the bullish fixed side must collapse the head in
// place, never leave it inverted with a negative height until the next
// bar close.
func TestEngineTickModeBreachInvariant(t *testing.T) {
	opts := engineOpts()
	opts.UpdateOnBarClose = false
	e := newTestEngine(t, opts, nil)

	e.ProcessSample(Sample{Time: time.Unix(1700000000, 0), LastPrice: 100.00})
	e.ProcessSample(barSample(1, 100.25, 101.00, 100.25, 100.50))

	// Intrabar trade below the bullish fixed side; the closed bar's low
	// never reached it.
	tick := barSample(1, 100.25, 101.00, 100.25, 100.50)
	tick.LastPrice = 99.00
	tick.Time = tick.Time.Add(10 * time.Second)
	e.ProcessSample(tick)

	head := e.Snapshot().Up[0]
	if head.ActiveSidePrice < head.FixedSidePrice {
		t.Errorf("bullish invariant broken: active %f < fixed %f",
			head.ActiveSidePrice, head.FixedSidePrice)
	}
	if head.CurrentHeight < 0 {
		t.Errorf("current height negative: %d", head.CurrentHeight)
	}
	if head.FixedSidePrice != 99.00 {
		t.Errorf("expected head collapsed at 99.00, got fixed=%f", head.FixedSidePrice)
	}
}

// TestEngineRotation walks the bullish side through a full cycle: the
// seeded head breaks out, pulls all the way back, and the retracement
// retires it into slot 1 while a fresh head starts at the close.
func TestEngineRotation(t *testing.T) {
	rend := &recordingRenderer{}
	e := newTestEngine(t, engineOpts(), rend)

	e.ProcessSample(Sample{Time: time.Unix(1700000000, 0), LastPrice: 100.0})
	oldHead := e.Snapshot().Up[0]

	// Breakout: 4 ticks of height, close at the high, no retracement yet.
	e.ProcessSample(barSample(1, 100.0, 101.0, 100.0, 101.0))
	tailID := e.Snapshot().Up[2].ID

	// Full pullback: retracement 4 >= threshold 2, so the head retires.
	e.ProcessSample(barSample(2, 101.0, 101.0, 100.0, 100.0))

	up := e.Snapshot().Up
	if up[0].ID == oldHead.ID {
		t.Fatal("expected a fresh head after rotation")
	}
	if up[0].FixedSidePrice != 100.0 || up[0].MaxHeight != 0 || up[0].MaxRetracement != 0 {
		t.Errorf("fresh head not seeded at the close: %+v", up[0])
	}
	if up[1].ID != oldHead.ID || up[1].Deleted {
		t.Errorf("old head not retired into slot 1: %+v", up[1])
	}
	if !up[2].Deleted {
		t.Error("eviction must come from the deleted tail slot, not slot 2")
	}

	// The evicted tail slot must have been cleared from the display.
	found := false
	for _, id := range rend.removed {
		if id == tailID {
			found = true
		}
	}
	if !found {
		t.Error("evicted zone was never removed from the renderer")
	}
}

func TestEngineSkipsNonMonotonicBars(t *testing.T) {
	e := newTestEngine(t, engineOpts(), nil)

	e.ProcessSample(Sample{Time: time.Unix(1700000000, 0), LastPrice: 100.0})
	e.ProcessSample(barSample(5, 100.0, 100.5, 99.5, 100.25))
	before := e.Snapshot()

	e.ProcessSample(barSample(3, 90.0, 95.0, 85.0, 90.0))
	after := e.Snapshot()

	if after.BarIndex != before.BarIndex {
		t.Fatalf("stale bar advanced the index: %d -> %d", before.BarIndex, after.BarIndex)
	}
	if after.Up[0] != before.Up[0] {
		t.Error("stale bar mutated zone state")
	}
}

func TestEngineBarCloseGating(t *testing.T) {
	e := newTestEngine(t, engineOpts(), nil)

	e.ProcessSample(Sample{Time: time.Unix(1700000000, 0), LastPrice: 100.0})
	e.ProcessSample(barSample(1, 100.0, 101.0, 100.25, 100.75))
	before := e.Snapshot().Up[0]

	// Intra-bar repeat of the same index: price moves, zones must not.
	intra := barSample(1, 100.0, 102.0, 100.25, 101.5)
	e.ProcessSample(intra)

	snap := e.Snapshot()
	if snap.Up[0] != before {
		t.Error("intra-bar sample mutated the head in bar-close mode")
	}
	if snap.LastPrice != intra.LastPrice {
		t.Errorf("snapshot price not refreshed intra-bar: got %v", snap.LastPrice)
	}
}

func TestEngineTickModeUpdatesIntraBar(t *testing.T) {
	opts := engineOpts()
	opts.UpdateOnBarClose = false
	e := newTestEngine(t, opts, nil)

	e.ProcessSample(Sample{Time: time.Unix(1700000000, 0), LastPrice: 100.0})
	e.ProcessSample(barSample(1, 100.0, 100.5, 100.25, 100.5))

	intra := barSample(1, 100.0, 100.5, 100.25, 100.5)
	intra.LastPrice = 101.0
	e.ProcessSample(intra)

	if got := e.Snapshot().Up[0].ActiveSidePrice; got != 101.0 {
		t.Fatalf("tick mode must track the live price, got %v", got)
	}
}

func TestEngineDefaultsTickSize(t *testing.T) {
	e := newTestEngine(t, engineOpts(), nil)

	e.ProcessSample(Sample{Time: time.Unix(1700000000, 0), LastPrice: 100.0})
	s := barSample(1, 100.0, 101.0, 100.25, 101.0)
	s.TickSize = 0
	e.ProcessSample(s)

	if got := e.Snapshot().Up[0].MaxHeight; got != 4 {
		t.Fatalf("expected engine tick size fallback, MaxHeight=%d", got)
	}
}

func TestEngineOverlapFlag(t *testing.T) {
	opts := engineOpts()
	opts.DojiLookbackBars = 2
	e := newTestEngine(t, opts, nil)

	e.ProcessSample(Sample{Time: time.Unix(1700000000, 0), LastPrice: 100.0})
	e.ProcessSample(barSample(1, 100.0, 100.5, 99.5, 100.25))
	e.ProcessSample(barSample(2, 100.25, 100.4, 99.8, 100.0))
	if !e.Snapshot().PriceOverlap {
		t.Error("expected overlap for nested bar ranges")
	}

	e.ProcessSample(barSample(3, 100.0, 103.0, 102.0, 102.5))
	if e.Snapshot().PriceOverlap {
		t.Error("expected no overlap after a range break")
	}
}
