package reclaim

import (
	"testing"
	"time"
)

func sampleWithBar(bar Bar, lastPrice float64) Sample {
	return Sample{
		Time:      bar.Time,
		TickSize:  0.25,
		LastPrice: lastPrice,
		Bar:       bar,
		HasBar:    true,
		IsNewBar:  true,
	}
}

// TestHeadTracksExtreme checks the live zone's active side is forced to
// the bar extreme and the derived fields follow.
func TestHeadTracksExtreme(t *testing.T) {
	z := NewZone(Bullish, 100.00, time.Now())
	bar := Bar{Index: 1, Time: time.Now(), Open: 100.25, High: 101.00, Low: 100.25, Close: 101.00}

	updateHead(&z, sampleWithBar(bar, 101.00), false)

	if z.ActiveSidePrice != 101.00 {
		t.Errorf("expected active side 101.00, got %f", z.ActiveSidePrice)
	}
	if z.CurrentHeight != 4 {
		t.Errorf("expected current height 4, got %d", z.CurrentHeight)
	}
	if z.MaxHeight != 4 {
		t.Errorf("expected max height 4, got %d", z.MaxHeight)
	}
	if z.MaxRetracement != 0 {
		t.Errorf("expected no retracement yet, got %d", z.MaxRetracement)
	}
}

// TestHeadRetracementArithmetic: fixed 100.00,
// max height 4 ticks, close back at 100.00 gives a retracement of 4.
func TestHeadRetracementArithmetic(t *testing.T) {
	z := NewZone(Bullish, 100.00, time.Now())

	up := Bar{Index: 1, Time: time.Now(), Open: 100.25, High: 101.00, Low: 100.25, Close: 101.00}
	updateHead(&z, sampleWithBar(up, 101.00), false)

	down := Bar{Index: 2, Time: time.Now(), Open: 101.00, High: 101.00, Low: 100.25, Close: 100.25}
	retr := updateHead(&z, sampleWithBar(down, 100.25), false)

	// (100.00 + 4*0.25 - 100.25) / 0.25 = 3
	if z.MaxRetracement != 3 {
		t.Errorf("expected max retracement 3, got %d", z.MaxRetracement)
	}
	if retr != 3 {
		t.Errorf("expected captured retracement 3, got %d", retr)
	}
}

// TestHeadResetOnBreach checks the live zone resets in place when the
// against-side extreme reaches the fixed side, and that the
// retracement seen this pass is still reported to the caller.
func TestHeadResetOnBreach(t *testing.T) {
	z := NewZone(Bullish, 100.00, time.Now())

	up := Bar{Index: 1, Time: time.Now(), Open: 100.25, High: 101.00, Low: 100.25, Close: 101.00}
	updateHead(&z, sampleWithBar(up, 101.00), false)

	breach := Bar{Index: 2, Time: time.Now(), Open: 101.00, High: 101.00, Low: 100.00, Close: 100.00}
	retr := updateHead(&z, sampleWithBar(breach, 100.00), false)

	if retr != 4 {
		t.Errorf("expected captured retracement 4, got %d", retr)
	}
	if z.FixedSidePrice != 100.00 || z.ActiveSidePrice != 100.00 {
		t.Errorf("expected zone collapsed at 100.00, got fixed=%f active=%f",
			z.FixedSidePrice, z.ActiveSidePrice)
	}
	if z.MaxHeight != 0 || z.MaxRetracement != 0 || z.CurrentHeight != 0 {
		t.Error("expected counters zeroed after reset")
	}
	if z.Deleted {
		t.Error("the live zone never becomes deleted")
	}
}

// TestHeadBearishMirror checks the sign-flipped path.
func TestHeadBearishMirror(t *testing.T) {
	z := NewZone(Bearish, 100.00, time.Now())

	down := Bar{Index: 1, Time: time.Now(), Open: 99.75, High: 99.75, Low: 99.00, Close: 99.00}
	updateHead(&z, sampleWithBar(down, 99.00), false)

	if z.ActiveSidePrice != 99.00 {
		t.Errorf("expected active side 99.00, got %f", z.ActiveSidePrice)
	}
	if z.MaxHeight != 4 {
		t.Errorf("expected max height 4, got %d", z.MaxHeight)
	}

	retrace := Bar{Index: 2, Time: time.Now(), Open: 99.00, High: 99.75, Low: 99.00, Close: 99.75}
	updateHead(&z, sampleWithBar(retrace, 99.75), false)

	// (99.75 - (100.00 - 4*0.25)) / 0.25 = 3
	if z.MaxRetracement != 3 {
		t.Errorf("expected max retracement 3, got %d", z.MaxRetracement)
	}
}

// TestHeadTickMode checks the active side follows the last trade price
// when not restricted to bar closes.
func TestHeadTickMode(t *testing.T) {
	z := NewZone(Bullish, 100.00, time.Now())
	bar := Bar{Index: 1, Time: time.Now(), Open: 100.25, High: 101.00, Low: 100.25, Close: 100.50}

	updateHead(&z, sampleWithBar(bar, 100.75), true)

	if z.ActiveSidePrice != 100.75 {
		t.Errorf("expected active side at last trade 100.75, got %f", z.ActiveSidePrice)
	}
}

// TestHeadTickModeBreachResets checks a live trade through the fixed
// side collapses the zone in place, even though the closed bar's
// extremes never reached it. The side inequality and non-negative
// height must hold after the pass.
func TestHeadTickModeBreachResets(t *testing.T) {
	z := NewZone(Bullish, 100.00, time.Now())
	bar := Bar{Index: 1, Time: time.Now(), Open: 100.25, High: 101.00, Low: 100.25, Close: 100.50}

	s := sampleWithBar(bar, 99.00)
	updateHead(&z, s, true)

	if z.FixedSidePrice != 99.00 || z.ActiveSidePrice != 99.00 {
		t.Errorf("expected zone collapsed at 99.00, got fixed=%f active=%f",
			z.FixedSidePrice, z.ActiveSidePrice)
	}
	if z.ActiveSidePrice < z.FixedSidePrice {
		t.Errorf("side inequality broken: active %f < fixed %f",
			z.ActiveSidePrice, z.FixedSidePrice)
	}
	if z.CurrentHeight < 0 {
		t.Errorf("current height negative: %d", z.CurrentHeight)
	}
	if z.MaxHeight != 0 || z.MaxRetracement != 0 {
		t.Error("expected counters zeroed after reset")
	}
}

// TestHeadTickModeStartTimeAnchored checks repeated ticks at the
// breaching price do not re-stamp the zone's start time; a fresh
// excursion and breach does.
func TestHeadTickModeStartTimeAnchored(t *testing.T) {
	z := NewZone(Bullish, 100.00, time.Now())
	bar := Bar{Index: 1, Time: time.Unix(1000, 0), Open: 100.25, High: 101.00, Low: 100.25, Close: 100.50}

	first := sampleWithBar(bar, 99.00)
	first.Time = time.Unix(1000, 0)
	updateHead(&z, first, true)
	anchored := z.StartTime

	repeat := sampleWithBar(bar, 99.00)
	repeat.Time = time.Unix(2000, 0)
	updateHead(&z, repeat, true)
	if !z.StartTime.Equal(anchored) {
		t.Errorf("start time moved on an unchanged price: %v -> %v", anchored, z.StartTime)
	}

	up := sampleWithBar(bar, 99.50)
	up.Time = time.Unix(3000, 0)
	updateHead(&z, up, true)

	breach := sampleWithBar(bar, 99.00)
	breach.Time = time.Unix(4000, 0)
	updateHead(&z, breach, true)
	if !z.StartTime.Equal(time.Unix(4000, 0)) {
		t.Errorf("expected start time re-stamped after a new excursion, got %v", z.StartTime)
	}
}

// TestRetiredMonotonicTightening feeds successive bars and checks the
// active side never moves away from the fixed side.
func TestRetiredMonotonicTightening(t *testing.T) {
	z := NewZone(Bullish, 100.00, time.Now())
	z.ActiveSidePrice = 102.00

	lows := []float64{101.50, 101.75, 101.00, 101.25, 100.50}
	prev := z.ActiveSidePrice
	for i, low := range lows {
		bar := Bar{Index: int64(i + 1), Time: time.Now(), Open: low + 0.50, High: low + 1.00, Low: low, Close: low + 0.50}
		if reclaimed := updateRetired(&z, sampleWithBar(bar, low+0.50), 0); reclaimed {
			t.Fatalf("zone unexpectedly reclaimed at bar %d", i+1)
		}
		if z.ActiveSidePrice > prev {
			t.Errorf("bar %d: active side widened from %f to %f", i+1, prev, z.ActiveSidePrice)
		}
		prev = z.ActiveSidePrice
	}

	if z.ActiveSidePrice != 100.50 {
		t.Errorf("expected active side tightened to 100.50, got %f", z.ActiveSidePrice)
	}
}

// TestRetiredClosureOnBreach checks a retired zone is reclaimed exactly
// when the tracked extreme reaches the fixed side.
func TestRetiredClosureOnBreach(t *testing.T) {
	z := NewZone(Bullish, 100.00, time.Now())
	z.ActiveSidePrice = 101.00

	above := Bar{Index: 1, Time: time.Now(), Open: 100.75, High: 101.00, Low: 100.25, Close: 100.75}
	if updateRetired(&z, sampleWithBar(above, 100.75), 0) {
		t.Fatal("zone must survive while the extreme stays above the fixed side")
	}

	breach := Bar{Index: 2, Time: time.Now(), Open: 100.50, High: 100.50, Low: 100.00, Close: 100.25}
	if !updateRetired(&z, sampleWithBar(breach, 100.25), 0) {
		t.Fatal("expected reclaim when the low reached the fixed side")
	}
	if !z.Deleted {
		t.Error("expected zone marked deleted")
	}
}

// TestRetiredClosureOnCollapse checks the second closure condition:
// the active side collapsing onto the fixed side.
func TestRetiredClosureOnCollapse(t *testing.T) {
	z := NewZone(Bearish, 100.00, time.Now())
	z.ActiveSidePrice = 100.00 // already collapsed

	bar := Bar{Index: 1, Time: time.Now(), Open: 99.00, High: 99.50, Low: 98.75, Close: 99.25}
	if !updateRetired(&z, sampleWithBar(bar, 99.25), 0) {
		t.Fatal("expected reclaim for a collapsed zone")
	}
}

// TestRetiredDecayStamp checks the decay start time is stamped once,
// the first time the height drops to the minimum size.
func TestRetiredDecayStamp(t *testing.T) {
	z := NewZone(Bullish, 100.00, time.Now())
	z.ActiveSidePrice = 102.00

	wide := Bar{Index: 1, Time: time.Unix(1000, 0), Open: 101.50, High: 102.00, Low: 101.00, Close: 101.50}
	updateRetired(&z, sampleWithBar(wide, 101.50), 2)
	if !z.DecayStartTime.IsZero() {
		t.Fatal("decay must not start while the zone is above the minimum size")
	}

	shrink := Bar{Index: 2, Time: time.Unix(2000, 0), Open: 101.00, High: 101.25, Low: 100.50, Close: 100.75}
	updateRetired(&z, sampleWithBar(shrink, 100.75), 2)
	if z.DecayStartTime.IsZero() {
		t.Fatal("expected decay stamp once height reached the minimum size")
	}
	stamped := z.DecayStartTime

	again := Bar{Index: 3, Time: time.Unix(3000, 0), Open: 100.75, High: 100.80, Low: 100.60, Close: 100.70}
	updateRetired(&z, sampleWithBar(again, 100.70), 2)
	if !z.DecayStartTime.Equal(stamped) {
		t.Error("decay stamp must not move once set")
	}
}
