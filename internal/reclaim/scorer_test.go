package reclaim

import (
	"testing"
	"time"
)

// TestEVArmAndIncrement: bullish zone with active
// side 100.00, EV pullback 3 ticks, tick size 0.25. A bar with high
// 99.00 (4 ticks away) arms the counter; a later bar with low at or
// below 100.00 increments it and disarms.
func TestEVArmAndIncrement(t *testing.T) {
	z := NewZone(Bullish, 99.00, time.Now())
	z.ActiveSidePrice = 100.00

	pullback := Bar{Index: 1, Open: 98.50, High: 99.00, Low: 98.25, Close: 98.75}
	scoreZone(&z, pullback, 0.25, 3, 6)

	if !z.IncreaseEVOnNextTouch {
		t.Fatal("expected EV counter armed after a 4-tick pullback")
	}
	if z.EV != 0 {
		t.Fatalf("EV must not increment on the arming bar, got %d", z.EV)
	}

	touch := Bar{Index: 2, Open: 99.50, High: 100.25, Low: 99.75, Close: 100.00}
	scoreZone(&z, touch, 0.25, 3, 6)

	if z.EV != 1 {
		t.Errorf("expected EV 1 after retouch, got %d", z.EV)
	}
	if z.IncreaseEVOnNextTouch {
		t.Error("expected EV counter disarmed after the retouch")
	}
}

// TestNoArmBelowThreshold checks a pullback short of the threshold
// leaves the counter disarmed.
func TestNoArmBelowThreshold(t *testing.T) {
	z := NewZone(Bullish, 99.00, time.Now())
	z.ActiveSidePrice = 100.00

	shallow := Bar{Index: 1, Open: 99.60, High: 99.60, Low: 99.50, Close: 99.55}
	scoreZone(&z, shallow, 0.25, 3, 6)

	if z.IncreaseEVOnNextTouch {
		t.Error("1-tick pullback must not arm a 3-tick counter")
	}
	if z.EV != 0 {
		t.Errorf("expected EV 0, got %d", z.EV)
	}
}

// TestSwingIndependentThreshold checks the two counters run their own
// threshold and arm flag over the same bar extremes.
func TestSwingIndependentThreshold(t *testing.T) {
	z := NewZone(Bullish, 99.00, time.Now())
	z.ActiveSidePrice = 100.00

	// 4 ticks: enough for EV (3) but not swing (6).
	pullback := Bar{Index: 1, Open: 98.75, High: 99.00, Low: 98.50, Close: 98.75}
	scoreZone(&z, pullback, 0.25, 3, 6)

	if !z.IncreaseEVOnNextTouch {
		t.Error("expected EV armed")
	}
	if z.IncreaseSwingOnNextTouch {
		t.Error("swing must not arm below its own threshold")
	}

	// 8 ticks: arms swing; the armed EV counter sees its touch on the
	// same bar (low at or beyond the active side) and cashes in.
	deep := Bar{Index: 2, Open: 98.25, High: 98.00, Low: 97.75, Close: 98.00}
	scoreZone(&z, deep, 0.25, 3, 6)

	if !z.IncreaseSwingOnNextTouch {
		t.Error("expected swing armed after an 8-tick pullback")
	}
	if z.EV != 1 || z.IncreaseEVOnNextTouch {
		t.Errorf("expected EV incremented and disarmed, got ev=%d armed=%v",
			z.EV, z.IncreaseEVOnNextTouch)
	}

	touch := Bar{Index: 3, Open: 99.75, High: 100.50, Low: 100.00, Close: 100.25}
	scoreZone(&z, touch, 0.25, 3, 6)

	if z.EV != 1 || z.Swing != 1 {
		t.Errorf("expected ev=1 swing=1, got ev=%d swing=%d", z.EV, z.Swing)
	}
}

// TestScorerBearishMirror checks the sign-flipped arm/touch path.
func TestScorerBearishMirror(t *testing.T) {
	z := NewZone(Bearish, 101.00, time.Now())
	z.ActiveSidePrice = 100.00

	// Low 101.00 is 4 ticks above the active side: pullback.
	pullback := Bar{Index: 1, Open: 101.25, High: 101.50, Low: 101.00, Close: 101.25}
	scoreZone(&z, pullback, 0.25, 3, 6)

	if !z.IncreaseEVOnNextTouch {
		t.Fatal("expected EV armed on bearish pullback")
	}

	// High back at the active side: retouch.
	touch := Bar{Index: 2, Open: 100.50, High: 100.00, Low: 99.75, Close: 99.90}
	scoreZone(&z, touch, 0.25, 3, 6)

	if z.EV != 1 {
		t.Errorf("expected EV 1, got %d", z.EV)
	}
}
