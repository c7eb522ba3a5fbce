package reclaim

import "fmt"

// Options configures one engine (both sides share the same settings).
type Options struct {
	// MaxZones is the fixed history capacity per side. Immutable after
	// first use.
	MaxZones int

	// NewZoneRetracementTicks is the retracement, in ticks, at which
	// the live zone is retired and a new one started.
	NewZoneRetracementTicks int

	// EVPullbackTicks and SwingPullbackTicks are the pullback distances
	// that arm the two touch counters on retired zones.
	EVPullbackTicks    int
	SwingPullbackTicks int

	// MinZoneSizeTicks is the height at or below which a retired zone
	// starts decaying (rendering fade only).
	MinZoneSizeTicks int

	// UpdateOnBarClose restricts live-zone updates to bar closes.
	// When false the live zone follows every trade tick.
	UpdateOnBarClose bool

	// OppositeBarFilter gates zone rotation on the closed bar reversing
	// the nearest preceding non-doji bar.
	OppositeBarFilter bool
	// DojiLookbackBars bounds the reversal scan. Zero selects
	// DefaultDojiLookback; an empty scan window is not expressible
	// because it would fire unconditionally, which is what disabling
	// OppositeBarFilter already does.
	DojiLookbackBars int

	// ShowCurrentZone draws the live zone while it is still forming.
	ShowCurrentZone bool
}

// DefaultDojiLookback bounds the opposite-bar scan when the config does
// not set one.
const DefaultDojiLookback = 10

// Validate rejects configurations the engine cannot run with. A failed
// validation is fatal at initialization: no engine state is built.
func (o Options) Validate() error {
	if o.MaxZones <= 0 {
		return fmt.Errorf("reclaim: max_zones must be positive, got %d", o.MaxZones)
	}
	if o.NewZoneRetracementTicks < 1 {
		return fmt.Errorf("reclaim: new_zone_retracement_ticks must be at least 1, got %d", o.NewZoneRetracementTicks)
	}
	if o.EVPullbackTicks < 0 {
		return fmt.Errorf("reclaim: ev_pullback_ticks must not be negative, got %d", o.EVPullbackTicks)
	}
	if o.SwingPullbackTicks < 0 {
		return fmt.Errorf("reclaim: swing_pullback_ticks must not be negative, got %d", o.SwingPullbackTicks)
	}
	if o.MinZoneSizeTicks < 0 {
		return fmt.Errorf("reclaim: min_zone_size_ticks must not be negative, got %d", o.MinZoneSizeTicks)
	}
	if o.DojiLookbackBars < 0 {
		return fmt.Errorf("reclaim: doji_lookback_bars must not be negative, got %d", o.DojiLookbackBars)
	}
	return nil
}

// withDefaults fills optional knobs.
func (o Options) withDefaults() Options {
	if o.DojiLookbackBars == 0 {
		o.DojiLookbackBars = DefaultDojiLookback
	}
	return o
}
