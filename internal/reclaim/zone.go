package reclaim

import (
	"time"

	"github.com/google/uuid"
)

// Side represents the direction of a reclaim zone
type Side int

const (
	Bullish Side = iota
	Bearish
)

func (s Side) String() string {
	if s == Bullish {
		return "bullish"
	}
	return "bearish"
}

// sign returns the price-axis multiplier for the side: heights and
// retracements are measured as sign*(delta) so a single algorithm
// serves both directions.
func (s Side) sign() float64 {
	if s == Bullish {
		return 1
	}
	return -1
}

// extreme returns the bar extreme the active side tracks (high for
// bullish zones, low for bearish).
func (s Side) extreme(high, low float64) float64 {
	if s == Bullish {
		return high
	}
	return low
}

// against returns the bar extreme that moves against the zone and can
// breach its fixed side (low for bullish zones, high for bearish).
func (s Side) against(high, low float64) float64 {
	if s == Bullish {
		return low
	}
	return high
}

// Zone is one tracked reclaim: a price range anchored at FixedSidePrice
// whose ActiveSidePrice follows the furthest favorable excursion since
// the last reset. The zone at history index 0 is live and tracks raw
// price; retired zones (index >= 1) only tighten until they are
// reclaimed and marked Deleted.
type Zone struct {
	// ID correlates the zone with its drawings (rectangle + label)
	// owned by the renderer adapter.
	ID   string `json:"id"`
	Side Side   `json:"side"`

	FixedSidePrice  float64   `json:"fixed_side_price"`
	ActiveSidePrice float64   `json:"active_side_price"`
	StartTime       time.Time `json:"start_time"`

	// Heights and retracement are in tick units, truncated toward zero.
	CurrentHeight  int `json:"current_height"`
	MaxHeight      int `json:"max_height"`
	MaxRetracement int `json:"max_retracement"`

	EV                    int  `json:"ev"`
	IncreaseEVOnNextTouch bool `json:"increase_ev_on_next_touch"`

	Swing                    int  `json:"swing"`
	IncreaseSwingOnNextTouch bool `json:"increase_swing_on_next_touch"`

	// DecayStartTime is stamped the first time CurrentHeight drops to or
	// below the minimum zone size. It only affects rendering fade.
	DecayStartTime time.Time `json:"decay_start_time,omitempty"`

	Deleted bool `json:"deleted"`
}

// NewZone seeds a fresh live zone with both boundaries at price.
func NewZone(side Side, price float64, t time.Time) Zone {
	return Zone{
		ID:              uuid.NewString(),
		Side:            side,
		FixedSidePrice:  price,
		ActiveSidePrice: price,
		StartTime:       t,
	}
}

// emptyZone returns an inert placeholder for unused history slots.
func emptyZone(side Side) Zone {
	return Zone{ID: uuid.NewString(), Side: side, Deleted: true}
}

// reset collapses both boundaries onto price and restarts the zone at
// the current bar. Only the live zone resets; retired zones are
// reclaimed instead.
func (z *Zone) reset(price float64, t time.Time) {
	z.FixedSidePrice = price
	z.ActiveSidePrice = price
	z.StartTime = t
	z.CurrentHeight = 0
	z.MaxHeight = 0
	z.MaxRetracement = 0
	z.DecayStartTime = time.Time{}
}

// height returns the zone height in ticks for the given boundaries.
func (z *Zone) height(tickSize float64) int {
	return Ticks(z.Side.sign()*(z.ActiveSidePrice-z.FixedSidePrice), tickSize)
}

// Ticks converts a price delta to whole ticks, truncating toward zero.
// All threshold comparisons in the package use this single rounding
// rule so heights and retracements cannot drift by one tick between
// call sites.
func Ticks(delta, tickSize float64) int {
	if tickSize <= 0 {
		return 0
	}
	return int(delta / tickSize)
}
