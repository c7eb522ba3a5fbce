package reclaim

import "time"

// Bar is one closed candle as seen by the engine.
type Bar struct {
	Index int64     `json:"index"`
	Time  time.Time `json:"time"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

// IsDoji reports whether the bar has no directional body.
func (b Bar) IsDoji() bool {
	return b.Open == b.Close
}

// direction returns +1 for an up bar, -1 for a down bar, 0 for a doji.
func (b Bar) direction() int {
	switch {
	case b.Close > b.Open:
		return 1
	case b.Close < b.Open:
		return -1
	default:
		return 0
	}
}

// Sample is one inbound price event. Bar always holds the most recently
// closed candle; LastPrice is the live trade price, which may be inside
// the still-forming candle.
type Sample struct {
	Time      time.Time
	TickSize  float64
	LastPrice float64
	Bar       Bar
	HasBar    bool
	// IsNewBar is true when Bar closed with this event. The engine
	// recomputes it from bar indexes, so feeds do not have to.
	IsNewBar bool
}

// updateHead recomputes the live zone against the latest sample. The
// live zone never closes: when the against-side extreme breaches the
// fixed side the zone resets in place instead. The returned value is
// the retracement seen this pass, captured before any reset so the
// new-zone trigger still observes it on the bar that breached.
func updateHead(z *Zone, s Sample, tickMode bool) (retracement int) {
	sign := z.Side.sign()

	ext := z.Side.extreme(s.Bar.High, s.Bar.Low)
	if tickMode {
		ext = s.LastPrice
	}
	z.ActiveSidePrice = ext
	z.CurrentHeight = z.height(s.TickSize)

	if nh := Ticks(sign*(ext-z.FixedSidePrice), s.TickSize); nh > z.MaxHeight {
		z.MaxHeight = nh
	}

	// Retracement is measured from the price implied by the best height
	// ever reached back to the latest close.
	peak := z.FixedSidePrice + sign*float64(z.MaxHeight)*s.TickSize
	if nr := Ticks(sign*(peak-s.Bar.Close), s.TickSize); nr > z.MaxRetracement {
		z.MaxRetracement = nr
	}

	retracement = z.MaxRetracement

	// In tick mode the live trade is the breaching extreme; the bar
	// extremes belong to the previous closed candle.
	against := z.Side.against(s.Bar.High, s.Bar.Low)
	if tickMode {
		against = s.LastPrice
	}
	if sign*(against-z.FixedSidePrice) <= 0 {
		// A head already collapsed at the breaching price has nothing
		// left to reset; skipping keeps StartTime anchored while ticks
		// repeat at that level.
		collapsed := against == z.FixedSidePrice && z.ActiveSidePrice == z.FixedSidePrice &&
			z.MaxHeight == 0 && z.MaxRetracement == 0
		if !collapsed {
			z.reset(against, s.Time)
		}
	}
	return retracement
}

// updateRetired tightens a retired zone toward its fixed side and
// reports whether the zone was reclaimed this pass. The active side
// never re-widens once the zone is retired.
func updateRetired(z *Zone, s Sample, minSizeTicks int) (reclaimed bool) {
	sign := z.Side.sign()
	against := z.Side.against(s.Bar.High, s.Bar.Low)

	if sign*(against-z.ActiveSidePrice) < 0 {
		next := against
		if sign*(next-z.FixedSidePrice) < 0 {
			next = z.FixedSidePrice
		}
		z.ActiveSidePrice = next
	}

	z.CurrentHeight = z.height(s.TickSize)
	if z.DecayStartTime.IsZero() && z.CurrentHeight <= minSizeTicks {
		z.DecayStartTime = s.Time
	}

	if sign*(against-z.FixedSidePrice) <= 0 || sign*(z.ActiveSidePrice-z.FixedSidePrice) <= 0 {
		z.Deleted = true
		return true
	}
	return false
}
