package reclaim

// scoreZone updates a retired zone's EV and swing counters from the
// extremes of a freshly closed bar. Both counters run the same
// pullback-then-retouch machine with independent thresholds and arm
// flags, so one bar can satisfy either, both, or neither.
func scoreZone(z *Zone, bar Bar, tickSize float64, evTicks, swingTicks int) {
	z.EV, z.IncreaseEVOnNextTouch = scoreCounter(
		z, bar, tickSize, evTicks, z.EV, z.IncreaseEVOnNextTouch)
	z.Swing, z.IncreaseSwingOnNextTouch = scoreCounter(
		z, bar, tickSize, swingTicks, z.Swing, z.IncreaseSwingOnNextTouch)
}

// scoreCounter advances one pullback counter. When disarmed it measures
// how far the bar pulled away from the active side; reaching the
// threshold arms the counter. When armed, a bar extreme touching back
// to the active side increments the count and disarms.
func scoreCounter(z *Zone, bar Bar, tickSize float64, thresholdTicks, count int, armed bool) (int, bool) {
	sign := z.Side.sign()

	if !armed {
		approach := z.Side.extreme(bar.High, bar.Low)
		pullback := Ticks(sign*(z.ActiveSidePrice-approach), tickSize)
		if pullback >= thresholdTicks {
			armed = true
		}
		return count, armed
	}

	touch := z.Side.against(bar.High, bar.Low)
	if sign*(touch-z.ActiveSidePrice) <= 0 {
		count++
		armed = false
	}
	return count, armed
}
