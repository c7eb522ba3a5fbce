package reclaim

// shouldRotate decides, once per bar close, whether the live zone is
// retired into history and a fresh head started. The retracement gate
// always applies; the opposite-bar filter additionally requires the
// closed bar to reverse the nearest preceding non-doji bar. When the
// lookback window holds nothing but dojis the trigger fires
// unconditionally: too much indecision, start fresh.
func shouldRotate(headRetracement int, bars []Bar, o Options) bool {
	if headRetracement < o.NewZoneRetracementTicks {
		return false
	}
	if !o.OppositeBarFilter {
		return true
	}
	n := len(bars)
	if n == 0 {
		return false
	}
	last := bars[n-1]
	if last.IsDoji() {
		return false
	}
	for i := n - 2; i >= 0 && n-1-i <= o.DojiLookbackBars; i-- {
		if !bars[i].IsDoji() {
			return bars[i].direction() != last.direction()
		}
	}
	return true
}

// PriceOverlap reports whether the last n bars all share price range
// with the most recent bar. Overlapping ranges mark a balanced,
// indecisive market; the engine surfaces the flag in its snapshots.
func PriceOverlap(bars []Bar, n int) bool {
	if n <= 0 || len(bars) < n {
		return false
	}
	last := bars[len(bars)-1]
	for i := 1; i < n; i++ {
		b := bars[len(bars)-1-i]
		if b.Low >= last.High || b.High <= last.Low {
			return false
		}
	}
	return true
}
