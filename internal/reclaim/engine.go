package reclaim

import (
	"sync"
	"time"

	"github.com/Vittorio94/fatcat-reclaims/internal/events"
	"github.com/Vittorio94/fatcat-reclaims/internal/logging"
)

// Snapshot is the full observable state of one symbol's engine.
type Snapshot struct {
	Symbol       string    `json:"symbol"`
	Time         time.Time `json:"time"`
	BarIndex     int64     `json:"bar_index"`
	TickSize     float64   `json:"tick_size"`
	LastPrice    float64   `json:"last_price"`
	PriceOverlap bool      `json:"price_overlap"`
	Up           []Zone    `json:"up"`
	Down         []Zone    `json:"down"`
}

// Engine runs the two symmetric reclaim trackers for one symbol.
// Samples must arrive in order from a single goroutine; the engine
// skips non-monotonic or incomplete events instead of failing. The
// mutex only exists so API handlers can read snapshots while the feed
// goroutine is processing.
type Engine struct {
	mu sync.RWMutex

	symbol   string
	tickSize float64
	opts     Options
	renderer Renderer
	bus      *events.Bus
	logger   *logging.Logger

	up   *Tracker
	down *Tracker

	bars         []Bar
	lastBarIndex int64
	lastPrice    float64
	lastTime     time.Time
	overlap      bool
}

// NewEngine validates the configuration up front; a bad configuration
// is fatal and constructs no state. Trackers are seeded lazily from
// the first observed price.
func NewEngine(symbol string, tickSize float64, opts Options, r Renderer, bus *events.Bus, logger *logging.Logger) (*Engine, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if r == nil {
		r = NopRenderer{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		symbol:   symbol,
		tickSize: tickSize,
		opts:     opts,
		renderer: r,
		bus:      bus,
		logger:   logger.WithField("symbol", symbol),
	}, nil
}

// Symbol returns the symbol this engine annotates.
func (e *Engine) Symbol() string {
	return e.symbol
}

// ProcessSample applies one inbound price event. Each event either
// fully applies or is skipped; the two sides are processed
// independently so one side can never corrupt the other.
func (e *Engine) ProcessSample(s Sample) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s.TickSize <= 0 {
		s.TickSize = e.tickSize
	}

	if e.up == nil {
		e.seed(s)
		return
	}

	// No closed bar yet: hold state unchanged until history is
	// available.
	if !s.HasBar {
		return
	}
	if s.Bar.Index < e.lastBarIndex {
		e.logger.Warn("skipping non-monotonic bar",
			"bar_index", s.Bar.Index, "last_index", e.lastBarIndex)
		return
	}

	s.IsNewBar = s.Bar.Index > e.lastBarIndex
	e.lastBarIndex = s.Bar.Index
	e.lastPrice = s.LastPrice
	e.lastTime = s.Time

	if s.IsNewBar {
		e.pushBar(s.Bar)
		e.overlap = PriceOverlap(e.bars, e.opts.DojiLookbackBars)
	}

	// Bar-granularity mode only reacts to bar closes.
	if e.opts.UpdateOnBarClose && !s.IsNewBar {
		return
	}

	upRes := e.up.Process(s, e.bars)
	downRes := e.down.Process(s, e.bars)

	e.publish(Bullish, upRes)
	e.publish(Bearish, downRes)

	if s.IsNewBar && e.bus != nil {
		e.bus.PublishZoneSnapshot(e.symbol, e.snapshotLocked())
	}
}

// seed installs both trackers from the first observed price. Feed
// events before a price is known are ignored.
func (e *Engine) seed(s Sample) {
	if s.LastPrice <= 0 {
		return
	}
	// Validated at construction, so neither call can fail here.
	e.up, _ = NewTracker(Bullish, e.opts, s.LastPrice, s.Time, e.renderer)
	e.down, _ = NewTracker(Bearish, e.opts, s.LastPrice, s.Time, e.renderer)
	e.lastPrice = s.LastPrice
	e.lastTime = s.Time
	if s.HasBar {
		e.lastBarIndex = s.Bar.Index
		e.pushBar(s.Bar)
	}
	if e.opts.ShowCurrentZone {
		e.renderer.Draw(*e.up.Head(), s)
		e.renderer.Draw(*e.down.Head(), s)
	}
	if e.bus != nil {
		e.bus.PublishZoneCreated(e.symbol, Bullish.String(), *e.up.Head())
		e.bus.PublishZoneCreated(e.symbol, Bearish.String(), *e.down.Head())
	}
	e.logger.Info("reclaim engine seeded", "price", s.LastPrice)
}

// pushBar appends a closed bar to the bounded lookback window.
func (e *Engine) pushBar(b Bar) {
	e.bars = append(e.bars, b)
	if max := e.opts.DojiLookbackBars + 1; len(e.bars) > max {
		e.bars = e.bars[len(e.bars)-max:]
	}
}

func (e *Engine) publish(side Side, res Result) {
	if e.bus == nil {
		return
	}
	for _, z := range res.Reclaimed {
		e.bus.PublishZoneReclaimed(e.symbol, side.String(), z)
	}
	if res.Rotated {
		e.bus.PublishZoneRotated(e.symbol, side.String(), res.NewHead, res.Evicted)
	}
}

// Snapshot returns a copy of the engine's observable state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	snap := Snapshot{
		Symbol:       e.symbol,
		Time:         e.lastTime,
		BarIndex:     e.lastBarIndex,
		TickSize:     e.tickSize,
		LastPrice:    e.lastPrice,
		PriceOverlap: e.overlap,
	}
	if e.up != nil {
		snap.Up = e.up.Zones()
		snap.Down = e.down.Zones()
	}
	return snap
}
