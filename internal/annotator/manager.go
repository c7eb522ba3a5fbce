package annotator

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Vittorio94/fatcat-reclaims/config"
	"github.com/Vittorio94/fatcat-reclaims/internal/binance"
	"github.com/Vittorio94/fatcat-reclaims/internal/events"
	"github.com/Vittorio94/fatcat-reclaims/internal/logging"
	"github.com/Vittorio94/fatcat-reclaims/internal/reclaim"
)

// Manager owns one reclaim engine per tracked symbol and feeds them
// from the exchange: a replay of recent closed bars on startup, then
// the live kline stream. It is the read model the API serves from.
type Manager struct {
	mu sync.RWMutex

	cfg      config.FeedConfig
	client   binance.MarketDataClient
	bus      *events.Bus
	logger   *logging.Logger
	interval time.Duration

	symbols []string
	engines map[string]*reclaim.Engine

	// lastBar holds the most recent closed bar per symbol so intrabar
	// updates can still carry valid bar context.
	lastBar map[string]reclaim.Bar
	hasBar  map[string]bool

	stream *binance.KlineStream
}

// NewManager builds an engine per configured symbol. Tick sizes come
// from the config overrides first, then the exchange PRICE_FILTER.
func NewManager(cfg config.FeedConfig, opts reclaim.Options, client binance.MarketDataClient, renderer reclaim.Renderer, bus *events.Bus, logger *logging.Logger) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("annotator: market data client is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.WithComponent("annotator")

	m := &Manager{
		cfg:      cfg,
		client:   client,
		bus:      bus,
		logger:   logger,
		interval: binance.IntervalDuration(cfg.Interval),
		engines:  make(map[string]*reclaim.Engine),
		lastBar:  make(map[string]reclaim.Bar),
		hasBar:   make(map[string]bool),
	}

	for _, sym := range cfg.Symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		if _, exists := m.engines[sym]; exists {
			continue
		}

		tickSize, ok := cfg.TickSizeOverrides[sym]
		if !ok {
			var err error
			tickSize, err = client.GetTickSize(sym)
			if err != nil {
				return nil, fmt.Errorf("annotator: tick size for %s: %w", sym, err)
			}
		}

		engine, err := reclaim.NewEngine(sym, tickSize, opts, renderer, bus, logger)
		if err != nil {
			return nil, fmt.Errorf("annotator: engine for %s: %w", sym, err)
		}

		m.symbols = append(m.symbols, sym)
		m.engines[sym] = engine
		m.logger.Info("tracking symbol", "symbol", sym, "tick_size", tickSize)
	}

	if len(m.symbols) == 0 {
		return nil, fmt.Errorf("annotator: no symbols configured")
	}
	return m, nil
}

// Warmup replays the configured number of recent closed bars through
// every engine so zones reflect history instead of starting cold.
// Symbols whose history cannot be fetched start cold; the feed will
// still seed them from the first live price.
func (m *Manager) Warmup() error {
	if m.cfg.BarLookback <= 0 {
		return nil
	}

	var lastErr error
	for _, sym := range m.symbols {
		klines, err := m.client.GetKlines(sym, m.cfg.Interval, m.cfg.BarLookback)
		if err != nil {
			m.logger.Warn("warmup fetch failed, starting cold",
				"symbol", sym, "error", err)
			lastErr = err
			continue
		}
		for _, k := range klines {
			m.applyClosedKline(sym, k)
		}
		m.logger.Info("warmup replay complete", "symbol", sym, "bars", len(klines))
	}
	return lastErr
}

// StartStream opens the live kline stream and routes updates into the
// engines. Connection state changes are published on the event bus.
func (m *Manager) StartStream(wsBaseURL string) error {
	stream := binance.NewKlineStream(wsBaseURL, m.symbols, m.cfg.Interval, m.handleKline)
	if m.bus != nil {
		stream.SetConnectionCallbacks(m.bus.PublishFeedConnected, m.bus.PublishFeedLost)
	}
	if err := stream.Start(); err != nil {
		return err
	}

	m.mu.Lock()
	m.stream = stream
	m.mu.Unlock()
	return nil
}

// StartPolling drives the engines from REST snapshots instead of the
// WebSocket stream. Used in mock mode, where no stream exists.
func (m *Manager) StartPolling(every time.Duration, stop <-chan struct{}) {
	if every <= 0 {
		every = time.Second
	}
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.pollOnce()
			}
		}
	}()
}

// Stop closes the live stream, if one is running.
func (m *Manager) Stop() {
	m.mu.Lock()
	stream := m.stream
	m.stream = nil
	m.mu.Unlock()

	if stream != nil {
		stream.Stop()
	}
}

// Symbols returns the tracked symbols in configuration order.
func (m *Manager) Symbols() []string {
	out := make([]string, len(m.symbols))
	copy(out, m.symbols)
	return out
}

// Snapshot returns the current state for one symbol.
func (m *Manager) Snapshot(symbol string) (reclaim.Snapshot, bool) {
	engine, ok := m.engines[strings.ToUpper(symbol)]
	if !ok {
		return reclaim.Snapshot{}, false
	}
	return engine.Snapshot(), true
}

// Snapshots returns the current state of every tracked symbol.
func (m *Manager) Snapshots() []reclaim.Snapshot {
	out := make([]reclaim.Snapshot, 0, len(m.symbols))
	for _, sym := range m.symbols {
		out = append(out, m.engines[sym].Snapshot())
	}
	return out
}

// handleKline routes one stream update into the owning engine. Closed
// candles become the new bar context; intrabar updates only move the
// last price against the previous closed bar.
func (m *Manager) handleKline(ev binance.KlineEvent) {
	sym := strings.ToUpper(ev.Symbol)
	engine, ok := m.engines[sym]
	if !ok {
		return
	}

	if ev.IsFinal {
		m.applyClosedKline(sym, ev.Kline)
		return
	}

	m.mu.RLock()
	bar, has := m.lastBar[sym], m.hasBar[sym]
	m.mu.RUnlock()

	engine.ProcessSample(reclaim.Sample{
		Time:      time.UnixMilli(ev.Kline.CloseTime),
		LastPrice: ev.Kline.Close,
		Bar:       bar,
		HasBar:    has,
	})
}

// applyClosedKline converts a closed candle into a sample and feeds it
// to the engine. Bar indexes derive from the open time so restarts and
// reconnects stay monotonic.
func (m *Manager) applyClosedKline(sym string, k binance.Kline) {
	engine, ok := m.engines[sym]
	if !ok {
		return
	}

	bar := reclaim.Bar{
		Index: m.barIndex(k.OpenTime),
		Time:  time.UnixMilli(k.OpenTime),
		Open:  k.Open,
		High:  k.High,
		Low:   k.Low,
		Close: k.Close,
	}

	m.mu.Lock()
	m.lastBar[sym] = bar
	m.hasBar[sym] = true
	m.mu.Unlock()

	engine.ProcessSample(reclaim.Sample{
		Time:      time.UnixMilli(k.CloseTime),
		LastPrice: k.Close,
		Bar:       bar,
		HasBar:    true,
	})
}

// pollOnce fetches the two most recent candles per symbol and replays
// them: the older one is closed, the newer one is the forming candle.
func (m *Manager) pollOnce() {
	for _, sym := range m.symbols {
		klines, err := m.client.GetKlines(sym, m.cfg.Interval, 2)
		if err != nil {
			m.logger.Warn("poll fetch failed", "symbol", sym, "error", err)
			continue
		}
		if len(klines) == 0 {
			continue
		}
		if len(klines) >= 2 {
			m.applyClosedKline(sym, klines[len(klines)-2])
		}
		forming := klines[len(klines)-1]
		m.handleKline(binance.KlineEvent{Symbol: sym, Kline: forming, IsFinal: false})
	}
}

// barIndex maps a candle open time to a monotonic bar index.
func (m *Manager) barIndex(openTimeMs int64) int64 {
	ms := m.interval.Milliseconds()
	if ms <= 0 {
		return openTimeMs
	}
	return openTimeMs / ms
}
