package binance

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// MockClient provides simulated market data for development/testing
type MockClient struct {
	prices     map[string]float64
	ticks      map[string]float64
	lastUpdate time.Time
	mu         sync.RWMutex // Protects prices map and lastUpdate
}

// NewMockClient creates a new mock client
func NewMockClient() *MockClient {
	mc := &MockClient{
		lastUpdate: time.Now(),
	}

	// Initialize with realistic base prices
	mc.prices = map[string]float64{
		"BTCUSDT": 104500.00,
		"ETHUSDT": 3900.00,
		"BNBUSDT": 710.00,
		"SOLUSDT": 220.00,
		"XRPUSDT": 2.35,
	}
	mc.ticks = map[string]float64{
		"BTCUSDT": 0.01,
		"ETHUSDT": 0.01,
		"BNBUSDT": 0.01,
		"SOLUSDT": 0.01,
		"XRPUSDT": 0.0001,
	}

	return mc
}

// updatePrices adds small random variations to simulate market movement
func (mc *MockClient) updatePrices() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if time.Since(mc.lastUpdate) < time.Second {
		return
	}

	for symbol, price := range mc.prices {
		// Random walk: -0.5% to +0.5% change
		change := (rand.Float64() - 0.5) * 0.01
		mc.prices[symbol] = price * (1 + change)
	}
	mc.lastUpdate = time.Now()
}

// GetKlines returns simulated candlestick data
func (mc *MockClient) GetKlines(symbol, interval string, limit int) ([]Kline, error) {
	mc.updatePrices()

	mc.mu.RLock()
	basePrice, ok := mc.prices[symbol]
	mc.mu.RUnlock()
	if !ok {
		basePrice = 100.0
	}

	intervalDuration := IntervalDuration(interval)

	klines := make([]Kline, limit)
	now := time.Now()

	// Generate historical klines working backwards
	currentPrice := basePrice
	for i := limit - 1; i >= 0; i-- {
		openTime := now.Add(-time.Duration(limit-i) * intervalDuration)
		closeTime := openTime.Add(intervalDuration)

		volatility := 0.02
		open := currentPrice
		change := (rand.Float64() - 0.5) * volatility * 2
		close := open * (1 + change)

		high := math.Max(open, close) * (1 + rand.Float64()*volatility*0.5)
		low := math.Min(open, close) * (1 - rand.Float64()*volatility*0.5)

		klines[i] = Kline{
			OpenTime:       openTime.UnixMilli(),
			Open:           open,
			High:           high,
			Low:            low,
			Close:          close,
			Volume:         1000 + rand.Float64()*5000,
			CloseTime:      closeTime.UnixMilli(),
			NumberOfTrades: int(100 + rand.Float64()*1000),
		}

		currentPrice = close
	}

	return klines, nil
}

// GetCurrentPrice returns simulated current price
func (mc *MockClient) GetCurrentPrice(symbol string) (float64, error) {
	mc.updatePrices()

	mc.mu.RLock()
	price, ok := mc.prices[symbol]
	mc.mu.RUnlock()

	if ok {
		return price, nil
	}
	return 100.0, nil
}

// GetTickSize returns the simulated price tick for a symbol
func (mc *MockClient) GetTickSize(symbol string) (float64, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if tick, ok := mc.ticks[symbol]; ok {
		return tick, nil
	}
	return 0.01, nil
}

// SetPrice pins a symbol's price, for deterministic tests
func (mc *MockClient) SetPrice(symbol string, price float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.prices[symbol] = price
}

// IntervalDuration maps a kline interval string to its duration.
// Unknown intervals fall back to one minute.
func IntervalDuration(interval string) time.Duration {
	switch interval {
	case "1m":
		return time.Minute
	case "3m":
		return 3 * time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	default:
		return time.Minute
	}
}
