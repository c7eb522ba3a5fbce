package binance

// MarketDataClient abstracts the REST surface the annotator needs, so
// the mock can stand in when the exchange is unreachable.
type MarketDataClient interface {
	GetKlines(symbol, interval string, limit int) ([]Kline, error)
	GetCurrentPrice(symbol string) (float64, error)
	GetTickSize(symbol string) (float64, error)
}

// Ensure implementations satisfy the interface
var (
	_ MarketDataClient = (*Client)(nil)
	_ MarketDataClient = (*MockClient)(nil)
)
