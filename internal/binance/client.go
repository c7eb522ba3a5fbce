package binance

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Kline represents a candlestick
type Kline struct {
	OpenTime       int64   `json:"openTime"`
	Open           float64 `json:"open,string"`
	High           float64 `json:"high,string"`
	Low            float64 `json:"low,string"`
	Close          float64 `json:"close,string"`
	Volume         float64 `json:"volume,string"`
	CloseTime      int64   `json:"closeTime"`
	NumberOfTrades int     `json:"numberOfTrades"`
}

// GetKlines fetches candlestick data
func (c *Client) GetKlines(symbol, interval string, limit int) ([]Kline, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", c.baseURL, params.Encode())

	resp, err := c.httpClient.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("error fetching klines: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	var rawKlines [][]interface{}
	if err := json.Unmarshal(body, &rawKlines); err != nil {
		return nil, fmt.Errorf("error parsing klines: %w", err)
	}

	klines := make([]Kline, len(rawKlines))
	for i, raw := range rawKlines {
		if len(raw) < 9 {
			return nil, fmt.Errorf("malformed kline at index %d", i)
		}
		klines[i] = Kline{
			OpenTime:       int64(raw[0].(float64)),
			Open:           parseFloat(raw[1]),
			High:           parseFloat(raw[2]),
			Low:            parseFloat(raw[3]),
			Close:          parseFloat(raw[4]),
			Volume:         parseFloat(raw[5]),
			CloseTime:      int64(raw[6].(float64)),
			NumberOfTrades: int(raw[8].(float64)),
		}
	}

	return klines, nil
}

// GetCurrentPrice fetches the current price for a symbol
func (c *Client) GetCurrentPrice(symbol string) (float64, error) {
	endpoint := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", c.baseURL, symbol)

	resp, err := c.httpClient.Get(endpoint)
	if err != nil {
		return 0, fmt.Errorf("error fetching price: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("API error: %s", string(body))
	}

	var priceResp struct {
		Symbol string  `json:"symbol"`
		Price  float64 `json:"price,string"`
	}

	if err := json.Unmarshal(body, &priceResp); err != nil {
		return 0, fmt.Errorf("error parsing price: %w", err)
	}

	return priceResp.Price, nil
}

// SymbolFilter represents one exchange filter attached to a symbol
type SymbolFilter struct {
	FilterType string `json:"filterType"`
	TickSize   string `json:"tickSize"`
}

// SymbolInfo represents basic symbol information
type SymbolInfo struct {
	Symbol     string         `json:"symbol"`
	Status     string         `json:"status"`
	BaseAsset  string         `json:"baseAsset"`
	QuoteAsset string         `json:"quoteAsset"`
	Filters    []SymbolFilter `json:"filters"`
}

// ExchangeInfo represents exchange information response
type ExchangeInfo struct {
	Symbols []SymbolInfo `json:"symbols"`
}

// GetExchangeInfo fetches exchange information including all trading symbols
func (c *Client) GetExchangeInfo() (*ExchangeInfo, error) {
	endpoint := fmt.Sprintf("%s/api/v3/exchangeInfo", c.baseURL)

	resp, err := c.httpClient.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("error fetching exchange info: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	var exchangeInfo ExchangeInfo
	if err := json.Unmarshal(body, &exchangeInfo); err != nil {
		return nil, fmt.Errorf("error parsing exchange info: %w", err)
	}

	return &exchangeInfo, nil
}

// GetTickSize resolves a symbol's price tick from its PRICE_FILTER
func (c *Client) GetTickSize(symbol string) (float64, error) {
	info, err := c.GetExchangeInfo()
	if err != nil {
		return 0, err
	}

	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}
		for _, f := range s.Filters {
			if f.FilterType != "PRICE_FILTER" {
				continue
			}
			tick, err := strconv.ParseFloat(f.TickSize, 64)
			if err != nil || tick <= 0 {
				return 0, fmt.Errorf("invalid tick size %q for %s", f.TickSize, symbol)
			}
			return tick, nil
		}
		return 0, fmt.Errorf("no PRICE_FILTER for %s", symbol)
	}
	return 0, fmt.Errorf("symbol %s not found in exchange info", symbol)
}

func parseFloat(val interface{}) float64 {
	switch v := val.(type) {
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	case float64:
		return v
	default:
		return 0
	}
}
