package binance

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// KlineEvent is one kline update from the combined stream. IsFinal is
// true when the candle closed with this update.
type KlineEvent struct {
	Symbol  string
	Kline   Kline
	IsFinal bool
}

// KlineStream maintains a combined-stream WebSocket subscription to
// one kline interval for a set of symbols and invokes the callback for
// every update. It reconnects forever until stopped.
type KlineStream struct {
	mu sync.RWMutex

	wsBaseURL string
	symbols   []string
	interval  string

	wsConn    *websocket.Conn
	stopChan  chan struct{}
	isRunning bool

	reconnects int

	onKline      func(KlineEvent)
	onConnect    func(url string, symbols []string)
	onDisconnect func(url string, err error)
}

// NewKlineStream creates a stream for the given symbols and interval
func NewKlineStream(wsBaseURL string, symbols []string, interval string, onKline func(KlineEvent)) *KlineStream {
	return &KlineStream{
		wsBaseURL: wsBaseURL,
		symbols:   symbols,
		interval:  interval,
		stopChan:  make(chan struct{}),
		onKline:   onKline,
	}
}

// SetConnectionCallbacks registers optional connect/disconnect hooks
func (s *KlineStream) SetConnectionCallbacks(onConnect func(string, []string), onDisconnect func(string, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConnect = onConnect
	s.onDisconnect = onDisconnect
}

// streamURL builds the combined stream endpoint:
// wss://host/stream?streams=btcusdt@kline_1m/ethusdt@kline_1m
func (s *KlineStream) streamURL() string {
	streams := make([]string, 0, len(s.symbols))
	for _, sym := range s.symbols {
		streams = append(streams, fmt.Sprintf("%s@kline_%s", strings.ToLower(sym), s.interval))
	}
	return s.wsBaseURL + "/stream?streams=" + strings.Join(streams, "/")
}

// Start begins the connection loop
func (s *KlineStream) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if len(s.symbols) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("no symbols to stream")
	}
	s.isRunning = true
	s.mu.Unlock()

	go s.connect()
	return nil
}

// Stop closes the stream
func (s *KlineStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	s.isRunning = false
	close(s.stopChan)

	if s.wsConn != nil {
		s.wsConn.Close()
	}

	log.Printf("[KLINE-STREAM] Stopped")
}

// IsRunning returns true if the stream is running
func (s *KlineStream) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// connect establishes the WebSocket connection and reconnects on loss
func (s *KlineStream) connect() {
	wsURL := s.streamURL()

	for {
		s.mu.RLock()
		if !s.isRunning {
			s.mu.RUnlock()
			return
		}
		s.mu.RUnlock()

		log.Printf("[KLINE-STREAM] Connecting to %s", wsURL)

		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			log.Printf("[KLINE-STREAM] Connection failed: %v, retrying in 5s", err)
			s.mu.Lock()
			s.reconnects++
			s.mu.Unlock()
			time.Sleep(5 * time.Second)
			continue
		}

		s.mu.Lock()
		s.wsConn = conn
		s.reconnects = 0
		onConnect := s.onConnect
		s.mu.Unlock()

		log.Printf("[KLINE-STREAM] Connected successfully")
		if onConnect != nil {
			onConnect(wsURL, s.symbols)
		}

		readErr := s.readLoop(conn)

		s.mu.RLock()
		isRunning := s.isRunning
		onDisconnect := s.onDisconnect
		s.mu.RUnlock()

		if !isRunning {
			return
		}
		if onDisconnect != nil {
			onDisconnect(wsURL, readErr)
		}

		log.Printf("[KLINE-STREAM] Connection lost, reconnecting in 3s")
		time.Sleep(3 * time.Second)
	}
}

// readLoop reads messages from the WebSocket until the connection dies
func (s *KlineStream) readLoop(conn *websocket.Conn) error {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[KLINE-STREAM] Connection closed normally")
				return nil
			}
			log.Printf("[KLINE-STREAM] Read error: %v", err)
			return err
		}

		s.handleMessage(message)
	}
}

// combinedStreamMessage is the envelope of /stream?streams= payloads
type combinedStreamMessage struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// wsKlinePayload mirrors the kline stream event format
type wsKlinePayload struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Kline     struct {
		OpenTime       int64  `json:"t"`
		CloseTime      int64  `json:"T"`
		Open           string `json:"o"`
		High           string `json:"h"`
		Low            string `json:"l"`
		Close          string `json:"c"`
		Volume         string `json:"v"`
		NumberOfTrades int    `json:"n"`
		IsFinal        bool   `json:"x"`
	} `json:"k"`
}

func (s *KlineStream) handleMessage(message []byte) {
	var envelope combinedStreamMessage
	if err := json.Unmarshal(message, &envelope); err != nil {
		log.Printf("[KLINE-STREAM] Failed to parse message: %v", err)
		return
	}

	var payload wsKlinePayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		log.Printf("[KLINE-STREAM] Failed to parse kline payload: %v", err)
		return
	}
	if payload.EventType != "kline" {
		return
	}

	event := KlineEvent{
		Symbol: payload.Symbol,
		Kline: Kline{
			OpenTime:       payload.Kline.OpenTime,
			CloseTime:      payload.Kline.CloseTime,
			Open:           parseFloat(payload.Kline.Open),
			High:           parseFloat(payload.Kline.High),
			Low:            parseFloat(payload.Kline.Low),
			Close:          parseFloat(payload.Kline.Close),
			Volume:         parseFloat(payload.Kline.Volume),
			NumberOfTrades: payload.Kline.NumberOfTrades,
		},
		IsFinal: payload.Kline.IsFinal,
	}

	if s.onKline != nil {
		s.onKline(event)
	}
}

// GetStats returns stream statistics
func (s *KlineStream) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"running":    s.isRunning,
		"symbols":    len(s.symbols),
		"interval":   s.interval,
		"reconnects": s.reconnects,
	}
}
