package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Vittorio94/fatcat-reclaims/config"
	"github.com/Vittorio94/fatcat-reclaims/internal/events"
	"github.com/Vittorio94/fatcat-reclaims/internal/logging"
	"github.com/Vittorio94/fatcat-reclaims/internal/reclaim"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	NotifyReclaim  NotificationType = "reclaim"
	NotifyRotation NotificationType = "rotation"
	NotifyFeed     NotificationType = "feed"
	NotifyError    NotificationType = "error"
	NotifyInfo     NotificationType = "info"
)

// Notification represents a notification message
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Symbol    string
	Side      string
	Price     float64
	EV        int
	Swing     int
	Timestamp time.Time
	Extra     map[string]interface{}
}

// Notifier interface for different notification providers
type Notifier interface {
	Send(notification *Notification) error
	Name() string
	IsEnabled() bool
}

// Manager manages multiple notification providers
type Manager struct {
	notifiers []Notifier
	enabled   bool
	logger    *logging.Logger
}

// NewManager creates a new notification manager
func NewManager(logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		notifiers: make([]Notifier, 0),
		enabled:   true,
		logger:    logger.WithComponent("notification"),
	}
}

// NewManagerFromConfig builds a manager with the providers the
// configuration enables.
func NewManagerFromConfig(cfg config.NotificationConfig, logger *logging.Logger) *Manager {
	m := NewManager(logger)
	m.enabled = cfg.Enabled
	if tg := NewTelegramNotifier(cfg.Telegram); tg.IsEnabled() {
		m.AddNotifier(tg)
	}
	if dc := NewDiscordNotifier(cfg.Discord); dc.IsEnabled() {
		m.AddNotifier(dc)
	}
	return m
}

// AddNotifier adds a notification provider
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Send sends a notification to all enabled providers
func (m *Manager) Send(notification *Notification) error {
	if !m.enabled {
		return nil
	}

	var lastErr error
	for _, n := range m.notifiers {
		if n.IsEnabled() {
			if err := n.Send(notification); err != nil {
				m.logger.Warn("notifier send failed",
					"notifier", n.Name(), "error", err)
				lastErr = err
			}
		}
	}
	return lastErr
}

// AttachBus subscribes the manager to the events worth pushing out:
// zone reclaims, zone rotations and feed disconnects.
func (m *Manager) AttachBus(bus *events.Bus) {
	bus.Subscribe(events.EventZoneReclaimed, func(ev events.Event) {
		zone, ok := ev.Data["zone"].(reclaim.Zone)
		if !ok {
			m.logger.Warn("unexpected zone payload in reclaim event")
			return
		}
		symbol, _ := ev.Data["symbol"].(string)
		side, _ := ev.Data["side"].(string)
		if err := m.SendReclaim(symbol, side, zone); err != nil {
			m.logger.Warn("reclaim notification failed", "error", err)
		}
	})
	bus.Subscribe(events.EventZoneRotated, func(ev events.Event) {
		head, ok := ev.Data["new_head"].(reclaim.Zone)
		if !ok {
			m.logger.Warn("unexpected zone payload in rotation event")
			return
		}
		symbol, _ := ev.Data["symbol"].(string)
		side, _ := ev.Data["side"].(string)
		if err := m.SendRotation(symbol, side, head); err != nil {
			m.logger.Warn("rotation notification failed", "error", err)
		}
	})
	bus.Subscribe(events.EventFeedLost, func(ev events.Event) {
		url, _ := ev.Data["url"].(string)
		msg := fmt.Sprintf("Market data stream lost: %s", url)
		if errStr, ok := ev.Data["error"].(string); ok {
			msg += "\nError: " + errStr
		}
		if err := m.SendError("Feed Lost", msg); err != nil {
			m.logger.Warn("feed notification failed", "error", err)
		}
	})
}

// SendReclaim sends a zone reclaimed notification
func (m *Manager) SendReclaim(symbol, side string, zone reclaim.Zone) error {
	emoji := "🟢"
	if side == "bearish" {
		emoji = "🔴"
	}

	return m.Send(&Notification{
		Type:  NotifyReclaim,
		Title: fmt.Sprintf("%s Zone Reclaimed: %s", emoji, symbol),
		Message: fmt.Sprintf("%s zone @ %.4f reclaimed\nEV: %d | Swing: %d\nMax height: %d ticks | Max retracement: %d ticks",
			side, zone.FixedSidePrice, zone.EV, zone.Swing, zone.MaxHeight, zone.MaxRetracement),
		Symbol:    symbol,
		Side:      side,
		Price:     zone.FixedSidePrice,
		EV:        zone.EV,
		Swing:     zone.Swing,
		Timestamp: time.Now(),
		Extra: map[string]interface{}{
			"zone_id":         zone.ID,
			"max_height":      zone.MaxHeight,
			"max_retracement": zone.MaxRetracement,
		},
	})
}

// SendRotation sends a new zone notification
func (m *Manager) SendRotation(symbol, side string, head reclaim.Zone) error {
	return m.Send(&Notification{
		Type:  NotifyRotation,
		Title: fmt.Sprintf("📐 New Zone: %s", symbol),
		Message: fmt.Sprintf("New %s zone anchored @ %.4f",
			side, head.FixedSidePrice),
		Symbol:    symbol,
		Side:      side,
		Price:     head.FixedSidePrice,
		Timestamp: time.Now(),
		Extra: map[string]interface{}{
			"zone_id": head.ID,
		},
	})
}

// SendError sends an error notification
func (m *Manager) SendError(title, message string) error {
	return m.Send(&Notification{
		Type:      NotifyError,
		Title:     fmt.Sprintf("⚠️ %s", title),
		Message:   message,
		Timestamp: time.Now(),
	})
}

// =============================================================================
// TELEGRAM NOTIFIER
// =============================================================================

// TelegramNotifier sends notifications via Telegram
type TelegramNotifier struct {
	botToken string
	chatID   string
	enabled  bool
	client   *http.Client
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(cfg config.TelegramConfig) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		enabled:  cfg.Enabled && cfg.BotToken != "" && cfg.ChatID != "",
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) Name() string {
	return "telegram"
}

func (t *TelegramNotifier) IsEnabled() bool {
	return t.enabled
}

func (t *TelegramNotifier) Send(notification *Notification) error {
	if !t.enabled {
		return nil
	}

	message := fmt.Sprintf("*%s*\n\n%s", notification.Title, notification.Message)

	payload := map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       message,
		"parse_mode": "Markdown",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	resp, err := t.client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}

// =============================================================================
// DISCORD NOTIFIER
// =============================================================================

// DiscordNotifier sends notifications via Discord webhook
type DiscordNotifier struct {
	webhookURL string
	enabled    bool
	client     *http.Client
}

// NewDiscordNotifier creates a new Discord notifier
func NewDiscordNotifier(cfg config.DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: cfg.WebhookURL,
		enabled:    cfg.Enabled && cfg.WebhookURL != "",
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordNotifier) Name() string {
	return "discord"
}

func (d *DiscordNotifier) IsEnabled() bool {
	return d.enabled
}

func (d *DiscordNotifier) Send(notification *Notification) error {
	if !d.enabled {
		return nil
	}

	// Create Discord embed
	color := 0x00FF00 // Green
	if notification.Type == NotifyError {
		color = 0xFF0000 // Red
	} else if notification.Side == "bearish" {
		color = 0xFF0000 // Red
	}

	embed := map[string]interface{}{
		"title":       notification.Title,
		"description": notification.Message,
		"color":       color,
		"timestamp":   notification.Timestamp.Format(time.RFC3339),
	}

	// Add fields if available
	if notification.Symbol != "" {
		fields := []map[string]interface{}{
			{"name": "Symbol", "value": notification.Symbol, "inline": true},
		}
		if notification.Price > 0 {
			fields = append(fields, map[string]interface{}{
				"name": "Price", "value": fmt.Sprintf("%.4f", notification.Price), "inline": true,
			})
		}
		if notification.Type == NotifyReclaim {
			fields = append(fields, map[string]interface{}{
				"name": "Score", "value": fmt.Sprintf("ev %d | swing %d", notification.EV, notification.Swing), "inline": true,
			})
		}
		embed["fields"] = fields
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{embed},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal discord payload: %w", err)
	}

	resp, err := d.client.Post(d.webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("discord API returned status %d", resp.StatusCode)
	}

	return nil
}
