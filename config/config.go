package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	FeedConfig         FeedConfig         `json:"feed"`
	ReclaimConfig      ReclaimConfig      `json:"reclaim"`
	RenderConfig       RenderConfig       `json:"render"`
	ServerConfig       ServerConfig       `json:"server"`
	RedisConfig        RedisConfig        `json:"redis"`
	PostgresConfig     PostgresConfig     `json:"postgres"`
	NotificationConfig NotificationConfig `json:"notification"`
	LoggingConfig      LoggingConfig      `json:"logging"`
}

// FeedConfig holds the market data source configuration
type FeedConfig struct {
	BaseURL     string   `json:"base_url"`
	WSBaseURL   string   `json:"ws_base_url"`
	Symbols     []string `json:"symbols"`
	Interval    string   `json:"interval"`     // e.g., "1m", "5m"
	BarLookback int      `json:"bar_lookback"` // Closed bars replayed on startup
	TestNet     bool     `json:"testnet"`
	MockMode    bool     `json:"mock_mode"` // Use simulated data when the exchange is unavailable
	// TickSizeOverrides wins over the exchange-info PRICE_FILTER per symbol.
	TickSizeOverrides map[string]float64 `json:"tick_size_overrides"`
}

// ReclaimConfig holds the zone state machine thresholds. All tick
// counts are whole ticks of the symbol's tick size.
type ReclaimConfig struct {
	MaxZones                int  `json:"max_zones"`
	NewZoneRetracementTicks int  `json:"new_zone_retracement_ticks"`
	EVPullbackTicks         int  `json:"ev_pullback_ticks"`
	SwingPullbackTicks      int  `json:"swing_pullback_ticks"`
	MinZoneSizeTicks        int  `json:"min_zone_size_ticks"`
	UpdateOnBarClose        bool `json:"update_on_bar_close"`
	OppositeBarFilter       bool `json:"opposite_bar_filter"`
	DojiLookbackBars        int  `json:"doji_lookback_bars"` // 0 selects the engine default
}

// RenderConfig holds the drawing options
type RenderConfig struct {
	ShowCurrentZone      bool   `json:"show_current_zone"`
	ExtendBars           int    `json:"extend_bars"`             // Rectangle right-edge extension past the latest bar
	EVHideBelowThreshold int    `json:"ev_hide_below_threshold"` // Hide score labels until EV reaches this
	BullishColor         string `json:"bullish_color"`
	BearishColor         string `json:"bearish_color"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int    `json:"port"`
	Host            string `json:"host"`
	AllowedOrigins  string `json:"allowed_origins"` // CORS allowed origins
	ReadTimeout     int    `json:"read_timeout"`    // Seconds
	WriteTimeout    int    `json:"write_timeout"`   // Seconds
	ShutdownTimeout int    `json:"shutdown_timeout"`
}

// RedisConfig holds Redis configuration for the live snapshot store
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// PostgresConfig holds the reclaimed-zone archive configuration
type PostgresConfig struct {
	Enabled bool   `json:"enabled"`
	DSN     string `json:"dsn"`
}

type NotificationConfig struct {
	Enabled  bool           `json:"enabled"`
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

type DiscordConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
}

type LoggingConfig struct {
	Level      string `json:"level"`       // DEBUG, INFO, WARN, ERROR
	Output     string `json:"output"`      // stdout, stderr, or file path
	JSONFormat bool   `json:"json_format"` // Output as JSON
}

func Load() (*Config, error) {
	// First try to load base config from file
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// If no config file, start with empty config
		cfg = &Config{}
	}

	// Apply environment variable overrides (these take precedence)
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with. A bad
// configuration is fatal before any state is constructed.
func (c *Config) Validate() error {
	r := c.ReclaimConfig
	if r.MaxZones <= 0 {
		return fmt.Errorf("reclaim: max_zones must be positive, got %d", r.MaxZones)
	}
	if r.NewZoneRetracementTicks < 1 {
		return fmt.Errorf("reclaim: new_zone_retracement_ticks must be >= 1, got %d", r.NewZoneRetracementTicks)
	}
	for name, v := range map[string]int{
		"ev_pullback_ticks":    r.EVPullbackTicks,
		"swing_pullback_ticks": r.SwingPullbackTicks,
		"min_zone_size_ticks":  r.MinZoneSizeTicks,
		"doji_lookback_bars":   r.DojiLookbackBars,
	} {
		if v < 0 {
			return fmt.Errorf("reclaim: %s must not be negative, got %d", name, v)
		}
	}
	if len(c.FeedConfig.Symbols) == 0 {
		return fmt.Errorf("feed: at least one symbol is required")
	}
	if c.FeedConfig.BarLookback < 0 {
		return fmt.Errorf("feed: bar_lookback must not be negative, got %d", c.FeedConfig.BarLookback)
	}
	for sym, tick := range c.FeedConfig.TickSizeOverrides {
		if tick <= 0 {
			return fmt.Errorf("feed: tick size override for %s must be positive, got %v", sym, tick)
		}
	}
	if c.PostgresConfig.Enabled && c.PostgresConfig.DSN == "" {
		return fmt.Errorf("postgres: dsn is required when enabled")
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	// Feed config
	cfg.FeedConfig.BaseURL = getEnvOrDefault("BINANCE_BASE_URL", cfg.FeedConfig.BaseURL)
	if cfg.FeedConfig.BaseURL == "" {
		cfg.FeedConfig.BaseURL = "https://api.binance.com"
	}
	cfg.FeedConfig.WSBaseURL = getEnvOrDefault("BINANCE_WS_BASE_URL", cfg.FeedConfig.WSBaseURL)
	if cfg.FeedConfig.WSBaseURL == "" {
		cfg.FeedConfig.WSBaseURL = "wss://stream.binance.com:9443"
	}
	if symbols := os.Getenv("FEED_SYMBOLS"); symbols != "" {
		cfg.FeedConfig.Symbols = splitSymbols(symbols)
	}
	cfg.FeedConfig.Interval = getEnvOrDefault("FEED_INTERVAL", cfg.FeedConfig.Interval)
	if cfg.FeedConfig.Interval == "" {
		cfg.FeedConfig.Interval = "1m"
	}
	cfg.FeedConfig.BarLookback = getEnvIntOrDefault("FEED_BAR_LOOKBACK", cfg.FeedConfig.BarLookback)
	cfg.FeedConfig.TestNet = getEnvOrDefault("BINANCE_TESTNET", "false") == "true"
	cfg.FeedConfig.MockMode = getEnvOrDefault("MOCK_MODE", "false") == "true"

	// Reclaim config - file values win unless the variable is set
	cfg.ReclaimConfig.MaxZones = getEnvIntOrDefault("RECLAIM_MAX_ZONES", cfg.ReclaimConfig.MaxZones)
	cfg.ReclaimConfig.NewZoneRetracementTicks = getEnvIntOrDefault("RECLAIM_NEW_ZONE_RETRACEMENT_TICKS", cfg.ReclaimConfig.NewZoneRetracementTicks)
	cfg.ReclaimConfig.EVPullbackTicks = getEnvIntOrDefault("RECLAIM_EV_PULLBACK_TICKS", cfg.ReclaimConfig.EVPullbackTicks)
	cfg.ReclaimConfig.SwingPullbackTicks = getEnvIntOrDefault("RECLAIM_SWING_PULLBACK_TICKS", cfg.ReclaimConfig.SwingPullbackTicks)
	cfg.ReclaimConfig.MinZoneSizeTicks = getEnvIntOrDefault("RECLAIM_MIN_ZONE_SIZE_TICKS", cfg.ReclaimConfig.MinZoneSizeTicks)
	cfg.ReclaimConfig.DojiLookbackBars = getEnvIntOrDefault("RECLAIM_DOJI_LOOKBACK_BARS", cfg.ReclaimConfig.DojiLookbackBars)
	if v := os.Getenv("RECLAIM_UPDATE_ON_BAR_CLOSE"); v != "" {
		cfg.ReclaimConfig.UpdateOnBarClose = v == "true"
	}
	if v := os.Getenv("RECLAIM_OPPOSITE_BAR_FILTER"); v != "" {
		cfg.ReclaimConfig.OppositeBarFilter = v == "true"
	}

	// Render config
	if v := os.Getenv("RENDER_SHOW_CURRENT_ZONE"); v != "" {
		cfg.RenderConfig.ShowCurrentZone = v == "true"
	}
	cfg.RenderConfig.ExtendBars = getEnvIntOrDefault("RENDER_EXTEND_BARS", cfg.RenderConfig.ExtendBars)
	cfg.RenderConfig.EVHideBelowThreshold = getEnvIntOrDefault("RENDER_EV_HIDE_BELOW", cfg.RenderConfig.EVHideBelowThreshold)
	cfg.RenderConfig.BullishColor = getEnvOrDefault("RENDER_BULLISH_COLOR", cfg.RenderConfig.BullishColor)
	cfg.RenderConfig.BearishColor = getEnvOrDefault("RENDER_BEARISH_COLOR", cfg.RenderConfig.BearishColor)

	// Server config
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", 8080)
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", "0.0.0.0")
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", "*")
	cfg.ServerConfig.ReadTimeout = getEnvIntOrDefault("SERVER_READ_TIMEOUT", 30)
	cfg.ServerConfig.WriteTimeout = getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", 30)
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10)

	// Redis config
	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		cfg.RedisConfig.Enabled = v == "true"
	}
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	if cfg.RedisConfig.Address == "" {
		cfg.RedisConfig.Address = "localhost:6379"
	}
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", 10)

	// Postgres config
	if v := os.Getenv("POSTGRES_ENABLED"); v != "" {
		cfg.PostgresConfig.Enabled = v == "true"
	}
	cfg.PostgresConfig.DSN = getEnvOrDefault("DATABASE_URL", cfg.PostgresConfig.DSN)

	// Notification config
	cfg.NotificationConfig.Enabled = getEnvOrDefault("NOTIFICATIONS_ENABLED", "false") == "true"
	cfg.NotificationConfig.Telegram.Enabled = getEnvOrDefault("TELEGRAM_ENABLED", "false") == "true"
	cfg.NotificationConfig.Telegram.BotToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", cfg.NotificationConfig.Telegram.BotToken)
	cfg.NotificationConfig.Telegram.ChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", cfg.NotificationConfig.Telegram.ChatID)
	cfg.NotificationConfig.Discord.Enabled = getEnvOrDefault("DISCORD_ENABLED", "false") == "true"
	cfg.NotificationConfig.Discord.WebhookURL = getEnvOrDefault("DISCORD_WEBHOOK_URL", cfg.NotificationConfig.Discord.WebhookURL)

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", "INFO")
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", "stdout")
	cfg.LoggingConfig.JSONFormat = getEnvOrDefault("LOG_JSON", "true") == "true"
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func splitSymbols(s string) []string {
	parts := strings.Split(s, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			symbols = append(symbols, p)
		}
	}
	return symbols
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// GenerateSampleConfig creates a sample configuration file
func GenerateSampleConfig(filename string) error {
	config := Config{
		FeedConfig: FeedConfig{
			BaseURL:     "https://api.binance.com",
			WSBaseURL:   "wss://stream.binance.com:9443",
			Symbols:     []string{"BTCUSDT", "ETHUSDT"},
			Interval:    "1m",
			BarLookback: 200,
			TickSizeOverrides: map[string]float64{
				"BTCUSDT": 0.01,
			},
		},
		ReclaimConfig: ReclaimConfig{
			MaxZones:                5,
			NewZoneRetracementTicks: 4,
			EVPullbackTicks:         6,
			SwingPullbackTicks:      12,
			MinZoneSizeTicks:        2,
			UpdateOnBarClose:        true,
			OppositeBarFilter:       true,
			DojiLookbackBars:        10,
		},
		RenderConfig: RenderConfig{
			ShowCurrentZone:      false,
			ExtendBars:           20,
			EVHideBelowThreshold: 1,
			BullishColor:         "#2e7d32",
			BearishColor:         "#c62828",
		},
		ServerConfig: ServerConfig{
			Port:           8080,
			Host:           "0.0.0.0",
			AllowedOrigins: "*",
			ReadTimeout:    30,
			WriteTimeout:   30,
		},
		RedisConfig: RedisConfig{
			Enabled: false,
			Address: "localhost:6379",
		},
		PostgresConfig: PostgresConfig{
			Enabled: false,
			DSN:     "postgres://localhost:5432/reclaims",
		},
		NotificationConfig: NotificationConfig{
			Enabled: false,
		},
		LoggingConfig: LoggingConfig{
			Level:      "INFO",
			Output:     "stdout",
			JSONFormat: true,
		},
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}
