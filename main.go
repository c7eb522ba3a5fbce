package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Vittorio94/fatcat-reclaims/config"
	"github.com/Vittorio94/fatcat-reclaims/internal/annotator"
	"github.com/Vittorio94/fatcat-reclaims/internal/api"
	"github.com/Vittorio94/fatcat-reclaims/internal/binance"
	"github.com/Vittorio94/fatcat-reclaims/internal/events"
	"github.com/Vittorio94/fatcat-reclaims/internal/logging"
	"github.com/Vittorio94/fatcat-reclaims/internal/notification"
	"github.com/Vittorio94/fatcat-reclaims/internal/reclaim"
	"github.com/Vittorio94/fatcat-reclaims/internal/render"
	"github.com/Vittorio94/fatcat-reclaims/internal/store"
)

// busSink routes renderer drawing events onto the event bus, where the
// WebSocket hub and any other subscriber pick them up.
type busSink struct {
	bus *events.Bus
}

func (s busSink) BroadcastEvent(ev events.Event) {
	s.bus.Publish(ev)
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(&logging.Config{
		Level:      cfg.LoggingConfig.Level,
		Output:     cfg.LoggingConfig.Output,
		JSONFormat: cfg.LoggingConfig.JSONFormat,
		Component:  "main",
	})
	logging.SetDefault(logger)
	logger.Info("Structured logging initialized")

	// Initialize event bus
	eventBus := events.NewBus()
	logger.Info("Event bus initialized")

	// Initialize notification manager
	if cfg.NotificationConfig.Enabled {
		notifyManager := notification.NewManagerFromConfig(cfg.NotificationConfig, logger)
		notifyManager.AttachBus(eventBus)
		logger.Info("Notifications enabled")
	}

	// Market data client: simulated in mock mode, Binance REST otherwise
	var client binance.MarketDataClient
	if cfg.FeedConfig.MockMode {
		client = binance.NewMockClient()
		logger.Info("Mock market data enabled")
	} else {
		client = binance.NewClient(cfg.FeedConfig.BaseURL)
	}

	// Renderer chain: zone geometry -> drawing events -> event bus
	barDuration := binance.IntervalDuration(cfg.FeedConfig.Interval)
	broadcaster := render.NewBroadcaster(busSink{eventBus})
	renderer := render.NewZoneRenderer(broadcaster, cfg.RenderConfig, barDuration, logger)

	// Per-symbol reclaim engines
	opts := reclaim.Options{
		MaxZones:                cfg.ReclaimConfig.MaxZones,
		NewZoneRetracementTicks: cfg.ReclaimConfig.NewZoneRetracementTicks,
		EVPullbackTicks:         cfg.ReclaimConfig.EVPullbackTicks,
		SwingPullbackTicks:      cfg.ReclaimConfig.SwingPullbackTicks,
		MinZoneSizeTicks:        cfg.ReclaimConfig.MinZoneSizeTicks,
		UpdateOnBarClose:        cfg.ReclaimConfig.UpdateOnBarClose,
		OppositeBarFilter:       cfg.ReclaimConfig.OppositeBarFilter,
		DojiLookbackBars:        cfg.ReclaimConfig.DojiLookbackBars,
		ShowCurrentZone:         cfg.RenderConfig.ShowCurrentZone,
	}
	manager, err := annotator.NewManager(cfg.FeedConfig, opts, client, renderer, eventBus, logger)
	if err != nil {
		log.Fatalf("Failed to initialize annotator: %v", err)
	}
	logger.Info("Annotator initialized", "symbols", manager.Symbols())

	// Persistence: snapshot cache and reclaimed-zone archive
	zlog := zerolog.New(os.Stdout).With().Timestamp().Logger()

	var redisClient *redis.Client
	if cfg.RedisConfig.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
			PoolSize: cfg.RedisConfig.PoolSize,
		})
	}
	snapshotStore := store.NewRedisSnapshotStore(redisClient, zlog)
	snapshotStore.AttachBus(eventBus)

	var archive api.ReclaimArchive
	var pgArchive *store.PostgresArchive
	if cfg.PostgresConfig.Enabled {
		pgArchive, err = store.NewPostgresArchive(context.Background(), cfg.PostgresConfig.DSN, zlog)
		if err != nil {
			logger.Warn("Archive unavailable, continuing without it", "error", err)
		} else {
			pgArchive.AttachBus(eventBus)
			archive = pgArchive
			logger.Info("Reclaimed-zone archive initialized")
		}
	}

	// Initialize web server
	serverConfig := api.ServerConfig{
		Port:           cfg.ServerConfig.Port,
		Host:           cfg.ServerConfig.Host,
		AllowedOrigins: cfg.ServerConfig.AllowedOrigins,
		ProductionMode: true,
	}
	server := api.NewServer(serverConfig, eventBus, manager, archive)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start web server: %v", err)
		}
	}()
	logger.Info("Web interface available", "host", serverConfig.Host, "port", serverConfig.Port)

	// Replay recent history so zones start warm
	if err := manager.Warmup(); err != nil {
		logger.Warn("Warmup incomplete", "error", err)
	}

	// Start the market data feed
	stopPolling := make(chan struct{})
	if cfg.FeedConfig.MockMode {
		manager.StartPolling(time.Second, stopPolling)
		logger.Info("Polling feed started", "interval", "1s")
	} else {
		if err := manager.StartStream(cfg.FeedConfig.WSBaseURL); err != nil {
			log.Fatalf("Failed to start kline stream: %v", err)
		}
		logger.Info("Kline stream started", "url", cfg.FeedConfig.WSBaseURL)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")

	close(stopPolling)
	manager.Stop()

	shutdownTimeout := time.Duration(cfg.ServerConfig.ShutdownTimeout) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down web server", "error", err)
	}

	if pgArchive != nil {
		pgArchive.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	logger.Info("Shutdown complete")
}
