package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Vittorio94/fatcat-reclaims/internal/events"
	"github.com/Vittorio94/fatcat-reclaims/internal/reclaim"
	"github.com/Vittorio94/fatcat-reclaims/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RateLimiter provides simple in-memory rate limiting per endpoint
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int           // max requests
	window   time.Duration // time window
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	// Filter out old requests
	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// ZoneService exposes the live per-symbol engine state to the API
type ZoneService interface {
	Symbols() []string
	Snapshot(symbol string) (reclaim.Snapshot, bool)
	Snapshots() []reclaim.Snapshot
}

// ReclaimArchive exposes the closed-zone archive to the API. Nil when
// the archive is disabled.
type ReclaimArchive interface {
	ListReclaimed(ctx context.Context, symbol string, limit int) ([]store.ReclaimedZone, error)
}

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	eventBus    *events.Bus
	zones       ZoneService
	archive     ReclaimArchive
	config      ServerConfig
	rateLimiter *RateLimiter
	hub         *WSHub
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	AllowedOrigins string
	ProductionMode bool
}

// NewServer creates a new API server
func NewServer(config ServerConfig, eventBus *events.Bus, zones ZoneService, archive ReclaimArchive) *Server {
	// Set Gin mode
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS middleware
	corsConfig := cors.DefaultConfig()
	if config.AllowedOrigins == "" || config.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(config.AllowedOrigins, ",")
	}
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
	corsConfig.ExposeHeaders = []string{"Content-Length"}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:      router,
		eventBus:    eventBus,
		zones:       zones,
		archive:     archive,
		config:      config,
		rateLimiter: NewRateLimiter(120, time.Minute), // protects the archive queries
		hub:         NewWSHub(),
	}

	server.setupRoutes()

	go server.hub.Run()
	if eventBus != nil {
		eventBus.SubscribeAll(server.hub.BroadcastEvent)
	}

	return server
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WSHub {
	return s.hub
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.GET("/zones", s.handleGetZones)
		api.GET("/zones/:symbol", s.handleGetZonesForSymbol)
		api.GET("/reclaimed", s.rateLimitMiddleware(), s.handleGetReclaimed)
	}

	s.router.GET("/ws", s.handleWebSocket)
}

// rateLimitMiddleware rate limits requests by endpoint path
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.rateLimiter.Allow(c.FullPath()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// handleHealth returns server health status
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"symbols": s.zones.Symbols(),
		"clients": s.hub.GetClientCount(),
		"time":    time.Now(),
	})
}

// handleGetZones returns the live snapshot of every tracked symbol
func (s *Server) handleGetZones(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"snapshots": s.zones.Snapshots()})
}

// handleGetZonesForSymbol returns the live snapshot of one symbol
func (s *Server) handleGetZonesForSymbol(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))

	snap, ok := s.zones.Snapshot(symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("symbol %s not tracked", symbol)})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// handleGetReclaimed returns archived closed zones, newest first
func (s *Server) handleGetReclaimed(c *gin.Context) {
	if s.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "archive disabled"})
		return
	}

	symbol := strings.ToUpper(c.Query("symbol"))
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 1000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be 1-1000"})
			return
		}
		limit = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	zones, err := s.archive.ListReclaimed(ctx, symbol, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reclaimed": zones})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("Starting HTTP server on %s", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}
