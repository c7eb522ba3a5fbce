package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Vittorio94/fatcat-reclaims/internal/events"
	"github.com/Vittorio94/fatcat-reclaims/internal/reclaim"
)

const (
	// SnapshotKeyPrefix is the prefix for per-symbol snapshot keys.
	// Format: reclaims:snapshot:{symbol}
	SnapshotKeyPrefix = "reclaims:snapshot"

	// SnapshotTTL bounds how long a stale snapshot survives a dead
	// annotator.
	SnapshotTTL = 24 * time.Hour
)

// RedisSnapshotStore keeps the latest per-symbol zone snapshot in
// Redis so a restarted annotator can republish current zones
// immediately. When Redis is unavailable it falls back to an in-memory
// cache; the engine never blocks on persistence.
type RedisSnapshotStore struct {
	client         *redis.Client
	inMemoryCache  map[string]reclaim.Snapshot
	cacheMu        sync.RWMutex
	redisAvailable atomic.Bool
	logger         zerolog.Logger
}

// NewRedisSnapshotStore creates a snapshot store. If client is nil the
// store operates in memory-only mode.
func NewRedisSnapshotStore(client *redis.Client, logger zerolog.Logger) *RedisSnapshotStore {
	s := &RedisSnapshotStore{
		client:        client,
		inMemoryCache: make(map[string]reclaim.Snapshot),
		logger:        logger.With().Str("component", "snapshot_store").Logger(),
	}

	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("redis unavailable at startup, using in-memory cache")
			s.redisAvailable.Store(false)
		} else {
			s.logger.Info().Msg("redis connected")
			s.redisAvailable.Store(true)
		}
	} else {
		s.logger.Info().Msg("no redis client provided, using in-memory cache only")
		s.redisAvailable.Store(false)
	}

	return s
}

func snapshotKey(symbol string) string {
	return fmt.Sprintf("%s:%s", SnapshotKeyPrefix, symbol)
}

// SaveSnapshot persists the latest snapshot for a symbol. The
// in-memory cache always updates; Redis errors degrade to
// memory-only.
func (s *RedisSnapshotStore) SaveSnapshot(ctx context.Context, snap reclaim.Snapshot) error {
	if snap.Symbol == "" {
		return fmt.Errorf("cannot save snapshot without a symbol")
	}

	s.cacheMu.Lock()
	s.inMemoryCache[snap.Symbol] = snap
	s.cacheMu.Unlock()

	if s.client == nil || !s.redisAvailable.Load() {
		return nil
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := s.client.Set(ctx, snapshotKey(snap.Symbol), data, SnapshotTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Str("symbol", snap.Symbol).Msg("redis write failed, falling back to in-memory cache")
		s.redisAvailable.Store(false)
	}
	return nil
}

// LoadSnapshot returns the latest stored snapshot for a symbol. The
// second return value is false when nothing is stored.
func (s *RedisSnapshotStore) LoadSnapshot(ctx context.Context, symbol string) (reclaim.Snapshot, bool) {
	if s.client != nil && s.redisAvailable.Load() {
		data, err := s.client.Get(ctx, snapshotKey(symbol)).Result()
		switch {
		case err == redis.Nil:
			return s.loadFromCache(symbol)
		case err != nil:
			s.logger.Warn().Err(err).Msg("redis read failed, falling back to in-memory cache")
			s.redisAvailable.Store(false)
			return s.loadFromCache(symbol)
		}

		var snap reclaim.Snapshot
		if err := json.Unmarshal([]byte(data), &snap); err != nil {
			s.logger.Error().Err(err).Str("symbol", symbol).Msg("stored snapshot does not parse")
			return s.loadFromCache(symbol)
		}
		return snap, true
	}

	return s.loadFromCache(symbol)
}

func (s *RedisSnapshotStore) loadFromCache(symbol string) (reclaim.Snapshot, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	snap, ok := s.inMemoryCache[symbol]
	return snap, ok
}

// IsRedisAvailable reports the current backend state, for health
// endpoints.
func (s *RedisSnapshotStore) IsRedisAvailable() bool {
	return s.redisAvailable.Load()
}

// AttachBus subscribes the store to snapshot events so every bar close
// persists without the engine knowing about storage.
func (s *RedisSnapshotStore) AttachBus(bus *events.Bus) {
	bus.Subscribe(events.EventZoneSnapshot, func(ev events.Event) {
		snap, ok := ev.Data["snapshot"].(reclaim.Snapshot)
		if !ok {
			s.logger.Warn().Msg("snapshot event with unexpected payload")
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := s.SaveSnapshot(ctx, snap); err != nil {
			s.logger.Warn().Err(err).Str("symbol", snap.Symbol).Msg("snapshot save failed")
		}
	})
}
