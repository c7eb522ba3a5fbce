package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/Vittorio94/fatcat-reclaims/internal/events"
	"github.com/Vittorio94/fatcat-reclaims/internal/reclaim"
)

// ReclaimedZone is one archived closed zone with its terminal scores.
type ReclaimedZone struct {
	ID             string    `json:"id"`
	Symbol         string    `json:"symbol"`
	Side           string    `json:"side"`
	FixedSidePrice float64   `json:"fixed_side_price"`
	ActiveSidePrice float64  `json:"active_side_price"`
	MaxHeight      int       `json:"max_height"`
	MaxRetracement int       `json:"max_retracement"`
	EV             int       `json:"ev"`
	Swing          int       `json:"swing"`
	StartTime      time.Time `json:"start_time"`
	ClosedAt       time.Time `json:"closed_at"`
}

const createReclaimedTable = `
CREATE TABLE IF NOT EXISTS reclaimed_zones (
	id               TEXT PRIMARY KEY,
	symbol           TEXT NOT NULL,
	side             TEXT NOT NULL,
	fixed_side_price DOUBLE PRECISION NOT NULL,
	active_side_price DOUBLE PRECISION NOT NULL,
	max_height       INTEGER NOT NULL,
	max_retracement  INTEGER NOT NULL,
	ev               INTEGER NOT NULL,
	swing            INTEGER NOT NULL,
	start_time       TIMESTAMPTZ NOT NULL,
	closed_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reclaimed_zones_symbol_closed
	ON reclaimed_zones (symbol, closed_at DESC);
`

// PostgresArchive stores fully reclaimed zones for later review.
// Inserts happen on closure events; the engine never waits on them.
type PostgresArchive struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresArchive connects, verifies the connection, and ensures
// the schema exists.
func NewPostgresArchive(ctx context.Context, dsn string, logger zerolog.Logger) (*PostgresArchive, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	if _, err := pool.Exec(connectCtx, createReclaimedTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to create schema: %w", err)
	}

	a := &PostgresArchive{
		pool:   pool,
		logger: logger.With().Str("component", "archive").Logger(),
	}
	a.logger.Info().Msg("connected to postgres archive")
	return a, nil
}

// Close releases the connection pool.
func (a *PostgresArchive) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// InsertReclaimed archives one closed zone.
func (a *PostgresArchive) InsertReclaimed(ctx context.Context, symbol, side string, z reclaim.Zone, closedAt time.Time) error {
	_, err := a.pool.Exec(ctx, `
		INSERT INTO reclaimed_zones
			(id, symbol, side, fixed_side_price, active_side_price,
			 max_height, max_retracement, ev, swing, start_time, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`,
		z.ID, symbol, side, z.FixedSidePrice, z.ActiveSidePrice,
		z.MaxHeight, z.MaxRetracement, z.EV, z.Swing, z.StartTime, closedAt)
	if err != nil {
		return fmt.Errorf("insert reclaimed zone: %w", err)
	}
	return nil
}

// listReclaimedQuery builds the archive query; every value, the limit
// included, binds through a placeholder.
func listReclaimedQuery(symbol string, limit int) (string, []interface{}) {
	query := `
		SELECT id, symbol, side, fixed_side_price, active_side_price,
		       max_height, max_retracement, ev, swing, start_time, closed_at
		FROM reclaimed_zones`
	args := []interface{}{}
	if symbol != "" {
		query += ` WHERE symbol = $1`
		args = append(args, symbol)
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY closed_at DESC LIMIT $%d`, len(args))
	return query, args
}

// ListReclaimed returns archived zones, newest first. Empty symbol
// means all symbols.
func (a *PostgresArchive) ListReclaimed(ctx context.Context, symbol string, limit int) ([]ReclaimedZone, error) {
	query, args := listReclaimedQuery(symbol, limit)

	rows, err := a.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reclaimed zones: %w", err)
	}
	defer rows.Close()

	var zones []ReclaimedZone
	for rows.Next() {
		var z ReclaimedZone
		if err := rows.Scan(&z.ID, &z.Symbol, &z.Side, &z.FixedSidePrice, &z.ActiveSidePrice,
			&z.MaxHeight, &z.MaxRetracement, &z.EV, &z.Swing, &z.StartTime, &z.ClosedAt); err != nil {
			return nil, fmt.Errorf("scan reclaimed zone: %w", err)
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

// AttachBus subscribes the archive to closure events.
func (a *PostgresArchive) AttachBus(bus *events.Bus) {
	bus.Subscribe(events.EventZoneReclaimed, func(ev events.Event) {
		zone, ok := ev.Data["zone"].(reclaim.Zone)
		if !ok {
			a.logger.Warn().Msg("reclaimed event with unexpected payload")
			return
		}
		symbol, _ := ev.Data["symbol"].(string)
		side, _ := ev.Data["side"].(string)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.InsertReclaimed(ctx, symbol, side, zone, ev.Timestamp); err != nil {
			a.logger.Warn().Err(err).Str("symbol", symbol).Str("zone_id", zone.ID).Msg("archive insert failed")
		}
	})
}
