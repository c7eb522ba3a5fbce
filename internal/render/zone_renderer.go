package render

import (
	"fmt"
	"time"

	"github.com/Vittorio94/fatcat-reclaims/config"
	"github.com/Vittorio94/fatcat-reclaims/internal/logging"
	"github.com/Vittorio94/fatcat-reclaims/internal/reclaim"
)

const (
	defaultBullishColor = "#2e7d32"
	defaultBearishColor = "#c62828"

	baseOpacity = 0.35
	minOpacity  = 0.08
	// Zones fade from base to minimum opacity over this many bars
	// after their decay timestamp.
	fadeSpanBars = 30
)

// ZoneRenderer projects zone state onto a drawing surface. It owns the
// zone-to-drawing translation: geometry, side colors, decay fade, and
// the score label. Surface errors are logged and otherwise ignored;
// drawing never feeds back into zone state.
type ZoneRenderer struct {
	surface     Surface
	barDuration time.Duration
	cfg         config.RenderConfig
	logger      *logging.Logger
}

func NewZoneRenderer(surface Surface, cfg config.RenderConfig, barDuration time.Duration, logger *logging.Logger) *ZoneRenderer {
	if cfg.BullishColor == "" {
		cfg.BullishColor = defaultBullishColor
	}
	if cfg.BearishColor == "" {
		cfg.BearishColor = defaultBearishColor
	}
	if barDuration <= 0 {
		barDuration = time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ZoneRenderer{
		surface:     surface,
		barDuration: barDuration,
		cfg:         cfg,
		logger:      logger.WithComponent("render"),
	}
}

// Draw upserts the rectangle and score label for one zone.
func (zr *ZoneRenderer) Draw(z reclaim.Zone, s reclaim.Sample) {
	top, bottom := z.FixedSidePrice, z.ActiveSidePrice
	if bottom > top {
		top, bottom = bottom, top
	}

	rect := Rectangle{
		ZoneID:    z.ID,
		Top:       top,
		Bottom:    bottom,
		StartTime: z.StartTime,
		EndTime:   s.Time.Add(time.Duration(zr.cfg.ExtendBars) * zr.barDuration),
		Color:     zr.sideColor(z.Side),
		Opacity:   zr.opacity(z, s.Time),
	}
	if err := zr.surface.UpsertRectangle(rect); err != nil {
		zr.logger.Warn("rectangle draw failed", "zone_id", z.ID, "error", err.Error())
	}

	text := zr.labelText(z)
	if text == "" {
		return
	}
	label := Label{
		ZoneID: z.ID,
		Price:  z.ActiveSidePrice,
		Time:   s.Time,
		Text:   text,
		Color:  zr.sideColor(z.Side),
	}
	if err := zr.surface.UpsertLabel(label); err != nil {
		zr.logger.Warn("label draw failed", "zone_id", z.ID, "error", err.Error())
	}
}

// Remove clears a zone's drawings.
func (zr *ZoneRenderer) Remove(zoneID string) {
	if err := zr.surface.Remove(zoneID); err != nil {
		zr.logger.Warn("drawing removal failed", "zone_id", zoneID, "error", err.Error())
	}
}

func (zr *ZoneRenderer) sideColor(side reclaim.Side) string {
	if side == reclaim.Bullish {
		return zr.cfg.BullishColor
	}
	return zr.cfg.BearishColor
}

// opacity fades a decaying zone linearly from base to minimum over
// fadeSpanBars bars.
func (zr *ZoneRenderer) opacity(z reclaim.Zone, now time.Time) float64 {
	if z.DecayStartTime.IsZero() || !now.After(z.DecayStartTime) {
		return baseOpacity
	}
	span := time.Duration(fadeSpanBars) * zr.barDuration
	elapsed := now.Sub(z.DecayStartTime)
	if elapsed >= span {
		return minOpacity
	}
	frac := float64(elapsed) / float64(span)
	return baseOpacity - (baseOpacity-minOpacity)*frac
}

// labelText formats the zone's scores; empty when both counters are
// below the display threshold.
func (zr *ZoneRenderer) labelText(z reclaim.Zone) string {
	if z.EV < zr.cfg.EVHideBelowThreshold && z.Swing < zr.cfg.EVHideBelowThreshold {
		return ""
	}
	return fmt.Sprintf("ev %d | swing %d", z.EV, z.Swing)
}
