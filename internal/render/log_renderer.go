package render

import (
	"github.com/Vittorio94/fatcat-reclaims/internal/logging"
)

// LogRenderer writes drawing operations to the structured log, for
// headless runs with no chart clients attached.
type LogRenderer struct {
	logger *logging.Logger
}

func NewLogRenderer(logger *logging.Logger) *LogRenderer {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogRenderer{logger: logger.WithComponent("render")}
}

func (lr *LogRenderer) UpsertRectangle(rect Rectangle) error {
	lr.logger.Debug("draw rect",
		"zone_id", rect.ZoneID,
		"top", rect.Top,
		"bottom", rect.Bottom,
		"color", rect.Color)
	return nil
}

func (lr *LogRenderer) UpsertLabel(label Label) error {
	lr.logger.Debug("draw label",
		"zone_id", label.ZoneID,
		"price", label.Price,
		"text", label.Text)
	return nil
}

func (lr *LogRenderer) Remove(zoneID string) error {
	lr.logger.Debug("remove drawing", "zone_id", zoneID)
	return nil
}
