package render

import "time"

// Rectangle is an axis-aligned price/time box keyed by the zone it
// draws. Upserting the same zone ID replaces the previous drawing.
type Rectangle struct {
	ZoneID    string    `json:"zone_id"`
	Top       float64   `json:"top"`
	Bottom    float64   `json:"bottom"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Color     string    `json:"color"`
	Opacity   float64   `json:"opacity"`
}

// Label is a text annotation anchored to a price level
type Label struct {
	ZoneID string    `json:"zone_id"`
	Price  float64   `json:"price"`
	Time   time.Time `json:"time"`
	Text   string    `json:"text"`
	Color  string    `json:"color"`
}

// Surface is the drawing backend: a chart client, a log sink, or a
// test fake. Failures are reported but never block the caller.
type Surface interface {
	UpsertRectangle(rect Rectangle) error
	UpsertLabel(label Label) error
	Remove(zoneID string) error
}
