package schedule

import (
	"time"

	"github.com/dustin/go-humanize"

	"hackweb/internal/model"
)

// Status classifies an event relative to a clock value.
type Status string

const (
	StatusPast    Status = "past"
	StatusCurrent Status = "current"
	StatusFuture  Status = "future"
)

// StatusAt returns past when now >= end, current when start <= now < end,
// and future otherwise.
func StatusAt(ev model.Event, now time.Time) Status {
	switch {
	case !now.Before(ev.End):
		return StatusPast
	case !now.Before(ev.Start):
		return StatusCurrent
	default:
		return StatusFuture
	}
}

// DisplayLocation is "location • speaker", or just the location when the
// event has no speaker.
func DisplayLocation(ev model.Event) string {
	if ev.Speaker == "" {
		return ev.Location
	}
	return ev.Location + " • " + ev.Speaker
}

// RelativeLabel describes when an event starts or ends relative to now,
// e.g. "starts 2 hours from now" or "ended 10 minutes ago".
func RelativeLabel(ev model.Event, now time.Time) string {
	switch StatusAt(ev, now) {
	case StatusPast:
		return "ended " + humanize.RelTime(ev.End, now, "ago", "from now")
	case StatusCurrent:
		return "ends " + humanize.RelTime(ev.End, now, "ago", "from now")
	default:
		return "starts " + humanize.RelTime(ev.Start, now, "ago", "from now")
	}
}

// Geometry maps columns and time onto pixels.
type Geometry struct {
	// Origin is the first time label on the timeline. If zero, Layout uses
	// the earliest event start truncated to the hour.
	Origin        time.Time
	PixelsPerHour float64
	ColumnWidth   float64
	ColumnGap     float64
}

// Box is an absolutely positioned rectangle in pixels.
type Box struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Place positions ev, assigned to column, on the timeline.
func (g Geometry) Place(ev model.Event, column int) Box {
	return Box{
		Left:   float64(column) * (g.ColumnWidth + g.ColumnGap),
		Top:    ev.Start.Sub(g.Origin).Hours() * g.PixelsPerHour,
		Width:  g.ColumnWidth,
		Height: ev.Duration().Hours() * g.PixelsPerHour,
	}
}

// Placed is an event with everything the schedule page renders for it.
type Placed struct {
	Event           model.Event `json:"event"`
	Column          int         `json:"column"`
	Box             Box         `json:"box"`
	Status          Status      `json:"status"`
	DisplayLocation string      `json:"display_location"`
	Relative        string      `json:"relative"`
}

// Layout flattens arranged columns into placed events, column by column.
// The returned Geometry carries the resolved origin.
func Layout(columns []Column, g Geometry, now time.Time) ([]Placed, Geometry) {
	if g.Origin.IsZero() {
		g.Origin = earliestHour(columns)
	}
	out := make([]Placed, 0)
	for ci, col := range columns {
		for _, ev := range col {
			out = append(out, Placed{
				Event:           ev,
				Column:          ci,
				Box:             g.Place(ev, ci),
				Status:          StatusAt(ev, now),
				DisplayLocation: DisplayLocation(ev),
				Relative:        RelativeLabel(ev, now),
			})
		}
	}
	return out, g
}

func earliestHour(columns []Column) time.Time {
	var first time.Time
	for _, col := range columns {
		for _, ev := range col {
			if first.IsZero() || ev.Start.Before(first) {
				first = ev.Start
			}
		}
	}
	return first.Truncate(time.Hour)
}
