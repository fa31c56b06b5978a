package ics

import (
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"

	"hackweb/internal/model"
)

// Export renders events as an iCalendar feed that attendees can subscribe
// to. Speaker, column hint and category round-trip through ParseICS.
func Export(name string, events []model.Event, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//hackweb//schedule//EN")
	if name != "" {
		cal.SetXWRCalName(name)
	}

	for _, ev := range events {
		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(stamp)
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			ve.SetLocation(ev.Location)
		}
		if ev.Category != "" {
			ve.SetProperty(ical.ComponentPropertyCategories, ev.Category)
		}
		if ev.Speaker != "" {
			ve.SetProperty(propSpeaker, ev.Speaker)
		}
		if ev.Column > 0 {
			ve.SetProperty(propColumn, strconv.Itoa(ev.Column))
		}
	}
	return cal.Serialize()
}
