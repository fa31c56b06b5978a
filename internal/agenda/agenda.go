// Package agenda assembles the public event schedule from the configured
// sources and arranges it for display.
package agenda

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"hackweb/internal/config"
	"hackweb/internal/ics"
	appLog "hackweb/internal/log"
	"hackweb/internal/model"
	"hackweb/internal/schedule"
)

const dayLayout = "2006-01-02"

// Loader gathers events from inline config and ICS feeds.
type Loader struct {
	cfg     *config.Config
	fetcher *ics.Fetcher
	now     func() time.Time
}

// NewLoader builds a Loader caching remote feeds under cacheDir.
func NewLoader(cfg *config.Config, cacheDir string) *Loader {
	return &Loader{
		cfg:     cfg,
		fetcher: ics.NewFetcher(cacheDir),
		now:     time.Now,
	}
}

// Events returns all visible events: inline events first, in config order,
// followed by feed events in feed order. Feed failures are logged and the
// remaining sources still contribute.
func (l *Loader) Events(ctx context.Context) ([]model.Event, error) {
	loc := l.cfg.Location()
	out := make([]model.Event, 0, len(l.cfg.Schedule.Events))

	for i, ev := range l.cfg.Schedule.Events {
		if ev.ID == "" {
			ev.ID = fmt.Sprintf("event-%d", i+1)
		}
		ev.Start = ev.Start.In(loc)
		ev.End = ev.End.In(loc)
		out = append(out, ev)
	}

	sources := l.sources()
	if len(sources) > 0 {
		results, errs := l.fetcher.FetchAll(ctx, sources)
		if len(errs) > 0 {
			appLog.Error("agenda: one or more feeds failed", errors.Join(errs...), "error_count", len(errs))
		}

		rangeStart, rangeEnd := l.expandRange()
		for _, res := range results {
			parsed, err := ics.ParseICS(res.Source, res.Body)
			if err != nil {
				// ParseICS already logged it.
				continue
			}
			expanded, err := ics.Expand(parsed, ics.ExpandConfig{
				DisplayLocation: loc,
				RangeStart:      rangeStart,
				RangeEnd:        rangeEnd,
			})
			if err != nil {
				appLog.Error("agenda: expand failed", err, "id", res.Source.ID)
				continue
			}
			for _, ev := range expanded.Events {
				// Feeds often carry zero-length reminders; one of those must
				// not take the whole schedule down.
				if err := schedule.Validate([]model.Event{ev}); err != nil {
					appLog.Warn("agenda: skipping feed event", "id", ev.ID, "source", res.Source.ID, "reason", err.Error())
					continue
				}
				out = append(out, ev)
			}
		}
	}

	visible := slices.DeleteFunc(out, func(ev model.Event) bool { return ev.Hidden })
	appLog.Debug("agenda: events loaded", "count", len(visible), "feeds", len(sources))
	return visible, nil
}

func (l *Loader) sources() []ics.Source {
	sources := make([]ics.Source, 0, len(l.cfg.Schedule.ICS))
	for _, c := range l.cfg.Schedule.ICS {
		if c.URL == "" {
			continue
		}
		id := c.ID
		if id == "" {
			if c.Name != "" {
				id = c.Name
			} else {
				id = c.URL
			}
		}
		sources = append(sources, ics.Source{ID: id, URL: c.URL})
	}
	return sources
}

// expandRange bounds recurring feed events: two weeks from the first label
// when one is configured, otherwise a window around now.
func (l *Loader) expandRange() (time.Time, time.Time) {
	if first := l.cfg.Schedule.FirstLabel; !first.IsZero() {
		return first.AddDate(0, 0, -1), first.AddDate(0, 0, 14)
	}
	now := l.now()
	return now.AddDate(0, 0, -30), now.AddDate(0, 0, 90)
}

// Snapshot is an arranged schedule.
type Snapshot struct {
	Events   []model.Event
	Columns  []schedule.Column
	Geometry schedule.Geometry
	LoadedAt time.Time
}

// Arrange validates and arranges events with the configured options.
func Arrange(sc config.ScheduleConfig, events []model.Event) (Snapshot, error) {
	input := events
	if sc.RespectColumnHints {
		input = schedule.SortByHint(events)
	}
	cols, err := schedule.ArrangeWithOptions(input, schedule.Options{MaxDisplacements: sc.MaxDisplacements})
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Events:  events,
		Columns: cols,
		Geometry: schedule.Geometry{
			Origin:        sc.FirstLabel,
			PixelsPerHour: sc.PixelsPerHour,
			ColumnWidth:   sc.ColumnWidth,
			ColumnGap:     sc.ColumnGap,
		},
		LoadedAt: time.Now(),
	}, nil
}

// Days lists the distinct local dates events start on, in order.
func Days(events []model.Event, loc *time.Location) []string {
	seen := make(map[string]bool)
	var days []string
	for _, ev := range events {
		d := ev.Start.In(loc).Format(dayLayout)
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	slices.Sort(days)
	return days
}

// OnDay keeps events that start on the given local date (YYYY-MM-DD),
// preserving order.
func OnDay(events []model.Event, day string, loc *time.Location) ([]model.Event, error) {
	if _, err := time.ParseInLocation(dayLayout, day, loc); err != nil {
		return nil, fmt.Errorf("agenda: bad day %q: %w", day, err)
	}
	out := make([]model.Event, 0)
	for _, ev := range events {
		if ev.Start.In(loc).Format(dayLayout) == day {
			out = append(out, ev)
		}
	}
	return out, nil
}

// OriginForDay moves the configured first label onto day, keeping its
// clock time. A zero first label stays zero.
func OriginForDay(first time.Time, day string, loc *time.Location) time.Time {
	if first.IsZero() {
		return first
	}
	d, err := time.ParseInLocation(dayLayout, day, loc)
	if err != nil {
		return first
	}
	f := first.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), f.Hour(), f.Minute(), 0, 0, loc)
}
