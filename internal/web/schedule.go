package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"hackweb/internal/agenda"
	"hackweb/internal/ics"
	appLog "hackweb/internal/log"
	"hackweb/internal/model"
	"hackweb/internal/schedule"
)

type scheduleCache struct {
	events   []model.Event
	loadedAt time.Time
}

type scheduleResponse struct {
	Day         string            `json:"day,omitempty"`
	Days        []string          `json:"days"`
	GeneratedAt time.Time         `json:"generated_at"`
	LoadedAt    time.Time         `json:"loaded_at"`
	Origin      time.Time         `json:"origin"`
	Columns     int               `json:"columns"`
	Width       float64           `json:"width"`
	Height      float64           `json:"height"`
	Events      []schedule.Placed `json:"events"`
}

// RefreshSchedule reloads events from config and feeds into the cache.
// On failure the previous cache is kept.
func (s *Server) RefreshSchedule(ctx context.Context) error {
	s.mu.RLock()
	loader := s.loader
	s.mu.RUnlock()

	events, err := loader.Events(ctx)
	if err != nil {
		return err
	}

	s.scheduleMu.Lock()
	s.scheduleCache = &scheduleCache{events: events, loadedAt: s.now()}
	s.scheduleMu.Unlock()
	appLog.Info("schedule refreshed", "events", len(events))
	return nil
}

func (s *Server) cachedEvents(ctx context.Context) (*scheduleCache, error) {
	s.scheduleMu.RLock()
	c := s.scheduleCache
	s.scheduleMu.RUnlock()
	if c != nil {
		return c, nil
	}
	if err := s.RefreshSchedule(ctx); err != nil {
		return nil, err
	}
	s.scheduleMu.RLock()
	defer s.scheduleMu.RUnlock()
	return s.scheduleCache, nil
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	cfg := s.config()
	loc := cfg.Location()

	now := s.now()
	if at := r.URL.Query().Get("at"); at != "" {
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid at: expected RFC3339")
			return
		}
		now = t
	}

	c, err := s.cachedEvents(r.Context())
	if err != nil {
		appLog.Error("failed to load schedule", err)
		writeError(w, http.StatusInternalServerError, "failed to load schedule")
		return
	}

	events := c.events
	sc := cfg.Schedule
	day := r.URL.Query().Get("day")
	if day != "" {
		events, err = agenda.OnDay(events, day, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid day: expected YYYY-MM-DD")
			return
		}
		sc.FirstLabel = agenda.OriginForDay(sc.FirstLabel, day, loc)
	}

	snap, err := agenda.Arrange(sc, events)
	if err != nil {
		var ie *schedule.IntervalError
		if errors.As(err, &ie) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		appLog.Error("failed to arrange schedule", err)
		writeError(w, http.StatusInternalServerError, "failed to arrange schedule")
		return
	}

	placed, geo := schedule.Layout(snap.Columns, snap.Geometry, now)
	resp := scheduleResponse{
		Day:         day,
		Days:        agenda.Days(c.events, loc),
		GeneratedAt: now,
		LoadedAt:    c.loadedAt,
		Origin:      geo.Origin,
		Columns:     len(snap.Columns),
		Events:      placed,
	}
	if n := len(snap.Columns); n > 0 {
		resp.Width = float64(n)*geo.ColumnWidth + float64(n-1)*geo.ColumnGap
	}
	for _, p := range placed {
		if bottom := p.Box.Top + p.Box.Height; bottom > resp.Height {
			resp.Height = bottom
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleScheduleDays(w http.ResponseWriter, r *http.Request) {
	c, err := s.cachedEvents(r.Context())
	if err != nil {
		appLog.Error("failed to load schedule", err)
		writeError(w, http.StatusInternalServerError, "failed to load schedule")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"days": agenda.Days(c.events, s.config().Location()),
	})
}

func (s *Server) handleScheduleICS(w http.ResponseWriter, r *http.Request) {
	c, err := s.cachedEvents(r.Context())
	if err != nil {
		appLog.Error("failed to load schedule", err)
		writeError(w, http.StatusInternalServerError, "failed to load schedule")
		return
	}
	body := ics.Export("Schedule", c.events, s.now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.ics"`)
	_, _ = w.Write([]byte(body))
}
