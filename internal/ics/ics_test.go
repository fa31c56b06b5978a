package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"hackweb/internal/model"
)

const sampleICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:keynote\r\n" +
	"DTSTAMP:20250201T000000Z\r\n" +
	"DTSTART:20250301T150000Z\r\n" +
	"DTEND:20250301T160000Z\r\n" +
	"SUMMARY:Keynote\r\n" +
	"LOCATION:Main Hall\r\n" +
	"CATEGORIES:talk,main\r\n" +
	"ORGANIZER;CN=Grace Hopper:mailto:grace@example.com\r\n" +
	"X-COLUMN:2\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:meal\r\n" +
	"DTSTAMP:20250201T000000Z\r\n" +
	"DTSTART:20250301T120000Z\r\n" +
	"DTEND:20250301T130000Z\r\n" +
	"RRULE:FREQ=DAILY;COUNT=3\r\n" +
	"EXDATE:20250302T120000Z\r\n" +
	"SUMMARY:Lunch\r\n" +
	"LOCATION:Cafeteria\r\n" +
	"X-SPEAKER:Catering\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:meal\r\n" +
	"DTSTAMP:20250201T000000Z\r\n" +
	"RECURRENCE-ID:20250303T120000Z\r\n" +
	"DTSTART:20250303T113000Z\r\n" +
	"DTEND:20250303T123000Z\r\n" +
	"SUMMARY:Early Lunch\r\n" +
	"LOCATION:Cafeteria\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:judging\r\n" +
	"DTSTAMP:20250201T000000Z\r\n" +
	"DTSTART:20250302T180000Z\r\n" +
	"DTEND:20250302T190000Z\r\n" +
	"SUMMARY:Judges Sync\r\n" +
	"CLASS:PRIVATE\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func expandRange() ExpandConfig {
	return ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		RangeEnd:        time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
	}
}

func TestParseICS(t *testing.T) {
	parsed, err := ParseICS(Source{ID: "test"}, []byte(sampleICS))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed) != 4 {
		t.Fatalf("expected 4 VEVENTs, got %d", len(parsed))
	}

	keynote := parsed[0]
	if keynote.Title != "Keynote" || keynote.Category != "talk" || keynote.Column != 2 {
		t.Errorf("unexpected keynote: %+v", keynote)
	}
	if keynote.Speaker != "Grace Hopper" {
		t.Errorf("speaker = %q, want organizer CN", keynote.Speaker)
	}
	if parsed[1].Speaker != "Catering" || parsed[1].RawRRule == "" || len(parsed[1].ExDates) != 1 {
		t.Errorf("unexpected meal: %+v", parsed[1])
	}
	if !parsed[2].IsOverride {
		t.Error("expected RECURRENCE-ID event to be an override")
	}
	if !parsed[3].Hidden {
		t.Error("CLASS:PRIVATE should mark the event hidden")
	}
}

func TestParseICSEmpty(t *testing.T) {
	if _, err := ParseICS(Source{ID: "empty"}, nil); err == nil {
		t.Fatal("expected error for empty body")
	}
}

func TestExpand(t *testing.T) {
	parsed, err := ParseICS(Source{ID: "test"}, []byte(sampleICS))
	if err != nil {
		t.Fatal(err)
	}
	res, err := Expand(parsed, expandRange())
	if err != nil {
		t.Fatalf("expand: %v", err)
	}

	byID := map[string]model.Event{}
	for _, e := range res.Events {
		byID[e.ID] = e
	}

	// keynote + 2 lunches (one excluded by EXDATE) + hidden judging.
	if len(res.Events) != 4 {
		t.Fatalf("expected 4 events, got %d: %v", len(res.Events), byID)
	}
	if _, ok := byID["meal@2025-03-02T12:00:00Z"]; ok {
		t.Error("EXDATE instance should be removed")
	}
	first, ok := byID["meal@2025-03-01T12:00:00Z"]
	if !ok || first.Title != "Lunch" || first.Duration() != time.Hour {
		t.Errorf("unexpected first lunch: %+v", first)
	}
	moved, ok := byID["meal@2025-03-03T12:00:00Z"]
	if !ok {
		t.Fatal("override instance missing")
	}
	if moved.Title != "Early Lunch" || moved.Start.Hour() != 11 || moved.Start.Minute() != 30 {
		t.Errorf("override not applied: %+v", moved)
	}
	if res.Events[0].ID != "keynote" {
		t.Errorf("expected input order to be kept, first is %q", res.Events[0].ID)
	}
}

func TestExpandRejectsInvertedRange(t *testing.T) {
	cfg := expandRange()
	cfg.RangeStart, cfg.RangeEnd = cfg.RangeEnd, cfg.RangeStart
	if _, err := Expand(nil, cfg); err == nil {
		t.Fatal("expected error for inverted range")
	}
}

func TestExportRoundTrip(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []model.Event{{
		ID:       "workshop-1",
		Title:    "Intro to Go",
		Location: "Room 101",
		Speaker:  "Rob",
		Category: "workshop",
		Column:   1,
		Start:    start,
		End:      start.Add(90 * time.Minute),
	}}

	body := Export("HackWeek", events, start)
	if !strings.Contains(body, "BEGIN:VCALENDAR") {
		t.Fatalf("not a calendar: %q", body)
	}

	parsed, err := ParseICS(Source{ID: "export"}, []byte(body))
	if err != nil {
		t.Fatalf("parse exported: %v", err)
	}
	if len(parsed) != 1 {
		t.Fatalf("expected 1 event, got %d", len(parsed))
	}
	got := parsed[0]
	if got.UID != "workshop-1" || got.Title != "Intro to Go" || got.Speaker != "Rob" ||
		got.Category != "workshop" || got.Column != 1 {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !got.Start.Equal(start) || !got.End.Equal(start.Add(90*time.Minute)) {
		t.Errorf("times mismatch: %s - %s", got.Start, got.End)
	}
}

func TestFetchOneUsesETagCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(sampleICS))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	src := Source{ID: "remote", URL: srv.URL + "/feed.ics?token=secret"}

	first, err := f.FetchOne(context.Background(), src)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if first.FromCache {
		t.Error("first fetch should not come from cache")
	}

	second, err := f.FetchOne(context.Background(), src)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if !second.FromCache || string(second.Body) != sampleICS {
		t.Error("expected cached body on 304")
	}
	if hits.Load() != 2 {
		t.Errorf("expected 2 requests, got %d", hits.Load())
	}
}

func TestFetchOneFallsBackToCache(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(sampleICS))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	src := Source{ID: "flaky", URL: srv.URL + "/feed.ics"}
	if _, err := f.FetchOne(context.Background(), src); err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	fail.Store(true)
	res, err := f.FetchOne(context.Background(), src)
	if err != nil {
		t.Fatalf("fetch with cache: %v", err)
	}
	if !res.FromCache || string(res.Body) != sampleICS {
		t.Error("expected the cached copy")
	}

	// Without a cached copy the upstream error surfaces.
	if _, err := NewFetcher(t.TempDir()).FetchOne(context.Background(), src); err == nil {
		t.Error("expected error without cache")
	}
}

func TestFetchOneLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.ics")
	if err := os.WriteFile(path, []byte(sampleICS), 0o600); err != nil {
		t.Fatal(err)
	}
	f := NewFetcher(t.TempDir())

	res, err := f.FetchOne(context.Background(), Source{ID: "local", URL: "file://" + path})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(res.Body) != sampleICS {
		t.Error("unexpected body")
	}

	_, errs := f.FetchAll(context.Background(), []Source{{ID: "missing", URL: filepath.Join(t.TempDir(), "nope.ics")}})
	if len(errs) != 1 {
		t.Errorf("expected 1 error for a missing file, got %d", len(errs))
	}
}

func TestRedactURL(t *testing.T) {
	got := redactURL("https://calendar.example.com/private/abc123/basic.ics?token=x")
	if got != "https://calendar.example.com/...(redacted)" {
		t.Errorf("redactURL = %q", got)
	}
}
