package agenda

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"hackweb/internal/config"
	"hackweb/internal/model"
)

var day1 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

const feed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:workshop\r\n" +
	"DTSTAMP:20250201T000000Z\r\n" +
	"DTSTART:20250301T093000Z\r\n" +
	"DTEND:20250301T103000Z\r\n" +
	"SUMMARY:Workshop\r\n" +
	"LOCATION:Lab\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:reminder\r\n" +
	"DTSTAMP:20250201T000000Z\r\n" +
	"DTSTART:20250301T120000Z\r\n" +
	"DTEND:20250301T120000Z\r\n" +
	"SUMMARY:Submit projects\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:secret\r\n" +
	"DTSTAMP:20250201T000000Z\r\n" +
	"DTSTART:20250301T093000Z\r\n" +
	"DTEND:20250301T103000Z\r\n" +
	"SUMMARY:Staff only\r\n" +
	"X-HIDDEN:TRUE\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.ics")
	if err := os.WriteFile(path, []byte(feed), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Schedule.FirstLabel = day1
	cfg.Schedule.Events = []model.Event{
		{Title: "Opening", Start: day1, End: day1.Add(time.Hour)},
		{ID: "hidden", Title: "Setup", Hidden: true, Start: day1, End: day1.Add(time.Hour)},
		{ID: "breakfast", Title: "Breakfast", Column: 1, Start: day1.AddDate(0, 0, 1), End: day1.AddDate(0, 0, 1).Add(time.Hour)},
	}
	cfg.Schedule.ICS = []config.ICSConfig{
		{Name: "workshops", URL: path},
		{ID: "broken", URL: filepath.Join(t.TempDir(), "missing.ics")},
	}
	return cfg
}

func eventIDs(events []model.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func TestLoaderEvents(t *testing.T) {
	l := NewLoader(testConfig(t), t.TempDir())
	events, err := l.Events(context.Background())
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	want := []string{"event-1", "breakfast", "workshop"}
	if diff := cmp.Diff(want, eventIDs(events)); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestArrangeSnapshot(t *testing.T) {
	cfg := testConfig(t)
	events, err := NewLoader(cfg, t.TempDir()).Events(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	snap, err := Arrange(cfg.Schedule, events)
	if err != nil {
		t.Fatalf("arrange: %v", err)
	}
	// Opening and workshop overlap with equal length; workshop yields.
	if len(snap.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(snap.Columns))
	}
	if snap.Geometry.PixelsPerHour != cfg.Schedule.PixelsPerHour || !snap.Geometry.Origin.Equal(day1) {
		t.Errorf("unexpected geometry: %+v", snap.Geometry)
	}
}

func TestArrangeRespectsHintsWhenEnabled(t *testing.T) {
	sc := config.DefaultConfig().Schedule
	a := model.Event{ID: "a", Column: 1, Start: day1, End: day1.Add(time.Hour)}
	b := model.Event{ID: "b", Column: 0, Start: day1, End: day1.Add(time.Hour)}

	plain, err := Arrange(sc, []model.Event{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if plain.Columns[0][0].ID != "a" {
		t.Errorf("without hints arrival order wins, got %s first", plain.Columns[0][0].ID)
	}

	sc.RespectColumnHints = true
	hinted, err := Arrange(sc, []model.Event{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if hinted.Columns[0][0].ID != "b" || hinted.Columns[1][0].ID != "a" {
		t.Errorf("hints not applied: %v", hinted.Columns)
	}
}

func TestDaysAndOnDay(t *testing.T) {
	events := []model.Event{
		{ID: "d2", Start: day1.AddDate(0, 0, 1), End: day1.AddDate(0, 0, 1).Add(time.Hour)},
		{ID: "d1a", Start: day1, End: day1.Add(time.Hour)},
		{ID: "d1b", Start: day1.Add(2 * time.Hour), End: day1.Add(3 * time.Hour)},
	}
	if diff := cmp.Diff([]string{"2025-03-01", "2025-03-02"}, Days(events, time.UTC)); diff != "" {
		t.Errorf("days mismatch (-want +got):\n%s", diff)
	}

	got, err := OnDay(events, "2025-03-01", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"d1a", "d1b"}, eventIDs(got)); diff != "" {
		t.Errorf("day filter mismatch (-want +got):\n%s", diff)
	}
	if _, err := OnDay(events, "March 1st", time.UTC); err == nil {
		t.Error("expected error for malformed day")
	}
}

func TestOriginForDay(t *testing.T) {
	got := OriginForDay(day1, "2025-03-02", time.UTC)
	want := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("OriginForDay = %s, want %s", got, want)
	}
	if !OriginForDay(time.Time{}, "2025-03-02", time.UTC).IsZero() {
		t.Error("zero first label should stay zero")
	}
}
