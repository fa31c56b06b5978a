package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestScheduleURL(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	got, err := ScheduleURL("http://127.0.0.1:8080/", "2025-03-01", at)
	if err != nil {
		t.Fatal(err)
	}
	want := "http://127.0.0.1:8080/schedule/?at=2025-03-01T10%3A00%3A00Z&day=2025-03-01"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	got, err = ScheduleURL("https://hack.example.org", "", time.Time{})
	if err != nil || got != "https://hack.example.org/schedule/" {
		t.Errorf("got %q, %v", got, err)
	}

	if _, err := ScheduleURL("ftp://example.org", "", time.Time{}); err == nil {
		t.Error("expected error for non-http base")
	}
}

func TestOptionsNormalize(t *testing.T) {
	o := Options{URL: "http://x", OutputPath: "/tmp/p.png"}
	if err := o.normalize(); err != nil {
		t.Fatal(err)
	}
	if o.Width != DefaultWidth || o.Height != DefaultHeight || o.Timeout != DefaultTimeout || o.ReadySelector != DefaultReadySelector {
		t.Errorf("defaults not applied: %+v", o)
	}

	if err := (&Options{OutputPath: "x"}).normalize(); err == nil {
		t.Error("expected error without URL")
	}
	if err := SchedulePNG(context.Background(), Options{URL: "http://x"}); err == nil {
		t.Error("expected error without OutputPath")
	}
}

func TestWritePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "preview.png")
	data := append([]byte(nil), pngMagic...)
	data = append(data, 0, 0, 0, 0)

	if err := writePNG(path, data); err != nil {
		t.Fatalf("writePNG: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil || len(got) != len(data) {
		t.Fatalf("read back: %v (%d bytes)", err, len(got))
	}

	if err := writePNG(path, []byte("<html>")); err == nil {
		t.Error("expected error for non-PNG data")
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the PNG to remain, got %d entries", len(entries))
	}
}
