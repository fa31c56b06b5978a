package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, true)
	SetLevel(LevelDebug)
	t.Cleanup(func() { SetLevel(LevelInfo) })

	Error("arrange failed", errors.New("boom"), "events", 3, "source", "inline", "dangling")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("decode record: %v (%q)", err, buf.String())
	}
	if rec["message"] != "arrange failed" {
		t.Errorf("unexpected message: %v", rec["message"])
	}
	if rec["err"] != "boom" {
		t.Errorf("expected err field, got %v", rec["err"])
	}
	if rec["events"] != float64(3) || rec["source"] != "inline" {
		t.Errorf("unexpected fields: %v", rec)
	}
	if _, ok := rec["dangling"]; ok {
		t.Error("odd trailing key should be dropped")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, true)
	SetLevel(LevelWarn)
	t.Cleanup(func() { SetLevel(LevelInfo) })

	Info("hidden")
	Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record should be filtered at WARN")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn record missing")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		" WARN ":  LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
