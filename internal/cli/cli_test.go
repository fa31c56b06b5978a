package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"hackweb/internal/game"
)

const eventsJSON = `[
  {"id": "a", "title": "Opening", "location": "Main Hall", "start": "2025-03-01T09:00:00Z", "end": "2025-03-01T10:00:00Z"},
  {"id": "b", "title": "Talk", "start": "2025-03-01T09:30:00Z", "end": "2025-03-01T10:30:00Z"},
  {"id": "c", "title": "Lunch", "start": "2025-03-01T10:00:00Z", "end": "2025-03-01T11:00:00Z"}
]`

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetIn(strings.NewReader(stdin))
	RootCmd.SetArgs(args)
	err := RootCmd.Execute()
	return out.String(), err
}

func TestScheduleCommandJSON(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	eventsPath := filepath.Join(dir, "events.json")
	if err := os.WriteFile(eventsPath, []byte(eventsJSON), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "", "schedule", "--config", cfgPath, "--events", eventsPath,
		"--format", "json", "--at", "2025-03-01T09:45:00Z")
	if err != nil {
		t.Fatalf("schedule: %v\n%s", err, out)
	}
	var res scheduleOutput
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	want := [][]string{{"a", "c"}, {"b"}}
	if diff := cmp.Diff(want, res.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if len(res.Events) != 3 {
		t.Errorf("expected 3 placed events, got %d", len(res.Events))
	}
}

func TestScheduleCommandTextFromStdin(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	out, err := execute(t, eventsJSON, "schedule", "--config", cfgPath, "--events", "-",
		"--format", "text", "--at", "2025-03-01T08:00:00Z")
	if err != nil {
		t.Fatalf("schedule: %v\n%s", err, out)
	}
	for _, want := range []string{"Column 1", "Column 2", "09:00-10:00  Opening  @ Main Hall", "starts 1 hour from now"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestScheduleCommandRejectsBadFormat(t *testing.T) {
	if _, err := execute(t, "", "schedule", "--format", "yaml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestPlayCommand(t *testing.T) {
	out, err := execute(t, "a\nnorth\nd\nq\n", "play", "--seed", "1", "--size", "4")
	if err != nil {
		t.Fatalf("play: %v\n%s", err, out)
	}
	if !strings.HasPrefix(out, "score 0\n") {
		t.Errorf("expected initial board, got:\n%s", out)
	}
	if !strings.Contains(out, `unknown move "north"`) {
		t.Errorf("expected unknown move message:\n%s", out)
	}
	if !strings.Contains(out, "final score") {
		t.Errorf("expected final score:\n%s", out)
	}
}

func TestPrintBoard(t *testing.T) {
	var buf bytes.Buffer
	printBoard(&buf, game.Grid{{2, 0}, {0, 1024}}, 12)
	want := "score 12\n   2    .\n   . 1024\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestLocalBaseURL(t *testing.T) {
	cases := map[string]string{
		"127.0.0.1:8080": "http://127.0.0.1:8080",
		":9000":          "http://127.0.0.1:9000",
		"0.0.0.0:80":     "http://127.0.0.1:80",
		"[::]:8080":      "http://127.0.0.1:8080",
		"hack.local:443": "http://hack.local:443",
	}
	for in, want := range cases {
		if got := localBaseURL(in); got != want {
			t.Errorf("localBaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}
