package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"hackweb/internal/agenda"
	"hackweb/internal/config"
	"hackweb/internal/model"
	"hackweb/internal/schedule"
)

func init() {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Arrange the schedule into columns and print it",
		Long: "Load events from the config (inline and ICS feeds) or from a JSON file, " +
			"arrange overlapping events into columns and print the result.",
		Args: cobra.NoArgs,
		RunE: runSchedule,
	}
	cmd.Flags().StringP("events", "e", "", `JSON array of events to arrange instead of the config ("-" for stdin)`)
	cmd.Flags().StringSlice("ics", nil, "Extra ICS feed URL or path (repeatable)")
	cmd.Flags().String("day", "", "Only events starting on this day (YYYY-MM-DD)")
	cmd.Flags().String("at", "", "Reference time for status labels (RFC3339, default now)")
	cmd.Flags().StringP("format", "f", "text", "Output format: json or text")

	RootCmd.AddCommand(cmd)
}

type scheduleOutput struct {
	Columns [][]string        `json:"columns"`
	Origin  time.Time         `json:"origin"`
	Events  []schedule.Placed `json:"events"`
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	eventsPath, _ := cmd.Flags().GetString("events")
	feeds, _ := cmd.Flags().GetStringSlice("ics")
	day, _ := cmd.Flags().GetString("day")
	atStr, _ := cmd.Flags().GetString("at")
	format, _ := cmd.Flags().GetString("format")

	if format != "json" && format != "text" {
		return fmt.Errorf("unknown format %q (want json or text)", format)
	}
	now := time.Now()
	if atStr != "" {
		t, err := time.Parse(time.RFC3339, atStr)
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
		now = t
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc := cfg.Location()

	var events []model.Event
	if eventsPath != "" {
		events, err = readEvents(cmd.InOrStdin(), eventsPath)
	} else {
		for _, f := range feeds {
			cfg.Schedule.ICS = append(cfg.Schedule.ICS, config.ICSConfig{URL: f})
		}
		loader := agenda.NewLoader(cfg, filepath.Join(cfg.DataDir, "ics-cache"))
		events, err = loader.Events(cmd.Context())
	}
	if err != nil {
		return err
	}

	sc := cfg.Schedule
	if day != "" {
		if events, err = agenda.OnDay(events, day, loc); err != nil {
			return err
		}
		sc.FirstLabel = agenda.OriginForDay(sc.FirstLabel, day, loc)
	}

	snap, err := agenda.Arrange(sc, events)
	if err != nil {
		return err
	}
	placed, geo := schedule.Layout(snap.Columns, snap.Geometry, now)

	out := cmd.OutOrStdout()
	if format == "json" {
		res := scheduleOutput{Columns: make([][]string, 0, len(snap.Columns)), Origin: geo.Origin, Events: placed}
		for _, col := range snap.Columns {
			ids := make([]string, 0, len(col))
			for _, ev := range col {
				ids = append(ids, ev.ID)
			}
			res.Columns = append(res.Columns, ids)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	printColumns(out, snap.Columns, loc, now)
	return nil
}

func readEvents(stdin io.Reader, path string) ([]model.Event, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	var events []model.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	for i := range events {
		if events[i].ID == "" {
			events[i].ID = fmt.Sprintf("event-%d", i+1)
		}
	}
	return events, nil
}

func printColumns(w io.Writer, columns []schedule.Column, loc *time.Location, now time.Time) {
	if len(columns) == 0 {
		fmt.Fprintln(w, "no events")
		return
	}
	for i, col := range columns {
		fmt.Fprintf(w, "Column %d\n", i+1)
		for _, ev := range col {
			line := fmt.Sprintf("  %s-%s  %s",
				ev.Start.In(loc).Format("15:04"), ev.End.In(loc).Format("15:04"), ev.Title)
			if where := schedule.DisplayLocation(ev); where != "" {
				line += "  @ " + where
			}
			fmt.Fprintf(w, "%s  (%s)\n", line, schedule.RelativeLabel(ev, now))
		}
	}
}
