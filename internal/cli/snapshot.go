package cli

import (
	"time"

	"github.com/spf13/cobra"

	"hackweb/internal/capture"
	"hackweb/internal/web"
)

func init() {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture the schedule page as a PNG",
		Long:  "Render the running server's schedule page in headless Chromium and save it, by default where /preview.png serves it from.",
		Args:  cobra.NoArgs,
		RunE:  runSnapshot,
	}
	cmd.Flags().String("url", "", "Server base URL (default: derived from the listen address)")
	cmd.Flags().StringP("out", "o", "", "Output PNG path (default: <data_dir>/preview.png)")
	cmd.Flags().String("day", "", "Schedule day to show (YYYY-MM-DD)")
	cmd.Flags().Int("width", capture.DefaultWidth, "Viewport width")
	cmd.Flags().Int("height", capture.DefaultHeight, "Viewport height")
	cmd.Flags().Duration("timeout", capture.DefaultTimeout, "Capture timeout")
	cmd.Flags().String("chrome", "", "Chromium binary (default: search PATH)")

	RootCmd.AddCommand(cmd)
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	base, _ := cmd.Flags().GetString("url")
	out, _ := cmd.Flags().GetString("out")
	day, _ := cmd.Flags().GetString("day")
	width, _ := cmd.Flags().GetInt("width")
	height, _ := cmd.Flags().GetInt("height")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	chrome, _ := cmd.Flags().GetString("chrome")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if base == "" {
		base = localBaseURL(cfg.Listen)
	}
	if out == "" {
		out = web.PreviewPath(cfg)
	}

	u, err := capture.ScheduleURL(base, day, time.Time{})
	if err != nil {
		return err
	}
	return capture.SchedulePNG(cmd.Context(), capture.Options{
		URL:        u,
		OutputPath: out,
		Width:      width,
		Height:     height,
		Timeout:    timeout,
		ExecPath:   chrome,
	})
}
