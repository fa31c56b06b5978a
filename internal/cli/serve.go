package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"hackweb/internal/capture"
	"hackweb/internal/config"
	appLog "hackweb/internal/log"
	"hackweb/internal/store"
	"hackweb/internal/web"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Long: "Serve the site, refreshing the schedule on the configured cron spec " +
			"and reloading the config file when it changes.",
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String("listen", "", "HTTP listen address (overrides config)")
	cmd.Flags().Bool("snapshot", false, "Capture /preview.png with headless Chromium after each refresh")
	cmd.Flags().String("chrome", "", "Chromium binary for --snapshot")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	listen, _ := cmd.Flags().GetString("listen")
	snapshot, _ := cmd.Flags().GetBool("snapshot")
	chrome, _ := cmd.Flags().GetString("chrome")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Listen = listen
	}
	appLog.Info("hackweb starting",
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"refresh", cfg.RefreshCron,
		"events", len(cfg.Schedule.Events),
		"feeds", len(cfg.Schedule.ICS),
		"database", cfg.Database,
	)
	if cfg.BasicAuth == nil {
		appLog.Warn("basic_auth not configured; announcement writes are open")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o755); err != nil {
		return err
	}
	st, err := store.NewSQLiteStore(cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := web.NewServer(cfg, st)
	r := &refresher{srv: srv, snapshot: snapshot, chrome: chrome, cfg: cfg}
	r.run(ctx, false)

	sched := cron.New(cron.WithLocation(cfg.Location()))
	if err := r.schedule(ctx, sched, cfg.RefreshCron); err != nil {
		return err
	}
	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	go func() {
		err := config.Watch(ctx, getConfigPath(), func(next *config.Config) {
			if listen != "" {
				next.Listen = listen
			}
			setupLogging(next)
			srv.ApplyConfig(next)
			r.setConfig(next)
			if err := r.schedule(ctx, sched, next.RefreshCron); err != nil {
				appLog.Error("invalid refresh spec; keeping previous", err, "refresh", next.RefreshCron)
			}
			r.run(ctx, true)
		})
		if err != nil {
			appLog.Error("config watch stopped", err)
		}
	}()

	if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("hackweb exiting")
	return nil
}

// refresher reloads the schedule and optionally re-captures the preview.
type refresher struct {
	srv      *web.Server
	snapshot bool
	chrome   string

	mu      sync.Mutex
	cfg     *config.Config
	spec    string
	entryID cron.EntryID
}

func (r *refresher) setConfig(cfg *config.Config) {
	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()
}

// schedule (re)registers the refresh job when spec changes.
func (r *refresher) schedule(ctx context.Context, c *cron.Cron, spec string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if spec == r.spec && r.entryID != 0 {
		return nil
	}
	id, err := c.AddFunc(spec, func() { r.run(ctx, true) })
	if err != nil {
		return err
	}
	if r.entryID != 0 {
		c.Remove(r.entryID)
	}
	r.spec, r.entryID = spec, id
	appLog.Info("refresh scheduled", "spec", spec)
	return nil
}

// run refreshes the schedule. The preview is captured only when shoot is
// set, since the first refresh happens before the server listens.
func (r *refresher) run(ctx context.Context, shoot bool) {
	if err := r.srv.RefreshSchedule(ctx); err != nil {
		appLog.Error("schedule refresh failed", err)
		return
	}
	if !r.snapshot || !shoot {
		return
	}

	r.mu.Lock()
	cfg := r.cfg
	r.mu.Unlock()

	u, err := capture.ScheduleURL(localBaseURL(cfg.Listen), "", time.Time{})
	if err != nil {
		appLog.Error("snapshot URL", err)
		return
	}
	go func() {
		if err := capture.SchedulePNG(ctx, capture.Options{
			URL:        u,
			OutputPath: web.PreviewPath(cfg),
			ExecPath:   r.chrome,
		}); err != nil {
			appLog.Error("snapshot failed", err)
		}
	}()
}

// localBaseURL turns a listen address into a URL reachable from this host.
func localBaseURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}
