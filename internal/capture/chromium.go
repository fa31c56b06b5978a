// Package capture renders the schedule page in headless Chromium and saves
// it as a PNG, for the /preview.png hallway display.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	appLog "hackweb/internal/log"
)

// Defaults fit a landscape 1080p screen.
const (
	DefaultWidth         = 1920
	DefaultHeight        = 1080
	DefaultTimeout       = 30 * time.Second
	DefaultReadySelector = `[data-ready="true"]`
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

// Options defines a screenshot capture.
type Options struct {
	// URL to capture, e.g. "http://127.0.0.1:8080/schedule/?day=2025-03-01".
	URL string

	// OutputPath receives the PNG. It is replaced atomically so the web
	// server never serves a half-written file.
	OutputPath string

	// Width and Height are the viewport size. Zero means the defaults.
	Width  int
	Height int

	Timeout time.Duration

	// ReadySelector must be visible before the shot is taken.
	ReadySelector string

	// ExecPath points at a Chromium binary; empty lets chromedp find one.
	ExecPath string
}

func (o *Options) normalize() error {
	if o.URL == "" {
		return errors.New("capture: URL is required")
	}
	if o.OutputPath == "" {
		return errors.New("capture: OutputPath is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.ReadySelector == "" {
		o.ReadySelector = DefaultReadySelector
	}
	return nil
}

// ScheduleURL builds the schedule page address under base, optionally
// pinned to a day (YYYY-MM-DD) and a reference time.
func ScheduleURL(base, day string, at time.Time) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/") + "/schedule/")
	if err != nil {
		return "", fmt.Errorf("capture: bad base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("capture: base URL must be http(s), got %q", base)
	}
	q := u.Query()
	if day != "" {
		q.Set("day", day)
	}
	if !at.IsZero() {
		q.Set("at", at.Format(time.RFC3339))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// SchedulePNG launches headless Chromium, loads opts.URL, waits for the
// page to flag itself ready and writes a full-page PNG to opts.OutputPath.
func SchedulePNG(parentCtx context.Context, opts Options) error {
	if err := opts.normalize(); err != nil {
		return err
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(parentCtx, allocOpts...)
	defer allocCancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	start := time.Now()
	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(opts.ReadySelector, chromedp.ByQuery),
		// Let the last paint land.
		chromedp.Sleep(300 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := writePNG(opts.OutputPath, png); err != nil {
		return err
	}
	appLog.Info("schedule snapshot written",
		"path", opts.OutputPath,
		"bytes", len(png),
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)
	return nil
}

func writePNG(path string, data []byte) error {
	if !bytes.HasPrefix(data, pngMagic) {
		return errors.New("capture: screenshot is not a PNG")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("capture: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".preview-*.png")
	if err != nil {
		return fmt.Errorf("capture: temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("capture: write: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("capture: chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("capture: close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("capture: rename: %w", err)
	}
	return nil
}
