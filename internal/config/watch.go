package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	appLog "hackweb/internal/log"
)

const watchDebounce = 300 * time.Millisecond

// Watch reloads path whenever it changes and hands the new config to fn.
// The parent directory is watched so editors that replace the file via
// rename are picked up. Invalid YAML is logged and skipped. Watch blocks
// until ctx is done.
func Watch(ctx context.Context, path string, fn func(*Config)) error {
	dir := filepath.Dir(path)
	file := filepath.Base(path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	reload := func() {
		data, err := os.ReadFile(path)
		if err != nil {
			// Mid-rename or deleted; the next event retries.
			appLog.Debug("config reload skipped", "path", path, "err", err)
			return
		}
		cfg, err := Parse(data)
		if err != nil {
			appLog.Error("config reload failed", err, "path", path)
			return
		}
		appLog.Info("config reloaded", "path", path)
		fn(cfg)
	}
	debounce := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(watchDebounce, reload)
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.EqualFold(filepath.Base(ev.Name), file) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				debounce()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			appLog.Error("config watch error", err, "dir", dir)
		}
	}
}
