package field

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// LoadFunc re-reads the configuration file and returns the field section.
type LoadFunc func(path string) (Config, error)

// Watch monitors the config file and hot-swaps the registry's field names
// when the deployment changes them, until ctx is cancelled.
//
// Editors consume file-level events; the parent directory is watched so
// atomic save (write temp, rename over) still produces an event for the
// config path. Reload is debounced because a single save often fires
// several events.
func Watch(ctx context.Context, configPath string, reg *Registry, load LoadFunc, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(configPath)
	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("field watcher: started", slog.String("config", configPath))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(200 * time.Millisecond)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("field watcher: stopped")
			return nil

		case <-reloadCh:
			cfg, loadErr := load(configPath)
			if loadErr != nil {
				logger.Warn("field watcher: reload failed", slog.String("error", loadErr.Error()))
				continue
			}
			current := reg.Current()
			if cfg == current {
				continue
			}
			reg.Update(cfg)
			logger.Info("field watcher: field names updated",
				slog.String("primary", cfg.PrimaryName),
				slog.String("preview", cfg.PreviewName))

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(configPath) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("field watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
