package daemon

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/charbel-alt28/aura-retail-ai/internal/config"
	"github.com/fsnotify/fsnotify"
)

// configSettle absorbs the burst of events an editor produces for one save.
const configSettle = 250 * time.Millisecond

// watchConfig calls apply with the reloaded configuration whenever
// config.yaml under home is written, created or renamed into place. The
// directory is watched rather than the file so atomic replaces are seen.
// A file that fails to load or validate is logged and skipped.
func watchConfig(ctx context.Context, home string, apply func(config.Config) error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(home); err != nil {
		_ = w.Close()
		return err
	}
	target := filepath.Clean(config.Path(home))

	go func() {
		defer func() { _ = w.Close() }()
		var settle <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				settle = time.After(configSettle)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("config watch error", "err", err)
			case <-settle:
				settle = nil
				cfg, err := config.Load(home)
				if err != nil {
					slog.Warn("config reload rejected", "path", target, "err", err)
					continue
				}
				if err := apply(cfg); err != nil {
					slog.Warn("config reload failed", "path", target, "err", err)
					continue
				}
				slog.Info("config reloaded", "path", target)
			}
		}
	}()
	return nil
}
