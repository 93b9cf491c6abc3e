package nodeset

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/ggoodman/opcua-pseudosession-go/addressspace/memspace"
)

// WatchOption configures Watch.
type WatchOption func(*watchConfig)

type watchConfig struct {
	logger   *slog.Logger
	onReload func(error)
}

// WithLogger sets the logger used to report reloads. Defaults to a discard
// logger.
func WithLogger(l *slog.Logger) WatchOption {
	return func(c *watchConfig) { c.logger = l }
}

// WithOnReload registers a callback invoked after every reload attempt with
// its outcome.
func WithOnReload(fn func(error)) WatchOption {
	return func(c *watchConfig) { c.onReload = fn }
}

// Watch reloads the nodeset at path into space whenever the file changes,
// until ctx is done. The containing directory is watched so that editors which
// replace the file on save are followed. A nodeset that fails to load leaves
// the previous graph in place. Method registrations on space survive reloads.
func Watch(ctx context.Context, path string, space *memspace.Space, opts ...WatchOption) error {
	cfg := watchConfig{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&cfg)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve nodeset path: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	reload := func() {
		next, err := Load(abs)
		if err == nil {
			space.ReplaceGraph(next)
			cfg.logger.InfoContext(ctx, "nodeset reloaded", slog.String("path", abs), slog.Int("nodes", space.Len()))
		} else {
			cfg.logger.WarnContext(ctx, "nodeset reload failed", slog.String("path", abs), slog.String("err", err.Error()))
		}
		if cfg.onReload != nil {
			cfg.onReload(err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				reload()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			cfg.logger.WarnContext(ctx, "nodeset watcher error", slog.String("err", err.Error()))
		}
	}
}
