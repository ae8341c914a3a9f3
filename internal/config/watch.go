package config

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"

	"github.com/marmos91/spoagent/internal/logger"
)

// Watch reloads the config file at configPath whenever it changes on disk,
// invoking onReload with the newly loaded configuration. It blocks until
// ctx is cancelled.
func Watch(ctx context.Context, configPath string, onReload func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(configPath); err != nil {
		return fmt.Errorf("failed to watch config file: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			cfg, err := Load(configPath)
			if err != nil {
				logger.Warn("config reload failed", logger.Err(err))
				continue
			}
			logger.Info("config reloaded", "path", configPath)
			onReload(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", logger.Err(err))
		}
	}
}
