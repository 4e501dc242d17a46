package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bizflow/bizgate/pkg/observability"
	"github.com/bizflow/bizgate/pkg/plans"
	"github.com/fsnotify/fsnotify"
)

// watchCatalog calls seed with the reparsed catalog after every change to
// path until ctx is done. The parent directory is watched so editors that
// replace the file by rename are seen. Invalid files are logged and skipped.
func watchCatalog(ctx context.Context, path string, debounce time.Duration, logger *observability.Logger, seed func(*plans.Catalog) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	path = filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}
	logger.WithField("file", path).Info("watching plan catalog")

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				timer.Reset(debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Warn("catalog watcher error")

		case <-timer.C:
			catalog, err := plans.LoadCatalogFile(path)
			if err != nil {
				logger.WithError(err).Warn("ignoring invalid plan catalog")
				continue
			}
			if err := seed(catalog); err != nil {
				logger.WithError(err).Error("failed to reseed plan catalog")
			}
		}
	}
}
