// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ManuGH/settingsd/internal/document"
	xglog "github.com/ManuGH/settingsd/internal/log"
	"github.com/ManuGH/settingsd/internal/metrics"
)

// Watch observes the settings file for edits made outside this Store and
// publishes them to listeners with Source "file". It returns once the
// watcher is running; the watcher stops when ctx is cancelled. Use Wait to
// block until it has exited.
//
// The parent directory is watched rather than the file, because every save
// replaces the file by rename.
func (s *Store) Watch(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, s.dirMode); err != nil {
		return newError(KindDirectory, "watch", dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close() // Ignore close error in error path
		return fmt.Errorf("watch config directory: %w", err)
	}

	s.mu.Lock()
	if !s.known {
		if doc, _, err := s.read("reload"); err == nil {
			s.snapshot = doc
			s.known = true
		}
	}
	s.mu.Unlock()

	s.logger.Info().
		Str(xglog.FieldEvent, "config.watcher_started").
		Msg("watching config file for changes")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.watchLoop(ctx, watcher)
	}()
	return nil
}

// Wait blocks until every watcher started by Watch has stopped.
func (s *Store) Wait() {
	s.wg.Wait()
}

func (s *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer func() { _ = watcher.Close() }()

	var (
		timer  *time.Timer
		settle <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Str(xglog.FieldEvent, "config.watcher_stopped").Msg("config watcher stopped")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			s.logger.Debug().
				Str(xglog.FieldEvent, "config.file_changed").
				Str("op", event.Op.String()).
				Msg("config file changed")

			// Debounce: reset timer on each event
			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(s.debounce)
			}
			settle = timer.C

		case <-settle:
			settle = nil
			if err := s.reload(ctx); err != nil {
				s.logger.Error().
					Err(err).
					Str(xglog.FieldEvent, "config.auto_reload_failed").
					Msg("automatic config reload failed")
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "config.watcher_error").
				Msg("config watcher error")
		}
	}
}

// Reload re-reads the file on demand, for example on SIGHUP, and publishes
// a change with Source "file" when it differs from the last known document.
func (s *Store) Reload(ctx context.Context) error {
	return s.reload(ctx)
}

// reload re-reads the file after an external change. If the content matches
// the last known document (our own save) nothing is published. On failure
// the previous snapshot is kept.
func (s *Store) reload(ctx context.Context) error {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, _, err := s.read("reload")
	if err != nil {
		metrics.RecordStoreOperation("reload", outcomeFor(err), time.Since(start))
		return err
	}
	metrics.RecordStoreOperation("reload", "success", time.Since(start))

	old := s.snapshot
	if s.known && old.Equal(doc) {
		return nil
	}
	s.snapshot = doc
	s.known = true
	metrics.SetDocumentKeys(doc.Len())

	keys := document.ChangedKeys(old, doc)
	logger := xglog.WithContext(ctx, s.logger)
	logger.Info().
		Str(xglog.FieldEvent, "config.reload_success").
		Strs("changed", keys).
		Msg("configuration changed on disk")

	s.notify(Change{Old: old, New: doc, Keys: keys, Source: "file"})
	return nil
}
