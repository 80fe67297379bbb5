// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package catalog

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadHandler is called with the new catalog after a successful reload.
type ReloadHandler func(services []Descriptor)

// Watcher reloads the catalog file when it changes on disk.
//
// # Description
//
// Watches the directory containing the catalog file and re-parses the
// file after writes. Changes are debounced so editors that write in
// multiple steps (truncate, write, rename) trigger a single reload.
// A reload that fails validation is logged and dropped; the previous
// catalog stays in effect.
//
// # Thread Safety
//
// Safe for concurrent use. The handler is called from a single goroutine.
type Watcher struct {
	path     string
	handler  ReloadHandler
	logger   *slog.Logger
	debounce time.Duration

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	watching bool
}

// NewWatcher creates a watcher for the given catalog file.
//
// # Inputs
//
//   - path: catalog file to watch
//   - handler: called with the parsed catalog after each successful reload
//   - logger: destination for reload failures (nil uses slog.Default)
//
// # Outputs
//
//   - *Watcher: ready to use, call Start to begin watching
//   - error: non-nil if the underlying fsnotify watcher could not be created
func NewWatcher(path string, handler ReloadHandler, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		path:     path,
		handler:  handler,
		logger:   logger,
		debounce: 200 * time.Millisecond,
		watcher:  fsw,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. The watch loop exits when ctx is canceled or
// Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watching {
		return nil
	}

	// Watch the directory rather than the file itself so rename-based
	// saves keep working after the inode changes. The watching flag is
	// only set once Add succeeds, so a failed Start can be retried.
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.watching = true

	go w.loop(ctx)
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

// IsWatching reports whether the watch loop is active.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

func (w *Watcher) loop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("catalog watch error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	services, err := Load(w.path)
	if err != nil {
		w.logger.Warn("catalog reload rejected, keeping previous catalog",
			"path", w.path, "error", err)
		return
	}
	w.logger.Info("catalog reloaded", "path", w.path, "services", len(services))
	if w.handler != nil {
		w.handler(services)
	}
}
