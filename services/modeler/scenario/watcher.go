// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadHandler receives the rebuilt scenario, or the error that stopped
// the rebuild. The previous scenario stays valid when err is non-nil.
type ReloadHandler func(s *Scenario, err error)

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	// DebounceWindow is how long to wait for more writes before reloading.
	// Default: 200ms
	DebounceWindow time.Duration

	// BufferSize is the size of the event channel.
	// Default: 64
	BufferSize int

	// Logger receives watch errors. Default: slog.Default()
	Logger *slog.Logger
}

// DefaultWatcherOptions returns sensible defaults.
func DefaultWatcherOptions() WatcherOptions {
	return WatcherOptions{
		DebounceWindow: 200 * time.Millisecond,
		BufferSize:     64,
	}
}

// Watcher reloads a scenario file when it changes.
//
// # Description
//
// The directory holding the file is watched rather than the file itself,
// since editors often replace a file by renaming a temporary one over it.
// Events for other files in the directory are ignored. Bursts of events
// are collapsed with a debounce window and the file is reloaded once per
// burst.
//
// # Thread Safety
//
// Safe for concurrent use. The handler is called from a single goroutine.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	handler  ReloadHandler
	debounce time.Duration
	logger   *slog.Logger

	events   chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	watching bool
	reloads  int
}

// NewWatcher creates a watcher for the scenario at path.
//
// # Inputs
//
//   - path: Scenario file. It must exist when Start is called.
//   - handler: Called after every reload.
//   - opts: Optional configuration (nil uses defaults).
//
// # Outputs
//
//   - *Watcher: Ready to Start.
//   - error: Non-nil if the fsnotify watcher could not be created.
func NewWatcher(path string, handler ReloadHandler, opts *WatcherOptions) (*Watcher, error) {
	if opts == nil {
		defaults := DefaultWatcherOptions()
		opts = &defaults
	}
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = DefaultWatcherOptions().DebounceWindow
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultWatcherOptions().BufferSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve scenario path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &Watcher{
		path:     abs,
		watcher:  fw,
		handler:  handler,
		debounce: opts.DebounceWindow,
		logger:   logger.With(slog.String("scenario", abs)),
		events:   make(chan struct{}, opts.BufferSize),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. It returns once the directory is registered;
// reloads happen on background goroutines until ctx is done or Stop is
// called. A done ctx stops the watcher as Stop would.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	go w.processEvents(ctx)
	go w.debounceLoop(ctx)
	return nil
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

// IsWatching reports whether the watcher is active.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

// Reloads returns how many reloads have been attempted.
func (w *Watcher) Reloads() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.reloads
}

// processEvents forwards events for the scenario file to the debouncer.
func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			select {
			case w.events <- struct{}{}:
			default:
				// A reload is already pending.
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("scenario watch error", slog.String("error", err.Error()))
		}
	}
}

// debounceLoop reloads once the debounce window passes without events.
func (w *Watcher) debounceLoop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			stopTimer()
			return
		case <-w.done:
			stopTimer()
			return
		case <-w.events:
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			stopTimer()
			w.reload()
		}
	}
}

// reload loads the file and hands the result to the handler.
func (w *Watcher) reload() {
	s, err := Load(w.path)

	w.mu.Lock()
	w.reloads++
	handler := w.handler
	w.mu.Unlock()

	if err != nil {
		w.logger.Warn("scenario reload failed", slog.String("error", err.Error()))
	} else {
		w.logger.Info("scenario reloaded",
			slog.Int("nodes", s.Graph.NodeCount()),
			slog.Int("edges", s.Graph.EdgeCount()),
		)
	}
	if handler != nil {
		handler(s, err)
	}
}

// SetHandler changes the reload handler.
func (w *Watcher) SetHandler(handler ReloadHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handler = handler
}
