package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads filter settings when the settings file changes.
type Watcher struct {
	path     string
	apply    func(FilterSettings) error
	log      *slog.Logger
	debounce time.Duration

	watcher *fsnotify.Watcher
	reload  chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// NewWatcher watches path and passes every successfully parsed revision to
// apply. Invalid revisions are logged and skipped.
func NewWatcher(path string, apply func(FilterSettings) error, log *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve settings path: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	return &Watcher{
		path:     abs,
		apply:    apply,
		log:      log,
		debounce: 500 * time.Millisecond,
		watcher:  fw,
		reload:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// Start watches the settings directory. Editors often replace files rather
// than write them, so the directory is watched instead of the file.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.log.Info("watching settings", "path", w.path)

	w.wg.Add(2)
	go w.watchLoop(ctx)
	go w.reloadLoop(ctx)
	return nil
}

// Stop ends watching and waits for the loops to exit.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		close(w.done)
		if err := w.watcher.Close(); err != nil {
			w.log.Error("close settings watcher", "error", err)
		}
	})
	w.wg.Wait()
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer w.wg.Done()
	name := filepath.Base(w.path)

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
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Remove) {
				w.log.Warn("settings file removed", "path", event.Name)
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				select {
				case w.reload <- struct{}{}:
				default:
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("settings watcher", "error", err)
		}
	}
}

func (w *Watcher) reloadLoop(ctx context.Context) {
	defer w.wg.Done()
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-w.reload:
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.reloadNow()
		}
	}
}

func (w *Watcher) reloadNow() {
	s, err := LoadFilterSettings(w.path)
	if err != nil {
		w.log.Error("reload settings", "path", w.path, "error", err)
		return
	}
	if err := w.apply(s); err != nil {
		w.log.Error("apply settings", "path", w.path, "error", err)
		return
	}
	w.log.Info("settings reloaded", "path", w.path, "plugins", len(s.Plugins))
}
