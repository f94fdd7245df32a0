package server

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/inkpress/scribe/internal/logfields"
)

// watcher triggers debounced rebuilds when Markdown sources change. Rapid
// event bursts (editors write, rename, and chmod in quick succession)
// collapse into one rebuild.
type watcher struct {
	dir      string
	debounce time.Duration
	rebuild  RebuildFunc

	fsw     *fsnotify.Watcher
	trigger chan struct{}
	stopCh  chan struct{}
}

func newWatcher(dir string, debounce time.Duration, rebuild RebuildFunc) *watcher {
	return &watcher{
		dir:      dir,
		debounce: debounce,
		rebuild:  rebuild,
		trigger:  make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
}

func (w *watcher) start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.fsw = fsw

	go w.watchLoop(ctx)
	go w.rebuildLoop(ctx)
	return nil
}

func (w *watcher) stop() {
	close(w.stopCh)
	if w.fsw != nil {
		_ = w.fsw.Close()
	}
}

func (w *watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			slog.Debug("Source change detected", logfields.Path(event.Name))
			select {
			case w.trigger <- struct{}{}:
			default: // rebuild already pending
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", logfields.Error(err))
		}
	}
}

func (w *watcher) rebuildLoop(ctx context.Context) {
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.trigger:
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				slog.Info("Rebuilding after source change")
				if err := w.rebuild(ctx); err != nil {
					slog.Error("Rebuild failed", logfields.Error(err))
				}
			})
		}
	}
}

// relevant filters the event stream down to Markdown content changes,
// skipping editor temp and hidden files.
func relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, ".swp") || strings.HasSuffix(name, ".tmp") {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), ".md")
}
