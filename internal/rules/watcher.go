package rules

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bkoehler/netverdict/internal/logging"
)

// ReloadCallback is called with every successfully loaded rule set: once at
// startup and again after each valid file change. A callback error at
// startup aborts the watcher; during reloads it is logged and watching
// continues with the previous rule set.
type ReloadCallback func(rs *RuleSet, report *Report) error

// WatcherConfig holds configuration for the rule-set file watcher.
type WatcherConfig struct {
	// FilePath is the rule-set YAML file to watch.
	FilePath string

	// DebounceMillis coalesces bursts of file change events (editor save
	// sequences) into a single reload. Default: 500ms.
	DebounceMillis int
}

// Watcher watches the rule-set file and triggers reload callbacks with
// debouncing. Invalid documents during reload are logged but never crash
// the watcher; the previous valid rule set stays in effect.
type Watcher struct {
	config   WatcherConfig
	callback ReloadCallback
	logger   *logging.Logger
	cancel   context.CancelFunc
	stopped  chan struct{}
	ready    chan struct{}
	mu       sync.Mutex

	debounceTimer *time.Timer
}

// NewWatcher creates a watcher for the given rule-set file.
func NewWatcher(config WatcherConfig, callback ReloadCallback) (*Watcher, error) {
	if config.FilePath == "" {
		return nil, fmt.Errorf("FilePath cannot be empty")
	}
	if callback == nil {
		return nil, fmt.Errorf("callback cannot be nil")
	}
	if config.DebounceMillis == 0 {
		config.DebounceMillis = 500
	}
	return &Watcher{
		config:   config,
		callback: callback,
		logger:   logging.GetLogger("rules.watcher"),
		stopped:  make(chan struct{}),
		ready:    make(chan struct{}),
	}, nil
}

// Start loads the initial rule set, invokes the callback, and begins
// watching for changes in a background goroutine. It returns once the
// file watch is established.
func (w *Watcher) Start(ctx context.Context) error {
	rs, report, err := Load(w.config.FilePath)
	if err != nil {
		return fmt.Errorf("failed to load initial rule set: %w", err)
	}
	if err := w.callback(rs, report); err != nil {
		return fmt.Errorf("initial rule set callback failed: %w", err)
	}
	w.logger.Info("loaded initial rule set from %s", w.config.FilePath)

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	go w.watchLoop(watchCtx)

	select {
	case <-w.ready:
		return nil
	case <-watchCtx.Done():
		return watchCtx.Err()
	}
}

// Stop cancels the watch loop and waits for it to exit.
func (w *Watcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-w.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Name implements lifecycle.Component.
func (w *Watcher) Name() string {
	return "rules.watcher"
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer close(w.stopped)

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.ErrorWithErr("failed to create fsnotify watcher", err)
		close(w.ready)
		return
	}
	defer fsWatcher.Close()

	// Watch the directory, not the file: editors replace files on save and
	// the inode-level watch would be lost.
	dir := filepath.Dir(w.config.FilePath)
	if err := fsWatcher.Add(dir); err != nil {
		w.logger.ErrorWithErr("failed to watch rule set directory", err)
		close(w.ready)
		return
	}
	close(w.ready)

	target := filepath.Clean(w.config.FilePath)
	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.debounceTimer != nil {
				w.debounceTimer.Stop()
			}
			w.mu.Unlock()
			return
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.ErrorWithErr("fsnotify error", err)
		}
	}
}

// scheduleReload (re)arms the debounce timer so a burst of change events
// produces one reload.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(time.Duration(w.config.DebounceMillis)*time.Millisecond, w.reload)
}

func (w *Watcher) reload() {
	rs, report, err := Load(w.config.FilePath)
	if err != nil {
		w.logger.ErrorWithErr("rule set reload failed, keeping previous rule set", err)
		return
	}
	for _, warning := range report.Warnings {
		w.logger.Warn("rule set warning: %s", warning)
	}
	if err := w.callback(rs, report); err != nil {
		w.logger.ErrorWithErr("rule set reload callback failed", err)
		return
	}
	w.logger.Info("reloaded rule set from %s", w.config.FilePath)
}
