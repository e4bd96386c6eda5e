package system

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"automata/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// ConfigWatcher watches the config file and calls onChange once a burst of
// writes has settled. It watches the parent directory so editors that save
// by rename are still seen.
type ConfigWatcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	path        string
	onChange    func()
	debounceDur time.Duration
	pending     time.Time
	running     bool
	stopCh      chan struct{}
	doneCh      chan struct{}

	stats WatcherStats
}

// WatcherStats counts watcher activity.
type WatcherStats struct {
	Events   int
	Reloads  int
	Errors   int
	LastPath string
	LastOp   string
}

// NewConfigWatcher creates a watcher for path. debounce <= 0 uses 500ms.
func NewConfigWatcher(path string, debounce time.Duration, onChange func()) (*ConfigWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		abs = filepath.Join(dir, filepath.Base(abs))
	}
	return &ConfigWatcher{
		watcher:     w,
		path:        abs,
		onChange:    onChange,
		debounceDur: debounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking.
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	cw.mu.Lock()
	if cw.running {
		cw.mu.Unlock()
		return nil
	}
	cw.running = true
	cw.mu.Unlock()

	dir := filepath.Dir(cw.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logging.ConfigWarn("config watcher: failed to create %s: %v (continuing anyway)", dir, err)
	}
	if err := cw.watcher.Add(dir); err != nil {
		cw.mu.Lock()
		cw.running = false
		cw.mu.Unlock()
		return err
	}
	logging.Config("config watcher: watching %s", cw.path)

	go cw.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine.
func (cw *ConfigWatcher) Stop() {
	cw.mu.Lock()
	running := cw.running
	cw.running = false
	cw.mu.Unlock()

	if running {
		close(cw.stopCh)
		<-cw.doneCh
	}
	if err := cw.watcher.Close(); err != nil {
		logging.ConfigError("config watcher: error closing watcher: %v", err)
	}
}

// Stats returns a copy of the counters.
func (cw *ConfigWatcher) Stats() WatcherStats {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.stats
}

func (cw *ConfigWatcher) run(ctx context.Context) {
	defer close(cw.doneCh)

	debounceTicker := time.NewTicker(100 * time.Millisecond)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-cw.stopCh:
			return

		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			cw.handleEvent(event)

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			logging.ConfigError("config watcher error: %v", err)
			cw.mu.Lock()
			cw.stats.Errors++
			cw.mu.Unlock()

		case <-debounceTicker.C:
			cw.processDebounced()
		}
	}
}

func (cw *ConfigWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != cw.path {
		return
	}
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Rename) {
		return
	}

	logging.Get(logging.CategoryConfig).Debug("config watcher: %s %s", event.Op, event.Name)
	cw.mu.Lock()
	cw.stats.Events++
	cw.stats.LastPath = event.Name
	cw.stats.LastOp = event.Op.String()
	cw.pending = time.Now()
	cw.mu.Unlock()
}

// processDebounced fires onChange once the last event is older than the
// debounce window.
func (cw *ConfigWatcher) processDebounced() {
	cw.mu.Lock()
	if cw.pending.IsZero() || time.Since(cw.pending) < cw.debounceDur {
		cw.mu.Unlock()
		return
	}
	cw.pending = time.Time{}
	cw.stats.Reloads++
	cw.mu.Unlock()

	if _, err := os.Stat(cw.path); err != nil {
		logging.ConfigWarn("config watcher: %s is gone, keeping current configuration", cw.path)
		return
	}
	logging.Config("config watcher: %s changed", cw.path)
	cw.onChange()
}
