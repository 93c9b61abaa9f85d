package config

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher reloads configuration when files in the loader's directory change
// and notifies subscribers. Intended for development.
type Watcher struct {
	loader    *Loader
	logger    *zap.Logger
	debounce  time.Duration
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher seeded with the current configuration.
func NewWatcher(loader *Loader, initial *Config, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		loader:   loader,
		logger:   logger,
		debounce: defaultDebounce,
		config:   initial,
	}
}

// OnChange registers a callback run after each successful reload.
func (w *Watcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Current returns the latest loaded configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Start begins watching the configuration directory.
func (w *Watcher) Start() error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsWatcher.Add(w.loader.BasePath()); err != nil {
		fsWatcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.loader.BasePath(), err)
	}

	w.watcher = fsWatcher
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go w.watchLoop()

	w.logger.Info("Configuration hot reloading enabled",
		zap.String("dir", w.loader.BasePath()),
	)
	return nil
}

// Stop ends watching and waits for the loop to exit.
func (w *Watcher) Stop() {
	if w.stopCh == nil {
		return
	}
	close(w.stopCh)
	<-w.doneCh
	w.stopCh = nil
}

func (w *Watcher) watchLoop() {
	defer close(w.doneCh)
	defer w.watcher.Close()

	// Debounce timer to avoid multiple rapid reloads
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 || !isConfigFile(event.Name) {
				continue
			}
			w.logger.Info("Configuration file changed",
				zap.String("file", event.Name),
				zap.String("operation", event.Op.String()),
			)
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, w.Reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			w.logger.Info("Stopping configuration watcher")
			return
		}
	}
}

// Reload loads the configuration again and notifies subscribers when it
// changed. An invalid configuration is logged and ignored.
func (w *Watcher) Reload() {
	next, sources, err := w.loader.Load()
	if err != nil {
		w.logger.Error("Invalid configuration after reload", zap.Error(err))
		return
	}

	w.mu.Lock()
	if reflect.DeepEqual(w.config, next) {
		w.mu.Unlock()
		w.logger.Debug("Configuration unchanged after reload")
		return
	}
	w.config = next
	callbacks := append([]func(*Config){}, w.callbacks...)
	w.mu.Unlock()

	for _, cb := range callbacks {
		cb(next)
	}

	w.logger.Info("Configuration reloaded",
		zap.Strings("sources", sources),
		zap.Int("callbacks_notified", len(callbacks)),
	)
}
