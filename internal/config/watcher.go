package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher holds the most recently loaded Config and reloads it from the
// backing YAML file whenever that file changes, so operator edits to
// sources[] and exclude.* are picked up without restarting the worker
// pool or the batch executor.
//
// Grounded on internal/discovery.ExclusionWatcher's fsnotify-on-one-file
// pattern, generalized to reload the whole Config rather than one
// embedded section.
type Watcher struct {
	path   string
	logger *zap.Logger

	mu      sync.RWMutex
	current *Config

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher loads configPath once via LoadWithFile and starts watching
// it for changes.
func NewWatcher(configPath string, logger *zap.Logger) (*Watcher, error) {
	w := &Watcher{path: configPath, logger: logger, done: make(chan struct{})}

	if err := w.reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	w.watcher = watcher

	go w.run()
	return w, nil
}

// Current returns the most recently loaded Config.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Close stops the filesystem watch.
func (w *Watcher) Close() error {
	select {
	case <-w.done:
		return nil
	default:
		close(w.done)
		return w.watcher.Close()
	}
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := w.reload(); err != nil && w.logger != nil {
				w.logger.Warn("failed to reload config", zap.String("path", w.path), zap.Error(err))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Warn("config watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) reload() error {
	cfg, err := LoadWithFile(w.path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()
	if w.logger != nil {
		w.logger.Info("reloaded config", zap.String("path", w.path), zap.Int("sources", len(cfg.Sources)))
	}
	return nil
}
