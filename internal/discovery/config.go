package discovery

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ExclusionConfig filters out documents by aspect or path glob,
// independent of the per-root type/mimeType filters a caller supplies.
type ExclusionConfig struct {
	Aspects []string `json:"aspects" yaml:"aspects"`
	Paths   []string `json:"paths" yaml:"paths"`
}

func (c ExclusionConfig) hasAspect(aspectNames []string) bool {
	if len(c.Aspects) == 0 {
		return false
	}
	excluded := make(map[string]bool, len(c.Aspects))
	for _, a := range c.Aspects {
		excluded[a] = true
	}
	for _, a := range aspectNames {
		if excluded[a] {
			return true
		}
	}
	return false
}

func (c ExclusionConfig) matchesPath(name string) bool {
	for _, glob := range c.Paths {
		if globMatch(glob, name) {
			return true
		}
	}
	return false
}

func globMatch(glob, name string) bool {
	pattern := "^" + regexp.QuoteMeta(glob) + "$"
	pattern = strings.ReplaceAll(pattern, regexp.QuoteMeta("*"), ".*")
	matched, err := regexp.MatchString(pattern, name)
	return err == nil && matched
}

// ExclusionWatcher holds the current ExclusionConfig and reloads it from
// disk whenever the backing file changes, so a long-running ingestion
// daemon picks up operator edits between batch runs without a restart.
type ExclusionWatcher struct {
	path   string
	logger *zap.Logger

	mu      sync.RWMutex
	current ExclusionConfig

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewExclusionWatcher loads path once and starts watching it for
// changes. If path is empty, it returns a watcher with an always-empty
// ExclusionConfig and no filesystem watch.
func NewExclusionWatcher(path string, logger *zap.Logger) (*ExclusionWatcher, error) {
	w := &ExclusionWatcher{path: path, logger: logger, done: make(chan struct{})}
	if path == "" {
		return w, nil
	}

	if err := w.reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	w.watcher = watcher

	go w.run()
	return w, nil
}

// Current returns the most recently loaded ExclusionConfig.
func (w *ExclusionWatcher) Current() ExclusionConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Close stops the filesystem watch.
func (w *ExclusionWatcher) Close() error {
	if w.watcher == nil {
		return nil
	}
	select {
	case <-w.done:
		return nil
	default:
		close(w.done)
		return w.watcher.Close()
	}
}

func (w *ExclusionWatcher) run() {
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
				w.logger.Warn("failed to reload exclusion config", zap.String("path", w.path), zap.Error(err))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Warn("exclusion config watcher error", zap.Error(err))
			}
		}
	}
}

func (w *ExclusionWatcher) reload() error {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return err
	}
	var cfg ExclusionConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return err
	}
	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()
	if w.logger != nil {
		w.logger.Info("reloaded discovery exclusion config", zap.Int("aspects", len(cfg.Aspects)), zap.Int("paths", len(cfg.Paths)))
	}
	return nil
}
