package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits after the last write before reloading.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a config file and reloads it on change.
// Only configurations that load and validate are handed to the callback.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(*Config)
	onError  func(error)
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	rewatch  bool // guarded by mu
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewWatcher starts watching path. onError may be nil.
func NewWatcher(path string, onChange func(*Config), onError func(error)) (*Watcher, error) {
	return newWatcher(path, DefaultDebounce, onChange, onError)
}

func newWatcher(path string, debounce time.Duration, onChange func(*Config), onError func(error)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	if err := w.Add(path); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching config file: %w", err)
	}

	if onError == nil {
		onError = func(error) {}
	}

	cw := &Watcher{
		path:     path,
		debounce: debounce,
		onChange: onChange,
		onError:  onError,
		watcher:  w,
		stopCh:   make(chan struct{}),
	}

	go cw.run()
	return cw, nil
}

func (cw *Watcher) run() {
	var debounce *time.Timer
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			// Atomic saves replace the file, which drops the watch on it.
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				cw.mu.Lock()
				cw.rewatch = true
				cw.mu.Unlock()
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(cw.debounce, cw.reload)
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.onError(fmt.Errorf("config watcher: %w", err))
		case <-cw.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return
		}
	}
}

func (cw *Watcher) reload() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	select {
	case <-cw.stopCh:
		return
	default:
	}

	if cw.rewatch {
		_ = cw.watcher.Remove(cw.path)
		if err := cw.watcher.Add(cw.path); err != nil {
			// The replacement may not exist yet; try again later.
			cw.onError(fmt.Errorf("re-watching config file: %w", err))
			time.AfterFunc(cw.debounce, cw.reload)
			return
		}
		cw.rewatch = false
	}

	cfg, err := Load(cw.path)
	if err != nil {
		cw.onError(fmt.Errorf("hot-reload failed: %w", err))
		return
	}
	if err := cfg.Validate(); err != nil {
		cw.onError(fmt.Errorf("hot-reload rejected: %w", err))
		return
	}

	cw.onChange(cfg)
}

// Stop stops the config watcher. It is safe to call more than once.
func (cw *Watcher) Stop() error {
	var err error
	cw.stopOnce.Do(func() {
		close(cw.stopCh)
		err = cw.watcher.Close()
	})
	return err
}
