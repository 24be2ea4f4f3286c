package config

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	log "github.com/stashyhq/stashy/internal/logging"
)

// Watcher re-reads the config file when it changes on disk and invokes
// the registered callback with the freshly loaded config. Writes are
// debounced because editors and orchestrators often emit several events
// for one save.
type Watcher struct {
	path     string
	onChange func(*Config)

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	pending *time.Timer
	closed  bool
}

const watchDebounce = 250 * time.Millisecond

// NewWatcher starts watching path. onChange runs on the watcher's
// goroutine; it must not block for long.
func NewWatcher(path string, onChange func(*Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &Watcher{path: path, onChange: onChange, fsw: fsw}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("config watcher error")
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(watchDebounce, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path, true)
	if err != nil {
		log.WithError(err).Warn("config reload failed, keeping previous config")
		return
	}
	log.Infof("config reloaded from %s", w.path)
	w.onChange(cfg)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	if w.pending != nil {
		w.pending.Stop()
	}
	w.mu.Unlock()
	return w.fsw.Close()
}
