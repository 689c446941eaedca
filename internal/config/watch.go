package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 100 * time.Millisecond

// FileWatcher watches the profile directory and reports which profiles
// changed, once per debounce window.
type FileWatcher struct {
	dir      string
	debounce time.Duration
	onChange func(profiles []string) // sorted, "default" means all profiles

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	done    chan struct{}

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	running bool
	stopped bool
}

// NewFileWatcher watches the generators directory of paths. The directory is
// watched rather than the files since editors often replace a file on save.
func NewFileWatcher(paths Paths, debounce time.Duration, onChange func([]string)) (*FileWatcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	dir := paths.Dir()
	if err := fsw.Add(dir); err != nil {
		return nil, errors.Join(fmt.Errorf("watch %s: %w", dir, err), fsw.Close())
	}
	return &FileWatcher{
		dir:      dir,
		debounce: debounce,
		onChange: onChange,
		watcher:  fsw,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
		pending:  make(map[string]struct{}),
	}, nil
}

// Start begins watching in a goroutine.
func (w *FileWatcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running || w.stopped {
		return
	}
	w.running = true
	go w.run()
}

// Stop terminates the watcher and waits for its goroutine. A pending
// debounced callback is dropped.
func (w *FileWatcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	running := w.running
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	close(w.stopCh)
	w.mu.Unlock()

	err := w.watcher.Close()
	if running {
		<-w.done
	}
	return err
}

func (w *FileWatcher) run() {
	defer close(w.done)
	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warnf("Config watch error on %s: %v", w.dir, err)
		}
	}
}

func (w *FileWatcher) handleEvent(ev fsnotify.Event) {
	name := filepath.Base(ev.Name)
	if filepath.Ext(name) != ".yaml" {
		return
	}
	// Write: in-place edit; Create/Rename: atomic replace; Remove: profile gone
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
		!ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.pending[strings.TrimSuffix(name, ".yaml")] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *FileWatcher) fire() {
	w.mu.Lock()
	if w.stopped || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	profiles := make([]string, 0, len(w.pending))
	for p := range w.pending {
		profiles = append(profiles, p)
	}
	w.pending = make(map[string]struct{})
	w.timer = nil
	w.mu.Unlock()

	sort.Strings(profiles)
	log.Debugf("Config changed: %s", strings.Join(profiles, ", "))
	if w.onChange != nil {
		w.onChange(profiles)
	}
}
