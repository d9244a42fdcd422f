package parser

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceDelay coalesces the rapid write bursts editors emit
// when saving a file.
const DefaultDebounceDelay = 200 * time.Millisecond

// Watcher watches a modules directory and reports which definition
// files changed, debounced per file. Used by `compass validate
// --watch` to re-lint definitions as they are authored.
type Watcher struct {
	watcher *fsnotify.Watcher
	changes chan string
	errors  chan error
	done    chan struct{}

	mu          sync.Mutex
	debounce    time.Duration
	debounceMap map[string]*time.Timer
	closed      bool
}

// NewWatcher starts watching dir for YAML module definition changes.
func NewWatcher(dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher:     fsw,
		changes:     make(chan string, 16),
		errors:      make(chan error, 1),
		done:        make(chan struct{}),
		debounce:    DefaultDebounceDelay,
		debounceMap: make(map[string]*time.Timer),
	}
	go w.loop()
	return w, nil
}

// Changes delivers the path of each changed module file.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

// Errors delivers watcher failures.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Close stops the watcher and releases its resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for _, timer := range w.debounceMap {
		timer.Stop()
	}
	w.mu.Unlock()

	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isModuleFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleNotify(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

// scheduleNotify resets the per-file debounce timer so one change is
// reported per save burst.
func (w *Watcher) scheduleNotify(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	if timer, ok := w.debounceMap[path]; ok {
		timer.Stop()
	}
	w.debounceMap[path] = time.AfterFunc(w.debounce, func() {
		select {
		case w.changes <- path:
		case <-w.done:
		}
	})
}

func isModuleFile(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
