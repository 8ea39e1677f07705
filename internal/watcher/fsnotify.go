package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FSWatcher implements Watcher using fsnotify. It watches directories only;
// fsnotify reports changes to files inside watched directories, and newly
// created directories are added to the watch set as they appear.
type FSWatcher struct {
	mu sync.Mutex

	watcher *fsnotify.Watcher
	config  Config
	dirs    map[string]bool

	events chan Event
	errors chan error

	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

var _ Watcher = (*FSWatcher)(nil)

// NewFSWatcher creates an fsnotify-based watcher.
func NewFSWatcher(config Config) (*FSWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	bufSize := config.BufferSize
	if bufSize <= 0 {
		bufSize = 100
	}

	w := &FSWatcher{
		watcher: fsw,
		config:  config,
		dirs:    make(map[string]bool),
		events:  make(chan Event, bufSize),
		errors:  make(chan error, bufSize),
		closeCh: make(chan struct{}),
	}

	w.closedWg.Add(1)
	go w.processLoop()

	return w, nil
}

// WatchRecursive watches a directory and all subdirectories.
func (w *FSWatcher) WatchRecursive(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(absPath); err != nil {
		if os.IsNotExist(err) {
			return ErrPathNotExist
		}
		return err
	}

	return filepath.WalkDir(absPath, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.skipDir(p) {
			return filepath.SkipDir
		}
		if addErr := w.addDir(p); addErr != nil {
			w.sendError(addErr)
		}
		return nil
	})
}

// Events returns the event channel.
func (w *FSWatcher) Events() <-chan Event {
	return w.events
}

// Errors returns the error channel.
func (w *FSWatcher) Errors() <-chan error {
	return w.errors
}

// Close stops the watcher.
func (w *FSWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.closedWg.Wait()
	close(w.events)
	close(w.errors)

	return w.watcher.Close()
}

// addDir registers one directory with fsnotify.
func (w *FSWatcher) addDir(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if w.dirs[path] {
		return nil
	}
	if err := w.watcher.Add(path); err != nil {
		return err
	}
	w.dirs[path] = true
	return nil
}

// processLoop converts fsnotify events until the watcher is closed.
func (w *FSWatcher) processLoop() {
	defer w.closedWg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case fsEvent, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(fsEvent)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.sendError(err)
		}
	}
}

// handleFSEvent converts and dispatches one fsnotify event.
func (w *FSWatcher) handleFSEvent(fsEvent fsnotify.Event) {
	op := convertOp(fsEvent.Op)
	if op == 0 {
		return
	}
	if w.skipDir(filepath.Dir(fsEvent.Name)) {
		return
	}

	w.sendEvent(Event{
		Path:      fsEvent.Name,
		Op:        op,
		Timestamp: time.Now(),
	})

	// New directories join the watch set so changes inside them surface.
	if op.Has(OpCreate) {
		info, err := os.Stat(fsEvent.Name)
		if err == nil && info.IsDir() && !w.skipDir(fsEvent.Name) {
			if addErr := w.addDir(fsEvent.Name); addErr != nil && addErr != ErrWatcherClosed {
				w.sendError(addErr)
			}
		}
	}
}

// convertOp converts fsnotify.Op, dropping chmod-only noise.
func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	return op
}

// skipDir applies the configured directory filter.
func (w *FSWatcher) skipDir(path string) bool {
	return w.config.SkipDir != nil && w.config.SkipDir(path)
}

// sendEvent sends an event, dropping it if the channel is full.
func (w *FSWatcher) sendEvent(event Event) {
	select {
	case w.events <- event:
	default:
	}
}

// sendError sends an error, dropping it if the channel is full.
func (w *FSWatcher) sendError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}
