package watcher

import (
	"sync"
	"time"
)

// Debounced wraps a Watcher and coalesces rapid changes to the same path
// into one event. A burst of writes during a save therefore reaches the
// indexing pipeline as a single trigger per file.
type Debounced struct {
	inner Watcher
	delay time.Duration

	mu       sync.Mutex
	pending  map[string]*pendingEvent
	events   chan Event
	errors   chan error
	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

var _ Watcher = (*Debounced)(nil)

// pendingEvent tracks a coalescing window for one path.
type pendingEvent struct {
	event Event
	timer *time.Timer
}

// NewDebounced wraps a watcher with per-path debouncing. Operations on the
// same path within the delay window merge into one event; each new change
// resets the window.
func NewDebounced(inner Watcher, delay time.Duration) *Debounced {
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	d := &Debounced{
		inner:   inner,
		delay:   delay,
		pending: make(map[string]*pendingEvent),
		events:  make(chan Event, 100),
		errors:  make(chan error, 100),
		closeCh: make(chan struct{}),
	}

	d.closedWg.Add(1)
	go d.processLoop()

	return d
}

// WatchRecursive starts watching a directory recursively.
func (d *Debounced) WatchRecursive(path string) error {
	return d.inner.WatchRecursive(path)
}

// Events returns the debounced event channel.
func (d *Debounced) Events() <-chan Event {
	return d.events
}

// Errors returns the error channel.
func (d *Debounced) Errors() <-chan error {
	return d.errors
}

// Close stops the debounced watcher and its inner watcher.
func (d *Debounced) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.closeCh)
	for path, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, path)
	}
	d.mu.Unlock()

	d.closedWg.Wait()
	close(d.events)
	close(d.errors)

	return d.inner.Close()
}

// Flush immediately fires all pending events. Used in tests.
func (d *Debounced) Flush() {
	d.mu.Lock()
	paths := make([]string, 0, len(d.pending))
	for path, p := range d.pending {
		p.timer.Stop()
		paths = append(paths, path)
	}
	d.mu.Unlock()

	for _, path := range paths {
		d.fire(path)
	}
}

// PendingCount returns the number of paths in a coalescing window.
func (d *Debounced) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// processLoop consumes the inner watcher until closed.
func (d *Debounced) processLoop() {
	defer d.closedWg.Done()

	for {
		select {
		case <-d.closeCh:
			return

		case event, ok := <-d.inner.Events():
			if !ok {
				return
			}
			d.handleEvent(event)

		case err, ok := <-d.inner.Errors():
			if !ok {
				return
			}
			d.forwardError(err)
		}
	}
}

// handleEvent opens or extends the coalescing window for the event's path.
func (d *Debounced) handleEvent(event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	if p, exists := d.pending[event.Path]; exists {
		p.event.Op |= event.Op
		p.event.Timestamp = event.Timestamp
		p.timer.Reset(d.delay)
		return
	}

	p := &pendingEvent{event: event}
	p.timer = time.AfterFunc(d.delay, func() {
		d.fire(event.Path)
	})
	d.pending[event.Path] = p
}

// fire delivers a pending event and clears its window.
func (d *Debounced) fire(path string) {
	d.mu.Lock()
	p, exists := d.pending[path]
	if !exists {
		d.mu.Unlock()
		return
	}
	delete(d.pending, path)
	event := p.event
	d.mu.Unlock()

	select {
	case d.events <- event:
	case <-d.closeCh:
	default:
	}
}

// forwardError passes an inner watcher error through.
func (d *Debounced) forwardError(err error) {
	select {
	case d.errors <- err:
	case <-d.closeCh:
	default:
	}
}
