// Package refresh serializes rebuilds of the section and token indices.
//
// The coordinator is the only write-side entry point: every rebuild runs
// inside its guarded section, so readers never observe a half-cleared index.
// Near-simultaneous triggers are queued and deduplicated rather than run
// concurrently, and the refreshing state is released on every exit path,
// including panics, so the system cannot wedge in a stuck-refreshing state.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// State is the coordinator lifecycle state.
type State int32

const (
	// StateIdle means no refresh is in flight.
	StateIdle State = iota

	// StateRefreshing means a refresh cycle is running.
	StateRefreshing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRefreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// Indexer is the write-side surface the coordinator drives.
// The application service implements it by gluing the section index, the
// token index and workspace enumeration together.
type Indexer interface {
	// RescanDefinitions rescans every configuration file and reports whether
	// the identifier set or any definition changed.
	RescanDefinitions() (changed bool, err error)

	// InvalidateTokens discards the whole token index.
	InvalidateTokens(reason string)

	// RebuildFileTokens rescans one file against the current identifier set.
	RebuildFileTokens(path string) (changed bool, err error)

	// ScannableFiles lists every file eligible for token scanning.
	ScannableFiles() ([]string, error)
}

// EventType indicates the type of refresh event.
type EventType int

const (
	// EventStarted is emitted when a cycle begins.
	EventStarted EventType = iota

	// EventProgress is emitted at coarse milestones within a cycle.
	EventProgress

	// EventCompleted is emitted when a cycle finishes.
	EventCompleted

	// EventFailed is emitted when a cycle aborts.
	EventFailed
)

// Event reports refresh lifecycle progress.
type Event struct {
	Type    EventType
	CycleID string
	Reason  string
	Path    string // single-file cycles only
	Percent int
	Stage   string
	Err     error
}

// requestKind distinguishes queued trigger types.
type requestKind int

const (
	requestFull requestKind = iota
	requestFile
)

// request is a queued refresh trigger.
type request struct {
	kind   requestKind
	reason string
	path   string
}

// Coordinator serializes index rebuilds.
type Coordinator struct {
	mu sync.Mutex

	state      State
	queue      []request
	fullQueued bool
	fileQueued map[string]bool
	idleCh     chan struct{} // closed whenever state is idle

	indexer Indexer
	logger  *slog.Logger

	hmu      sync.RWMutex
	handlers []func(Event)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// New creates an idle coordinator over the given indexer.
func New(indexer Indexer, opts ...Option) *Coordinator {
	idle := make(chan struct{})
	close(idle)

	c := &Coordinator{
		state:      StateIdle,
		fileQueued: make(map[string]bool),
		idleCh:     idle,
		indexer:    indexer,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current coordinator state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnEvent registers a progress event handler.
func (c *Coordinator) OnEvent(handler func(Event)) {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	c.handlers = append(c.handlers, handler)
}

// RefreshAll triggers a full refresh: definitions first, then a token
// rebuild if the identifier set changed. If a refresh is in flight the
// request is queued; repeated full requests collapse into one.
func (c *Coordinator) RefreshAll(reason string) {
	c.trigger(request{kind: requestFull, reason: reason})
}

// RefreshFile triggers a single-file token update for a non-definition-file
// edit. If a refresh is in flight the request is queued; queued requests for
// the same path collapse into one.
func (c *Coordinator) RefreshFile(path string) {
	c.trigger(request{kind: requestFile, reason: "file-change", path: path})
}

// AwaitIdle blocks until any in-flight refresh (and its drained queue)
// completes. Consumers that must read a consistent index snapshot call this
// before reading.
func (c *Coordinator) AwaitIdle(ctx context.Context) error {
	for {
		c.mu.Lock()
		ch := c.idleCh
		c.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}

		c.mu.Lock()
		idle := c.state == StateIdle
		c.mu.Unlock()
		if idle {
			return nil
		}
	}
}

// trigger either starts a cycle or enqueues the request.
func (c *Coordinator) trigger(req request) {
	c.mu.Lock()
	if c.state == StateRefreshing {
		c.enqueueLocked(req)
		c.mu.Unlock()
		return
	}
	c.state = StateRefreshing
	c.idleCh = make(chan struct{})
	c.mu.Unlock()

	c.run(req)
}

// enqueueLocked adds a request to the queue, deduplicating by kind and path.
func (c *Coordinator) enqueueLocked(req request) {
	switch req.kind {
	case requestFull:
		if c.fullQueued {
			return
		}
		c.fullQueued = true
	case requestFile:
		if c.fileQueued[req.path] {
			return
		}
		c.fileQueued[req.path] = true
	}
	c.queue = append(c.queue, req)
}

// run executes the request and drains the queue, then releases the
// refreshing state. Cycles run to completion; they are not cancellable.
func (c *Coordinator) run(req request) {
	for {
		c.runCycle(req)

		next, ok := c.finish()
		if !ok {
			return
		}
		req = next
	}
}

// finish pops the next queued request or transitions to idle.
func (c *Coordinator) finish() (request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue) > 0 {
		req := c.queue[0]
		c.queue = c.queue[1:]
		switch req.kind {
		case requestFull:
			c.fullQueued = false
		case requestFile:
			delete(c.fileQueued, req.path)
		}
		return req, true
	}

	c.state = StateIdle
	close(c.idleCh)
	return request{}, false
}

// runCycle executes one refresh cycle. A panic aborts only this cycle; the
// previously committed index state is left in place and the failure is
// surfaced through the event handlers.
func (c *Coordinator) runCycle(req request) {
	cycleID := uuid.NewString()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("refresh cycle aborted: %v", r)
			c.logger.Error("refresh panic", "cycle", cycleID, "error", err)
			c.emit(Event{Type: EventFailed, CycleID: cycleID, Reason: req.reason, Path: req.path, Err: err})
		}
	}()

	switch req.kind {
	case requestFull:
		c.runFull(cycleID, req.reason)
	case requestFile:
		c.runFile(cycleID, req)
	}
}

// runFull rescans definitions and, when they changed, rebuilds tokens for
// every scannable file.
func (c *Coordinator) runFull(cycleID, reason string) {
	c.emit(Event{Type: EventStarted, CycleID: cycleID, Reason: reason, Percent: 0, Stage: "scanning definitions"})

	changed, err := c.indexer.RescanDefinitions()
	if err != nil {
		c.emit(Event{Type: EventFailed, CycleID: cycleID, Reason: reason, Err: err})
		return
	}

	c.emit(Event{Type: EventProgress, CycleID: cycleID, Reason: reason, Percent: 50, Stage: "definitions parsed"})

	stage := "definitions unchanged"
	if changed {
		c.indexer.InvalidateTokens(reason)

		files, err := c.indexer.ScannableFiles()
		if err != nil {
			c.emit(Event{Type: EventFailed, CycleID: cycleID, Reason: reason, Err: err})
			return
		}
		for _, path := range files {
			if _, err := c.indexer.RebuildFileTokens(path); err != nil {
				c.logger.Warn("skipping file during token rebuild", "cycle", cycleID, "path", path, "error", err)
			}
		}
		stage = "tokens rebuilt"
	}

	c.emit(Event{Type: EventCompleted, CycleID: cycleID, Reason: reason, Percent: 100, Stage: stage})
}

// runFile rebuilds tokens for a single file.
func (c *Coordinator) runFile(cycleID string, req request) {
	c.emit(Event{Type: EventStarted, CycleID: cycleID, Reason: req.reason, Path: req.path, Percent: 0, Stage: "scanning file"})

	if _, err := c.indexer.RebuildFileTokens(req.path); err != nil {
		c.emit(Event{Type: EventFailed, CycleID: cycleID, Reason: req.reason, Path: req.path, Err: err})
		return
	}

	c.emit(Event{Type: EventCompleted, CycleID: cycleID, Reason: req.reason, Path: req.path, Percent: 100, Stage: "file scanned"})
}

// emit sends an event to all handlers.
func (c *Coordinator) emit(event Event) {
	c.hmu.RLock()
	handlers := make([]func(Event), len(c.handlers))
	copy(handlers, c.handlers)
	c.hmu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}
