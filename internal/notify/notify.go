// Package notify provides change notification for index updates.
//
// The notify package implements an observer pattern that lets rendering
// components subscribe to index changes and drop or rebuild cached state
// when definitions or tokens move underneath them.
package notify

import (
	"sync"
)

// ChangeType represents the type of index change.
type ChangeType int

const (
	// ChangeInvalidateAll indicates the whole token index was discarded.
	ChangeInvalidateAll ChangeType = iota

	// ChangeFileTokens indicates one file's token entry was rebuilt.
	ChangeFileTokens

	// ChangeFileRemoved indicates a file's index state was dropped.
	ChangeFileRemoved
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeInvalidateAll:
		return "invalidate-all"
	case ChangeFileTokens:
		return "file-tokens"
	case ChangeFileRemoved:
		return "file-removed"
	default:
		return "unknown"
	}
}

// Change represents an index change event.
type Change struct {
	// Type is the type of change.
	Type ChangeType

	// Path is the affected file. Empty for whole-index events.
	Path string

	// Reason identifies what triggered the change.
	Reason string
}

// Observer is called when index changes occur.
type Observer func(change Change)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	notifier *Notifier
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s.notifier != nil {
		s.notifier.remove(s.id)
		s.notifier = nil
	}
}

// Notifier dispatches index changes to observers.
type Notifier struct {
	mu        sync.RWMutex
	nextID    uint64
	observers map[uint64]Observer
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{
		observers: make(map[uint64]Observer),
	}
}

// Subscribe registers an observer for all index changes.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID
	n.observers[id] = observer
	return &Subscription{id: id, notifier: n}
}

// Publish delivers a change to every observer.
// Observers run synchronously; delivery order is not guaranteed.
func (n *Notifier) Publish(change Change) {
	n.mu.RLock()
	observers := make([]Observer, 0, len(n.observers))
	for _, obs := range n.observers {
		observers = append(observers, obs)
	}
	n.mu.RUnlock()

	for _, obs := range observers {
		obs(change)
	}
}

// ObserverCount returns the number of active subscriptions.
func (n *Notifier) ObserverCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.observers)
}

// remove deletes a subscription by id.
func (n *Notifier) remove(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.observers, id)
}
