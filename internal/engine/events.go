package engine

import (
	"sync"
	"time"
)

// EventType categorizes engine lifecycle events.
type EventType string

const (
	EventProcessed   EventType = "processed"
	EventFailed      EventType = "failed"
	EventInvalidated EventType = "invalidated"
)

// Event describes one engine lifecycle occurrence, relayed to admin clients
// over the server's websocket endpoint.
type Event struct {
	Type     EventType `json:"type"`
	CourseID string    `json:"courseId"`
	Locator  string    `json:"locator,omitempty"`
	// Code carries the failure code on EventFailed events.
	Code string    `json:"code,omitempty"`
	Time time.Time `json:"time"`
}

// Broadcaster fans engine events out to subscribers. Publishing never
// blocks: a subscriber that stops draining its channel misses events rather
// than stalling extraction.
type Broadcaster struct {
	mutex       sync.Mutex
	subscribers map[chan Event]struct{}
	closed      bool
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber and returns its event channel plus a
// cancel function that must be called when the subscriber goes away.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subscribers[ch] = struct{}{}

	cancel := func() {
		b.mutex.Lock()
		defer b.mutex.Unlock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber that has room for it.
func (b *Broadcaster) Publish(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// Close drops all subscribers and closes their channels.
func (b *Broadcaster) Close() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = make(map[chan Event]struct{})
}
