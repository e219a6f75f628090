// Package events provides a pub/sub bus for research run progress.
// Regular subscribers get ring-buffer semantics; priority subscribers never
// miss an event.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event is the base interface for all events.
type Event interface {
	EventType() string
	Timestamp() time.Time
	RunID() string
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	Type string    `json:"type"`
	Time time.Time `json:"timestamp"`
	Run  string    `json:"run_id"`
}

func (e BaseEvent) EventType() string    { return e.Type }
func (e BaseEvent) Timestamp() time.Time { return e.Time }
func (e BaseEvent) RunID() string        { return e.Run }

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType, runID string) BaseEvent {
	return BaseEvent{
		Type: eventType,
		Time: time.Now(),
		Run:  runID,
	}
}

type subscriber struct {
	ch       chan Event
	types    map[string]bool // empty means all types
	run      string          // empty means all runs
	priority bool
}

func (s *subscriber) wants(e Event) bool {
	if s.run != "" && s.run != e.RunID() {
		return false
	}
	return len(s.types) == 0 || s.types[e.EventType()]
}

// EventBus provides pub/sub with backpressure control.
type EventBus struct {
	mu           sync.RWMutex
	subscribers  []*subscriber
	bufferSize   int
	droppedCount int64
	closed       bool
}

// New creates a new EventBus with the specified buffer size.
func New(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &EventBus{bufferSize: bufferSize}
}

// Subscribe returns a channel receiving events of the given types, or all
// events when no type is given.
func (eb *EventBus) Subscribe(types ...string) <-chan Event {
	return eb.subscribe("", false, types)
}

// SubscribeRun is like Subscribe but filters on one run.
func (eb *EventBus) SubscribeRun(runID string, types ...string) <-chan Event {
	return eb.subscribe(runID, false, types)
}

// SubscribePriority creates a subscription that never drops events.
// The consumer must keep up, publishers block otherwise.
func (eb *EventBus) SubscribePriority(types ...string) <-chan Event {
	return eb.subscribe("", true, types)
}

func (eb *EventBus) subscribe(runID string, priority bool, types []string) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	sub := &subscriber{
		ch:       make(chan Event, eb.bufferSize),
		types:    make(map[string]bool, len(types)),
		run:      runID,
		priority: priority,
	}
	for _, t := range types {
		sub.types[t] = true
	}
	if eb.closed {
		close(sub.ch)
		return sub.ch
	}
	eb.subscribers = append(eb.subscribers, sub)
	return sub.ch
}

// Unsubscribe removes a subscription and closes its channel.
func (eb *EventBus) Unsubscribe(ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	result := eb.subscribers[:0]
	for _, sub := range eb.subscribers {
		if sub.ch == ch {
			close(sub.ch)
			continue
		}
		result = append(result, sub)
	}
	eb.subscribers = result
}

// Publish sends an event to all matching subscribers. Regular subscribers
// with a full buffer lose their oldest event.
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, sub := range eb.subscribers {
		if !sub.wants(event) {
			continue
		}
		if sub.priority {
			sub.ch <- event
			continue
		}
		select {
		case sub.ch <- event:
		default:
			select {
			case <-sub.ch:
				atomic.AddInt64(&eb.droppedCount, 1)
			default:
			}
			select {
			case sub.ch <- event:
			default:
				atomic.AddInt64(&eb.droppedCount, 1)
			}
		}
	}
}

// DroppedCount returns the total number of dropped events.
func (eb *EventBus) DroppedCount() int64 {
	return atomic.LoadInt64(&eb.droppedCount)
}

// Close closes the event bus and all subscriber channels.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true
	for _, sub := range eb.subscribers {
		close(sub.ch)
	}
	eb.subscribers = nil
}
