package registry

import (
	"sync"
	"time"

	"github.com/kestreldev/kestrel/pkg/models"
)

// EventType names an observable registry occurrence.
type EventType string

const (
	// EventCreated fires after a task is created.
	EventCreated EventType = "created"
	// EventUpdated fires after a task is mutated. Fields names what changed.
	EventUpdated EventType = "updated"
	// EventDeleted fires after a task is removed.
	EventDeleted EventType = "deleted"
	// EventUnblocked fires when the cascade moves a task blocked -> queued.
	EventUnblocked EventType = "unblocked"
)

// Event is the payload delivered to listeners. Task is a clone: listeners
// can never mutate registry-owned state.
type Event struct {
	// Type is the kind of occurrence.
	Type EventType
	// Task is a snapshot of the affected task after the mutation.
	Task *models.Task
	// Fields names the changed fields for updated events.
	Fields []string
	// Timestamp is when the mutation was committed.
	Timestamp time.Time
}

// Listener receives events synchronously, in registration order.
type Listener func(Event)

// emitter dispatches events to listeners registered per event type.
// Dispatch happens strictly after the triggering mutation has been
// persisted, so a misbehaving listener can never corrupt committed state.
type emitter struct {
	mu        sync.Mutex
	nextID    int
	listeners map[EventType][]subscription
}

type subscription struct {
	id int
	fn Listener
}

func newEmitter() *emitter {
	return &emitter{listeners: make(map[EventType][]subscription)}
}

// subscribe registers fn for events of type t and returns a token for
// unsubscribe.
func (e *emitter) subscribe(t EventType, fn Listener) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	e.listeners[t] = append(e.listeners[t], subscription{id: e.nextID, fn: fn})
	return e.nextID
}

// unsubscribe removes the listener registered under id for type t.
func (e *emitter) unsubscribe(t EventType, id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	subs := e.listeners[t]
	for i, s := range subs {
		if s.id == id {
			e.listeners[t] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// dispatch invokes listeners synchronously in registration order. A
// panicking listener is recovered so the remaining listeners still run.
func (e *emitter) dispatch(events []Event) {
	for _, ev := range events {
		e.mu.Lock()
		subs := append([]subscription(nil), e.listeners[ev.Type]...)
		e.mu.Unlock()
		for _, s := range subs {
			safeInvoke(s.fn, ev)
		}
	}
}

func safeInvoke(fn Listener, ev Event) {
	defer func() {
		// The mutation is already committed; a listener panic must not
		// propagate into the caller's mutation path.
		recover()
	}()
	fn(ev)
}
