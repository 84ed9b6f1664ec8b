package core

import "sync"

// Canonical event names broadcast by the kernel components. Payload shapes
// are documented on the emitting component.
const (
	EventStarted = "started"
	EventStopped = "stopped"

	// Registry events.
	EventPrimitiveRegistered   = "primitive:registered"
	EventPrimitiveUnregistered = "primitive:unregistered"
	EventPrimitiveEnabled      = "primitive:enabled"
	EventPrimitiveDisabled     = "primitive:disabled"
	EventPrimitiveCalled       = "primitive:called"
	EventPrimitiveCompleted    = "primitive:completed"
	EventPrimitiveError        = "primitive:error"

	// Context memory unit events.
	EventStored     = "stored"
	EventCompressed = "compressed"

	// Reasoning engine events.
	EventCompleted = "completed"
	EventSearched  = "searched"
	EventSimulated = "simulated"
	EventJudged    = "judged"
	EventEvolved   = "evolved"
)

// Listener receives the payload of a fired event. Listeners run synchronously
// on the emitting goroutine; keep them fast and panic-free.
type Listener func(payload any)

// Emitter is a minimal registrable-listener broadcast. Each component embeds
// one and fires its canonical events through it. Subscription order is
// preserved per event name.
//
// Concurrency: protected by RWMutex. Emit snapshots the listener slice under
// the read lock and invokes outside of it, so a listener may safely
// subscribe/unsubscribe reentrantly.
type Emitter struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
}

// NewEmitter creates an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{listeners: make(map[string][]Listener)}
}

// Subscribe registers fn for the named event and returns an unsubscribe
// function. A nil fn is ignored.
func (e *Emitter) Subscribe(event string, fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners[event] = append(e.listeners[event], fn)
	idx := len(e.listeners[event]) - 1
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		ls := e.listeners[event]
		if idx < len(ls) && ls[idx] != nil {
			ls[idx] = nil
		}
	}
}

// Emit synchronously invokes every listener registered for event, in
// subscription order.
func (e *Emitter) Emit(event string, payload any) {
	e.mu.RLock()
	ls := make([]Listener, len(e.listeners[event]))
	copy(ls, e.listeners[event])
	e.mu.RUnlock()
	for _, fn := range ls {
		if fn != nil {
			fn(payload)
		}
	}
}

// ListenerCount returns the number of active listeners for event.
func (e *Emitter) ListenerCount(event string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := 0
	for _, fn := range e.listeners[event] {
		if fn != nil {
			n++
		}
	}
	return n
}
