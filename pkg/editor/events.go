package editor

import (
	"sync"

	"github.com/docker/mdattach/pkg/attachment"
)

// EventName identifies an editor-level DOM-like event.
type EventName string

const (
	EventDragEnter EventName = "dragenter"
	EventDragOver  EventName = "dragover"
	EventDrop      EventName = "drop"
	EventPaste     EventName = "paste"
)

// EventNames lists every event the attachment pipeline listens to.
var EventNames = []EventName{EventDragEnter, EventDragOver, EventDrop, EventPaste}

// Event carries the payload of a drag, drop or paste.
type Event struct {
	Name  EventName
	Files []attachment.FileDescriptor
	// URL is set when a link, rather than a file, was dropped.
	URL string
	// Text is the plain-text payload of a paste.
	Text string

	propagationStopped bool
	defaultPrevented   bool
}

// StopPropagation prevents handlers registered later from seeing the event.
func (e *Event) StopPropagation() {
	e.propagationStopped = true
}

// PreventDefault tells the host editor not to apply its own behavior
// (inserting pasted text, opening a dropped file).
func (e *Event) PreventDefault() {
	e.defaultPrevented = true
}

func (e *Event) PropagationStopped() bool {
	return e.propagationStopped
}

func (e *Event) DefaultPrevented() bool {
	return e.defaultPrevented
}

// Handler receives editor events. Handlers are compared by identity when
// they are removed, so implementations must be comparable, typically pointers.
type Handler interface {
	HandleEvent(ev *Event)
}

type funcHandler struct {
	fn func(*Event)
}

func (h *funcHandler) HandleEvent(ev *Event) {
	h.fn(ev)
}

// NewHandler wraps fn in a Handler that can later be passed to Off.
func NewHandler(fn func(*Event)) Handler {
	return &funcHandler{fn: fn}
}

// Events is a registry of handlers per event name. Bridges embed it to
// implement On and Off.
type Events struct {
	mu       sync.RWMutex
	handlers map[EventName][]Handler
}

func NewEvents() *Events {
	return &Events{
		handlers: make(map[EventName][]Handler),
	}
}

// On registers h for name. Registering the same handler twice is a no-op.
func (e *Events) On(name EventName, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, existing := range e.handlers[name] {
		if existing == h {
			return
		}
	}
	e.handlers[name] = append(e.handlers[name], h)
}

// Off removes h from name.
func (e *Events) Off(name EventName, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()

	subs := e.handlers[name]
	for i, existing := range subs {
		if existing == h {
			e.handlers[name] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(e.handlers[name]) == 0 {
		delete(e.handlers, name)
	}
}

// Dispatch delivers ev to the handlers registered for its name, in
// registration order, until one stops propagation.
func (e *Events) Dispatch(ev *Event) {
	e.mu.RLock()
	subs := append([]Handler(nil), e.handlers[ev.Name]...)
	e.mu.RUnlock()

	for _, h := range subs {
		h.HandleEvent(ev)
		if ev.PropagationStopped() {
			return
		}
	}
}

// Count returns how many handlers are registered for name.
func (e *Events) Count(name EventName) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers[name])
}

// Total returns the number of registered handlers across all events.
func (e *Events) Total() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	n := 0
	for _, subs := range e.handlers {
		n += len(subs)
	}
	return n
}
