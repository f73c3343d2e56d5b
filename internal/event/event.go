// Package event provides a minimal synchronous observer list.
package event

// Listener receives a fired payload.
type Listener[T any] func(T)

// ListenerID identifies a registration so it can be removed later.
type ListenerID uint64

type registration[T any] struct {
	id ListenerID
	fn Listener[T]
}

// Event is an ordered list of listeners invoked synchronously on Fire. It is
// not safe for concurrent use; callers serialise access.
type Event[T any] struct {
	name      string
	nextID    ListenerID
	listeners []registration[T]
}

// New returns an event with no listeners.
func New[T any](name string) *Event[T] {
	return &Event[T]{name: name}
}

// Name returns the event name given to New.
func (e *Event[T]) Name() string {
	return e.name
}

// AddListener appends fn and returns its handle.
func (e *Event[T]) AddListener(fn Listener[T]) ListenerID {
	e.nextID++
	e.listeners = append(e.listeners, registration[T]{id: e.nextID, fn: fn})
	return e.nextID
}

// RemoveListener drops the registration with id. It reports whether one was
// found.
func (e *Event[T]) RemoveListener(id ListenerID) bool {
	for i, reg := range e.listeners {
		if reg.id == id {
			e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// Fire calls every listener registered at the time of the call, in
// registration order. A panicking listener propagates to the caller.
func (e *Event[T]) Fire(payload T) {
	if len(e.listeners) == 0 {
		return
	}
	current := e.listeners
	for _, reg := range current {
		reg.fn(payload)
	}
}

// Len returns the number of registered listeners.
func (e *Event[T]) Len() int {
	return len(e.listeners)
}
