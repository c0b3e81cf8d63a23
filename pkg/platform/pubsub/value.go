package pubsub

import "sync"

// Value is a current-value cell with subscriber notification, the publish
// side of the core's observable contract: synchronous snapshot reads and a
// notification after every committed write, never mid-write.
//
// There is no replay on subscribe. Callers that need an immediate value
// should read Get() before subscribing.
type Value[T any] struct {
	mu        sync.Mutex
	current   T
	nextID    int
	listeners map[int]func(T)
}

// NewValue creates a Value holding the given initial state.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{
		current:   initial,
		listeners: make(map[int]func(T)),
	}
}

// Get returns the current value. It never blocks on in-flight notifications.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Set commits a new value and then notifies every subscriber with the
// committed value. Listeners are invoked outside the lock, so a listener may
// call Get or Set without deadlocking.
func (v *Value[T]) Set(next T) {
	v.mu.Lock()
	v.current = next
	notify := make([]func(T), 0, len(v.listeners))
	for _, fn := range v.listeners {
		notify = append(notify, fn)
	}
	v.mu.Unlock()

	for _, fn := range notify {
		fn(next)
	}
}

// Update applies fn to the current value and commits the result atomically
// with respect to other Update and Set calls, then notifies subscribers.
func (v *Value[T]) Update(fn func(T) T) T {
	v.mu.Lock()
	v.current = fn(v.current)
	next := v.current
	notify := make([]func(T), 0, len(v.listeners))
	for _, l := range v.listeners {
		notify = append(notify, l)
	}
	v.mu.Unlock()

	for _, l := range notify {
		l(next)
	}
	return next
}

// Subscribe registers a listener called after every committed write.
// The returned function removes the listener; calling it more than once is safe.
func (v *Value[T]) Subscribe(listener func(T)) func() {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.listeners[id] = listener
	v.mu.Unlock()

	return func() {
		v.mu.Lock()
		delete(v.listeners, id)
		v.mu.Unlock()
	}
}
