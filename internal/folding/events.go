package folding

import (
	"sort"
	"sync"
)

// Emitter delivers events of type T to subscribed handlers. Handlers are
// copied before dispatch so they may subscribe or unsubscribe re-entrantly.
type Emitter[T any] struct {
	mu       sync.RWMutex
	handlers map[int]func(T)
	nextID   int
}

// Subscribe registers handler and returns a function that removes it.
func (e *Emitter[T]) Subscribe(handler func(T)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers == nil {
		e.handlers = make(map[int]func(T))
	}
	id := e.nextID
	e.nextID++
	e.handlers[id] = handler
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.handlers, id)
	}
}

// Emit calls every handler in subscription order.
func (e *Emitter[T]) Emit(event T) {
	e.mu.RLock()
	ids := make([]int, 0, len(e.handlers))
	for id := range e.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]func(T), 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, e.handlers[id])
	}
	e.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

// Len returns the number of subscribed handlers.
func (e *Emitter[T]) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers)
}

// Clear removes every handler.
func (e *Emitter[T]) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = nil
}

// ChangeEvent is fired by Model after its regions or collapse state changed.
type ChangeEvent struct {
	Model *Model
	// CollapseStateChanged lists the regions whose collapse bit flipped.
	// It is empty when the whole forest was replaced.
	CollapseStateChanged []Region
}

// HiddenRangesEvent is fired by HiddenRangeModel when the hidden ranges
// changed.
type HiddenRangesEvent struct {
	Ranges []LineRange
}

// LimitEvent is fired by RangesLimitReporter when the reported numbers
// change.
type LimitEvent struct {
	Computed int
	// Limited is the maximum that was applied, or 0 when nothing was cut.
	Limited int
}

// Truncated reports whether ranges were dropped.
func (e LimitEvent) Truncated() bool {
	return e.Limited > 0
}
