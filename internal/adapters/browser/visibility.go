package browser

import (
	"context"
	"sync"
)

// VisibilityEvents is a VisibilitySource fed by Emit, typically from an HTTP
// handler receiving the page's visibilitychange notifications.
type VisibilityEvents struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]func(context.Context)
}

// NewVisibilityEvents creates a source with no subscribers.
func NewVisibilityEvents() *VisibilityEvents {
	return &VisibilityEvents{handlers: make(map[int]func(context.Context))}
}

func (v *VisibilityEvents) OnVisible(fn func(ctx context.Context)) func() {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.handlers[id] = fn
	v.mu.Unlock()

	return func() {
		v.mu.Lock()
		delete(v.handlers, id)
		v.mu.Unlock()
	}
}

// Emit delivers a "page became visible" event to every subscriber and waits for them.
func (v *VisibilityEvents) Emit(ctx context.Context) {
	v.mu.Lock()
	fns := make([]func(context.Context), 0, len(v.handlers))
	for _, fn := range v.handlers {
		fns = append(fns, fn)
	}
	v.mu.Unlock()

	for _, fn := range fns {
		fn(ctx)
	}
}

// Subscribers returns the number of attached handlers.
func (v *VisibilityEvents) Subscribers() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.handlers)
}
