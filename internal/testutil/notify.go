package testutil

import (
	"context"
	"sync"
)

// Published is one event captured by a NotifyRecorder.
type Published struct {
	Event   string
	Payload any
}

// NotifyRecorder is a notify.Notifier that keeps every event.
type NotifyRecorder struct {
	mu     sync.Mutex
	events []Published
	closed bool
}

// Publish implements notify.Notifier.
func (r *NotifyRecorder) Publish(ctx context.Context, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Published{Event: event, Payload: payload})
}

// Close implements notify.Notifier.
func (r *NotifyRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Events returns the captured events in publish order.
func (r *NotifyRecorder) Events() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Published(nil), r.events...)
}

// Names returns the captured event names in publish order.
func (r *NotifyRecorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.events))
	for _, e := range r.events {
		names = append(names, e.Event)
	}
	return names
}

// Closed reports whether Close was called.
func (r *NotifyRecorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
