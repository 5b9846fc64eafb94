// Package reactor is the storage node's single-goroutine cooperative event
// loop: every request, peer reply, and worker-pool result is an Event
// processed one at a time by a kind-keyed handler table. A handler that
// returns an error or panics is logged and the loop carries on. Because
// nothing it touches is shared with another goroutine, handlers never need
// to take a lock. Generalizes pkg/listener.Listener[T]'s single-callback
// channel consumer into a dispatch table.
package reactor

import (
	"context"
	"log/slog"

	"geofabric/pkg/listener"
)

// Event is one unit of work for the reactor to process.
type Event struct {
	Kind    string
	Payload any
}

// Handler processes one event kind. Handlers run on the reactor's single
// goroutine and must not block on I/O; long-running work belongs in a
// worker pool whose result re-enters as a new Event via Emit.
type Handler func(Event) error

// Reactor dispatches Events to registered Handlers, one at a time, on one
// goroutine.
type Reactor struct {
	handlers map[string]Handler
	inner    *listener.Listener[Event]
	in       chan Event
}

// New creates a Reactor with the given inbound event buffer size.
func New(bufferSize int) *Reactor {
	r := &Reactor{handlers: make(map[string]Handler), in: make(chan Event, bufferSize)}
	r.inner = listener.New(r.in, r.dispatch)
	return r
}

// Register binds a handler to an event kind, replacing any handler
// previously registered for that kind.
func (r *Reactor) Register(kind string, h Handler) {
	r.handlers[kind] = h
}

// Emit enqueues an event. Safe to call from any goroutine — it is just a
// channel send; event processing itself stays single-goroutine.
func (r *Reactor) Emit(e Event) {
	r.in <- e
}

func (r *Reactor) dispatch(e Event) error {
	h, ok := r.handlers[e.Kind]
	if !ok {
		slog.Warn("reactor: no handler registered for event kind", "kind", e.Kind)
		return nil
	}
	defer func() {
		if p := recover(); p != nil {
			slog.Error("reactor: handler panicked", "kind", e.Kind, "panic", p)
		}
	}()
	if err := h(e); err != nil {
		slog.Error("reactor: handler failed", "kind", e.Kind, "error", err)
	}
	return nil
}

// Run starts the dispatch loop on its own goroutine and returns
// immediately; the loop exits once ctx is cancelled or Stop is called.
func (r *Reactor) Run(ctx context.Context) {
	r.inner.Start(ctx)
}

// Stop cancels the dispatch loop and waits for it to exit.
func (r *Reactor) Stop() {
	r.inner.Stop()
}
