// Package coordinator tracks one fan-out request's replies from however
// many destinations it was sent to, merging them as they arrive and
// treating a timed-out destination as an empty reply rather than blocking
// forever. It generalizes pkg/raftadapter.Node's proposalsMu-guarded
// map[uuid.UUID]chan proposeResult from a single in-flight proposal to an
// arbitrary set of destinations that must all settle before the caller's
// query is answered.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"geofabric/pkg/errs"
)

// State is a coordinator's position in its CREATED -> WAITING -> COMPLETE
// lifecycle.
type State int

const (
	Created State = iota
	Waiting
	Complete
)

func (s State) String() string {
	switch s {
	case Created:
		return "CREATED"
	case Waiting:
		return "WAITING"
	case Complete:
		return "COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// Merger folds one destination's reply into the accumulated result. Reply
// kinds merge differently — a block listing appends to a slice, a keyed
// aggregate appends into the JSON array under its key — so callers supply
// the merge strategy rather than the coordinator assuming one shape.
type Merger func(acc, reply any) any

// Coordinator is created once per fan-out request (its tracking ID is
// internal; it is never the client-visible query ID), moves to WAITING
// once Start registers the destinations it is awaiting, and reaches
// COMPLETE once every destination has either replied or timed out.
type Coordinator struct {
	ID    uuid.UUID
	merge Merger

	mu      sync.Mutex
	state   State
	pending map[string]struct{}
	missing []string
	result  any
	done    chan struct{}
	timer   *time.Timer
}

// New allocates a coordinator in the CREATED state. Call Start once the
// destination set is known to move it to WAITING.
func New(merge Merger, initial any) *Coordinator {
	return &Coordinator{
		ID:     uuid.New(),
		merge:  merge,
		state:  Created,
		result: initial,
		done:   make(chan struct{}),
	}
}

// Start registers the destinations the coordinator will await and moves it
// to WAITING, or directly to COMPLETE if there are none.
func (c *Coordinator) Start(destinations []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = make(map[string]struct{}, len(destinations))
	for _, d := range destinations {
		c.pending[d] = struct{}{}
	}
	if len(c.pending) == 0 {
		c.state = Complete
		close(c.done)
		return
	}
	c.state = Waiting
}

// ArmDeadline schedules a synthetic timeout for this coordinator, per
// §4.G/§5: if it is still WAITING once d elapses, every destination still
// pending is recorded as missing and the coordinator completes with
// whatever it has, rather than leaving Await to fail the whole request
// with no partial result. Call once, after Start; a non-positive d is a
// no-op (no deadline). Safe to call from any goroutine.
func (c *Coordinator) ArmDeadline(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Waiting {
		return
	}
	c.timer = time.AfterFunc(d, c.expire)
}

// expire is the synthetic timeout event: it completes the coordinator with
// every still-pending destination folded into missing, never touching
// result.
func (c *Coordinator) expire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Waiting {
		return
	}
	for d := range c.pending {
		c.missing = append(c.missing, d)
	}
	c.pending = nil
	c.state = Complete
	close(c.done)
}

// Reply records a destination's response. A reply from a destination not
// currently pending (duplicate, or arriving after COMPLETE) is ignored.
func (c *Coordinator) Reply(destination string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Waiting {
		return
	}
	if _, ok := c.pending[destination]; !ok {
		return
	}
	delete(c.pending, destination)
	c.result = c.merge(c.result, payload)
	c.maybeComplete()
}

// Timeout records that a destination's deadline fired without a reply; it
// is treated as an empty reply and recorded in Missing.
func (c *Coordinator) Timeout(destination string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Waiting {
		return
	}
	if _, ok := c.pending[destination]; !ok {
		return
	}
	delete(c.pending, destination)
	c.missing = append(c.missing, destination)
	c.maybeComplete()
}

func (c *Coordinator) maybeComplete() {
	if c.state == Waiting && len(c.pending) == 0 {
		c.state = Complete
		close(c.done)
		if c.timer != nil {
			c.timer.Stop()
		}
	}
}

// State reports the coordinator's current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Missing returns the destinations that timed out rather than replying.
func (c *Coordinator) Missing() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.missing))
	copy(out, c.missing)
	return out
}

// Done is closed once the coordinator reaches COMPLETE.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Await blocks until the coordinator completes or ctx is cancelled,
// returning the merged result and the destinations that timed out.
func (c *Coordinator) Await(ctx context.Context) (any, []string, error) {
	select {
	case <-c.done:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.result, append([]string(nil), c.missing...), nil
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("coordinator: %w", errs.ErrTimeout)
	}
}
