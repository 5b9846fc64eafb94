// Package clock provides a lock-free monotonic counter. coordinator.IDGenerator
// uses it to mint the per-node sequence half of a query ID without a mutex on
// the fan-out hot path.
package clock

import "sync/atomic"

// AtomicClock is a counter safe for concurrent Next calls from every HTTP
// handler goroutine minting a query or metadata request ID at once.
type AtomicClock struct {
	atomic.Uint64
}

func NewAtomic(init uint64) *AtomicClock {
	var ac AtomicClock
	ac.Set(init)
	return &ac
}

// Val reads the counter without advancing it.
func (ac *AtomicClock) Val() uint64 {
	return ac.Load()
}

// Next advances the counter and returns the new value.
func (ac *AtomicClock) Next() uint64 {
	return ac.Add(1)
}

func (ac *AtomicClock) Set(t uint64) {
	ac.Store(t)
}
