package coordinator

import "sync"

// Table is the storage node's set of in-flight coordinators, keyed by the
// client-visible query ID. A node owns exactly one Table. The reactor
// goroutine looks coordinators up in it, while HTTP handler goroutines Put
// a coordinator before emitting its request and Delete it once answered,
// so every access goes through the mutex.
type Table struct {
	mu   sync.Mutex
	byID map[string]*Coordinator
}

// NewTable creates an empty coordinator table.
func NewTable() *Table {
	return &Table{byID: make(map[string]*Coordinator)}
}

// Put registers a coordinator under queryID.
func (t *Table) Put(queryID string, c *Coordinator) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byID[queryID] = c
}

// Get looks up a coordinator by query ID.
func (t *Table) Get(queryID string) (*Coordinator, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.byID[queryID]
	return c, ok
}

// Delete removes a coordinator, once its result has been delivered to the
// client and it no longer needs to be retained.
func (t *Table) Delete(queryID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byID, queryID)
}

// Len reports how many coordinators are currently tracked.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID)
}
