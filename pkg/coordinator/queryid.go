package coordinator

import (
	"fmt"

	"geofabric/pkg/clock"
)

// IDGenerator mints client-visible query IDs, distinct from a Coordinator's
// internal uuid.UUID tracking key. IDs are "<hostname>-<seq>", monotonic
// per node, grounded on pkg/clock.AtomicClock's counter shape.
type IDGenerator struct {
	hostname string
	seq      *clock.AtomicClock
}

// NewIDGenerator creates a generator whose IDs are prefixed with hostname.
func NewIDGenerator(hostname string) *IDGenerator {
	return &IDGenerator{hostname: hostname, seq: clock.NewAtomic(0)}
}

// Next returns the next query ID for this node.
func (g *IDGenerator) Next() string {
	return fmt.Sprintf("%s-%d", g.hostname, g.seq.Next())
}
