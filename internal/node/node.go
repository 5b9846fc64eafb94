// Package node is the storage-node orchestrator: it owns the reactor, the
// connection pool, the filesystem registry, and the table of in-flight
// coordinators, and wires spec's ten request/event/response kinds to
// handlers on the reactor's single goroutine. Grounded on
// internal/http/server.go's Server (Start/Stop/createRouter shape) plus
// pkg/raftadapter.Node's single-owner orchestration pattern, generalized
// from one Raft group to the fabric's reactor/coordinator/registry trio.
package node

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"geofabric/pkg/coordinator"
	"geofabric/pkg/metrics"
	"geofabric/pkg/reactor"
	"geofabric/pkg/registry"
	"geofabric/pkg/topology"
	"geofabric/pkg/types"
)

// Node is one storage node: the event loop plus everything it owns.
type Node struct {
	self    types.NodeInfo
	topo    *topology.Topology
	reg     *registry.Registry
	reactor *reactor.Reactor
	pool    *reactor.ConnectionPool
	coords  *coordinator.Table
	ids     *coordinator.IDGenerator
	metrics metrics.Collector
	workers *workerPool

	fanoutTimeout time.Duration
	spoolDir      string
}

// Options configures a new Node.
type Options struct {
	Self          types.NodeInfo
	Topology      *topology.Topology
	DataDir       string
	Factory       registry.Factory
	Dial          reactor.Dialer
	Collector     metrics.Collector
	EventBuffer   int
	FanoutTimeout time.Duration
	WorkerCount   int
}

// New builds a Node: opens its registry from DataDir/filesystems, creates
// the reactor and connection pool, and registers every handler.
func New(opts Options) (*Node, error) {
	if opts.Collector == nil {
		opts.Collector = metrics.NoopCollector{}
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 256
	}
	if opts.FanoutTimeout <= 0 {
		opts.FanoutTimeout = 2 * time.Second
	}
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = 4
	}

	fsDir := filepath.Join(opts.DataDir, "filesystems")
	reg, err := registry.New(fsDir, opts.Factory)
	if err != nil {
		return nil, fmt.Errorf("node: open registry: %w", err)
	}

	spoolDir := filepath.Join(opts.DataDir, "spool")
	if err := os.MkdirAll(spoolDir, 0750); err != nil {
		return nil, fmt.Errorf("node: create spool dir: %w", err)
	}

	n := &Node{
		self:          opts.Self,
		topo:          opts.Topology,
		reg:           reg,
		reactor:       reactor.New(opts.EventBuffer),
		pool:          reactor.NewConnectionPool(opts.Dial),
		coords:        coordinator.NewTable(),
		ids:           coordinator.NewIDGenerator(opts.Self.Hostname),
		metrics:       opts.Collector,
		workers:       newWorkerPool(opts.WorkerCount),
		fanoutTimeout: opts.FanoutTimeout,
		spoolDir:      spoolDir,
	}
	n.registerHandlers()
	return n, nil
}

func (n *Node) registerHandlers() {
	n.reactor.Register("StorageRequest", n.handleStorageRequest)
	n.reactor.Register("StorageEvent", n.handleStorageEvent)
	n.reactor.Register("QueryRequest", n.handleQueryRequest)
	n.reactor.Register("QueryEvent", n.handleQueryEvent)
	n.reactor.Register("QueryResponse", n.handleQueryResponse)
	n.reactor.Register("FilesystemRequest", n.handleFilesystemRequest)
	n.reactor.Register("FilesystemEvent", n.handleFilesystemEvent)
	n.reactor.Register("MetadataRequest", n.handleMetadataRequest)
	n.reactor.Register("MetadataEvent", n.handleMetadataEvent)
	n.reactor.Register("MetadataResponse", n.handleMetadataResponse)

	// Synthetic, node-internal event kind: a worker pool job's result
	// re-entering the reactor.
	n.reactor.Register("QueryEventSpooled", n.handleQueryEventSpooled)
}

// Start runs the reactor loop and the worker pool; both return
// immediately, doing their work on background goroutines.
func (n *Node) Start(ctx context.Context) {
	n.reactor.Run(ctx)
	n.workers.start(ctx)
}

// Stop drains the reactor and worker pool, then closes every filesystem
// handle and the connection pool.
func (n *Node) Stop() error {
	n.reactor.Stop()
	n.workers.stop()
	if err := n.pool.Close(); err != nil {
		return fmt.Errorf("node: close connection pool: %w", err)
	}
	for _, d := range n.reg.List() {
		_, handle, ok := n.reg.Get(d.Name)
		if ok {
			_ = handle.Close()
		}
	}
	return nil
}

// Emit enqueues an event onto the reactor, the same entry point the HTTP
// surface and peer-to-peer replies use.
func (n *Node) Emit(e reactor.Event) {
	n.reactor.Emit(e)
}
