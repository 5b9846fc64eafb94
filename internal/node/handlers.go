package node

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"geofabric/pkg/coordinator"
	"geofabric/pkg/metrics"
	"geofabric/pkg/partitioner"
	"geofabric/pkg/reactor"
	"geofabric/pkg/types"
)

func (n *Node) handleStorageRequest(e reactor.Event) error {
	req, ok := e.Payload.(types.StorageRequest)
	if !ok {
		return fmt.Errorf("node: StorageRequest payload has unexpected type %T", e.Payload)
	}
	n.metrics.IncCounter(metrics.RequestsTotal, map[string]string{"kind": "storage_request"}, 1)

	descriptor, _, ok := n.reg.Get(req.Filesystem)
	if !ok {
		return fmt.Errorf("node: unknown filesystem %q", req.Filesystem)
	}

	dests, err := partitioner.LocateData(n.topo, descriptor, req.Metadata)
	if err != nil {
		return fmt.Errorf("node: locate data for %q: %w", req.Filesystem, err)
	}

	block := types.Block{Filesystem: req.Filesystem, Metadata: req.Metadata, Payload: req.Payload}
	for _, dest := range dests {
		event := types.StorageEvent{Block: block}
		if dest.Node == n.self {
			n.Emit(reactor.Event{Kind: "StorageEvent", Payload: event})
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), n.fanoutTimeout)
		err := n.pool.Send(ctx, dest.Node, "/v1/internal/storage-event", event, nil)
		cancel()
		if err != nil {
			slog.Error("node: forward StorageEvent failed", "node", dest.Node.Addr(), "error", err)
		}
	}
	return nil
}

func (n *Node) handleStorageEvent(e reactor.Event) error {
	evt, ok := e.Payload.(types.StorageEvent)
	if !ok {
		return fmt.Errorf("node: StorageEvent payload has unexpected type %T", e.Payload)
	}

	_, handle, ok := n.reg.Get(evt.Block.Filesystem)
	if !ok {
		return fmt.Errorf("node: unknown filesystem %q", evt.Block.Filesystem)
	}
	if err := handle.Append(evt.Block); err != nil {
		return fmt.Errorf("node: append block to %q: %w", evt.Block.Filesystem, err)
	}
	n.metrics.IncCounter(metrics.BlocksAppendedTotal, map[string]string{"filesystem": evt.Block.Filesystem}, 1)
	return nil
}

// queryRequestEvent pairs a client's QueryRequest with the query ID and
// coordinator the HTTP layer already minted and registered before emitting,
// so the coordinator exists in the table the instant this handler starts
// fanning out, not after. Deadline is the HTTP layer's own await timeout,
// threaded through so the coordinator can arm its own synthetic timeout
// rather than leaving a slow peer to fail the whole request.
type queryRequestEvent struct {
	QueryID  string
	Req      types.QueryRequest
	Deadline time.Duration
}

func (n *Node) handleQueryRequest(e reactor.Event) error {
	qe, ok := e.Payload.(queryRequestEvent)
	if !ok {
		return fmt.Errorf("node: QueryRequest payload has unexpected type %T", e.Payload)
	}
	req := qe.Req
	n.metrics.IncCounter(metrics.RequestsTotal, map[string]string{"kind": "query_request"}, 1)

	descriptor, _, ok := n.reg.Get(req.Filesystem)
	if !ok {
		return fmt.Errorf("node: unknown filesystem %q", req.Filesystem)
	}

	dests, err := partitioner.FindDestinations(n.topo, descriptor, req.Region, req.Temporal)
	if err != nil {
		return fmt.Errorf("node: find destinations for %q: %w", req.Filesystem, err)
	}

	coord, ok := n.coords.Get(qe.QueryID)
	if !ok {
		return fmt.Errorf("node: no coordinator registered for query %s", qe.QueryID)
	}
	keys := make([]string, 0, len(dests))
	for _, d := range dests {
		keys = append(keys, d.Node.Addr())
	}
	coord.Start(keys)
	coord.ArmDeadline(qe.Deadline)
	n.metrics.SetGauge(metrics.CoordinatorsInFlight, nil, float64(n.coords.Len()))

	start := nowFunc()
	for _, dest := range dests {
		event := types.QueryEvent{
			QueryID:     qe.QueryID,
			Origin:      n.self,
			Filesystem:  req.Filesystem,
			Region:      req.Region,
			Temporal:    req.Temporal,
			Interactive: req.Interactive,
			DryRun:      req.DryRun,
		}
		if dest.Node == n.self {
			n.Emit(reactor.Event{Kind: "QueryEvent", Payload: event})
			continue
		}
		n.sendQueryEvent(coord, dest.Node, event)
	}
	n.metrics.ObserveHistogram(metrics.QueryFanoutSeconds, map[string]string{"kind": "query"}, time.Since(start).Seconds())
	return nil
}

// sendQueryEvent delivers a QueryEvent to a peer. Every caller runs on the
// reactor's own goroutine, so this is the only place non-local fan-out
// touches the connection pool — consistent with §5's rule that the pool is
// owned by a single goroutine and needs no lock of its own. The tradeoff is
// that a slow peer blocks the reactor for up to fanoutTimeout; peers are
// dialed one at a time rather than concurrently.
//
// The remote node's /v1/internal/query-event handler only acknowledges
// receipt: non-interactive queries are scanned and spooled on its worker
// pool well after that HTTP call returns, so the body can never carry a
// finished answer. To keep one resolution path for every query shape, the
// real QueryResponse always arrives later as a separate
// /v1/internal/query-response call into handleQueryResponse — a send that
// succeeds here only proves the peer accepted the event, so coord is
// Timeout'd on failure and otherwise left pending for handleQueryResponse
// to resolve.
func (n *Node) sendQueryEvent(coord *coordinator.Coordinator, node types.NodeInfo, event types.QueryEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), n.fanoutTimeout)
	defer cancel()
	if err := n.pool.Send(ctx, node, "/v1/internal/query-event", event, nil); err != nil {
		coord.Timeout(node.Addr())
	}
}

func (n *Node) handleQueryEvent(e reactor.Event) error {
	evt, ok := e.Payload.(types.QueryEvent)
	if !ok {
		return fmt.Errorf("node: QueryEvent payload has unexpected type %T", e.Payload)
	}

	_, handle, ok := n.reg.Get(evt.Filesystem)
	if !ok {
		resp := types.QueryResponse{QueryID: evt.QueryID, Origin: n.self, Error: "unknown filesystem"}
		return n.replyQuery(evt, resp)
	}

	blocks, err := handle.Query(evt.Region, evt.Temporal)
	if err != nil {
		resp := types.QueryResponse{QueryID: evt.QueryID, Origin: n.self, Error: err.Error()}
		return n.replyQuery(evt, resp)
	}
	n.metrics.IncCounter(metrics.BlocksScannedTotal, map[string]string{"filesystem": evt.Filesystem}, float64(len(blocks)))

	if evt.DryRun {
		ids := make([]string, len(blocks))
		for i, b := range blocks {
			ids[i] = blockID(b)
		}
		return n.replyQuery(evt, types.QueryResponse{QueryID: evt.QueryID, Origin: n.self, BlockIDs: ids})
	}

	if evt.Interactive {
		return n.replyQuery(evt, types.QueryResponse{QueryID: evt.QueryID, Origin: n.self, Rows: blocks})
	}

	n.workers.submit(func() {
		path, size, err := n.spool(evt.QueryID, blocks)
		resp := types.QueryResponse{QueryID: evt.QueryID, Origin: n.self, SpoolPath: path, SpoolSize: size}
		if err != nil {
			resp.Error = err.Error()
		}
		n.Emit(reactor.Event{Kind: "QueryEventSpooled", Payload: spooledQueryEvent{evt: evt, resp: resp}})
	})
	return nil
}

type spooledQueryEvent struct {
	evt  types.QueryEvent
	resp types.QueryResponse
}

func (n *Node) handleQueryEventSpooled(e reactor.Event) error {
	s, ok := e.Payload.(spooledQueryEvent)
	if !ok {
		return fmt.Errorf("node: QueryEventSpooled payload has unexpected type %T", e.Payload)
	}
	return n.replyQuery(s.evt, s.resp)
}

func (n *Node) replyQuery(evt types.QueryEvent, resp types.QueryResponse) error {
	if evt.Origin == n.self {
		n.Emit(reactor.Event{Kind: "QueryResponse", Payload: resp})
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), n.fanoutTimeout)
	defer cancel()
	if err := n.pool.Send(ctx, evt.Origin, "/v1/internal/query-response", resp, nil); err != nil {
		return fmt.Errorf("node: reply to %s for query %s: %w", evt.Origin.Addr(), evt.QueryID, err)
	}
	return nil
}

func (n *Node) spool(queryID string, blocks []types.Block) (string, int64, error) {
	path := filepath.Join(n.spoolDir, queryID+".json")
	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("node: create spool file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, b := range blocks {
		if err := enc.Encode(b); err != nil {
			return "", 0, fmt.Errorf("node: write spool file: %w", err)
		}
	}
	info, err := f.Stat()
	if err != nil {
		return path, 0, fmt.Errorf("node: stat spool file: %w", err)
	}
	return path, info.Size(), nil
}

func (n *Node) handleQueryResponse(e reactor.Event) error {
	resp, ok := e.Payload.(types.QueryResponse)
	if !ok {
		return fmt.Errorf("node: QueryResponse payload has unexpected type %T", e.Payload)
	}
	coord, ok := n.coords.Get(resp.QueryID)
	if !ok {
		slog.Warn("node: reply for unknown query id", "query_id", resp.QueryID)
		return nil
	}
	coord.Reply(resp.Origin.Addr(), resp)
	return nil
}

func (n *Node) handleFilesystemRequest(e reactor.Event) error {
	req, ok := e.Payload.(types.FilesystemRequest)
	if !ok {
		return fmt.Errorf("node: FilesystemRequest payload has unexpected type %T", e.Payload)
	}
	n.metrics.IncCounter(metrics.RequestsTotal, map[string]string{"kind": "filesystem_request"}, 1)

	event := types.FilesystemEvent{Op: req.Op, Descriptor: req.Descriptor}
	for _, node := range n.topo.AllNodes() {
		if node == n.self {
			n.Emit(reactor.Event{Kind: "FilesystemEvent", Payload: event})
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), n.fanoutTimeout)
		err := n.pool.Send(ctx, node, "/v1/internal/filesystem-event", event, nil)
		cancel()
		if err != nil {
			slog.Error("node: broadcast FilesystemEvent failed", "node", node.Addr(), "error", err)
		}
	}
	return nil
}

func (n *Node) handleFilesystemEvent(e reactor.Event) error {
	evt, ok := e.Payload.(types.FilesystemEvent)
	if !ok {
		return fmt.Errorf("node: FilesystemEvent payload has unexpected type %T", e.Payload)
	}
	switch evt.Op {
	case types.FilesystemCreate:
		return n.reg.Create(evt.Descriptor)
	case types.FilesystemDelete:
		return n.reg.Delete(evt.Descriptor.Name)
	default:
		return fmt.Errorf("node: unknown filesystem op %q", evt.Op)
	}
}

// metadataRequestEvent mirrors queryRequestEvent for the metadata fan-out.
type metadataRequestEvent struct {
	QueryID  string
	Req      types.MetadataRequest
	Deadline time.Duration
}

func (n *Node) handleMetadataRequest(e reactor.Event) error {
	me, ok := e.Payload.(metadataRequestEvent)
	if !ok {
		return fmt.Errorf("node: MetadataRequest payload has unexpected type %T", e.Payload)
	}
	n.metrics.IncCounter(metrics.RequestsTotal, map[string]string{"kind": "metadata_request"}, 1)

	nodes := n.topo.AllNodes()
	coord, ok := n.coords.Get(me.QueryID)
	if !ok {
		return fmt.Errorf("node: no coordinator registered for metadata query %s", me.QueryID)
	}
	keys := make([]string, 0, len(nodes))
	for _, node := range nodes {
		keys = append(keys, node.Addr())
	}
	coord.Start(keys)
	coord.ArmDeadline(me.Deadline)
	n.metrics.SetGauge(metrics.CoordinatorsInFlight, nil, float64(n.coords.Len()))

	for _, node := range nodes {
		event := types.MetadataEvent{QueryID: me.QueryID, Origin: n.self, Filesystems: me.Req.Filesystems}
		if node == n.self {
			n.Emit(reactor.Event{Kind: "MetadataEvent", Payload: event})
			continue
		}
		n.sendMetadataEvent(coord, node, event)
	}
	return nil
}

// sendMetadataEvent is sendQueryEvent's counterpart for the metadata
// fan-out: same single-goroutine-owned-pool rule applies. handleMetadataEvent
// never answers inline either — it always round-trips through a second,
// separate /v1/internal/metadata-response call — so a successful send here
// only proves the peer accepted the event; coord is Timeout'd on failure and
// otherwise left pending for handleMetadataResponse to resolve.
func (n *Node) sendMetadataEvent(coord *coordinator.Coordinator, node types.NodeInfo, event types.MetadataEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), n.fanoutTimeout)
	defer cancel()
	if err := n.pool.Send(ctx, node, "/v1/internal/metadata-event", event, nil); err != nil {
		coord.Timeout(node.Addr())
	}
}

func (n *Node) handleMetadataEvent(e reactor.Event) error {
	evt, ok := e.Payload.(types.MetadataEvent)
	if !ok {
		return fmt.Errorf("node: MetadataEvent payload has unexpected type %T", e.Payload)
	}

	names := evt.Filesystems
	if len(names) == 0 {
		for _, d := range n.reg.List() {
			names = append(names, d.Name)
		}
	}

	var summaries []types.MetadataSummary
	for _, name := range names {
		descriptor, handle, ok := n.reg.Get(name)
		if !ok {
			continue
		}
		blocks, err := handle.Query(nil, nil)
		count := 0
		if err == nil {
			count = len(blocks)
		}
		summaries = append(summaries, types.MetadataSummary{
			Filesystem:       name,
			BlockCount:       count,
			SpatialPrecision: descriptor.SpatialPrecision,
			TemporalType:     descriptor.TemporalType,
		})
	}

	resp := types.MetadataResponse{QueryID: evt.QueryID, Origin: n.self, Summaries: summaries}
	if evt.Origin == n.self {
		n.Emit(reactor.Event{Kind: "MetadataResponse", Payload: resp})
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), n.fanoutTimeout)
	defer cancel()
	return n.pool.Send(ctx, evt.Origin, "/v1/internal/metadata-response", resp, nil)
}

func (n *Node) handleMetadataResponse(e reactor.Event) error {
	resp, ok := e.Payload.(types.MetadataResponse)
	if !ok {
		return fmt.Errorf("node: MetadataResponse payload has unexpected type %T", e.Payload)
	}
	coord, ok := n.coords.Get(resp.QueryID)
	if !ok {
		slog.Warn("node: reply for unknown metadata query id", "query_id", resp.QueryID)
		return nil
	}
	entries := make(map[string][]any, len(resp.Summaries))
	for _, s := range resp.Summaries {
		entries[s.Filesystem] = append(entries[s.Filesystem], s)
	}
	coord.Reply(resp.Origin.Addr(), entries)
	return nil
}

func blockID(b types.Block) string {
	data, _ := json.Marshal(b)
	return fmt.Sprintf("%08x", crc32.ChecksumIEEE(data))
}

var nowFunc = time.Now
