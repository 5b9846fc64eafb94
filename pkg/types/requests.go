package types

// This file holds the wire-adjacent request/event/response shapes that
// flow through a storage node's reactor. Field names are this repo's own
// choice; no external format is specified for them.

// StorageRequest is a client's ask to ingest one block. The receiving node
// is not necessarily where the block will live — it routes a StorageEvent
// to whichever node the partitioner names.
type StorageRequest struct {
	Filesystem string   `json:"filesystem"`
	Metadata   Metadata `json:"metadata"`
	Payload    []byte   `json:"payload,omitempty"`
}

// StorageEvent is the peer-to-peer message that actually lands a block on
// its owning node.
type StorageEvent struct {
	Block Block `json:"block"`
}

// QueryRequest is a client's ask to search one filesystem. Interactive
// queries return rows inline; non-interactive queries are spooled to a
// file and a summary returned. DryRun asks for matching block identifiers
// instead of the blocks themselves; each node still reads the matching
// blocks in full to derive those identifiers.
type QueryRequest struct {
	Filesystem              string       `json:"filesystem"`
	Region                  Polygon      `json:"region"`
	Temporal                *TimestampMs `json:"temporal,omitempty"`
	Interactive             bool         `json:"interactive"`
	DryRun                  bool         `json:"dry_run"`
	AllowWallClockWildcards bool         `json:"allow_wall_clock_wildcards"`
}

// QueryEvent is the peer-to-peer message asking one node to search its
// local copy of a filesystem.
type QueryEvent struct {
	QueryID     string       `json:"query_id"`
	Origin      NodeInfo     `json:"origin"`
	Filesystem  string       `json:"filesystem"`
	Region      Polygon      `json:"region"`
	Temporal    *TimestampMs `json:"temporal,omitempty"`
	Interactive bool         `json:"interactive"`
	DryRun      bool         `json:"dry_run"`
}

// QueryResponse is one node's reply to a QueryEvent, routed back to the
// coordinator that issued it by QueryID.
type QueryResponse struct {
	QueryID   string   `json:"query_id"`
	Origin    NodeInfo `json:"origin"`
	BlockIDs  []string `json:"block_ids,omitempty"`
	Rows      []Block  `json:"rows,omitempty"`
	SpoolPath string   `json:"spool_path,omitempty"`
	SpoolSize int64    `json:"spool_size,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// QueryResult is the client-facing answer a storage node hands back once
// every destination's QueryResponse has arrived or timed out.
type QueryResult struct {
	QueryID  string   `json:"query_id"`
	BlockIDs []string `json:"block_ids,omitempty"`
	Rows     []Block  `json:"rows,omitempty"`
	Spools   []Spool  `json:"spools,omitempty"`
	Missing  []string `json:"missing,omitempty"`
}

// Spool names one non-interactive query's result file on the node that
// produced it.
type Spool struct {
	Node NodeInfo `json:"node"`
	Path string   `json:"path"`
	Size int64    `json:"size"`
}

// FilesystemOp names the mutation a FilesystemRequest/Event applies.
type FilesystemOp string

const (
	FilesystemCreate FilesystemOp = "CREATE"
	FilesystemDelete FilesystemOp = "DELETE"
)

// FilesystemRequest is a client's ask to create or delete a filesystem
// cluster-wide; the receiving node broadcasts a FilesystemEvent to every
// node, including itself.
type FilesystemRequest struct {
	Op         FilesystemOp         `json:"op"`
	Descriptor FilesystemDescriptor `json:"descriptor"`
}

// FilesystemEvent is the peer-to-peer broadcast applying a filesystem
// mutation to one node's local registry.
type FilesystemEvent struct {
	Op         FilesystemOp         `json:"op"`
	Descriptor FilesystemDescriptor `json:"descriptor"`
}

// MetadataRequest asks every node for a summary of its filesystems.
// Filesystems is empty to mean "every filesystem known to that node".
type MetadataRequest struct {
	Filesystems []string `json:"filesystems,omitempty"`
}

// MetadataEvent is the peer-to-peer fan-out of a MetadataRequest.
type MetadataEvent struct {
	QueryID     string   `json:"query_id"`
	Origin      NodeInfo `json:"origin"`
	Filesystems []string `json:"filesystems,omitempty"`
}

// MetadataSummary describes one filesystem as seen on one node.
type MetadataSummary struct {
	Filesystem       string       `json:"filesystem"`
	BlockCount       int          `json:"block_count"`
	SpatialPrecision int          `json:"spatial_precision"`
	TemporalType     TemporalType `json:"temporal_type"`
}

// MetadataResponse is one node's reply to a MetadataEvent.
type MetadataResponse struct {
	QueryID   string            `json:"query_id"`
	Origin    NodeInfo          `json:"origin"`
	Summaries []MetadataSummary `json:"summaries,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// MetadataResult is the client-facing merge of every node's
// MetadataResponse, keyed by filesystem name.
type MetadataResult struct {
	QueryID      string                       `json:"query_id"`
	ByFilesystem map[string][]MetadataSummary `json:"by_filesystem"`
	Missing      []string                     `json:"missing,omitempty"`
}
