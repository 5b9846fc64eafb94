// Package partitioner maps a record's metadata, or a query's spatial
// region, to the storage node(s) responsible for it. It cases on whether
// the spatial component is a point or a polygon and whether a temporal
// component is present, mirroring pkg/cluster/router.go's owner lookup and
// pkg/cluster/placement.go's replica selection, generalized from a single
// consistent-hash ring to the fabric's fixed group topology.
package partitioner

import (
	"fmt"
	"time"

	"geofabric/pkg/errs"
	"geofabric/pkg/geohash"
	"geofabric/pkg/topology"
	"geofabric/pkg/types"
)

// Destination names one physical node, and the replica group it belongs
// to, that a block or a query fan-out leg should be sent to.
type Destination struct {
	Group int
	Node  types.NodeInfo
}

// LocateData computes the destination(s) a block of metadata should be
// written to at ingest time: a point falls into exactly one group; a
// polygon may straddle several, one of which is returned per group it
// intersects. Within a group, the specific replica is chosen
// deterministically from the record's temporal (if present) or spatial
// hash, so repeated writes of the same record land on the same replica.
func LocateData(topo *topology.Topology, fs types.FilesystemDescriptor, md types.Metadata) ([]Destination, error) {
	if !md.HasSpatial || len(md.Spatial) == 0 {
		return nil, fmt.Errorf("partitioner: metadata has no spatial component: %w", errs.ErrHash)
	}

	groups, err := spatialGroups(topo, fs, md.Spatial)
	if err != nil {
		return nil, err
	}

	seed, err := replicaSeed(fs, md)
	if err != nil {
		return nil, err
	}

	return destinationsForGroups(topo, groups, seed)
}

// FindDestinations computes every node a query could need to reach, given
// its region (nil/empty for a wildcard spatial component) and an optional
// temporal bound. Four cases, per spec:
//   - both present: every node in every group the region overlaps.
//   - only the region: same, temporal narrows nothing.
//   - only temporal, no region: every group is a candidate, but the
//     temporal hash still picks out one replica per group rather than all
//     of them, since a single bucket only ever lives on one replica.
//   - neither: every node in every group.
func FindDestinations(topo *topology.Topology, fs types.FilesystemDescriptor, region types.Polygon, temporal *types.TimestampMs) ([]Destination, error) {
	if topo.GroupCount() == 0 {
		return nil, fmt.Errorf("partitioner: topology has no groups: %w", errs.ErrPartition)
	}

	if len(region) == 0 {
		if temporal == nil {
			return destinationsForAllGroups(topo)
		}
		seed := uint64(bucketIndex(fs.TemporalType, fs.TemporalType.Truncate(temporal.Time())))
		return destinationsForGroups(topo, allGroupIndexes(topo), seed)
	}

	groups, err := spatialGroups(topo, fs, region)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]struct{}, len(groups))
	var dests []Destination
	for _, g := range groups {
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		nodes := topo.Group(g)
		if len(nodes) == 0 {
			return nil, fmt.Errorf("partitioner: group %d has no nodes: %w", g, errs.ErrPartition)
		}
		for _, n := range nodes {
			dests = append(dests, Destination{Group: g, Node: n})
		}
	}
	return dests, nil
}

func allGroupIndexes(topo *topology.Topology) []int {
	groups := make([]int, topo.GroupCount())
	for i := range groups {
		groups[i] = i
	}
	return groups
}

func destinationsForAllGroups(topo *topology.Topology) ([]Destination, error) {
	var dests []Destination
	for _, g := range allGroupIndexes(topo) {
		nodes := topo.Group(g)
		if len(nodes) == 0 {
			return nil, fmt.Errorf("partitioner: group %d has no nodes: %w", g, errs.ErrPartition)
		}
		for _, n := range nodes {
			dests = append(dests, Destination{Group: g, Node: n})
		}
	}
	return dests, nil
}

func destinationsForGroups(topo *topology.Topology, groups []int, seed uint64) ([]Destination, error) {
	seen := make(map[int]struct{}, len(groups))
	var dests []Destination
	for _, g := range groups {
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		nodes := topo.Group(g)
		if len(nodes) == 0 {
			return nil, fmt.Errorf("partitioner: group %d has no nodes: %w", g, errs.ErrPartition)
		}
		node := nodes[seed%uint64(len(nodes))]
		dests = append(dests, Destination{Group: g, Node: node})
	}
	return dests, nil
}

// spatialGroups resolves a spatial component (point or polygon) to the
// group index(es) whose geohash range it falls into or overlaps.
func spatialGroups(topo *topology.Topology, fs types.FilesystemDescriptor, spatial types.Polygon) ([]int, error) {
	if topo.GroupCount() == 0 {
		return nil, fmt.Errorf("partitioner: topology has no groups: %w", errs.ErrPartition)
	}

	if point, ok := pointOf(spatial); ok {
		hash := geohash.Encode(point.Lat, point.Lon, fs.SpatialPrecision)
		v, err := geohash.HashToLong(hash)
		if err != nil {
			return nil, fmt.Errorf("partitioner: %w", err)
		}
		return []int{int(v % uint64(topo.GroupCount()))}, nil
	}

	hashes, err := geohash.CoverPolygon(spatial, fs.SpatialPrecision)
	if err != nil {
		return nil, fmt.Errorf("partitioner: cover polygon: %w", err)
	}
	groups := make([]int, 0, len(hashes))
	for _, h := range hashes {
		v, err := geohash.HashToLong(h)
		if err != nil {
			return nil, fmt.Errorf("partitioner: %w", err)
		}
		groups = append(groups, int(v%uint64(topo.GroupCount())))
	}
	return groups, nil
}

func pointOf(p types.Polygon) (types.Coordinates, bool) {
	if len(p) != 1 {
		return types.Coordinates{}, false
	}
	return p[0], true
}

// replicaSeed picks the number used to choose a replica within a group: the
// record's truncated temporal bucket, reduced to a granularity index (the
// spec's "dayOf(t)"), when a timestamp is present; its spatial hash
// otherwise.
func replicaSeed(fs types.FilesystemDescriptor, md types.Metadata) (uint64, error) {
	if md.HasTimestamp {
		bucket := fs.TemporalType.Truncate(md.Timestamp.Time())
		return uint64(bucketIndex(fs.TemporalType, bucket)), nil
	}
	center := md.Spatial.BoundingBox().Center()
	hash := geohash.Encode(center.Lat, center.Lon, fs.SpatialPrecision)
	v, err := geohash.HashToLong(hash)
	if err != nil {
		return 0, fmt.Errorf("partitioner: %w", err)
	}
	return v, nil
}

// bucketIndex reduces an already-truncated bucket to a plain count of
// granularity units since the epoch — the spec's "dayOf(t)" for DAY, and
// its analogues for the other three granularities. Every temporal boundary
// is itself a multiple of 3600 (HOUR) or 86400 (DAY/MONTH/YEAR), so using
// bucket.Unix() directly as a modulo seed collapses to 0 for almost every
// nodesPerGroup; counting units instead keeps successive buckets
// consecutive integers, so the modulo actually distributes across replicas.
func bucketIndex(t types.TemporalType, bucket time.Time) int64 {
	switch t {
	case types.Hour:
		return bucket.Unix() / 3600
	case types.Month:
		return int64(bucket.Year())*12 + int64(bucket.Month()) - 1
	case types.Year:
		return int64(bucket.Year())
	default: // Day
		return bucket.Unix() / 86400
	}
}
