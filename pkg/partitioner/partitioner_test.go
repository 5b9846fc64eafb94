package partitioner

import (
	"os"
	"path/filepath"
	"testing"

	"geofabric/pkg/geohash"
	"geofabric/pkg/topology"
	"geofabric/pkg/types"
)

const twoByTwoTopology = `
groups:
  - - hostname: node1
      port: 8100
    - hostname: node2
      port: 8100
  - - hostname: node3
      port: 8100
    - hostname: node4
      port: 8100
`

func loadTestTopology(t *testing.T) *topology.Topology {
	t.Helper()
	path := filepath.Join(t.TempDir(), "topology.yaml")
	if err := os.WriteFile(path, []byte(twoByTwoTopology), 0600); err != nil {
		t.Fatalf("write topology: %v", err)
	}
	topo, err := topology.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return topo
}

func pointMetadata(lat, lon float64) types.Metadata {
	return types.Metadata{HasSpatial: true, Spatial: types.Polygon{{Lat: lat, Lon: lon}}}
}

func TestLocateDataIsDeterministic(t *testing.T) {
	topo := loadTestTopology(t)
	fs := types.FilesystemDescriptor{Name: "test", SpatialPrecision: 6, TemporalType: types.Day, NodesPerGroup: 2}
	md := pointMetadata(40.7486, -73.9864)

	first, err := LocateData(topo, fs, md)
	if err != nil {
		t.Fatalf("LocateData: %v", err)
	}
	second, err := LocateData(topo, fs, md)
	if err != nil {
		t.Fatalf("LocateData: %v", err)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected a point to land in exactly one group, got %d and %d", len(first), len(second))
	}
	if first[0] != second[0] {
		t.Errorf("LocateData not deterministic: %+v != %+v", first[0], second[0])
	}
}

// TestLocateDataPicksTheReplicaDayOfNames pins the concrete (group, node)
// pair the temporal hash must land on for a fixed point and timestamp, so a
// regression that collapses bucketIndex back to a multiple of nodesPerGroup
// (and always picks replica 0) fails loudly instead of only breaking
// distribution in production.
func TestLocateDataPicksTheReplicaDayOfNames(t *testing.T) {
	topo := loadTestTopology(t)
	fs := types.FilesystemDescriptor{Name: "test", SpatialPrecision: 4, TemporalType: types.Day, NodesPerGroup: 2}
	md := types.Metadata{
		HasSpatial:   true,
		Spatial:      types.Polygon{{Lat: 40.7, Lon: -74.0}},
		HasTimestamp: true,
		Timestamp:    types.TimestampMs(1686830400000), // 2023-06-15T12:00:00Z
	}

	hash := geohash.Encode(40.7, -74.0, fs.SpatialPrecision)
	hashVal, err := geohash.HashToLong(hash)
	if err != nil {
		t.Fatalf("HashToLong: %v", err)
	}
	wantGroup := int(hashVal % uint64(topo.GroupCount()))

	const dayOf = 19523 // days since epoch for 2023-06-15, per the truncated bucket
	wantNode := topo.Group(wantGroup)[dayOf%2]

	dests, err := LocateData(topo, fs, md)
	if err != nil {
		t.Fatalf("LocateData: %v", err)
	}
	if len(dests) != 1 {
		t.Fatalf("expected exactly one destination, got %d", len(dests))
	}
	if dests[0].Group != wantGroup || dests[0].Node != wantNode {
		t.Errorf("LocateData = %+v, want group %d node %+v", dests[0], wantGroup, wantNode)
	}
}

func TestLocateDataRejectsMissingSpatial(t *testing.T) {
	topo := loadTestTopology(t)
	fs := types.FilesystemDescriptor{Name: "test", SpatialPrecision: 6, TemporalType: types.Day, NodesPerGroup: 2}
	if _, err := LocateData(topo, fs, types.Metadata{}); err == nil {
		t.Error("expected error for metadata with no spatial component")
	}
}

func TestFindDestinationsCoversEveryReplicaInMatchingGroups(t *testing.T) {
	topo := loadTestTopology(t)
	fs := types.FilesystemDescriptor{Name: "test", SpatialPrecision: 4, TemporalType: types.Day, NodesPerGroup: 2}

	region := types.Polygon{
		{Lat: -10, Lon: -10},
		{Lat: -10, Lon: 10},
		{Lat: 10, Lon: 10},
		{Lat: 10, Lon: -10},
	}
	dests, err := FindDestinations(topo, fs, region, nil)
	if err != nil {
		t.Fatalf("FindDestinations: %v", err)
	}
	if len(dests) == 0 {
		t.Fatal("FindDestinations returned no destinations")
	}

	groupsSeen := map[int]int{}
	for _, d := range dests {
		groupsSeen[d.Group]++
	}
	for g, count := range groupsSeen {
		if count != len(topo.Group(g)) {
			t.Errorf("group %d: got %d destinations, want %d (one per replica)", g, count, len(topo.Group(g)))
		}
	}
}
