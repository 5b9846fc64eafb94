package node

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"geofabric/pkg/blockstore"
	"geofabric/pkg/reactor"
	"geofabric/pkg/topology"
	"geofabric/pkg/types"
)

func postJSON(t *testing.T, url string, body any, wantStatus int) {
	t.Helper()
	postJSONInto(t, url, body, wantStatus, nil)
}

func postJSONInto(t *testing.T, url string, body any, wantStatus int, out any) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("POST %s: status = %d, want %d", url, resp.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response from %s: %v", url, err)
		}
	}
}

const singleNodeTopology = `
groups:
  - - hostname: solo
      port: 9000
`

func newTestNode(t *testing.T) (*Node, func()) {
	t.Helper()

	topoPath := filepath.Join(t.TempDir(), "topology.yaml")
	if err := os.WriteFile(topoPath, []byte(singleNodeTopology), 0600); err != nil {
		t.Fatalf("write topology: %v", err)
	}
	topo, err := topology.Load(topoPath)
	if err != nil {
		t.Fatalf("load topology: %v", err)
	}

	n, err := New(Options{
		Self:          types.NodeInfo{Hostname: "solo", Port: 9000},
		Topology:      topo,
		DataDir:       t.TempDir(),
		Factory:       blockstore.Open,
		FanoutTimeout: time.Second,
		WorkerCount:   2,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	n.Start(ctx)
	return n, func() {
		cancel()
		_ = n.Stop()
	}
}

func waitForFilesystem(t *testing.T, n *Node, name string, want bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, _, ok := n.reg.Get(name)
		if ok == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("filesystem %q presence never reached %v", name, want)
}

func TestFilesystemCreateAndDeleteLifecycle(t *testing.T) {
	n, stop := newTestNode(t)
	defer stop()

	descriptor := types.FilesystemDescriptor{Name: "trips", SpatialPrecision: 5, TemporalType: types.Day, NodesPerGroup: 1}
	n.Emit(reactor.Event{Kind: "FilesystemRequest", Payload: types.FilesystemRequest{Op: types.FilesystemCreate, Descriptor: descriptor}})
	waitForFilesystem(t, n, "trips", true)

	n.Emit(reactor.Event{Kind: "FilesystemRequest", Payload: types.FilesystemRequest{Op: types.FilesystemDelete, Descriptor: descriptor}})
	waitForFilesystem(t, n, "trips", false)
}

func TestFilesystemDeletePersistsAcrossRestart(t *testing.T) {
	dataDir := t.TempDir()
	topoPath := filepath.Join(t.TempDir(), "topology.yaml")
	if err := os.WriteFile(topoPath, []byte(singleNodeTopology), 0600); err != nil {
		t.Fatalf("write topology: %v", err)
	}
	topo, err := topology.Load(topoPath)
	if err != nil {
		t.Fatalf("load topology: %v", err)
	}
	self := types.NodeInfo{Hostname: "solo", Port: 9000}

	n1, err := New(Options{Self: self, Topology: topo, DataDir: dataDir, Factory: blockstore.Open})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	descriptor := types.FilesystemDescriptor{Name: "events", SpatialPrecision: 5, TemporalType: types.Hour}
	if err := n1.reg.Create(descriptor); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := n1.reg.Delete("events"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := n1.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	n2, err := New(Options{Self: self, Topology: topo, DataDir: dataDir, Factory: blockstore.Open})
	if err != nil {
		t.Fatalf("reopen New: %v", err)
	}
	defer n2.Stop()

	if _, _, ok := n2.reg.Get("events"); ok {
		t.Error("deleted filesystem reappeared after restart")
	}
}

func TestStorageAndInteractiveQueryRoundTrip(t *testing.T) {
	n, stop := newTestNode(t)
	defer stop()

	descriptor := types.FilesystemDescriptor{Name: "sensors", SpatialPrecision: 3, TemporalType: types.Hour}
	if err := n.reg.Create(descriptor); err != nil {
		t.Fatalf("Create: %v", err)
	}

	srv := NewServer(n, ServerOptions{AwaitTimeout: 2 * time.Second})
	ts := httptest.NewServer(srv.router())
	defer ts.Close()

	block := types.Block{
		Filesystem: "sensors",
		Metadata: types.Metadata{
			HasTimestamp: true,
			Timestamp:    types.TimestampMs(time.Now().UnixMilli()),
			HasSpatial:   true,
			Spatial:      types.Polygon{{Lat: 10, Lon: 20}},
		},
	}
	storeReq := types.StorageRequest{Filesystem: "sensors", Metadata: block.Metadata}
	postJSON(t, ts.URL+"/v1/blocks", storeReq, http.StatusAccepted)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if blocks, err := func() ([]types.Block, error) {
			_, handle, _ := n.reg.Get("sensors")
			return handle.Query(nil, nil)
		}(); err == nil && len(blocks) == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	queryReq := types.QueryRequest{
		Filesystem: "sensors",
		Region: types.Polygon{
			{Lat: 9, Lon: 19}, {Lat: 11, Lon: 19}, {Lat: 11, Lon: 21}, {Lat: 9, Lon: 21},
		},
		Interactive: true,
		Temporal:    &block.Metadata.Timestamp,
	}
	var result types.QueryResult
	postJSONInto(t, ts.URL+"/v1/queries", queryReq, http.StatusOK, &result)

	if len(result.Rows) == 0 {
		t.Fatalf("expected at least one row, got result %+v", result)
	}
}
