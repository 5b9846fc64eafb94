package topology

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleTopology = `
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

func writeTopology(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "topology.yaml")
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("write topology file: %v", err)
	}
	return path
}

func TestLoadAndQuery(t *testing.T) {
	path := writeTopology(t, sampleTopology)
	topo, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if topo.GroupCount() != 2 {
		t.Fatalf("GroupCount() = %d, want 2", topo.GroupCount())
	}
	if len(topo.AllNodes()) != 4 {
		t.Fatalf("AllNodes() has %d entries, want 4", len(topo.AllNodes()))
	}

	idx, ok := topo.GroupIndexOf("node3")
	if !ok || idx != 1 {
		t.Errorf("GroupIndexOf(node3) = (%d,%v), want (1,true)", idx, ok)
	}
	if !topo.ContainsHost("node1") {
		t.Error("ContainsHost(node1) = false, want true")
	}
	if topo.ContainsHost("node99") {
		t.Error("ContainsHost(node99) = true, want false")
	}
}

func TestLoadRejectsEmptyGroup(t *testing.T) {
	path := writeTopology(t, "groups:\n  - []\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for empty group")
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
