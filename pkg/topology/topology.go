// Package topology loads the fabric's static node layout: a fixed list of
// replica groups, each a list of storage nodes. It is read once at startup
// from a YAML file and never mutated afterward — membership changes require
// a restart, matching the spec's non-goal of rebalancing on membership
// change. Grounded on pkg/cluster/types.go's FromEnv and the hostname
// matching StorageNode.start() does at boot.
package topology

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"geofabric/pkg/errs"
	"geofabric/pkg/types"
)

type fileFormat struct {
	Groups [][]nodeFormat `yaml:"groups"`
}

type nodeFormat struct {
	Hostname string `yaml:"hostname"`
	Port     int    `yaml:"port"`
}

// Topology is the immutable view of every storage node and the replica
// group it belongs to.
type Topology struct {
	groups    [][]types.NodeInfo
	hostIndex map[string]int
}

// Load reads and validates a topology file. Every group must be non-empty
// and every node must name both a hostname and a port.
func Load(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("topology: read %s: %w", path, errs.ErrIO)
	}

	var ff fileFormat
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("topology: parse %s: %w", path, errs.ErrSerialization)
	}
	if len(ff.Groups) == 0 {
		return nil, fmt.Errorf("topology: %s declares no groups: %w", path, errs.ErrPartition)
	}

	t := &Topology{hostIndex: make(map[string]int)}
	for gi, group := range ff.Groups {
		if len(group) == 0 {
			return nil, fmt.Errorf("topology: group %d is empty: %w", gi, errs.ErrPartition)
		}
		nodes := make([]types.NodeInfo, 0, len(group))
		for _, n := range group {
			if n.Hostname == "" || n.Port == 0 {
				return nil, fmt.Errorf("topology: group %d has a node missing hostname/port: %w", gi, errs.ErrValidation)
			}
			nodes = append(nodes, types.NodeInfo{Hostname: n.Hostname, Port: n.Port})
			t.hostIndex[n.Hostname] = gi
		}
		t.groups = append(t.groups, nodes)
	}
	return t, nil
}

// GroupCount returns the number of replica groups.
func (t *Topology) GroupCount() int { return len(t.groups) }

// Group returns the nodes in replica group i, or nil if i is out of range.
func (t *Topology) Group(i int) []types.NodeInfo {
	if i < 0 || i >= len(t.groups) {
		return nil
	}
	return t.groups[i]
}

// AllGroups returns every replica group.
func (t *Topology) AllGroups() [][]types.NodeInfo { return t.groups }

// AllNodes returns every node across every group.
func (t *Topology) AllNodes() []types.NodeInfo {
	var out []types.NodeInfo
	for _, g := range t.groups {
		out = append(out, g...)
	}
	return out
}

// GroupOf returns the replica group a hostname belongs to.
func (t *Topology) GroupOf(hostname string) ([]types.NodeInfo, bool) {
	idx, ok := t.hostIndex[hostname]
	if !ok {
		return nil, false
	}
	return t.groups[idx], true
}

// GroupIndexOf returns the index of the replica group a hostname belongs
// to.
func (t *Topology) GroupIndexOf(hostname string) (int, bool) {
	idx, ok := t.hostIndex[hostname]
	return idx, ok
}

// ContainsHost reports whether hostname is a known member of the topology,
// tolerating a short name against a fully-qualified one (and vice versa) by
// comparing the first DNS label when there is no exact match.
func (t *Topology) ContainsHost(hostname string) bool {
	if _, ok := t.hostIndex[hostname]; ok {
		return true
	}
	short, _, _ := strings.Cut(hostname, ".")
	for h := range t.hostIndex {
		if known, _, _ := strings.Cut(h, "."); known == short {
			return true
		}
	}
	return false
}
