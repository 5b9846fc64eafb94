// Package registry owns the set of filesystems a storage node currently
// serves: CREATE is idempotent, DELETE tears a filesystem down on disk, and
// every mutation persists a full snapshot so a restart reconstructs the
// same set. It assumes a single owning goroutine (the reactor) and takes no
// locks itself, the way StorageNode.java's fsMap is only ever touched from
// its own event thread. Grounded in shape on pkg/wal's directory-and-file
// lifecycle and pkg/config's struct-tree persistence.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"syscall"

	"geofabric/pkg/errs"
	"geofabric/pkg/types"
)

// Handle is the storage collaborator contract a registry entry's actual
// on-disk data store implements. Registry owns the filesystem's lifecycle;
// Handle owns its bytes.
type Handle interface {
	Append(block types.Block) error
	Query(region types.Polygon, temporal *types.TimestampMs) ([]types.Block, error)
	Close() error
}

// Factory opens (or creates) the Handle backing one filesystem, rooted at
// dir.
type Factory func(dir string, descriptor types.FilesystemDescriptor) (Handle, error)

type entry struct {
	descriptor types.FilesystemDescriptor
	handle     Handle
}

// Registry is the filesystem directory for one storage node.
type Registry struct {
	dir     string
	factory Factory
	entries map[string]*entry
}

const snapshotFile = "filesystems.json"

// New opens a registry rooted at dir, reconstructing every filesystem
// recorded in its last snapshot (if any) via factory.
func New(dir string, factory Factory) (*Registry, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("registry: create root dir %s: %w", dir, errs.ErrIO)
	}

	r := &Registry{dir: dir, factory: factory, entries: make(map[string]*entry)}

	data, err := os.ReadFile(filepath.Join(dir, snapshotFile))
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("registry: read snapshot: %w", errs.ErrIO)
	}

	var descriptors []types.FilesystemDescriptor
	if err := json.Unmarshal(data, &descriptors); err != nil {
		return nil, fmt.Errorf("registry: parse snapshot: %w", errs.ErrSerialization)
	}
	for _, d := range descriptors {
		handle, err := factory(filepath.Join(dir, d.Name), d)
		if err != nil {
			return nil, fmt.Errorf("registry: reopen filesystem %q: %w", d.Name, err)
		}
		r.entries[d.Name] = &entry{descriptor: d, handle: handle}
	}
	return r, nil
}

// Create registers a new filesystem. Creating a filesystem that already
// exists is a no-op, matching the CREATE handler's idempotence.
func (r *Registry) Create(descriptor types.FilesystemDescriptor) error {
	if _, exists := r.entries[descriptor.Name]; exists {
		return nil
	}

	fsDir := filepath.Join(r.dir, descriptor.Name)
	if err := os.MkdirAll(fsDir, 0750); err != nil {
		return fmt.Errorf("registry: create filesystem dir %s: %w", fsDir, errs.ErrIO)
	}

	handle, err := r.factory(fsDir, descriptor)
	if err != nil {
		return fmt.Errorf("registry: open handle for %q: %w", descriptor.Name, err)
	}

	r.entries[descriptor.Name] = &entry{descriptor: descriptor, handle: handle}
	return r.persist()
}

// Delete shuts a filesystem's handle down, removes its on-disk directory,
// and erases it from the registry.
func (r *Registry) Delete(name string) error {
	e, ok := r.entries[name]
	if !ok {
		return fmt.Errorf("registry: unknown filesystem %q: %w", name, errs.ErrNotFound)
	}

	if err := e.handle.Close(); err != nil {
		return fmt.Errorf("registry: close handle for %q: %w", name, err)
	}
	delete(r.entries, name)

	if err := os.RemoveAll(filepath.Join(r.dir, name)); err != nil {
		return fmt.Errorf("registry: remove filesystem dir for %q: %w", name, errs.ErrIO)
	}
	return r.persist()
}

// Get returns the descriptor and handle for a filesystem by name.
func (r *Registry) Get(name string) (types.FilesystemDescriptor, Handle, bool) {
	e, ok := r.entries[name]
	if !ok {
		return types.FilesystemDescriptor{}, nil, false
	}
	return e.descriptor, e.handle, true
}

// List returns every filesystem's descriptor, sorted by name.
func (r *Registry) List() []types.FilesystemDescriptor {
	out := make([]types.FilesystemDescriptor, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.descriptor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// persist writes a full snapshot of every registered descriptor while
// holding an exclusive advisory lock (flock) on the snapshot file, which
// serializes concurrent persist calls. The file is truncated when opened,
// before the lock is taken, and New reads it without taking the lock; the
// write is in place, so a crash mid-write can leave a partial snapshot.
func (r *Registry) persist() error {
	data, err := json.MarshalIndent(r.List(), "", "  ")
	if err != nil {
		return fmt.Errorf("registry: marshal snapshot: %w", errs.ErrSerialization)
	}

	path := filepath.Join(r.dir, snapshotFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("registry: open snapshot file: %w", errs.ErrIO)
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("registry: lock snapshot file: %w", errs.ErrIO)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("registry: write snapshot: %w", errs.ErrIO)
	}
	return f.Sync()
}
