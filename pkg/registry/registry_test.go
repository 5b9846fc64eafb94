package registry

import (
	"errors"
	"testing"

	"geofabric/pkg/errs"
	"geofabric/pkg/types"
)

type fakeHandle struct {
	dir    string
	blocks []types.Block
	closed bool
}

func (h *fakeHandle) Append(block types.Block) error {
	h.blocks = append(h.blocks, block)
	return nil
}

func (h *fakeHandle) Query(types.Polygon, *types.TimestampMs) ([]types.Block, error) {
	return h.blocks, nil
}

func (h *fakeHandle) Close() error {
	h.closed = true
	return nil
}

func fakeFactory(opened *[]string) Factory {
	return func(dir string, descriptor types.FilesystemDescriptor) (Handle, error) {
		*opened = append(*opened, descriptor.Name)
		return &fakeHandle{dir: dir}, nil
	}
}

func TestCreateIsIdempotent(t *testing.T) {
	var opened []string
	r, err := New(t.TempDir(), fakeFactory(&opened))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	desc := types.FilesystemDescriptor{Name: "traffic", SpatialPrecision: 6, TemporalType: types.Hour}
	if err := r.Create(desc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := r.Create(desc); err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if len(opened) != 1 {
		t.Errorf("factory invoked %d times, want 1 (idempotent create)", len(opened))
	}
}

func TestDeleteRemovesEntryAndHandle(t *testing.T) {
	var opened []string
	r, err := New(t.TempDir(), fakeFactory(&opened))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	desc := types.FilesystemDescriptor{Name: "traffic", SpatialPrecision: 6, TemporalType: types.Hour}
	if err := r.Create(desc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, handle, ok := r.Get("traffic")
	if !ok {
		t.Fatal("Get after Create: not found")
	}

	if err := r.Delete("traffic"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !handle.(*fakeHandle).closed {
		t.Error("Delete did not close the handle")
	}
	if _, _, ok := r.Get("traffic"); ok {
		t.Error("Get after Delete: still found")
	}
}

func TestDeleteUnknownReturnsNotFound(t *testing.T) {
	r, err := New(t.TempDir(), fakeFactory(&[]string{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.Delete("nope"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Delete(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestRestartReflectsDelete(t *testing.T) {
	dir := t.TempDir()
	var opened []string

	r, err := New(dir, fakeFactory(&opened))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	desc := types.FilesystemDescriptor{Name: "traffic", SpatialPrecision: 6, TemporalType: types.Hour}
	if err := r.Create(desc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := r.Delete("traffic"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	restarted, err := New(dir, fakeFactory(&opened))
	if err != nil {
		t.Fatalf("New (restart): %v", err)
	}
	if list := restarted.List(); len(list) != 0 {
		t.Errorf("restarted registry lists %d filesystems, want 0", len(list))
	}
}

func TestRestartReopensSurvivingFilesystems(t *testing.T) {
	dir := t.TempDir()
	var opened []string

	r, err := New(dir, fakeFactory(&opened))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	desc := types.FilesystemDescriptor{Name: "traffic", SpatialPrecision: 6, TemporalType: types.Hour}
	if err := r.Create(desc); err != nil {
		t.Fatalf("Create: %v", err)
	}

	opened = nil
	restarted, err := New(dir, fakeFactory(&opened))
	if err != nil {
		t.Fatalf("New (restart): %v", err)
	}
	if len(opened) != 1 || opened[0] != "traffic" {
		t.Errorf("restart reopened %v, want [traffic]", opened)
	}
	if list := restarted.List(); len(list) != 1 {
		t.Errorf("restarted registry lists %d filesystems, want 1", len(list))
	}
}
