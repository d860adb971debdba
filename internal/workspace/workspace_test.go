package workspace

import (
	"errors"
	"reflect"
	"testing"

	"github.com/1broseidon/winsrv/internal/ipc"
	"github.com/1broseidon/winsrv/internal/window"
)

type fakeDaemon struct {
	wins  []ipc.WindowInfo
	fixed map[window.ID]bool
	calls []string
}

func (f *fakeDaemon) ListWindows() ([]ipc.WindowInfo, error) { return f.wins, nil }

func (f *fakeDaemon) Move(id window.ID, x, y int) error {
	if f.fixed[id] {
		return window.ErrCapabilityDenied
	}
	f.calls = append(f.calls, "move")
	return nil
}

func (f *fakeDaemon) Resize(id window.ID, w, h int) error {
	f.calls = append(f.calls, "resize")
	return nil
}

func TestStorageRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	s := Capture("dev", []ipc.WindowInfo{{ID: 2, Class: "window", X: 1, Y: 2, Width: 30, Height: 40}})
	if err := Write(s); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read("dev")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !reflect.DeepEqual(got.Windows, s.Windows) {
		t.Fatalf("windows = %+v, want %+v", got.Windows, s.Windows)
	}

	if err := Write(Capture("alpha", nil)); err != nil {
		t.Fatal(err)
	}
	names, err := List()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(names, []string{"alpha", "dev"}) {
		t.Fatalf("List = %v", names)
	}

	if err := Delete("dev"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := Read("dev"); err == nil {
		t.Fatalf("expected error reading deleted workspace")
	}
}

func TestListWithoutDirectory(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	names, err := List()
	if err != nil || names != nil {
		t.Fatalf("List = %v, %v", names, err)
	}
}

func TestValidateName(t *testing.T) {
	for _, name := range []string{"", "  ", "a/b", "..", "x..y"} {
		if err := ValidateName(name); err == nil {
			t.Errorf("ValidateName(%q) accepted", name)
		}
	}
	if err := ValidateName("dev-1"); err != nil {
		t.Errorf("ValidateName(dev-1): %v", err)
	}
}

func TestRestore(t *testing.T) {
	s := &Snapshot{Windows: []Entry{
		{ID: 1, Class: "window", X: 10, Y: 10, Width: 50, Height: 50}, // moved since
		{ID: 2, Class: "window", X: 0, Y: 0, Width: 20, Height: 20},   // unchanged
		{ID: 3, Class: "window", X: 5, Y: 5, Width: 20, Height: 20},   // destroyed
		{ID: 4, Class: "bar", X: 0, Y: 0, Width: 20, Height: 20},      // now a popup
		{ID: 5, Class: "window", X: 9, Y: 9, Width: 20, Height: 20},   // fixed
	}}
	d := &fakeDaemon{
		wins: []ipc.WindowInfo{
			{ID: 1, Class: "window", X: 0, Y: 0, Width: 40, Height: 50},
			{ID: 2, Class: "window", X: 0, Y: 0, Width: 20, Height: 20},
			{ID: 4, Class: "popup", X: 0, Y: 0, Width: 20, Height: 20},
			{ID: 5, Class: "window", X: 0, Y: 0, Width: 20, Height: 20},
		},
		fixed: map[window.ID]bool{5: true},
	}

	res, err := Restore(d, s)
	if !errors.Is(err, window.ErrCapabilityDenied) {
		t.Fatalf("err = %v, want capability denied", err)
	}
	want := RestoreResult{Restored: 1, Missing: 2, Unchanged: 1}
	if res != want {
		t.Fatalf("result = %+v, want %+v", res, want)
	}
	if !reflect.DeepEqual(d.calls, []string{"resize", "move"}) {
		t.Fatalf("calls = %v", d.calls)
	}
}
