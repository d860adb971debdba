package tui

import (
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/1broseidon/winsrv/internal/config"
	"github.com/1broseidon/winsrv/internal/ipc"
	"github.com/1broseidon/winsrv/internal/window"
)

type fakeDaemon struct {
	windows []ipc.WindowInfo
	calls   []string
	err     error
}

func (f *fakeDaemon) ListWindows() ([]ipc.WindowInfo, error) { return f.windows, f.err }
func (f *fakeDaemon) GetStatus() (*ipc.StatusData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ipc.StatusData{DaemonRunning: true}, nil
}
func (f *fakeDaemon) Raise(id window.ID) error { f.calls = append(f.calls, "raise"); return f.err }
func (f *fakeDaemon) Lower(id window.ID) error { f.calls = append(f.calls, "lower"); return f.err }
func (f *fakeDaemon) Focus(id window.ID) error { f.calls = append(f.calls, "focus"); return f.err }
func (f *fakeDaemon) DestroyWindow(id window.ID) error { f.calls = append(f.calls, "destroy"); return f.err }
func (f *fakeDaemon) UndoTile() error { f.calls = append(f.calls, "undo"); return f.err }
func (f *fakeDaemon) Reload() error { f.calls = append(f.calls, "reload"); return f.err }
func (f *fakeDaemon) Screenshot(int, int) (*ipc.ScreenshotData, error) { return nil, f.err }
func (f *fakeDaemon) Tile(string, *int) (*ipc.TileData, error) {
	f.calls = append(f.calls, "tile")
	return &ipc.TileData{Tiled: len(f.windows), Mode: "grid"}, f.err
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T, d Daemon) model {
	t.Helper()
	m := newModel(d, filepath.Join(t.TempDir(), "config.yaml"))
	return m.resize(tea.WindowSizeMsg{Width: 100, Height: 30})
}

func TestRefreshPopulatesWindows(t *testing.T) {
	d := &fakeDaemon{windows: []ipc.WindowInfo{{ID: 3, Class: "window"}, {ID: 1, Class: "panel", Focused: true}}}
	m := newTestModel(t, d)

	next, _ := m.Update(m.refresh()())
	m = next.(model)
	if m.status == nil {
		t.Fatalf("status not set")
	}
	if got := len(m.windowsTab.list.Items()); got != 2 {
		t.Fatalf("items = %d", got)
	}
	if info, ok := m.windowsTab.selected(); !ok || info.ID != 3 {
		t.Fatalf("selected = %+v, %v", info, ok)
	}
	if !strings.Contains(m.View(), "daemon connected") {
		t.Fatalf("view missing connection status")
	}
}

func TestRefreshErrorClearsStatus(t *testing.T) {
	d := &fakeDaemon{err: errors.New("down")}
	m := newTestModel(t, d)
	next, _ := m.Update(m.refresh()())
	m = next.(model)
	if m.status != nil {
		t.Fatalf("status kept after error")
	}
	if !strings.Contains(m.View(), "daemon not running") {
		t.Fatalf("view missing disconnected status")
	}
}

func TestWindowActions(t *testing.T) {
	d := &fakeDaemon{windows: []ipc.WindowInfo{{ID: 5, Class: "window"}}}
	m := newTestModel(t, d)
	next, _ := m.Update(m.refresh()())
	m = next.(model)

	for _, key := range []string{"r", "l", "f", "t", "u"} {
		_, cmd := m.Update(runes(key))
		if cmd == nil {
			t.Fatalf("key %q produced no command", key)
		}
		if _, ok := cmd().(actionMsg); !ok {
			t.Fatalf("key %q did not produce an action", key)
		}
	}
	want := []string{"raise", "lower", "focus", "tile", "undo"}
	if strings.Join(d.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v", d.calls)
	}
}

func TestDestroyAsksForConfirmation(t *testing.T) {
	d := &fakeDaemon{windows: []ipc.WindowInfo{{ID: 5, Class: "window"}}}
	m := newTestModel(t, d)
	next, _ := m.Update(m.refresh()())
	m = next.(model)

	next, _ = m.Update(runes("d"))
	m = next.(model)
	if !m.capturing() {
		t.Fatalf("confirmation not shown")
	}
	if len(d.calls) != 0 {
		t.Fatalf("destroyed without confirmation")
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(model)
	if m.capturing() {
		t.Fatalf("esc did not cancel")
	}
}

func TestTabSwitching(t *testing.T) {
	m := newTestModel(t, &fakeDaemon{})
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(model)
	if m.activeTab != TabScreen {
		t.Fatalf("tab = %v", m.activeTab)
	}
	next, _ = m.Update(runes("3"))
	m = next.(model)
	if m.activeTab != TabGeneral {
		t.Fatalf("tab = %v", m.activeTab)
	}
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m = next.(model)
	if m.activeTab != TabScreen {
		t.Fatalf("tab = %v", m.activeTab)
	}
}

func TestApplyFields(t *testing.T) {
	base := config.DefaultConfig()
	f := &generalFields{
		background:    "#102030",
		tileMode:      "master_stack",
		gapSize:       "4",
		masterPercent: "70",
		raiseOnClick:  false,
		moveModifier:  "alt",
		logLevel:      "debug",
	}
	next, err := applyFields(base, f)
	if err != nil {
		t.Fatalf("applyFields: %v", err)
	}
	if next.Tile.Mode != "master_stack" || next.Tile.GapSize != 4 || next.Tile.MasterPercent != 70 {
		t.Fatalf("tile = %+v", next.Tile)
	}
	if base.Tile.Mode != "grid" {
		t.Fatalf("base config modified")
	}

	f.masterPercent = "95"
	if _, err := applyFields(base, f); err == nil {
		t.Fatalf("expected validation error")
	}
	f.masterPercent = "x"
	if _, err := applyFields(base, f); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestGeneralTabSaves(t *testing.T) {
	d := &fakeDaemon{}
	path := filepath.Join(t.TempDir(), "config.yaml")
	g := NewGeneralTab(d, path)
	next := config.DefaultConfig()
	next.Tile.GapSize = 12

	msg := g.save(next)()
	saved, ok := msg.(savedMsg)
	if !ok || saved.err != nil {
		t.Fatalf("save = %+v", msg)
	}
	if len(d.calls) != 1 || d.calls[0] != "reload" {
		t.Fatalf("calls = %v", d.calls)
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Config.Tile.GapSize != 12 {
		t.Fatalf("gap = %d", res.Config.Tile.GapSize)
	}
}

func TestRenderHalfBlocks(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	out := renderHalfBlocks(img, 10, 10)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("rows = %d, want 2", len(lines))
	}
	if n := strings.Count(lines[0], "▀"); n != 4 {
		t.Fatalf("cells = %d, want 4", n)
	}
	if renderHalfBlocks(img, 0, 5) != "" {
		t.Fatalf("expected empty output for zero columns")
	}

	// Downscale to fit two columns.
	out = renderHalfBlocks(img, 2, 10)
	if n := strings.Count(strings.Split(out, "\n")[0], "▀"); n != 2 {
		t.Fatalf("scaled cells = %d, want 2", n)
	}
}
