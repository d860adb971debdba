package tiling

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/1broseidon/winsrv/internal/window"
)

// Controller is the part of the window server the tiler drives.
type Controller interface {
	Windows() []window.Window
	Move(id window.ID, x, y int) error
	Resize(id window.ID, width, height int) error
}

// Tiler arranges the movable, resizable normal windows on the screen and
// remembers their previous geometry for one level of undo.
type Tiler struct {
	mu       sync.Mutex
	ctrl     Controller
	area     window.Rect
	layout   Layout
	previous map[window.ID]window.Rect
	logger   *slog.Logger
}

// NewTiler creates a tiler for area.
func NewTiler(ctrl Controller, area window.Rect, layout Layout, logger *slog.Logger) *Tiler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Tiler{ctrl: ctrl, area: area, layout: layout, logger: logger}
}

// Layout returns the configured layout.
func (t *Tiler) Layout() Layout {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.layout
}

// SetLayout replaces the configured layout.
func (t *Tiler) SetLayout(l Layout) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.layout = l
}

// Tile applies the configured layout.
func (t *Tiler) Tile() (int, error) {
	return t.TileWith(t.Layout())
}

// tileable reports whether a window takes part in tiling.
func tileable(w window.Window) bool {
	return w.Class == window.ClassWindow && w.Flags.CanMove && w.Flags.CanResize
}

// TileWith arranges windows in creation order using layout and returns how
// many were placed. Windows whose minimum size exceeds their slot keep
// their size; the failures are joined into the returned error.
func (t *Tiler) TileWith(layout Layout) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var wins []window.Window
	for _, w := range t.ctrl.Windows() {
		if tileable(w) {
			wins = append(wins, w)
		}
	}
	sort.Slice(wins, func(i, j int) bool { return wins[i].ID < wins[j].ID })
	if len(wins) == 0 {
		return 0, nil
	}

	positions, err := CalculatePositions(len(wins), t.area, layout)
	if err != nil {
		return 0, err
	}

	previous := make(map[window.ID]window.Rect, len(wins))
	var errs []error
	placed := 0
	for i, w := range wins {
		previous[w.ID] = w.Bounds
		pos := positions[i]
		if err := t.ctrl.Move(w.ID, pos.X, pos.Y); err != nil {
			errs = append(errs, fmt.Errorf("window %d: %w", w.ID, err))
			continue
		}
		if pos.Width != w.Bounds.Width || pos.Height != w.Bounds.Height {
			if err := t.ctrl.Resize(w.ID, pos.Width, pos.Height); err != nil {
				errs = append(errs, fmt.Errorf("window %d: %w", w.ID, err))
			}
		}
		placed++
	}
	t.previous = previous

	t.logger.Info("tiling: arranged windows", "mode", layout.Mode, "windows", placed, "gap", layout.Gap)
	return placed, errors.Join(errs...)
}

// Undo restores the geometry captured by the last tile. Windows destroyed
// since then are skipped.
func (t *Tiler) Undo() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.previous) == 0 {
		return nil
	}
	ids := make([]window.ID, 0, len(t.previous))
	for id := range t.previous {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var errs []error
	for _, id := range ids {
		r := t.previous[id]
		if err := t.ctrl.Move(id, r.X, r.Y); err != nil {
			if errors.Is(err, window.ErrInvalidHandle) {
				continue
			}
			errs = append(errs, err)
			continue
		}
		if err := t.ctrl.Resize(id, r.Width, r.Height); err != nil && !errors.Is(err, window.ErrInvalidHandle) {
			errs = append(errs, err)
		}
	}
	t.previous = nil
	return errors.Join(errs...)
}
