// Package hotkeys binds keyboard shortcuts on the x11 output window to
// window-management actions.
package hotkeys

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/winsrv/internal/config"
)

// Target is the window shortcuts are bound on.
type Target interface {
	XUtil() *xgbutil.XUtil
	ID() xproto.Window
}

// Tiler is the part of the tiler shortcuts drive.
type Tiler interface {
	Tile() (int, error)
	Undo() error
}

// Binding maps one key sequence to an action.
type Binding struct {
	Name string
	Keys string
	Run  func() error
}

// Bindings builds the shortcut table for the configured keys. Entries with
// an empty sequence are left out.
func Bindings(s config.Shortcuts, t Tiler) []Binding {
	all := []Binding{
		{Name: "tile", Keys: s.Tile, Run: func() error { _, err := t.Tile(); return err }},
		{Name: "undo", Keys: s.Undo, Run: t.Undo},
	}
	out := all[:0]
	for _, b := range all {
		if b.Keys != "" {
			out = append(out, b)
		}
	}
	return out
}

// Handler manages the shortcuts bound on one window.
type Handler struct {
	xu     *xgbutil.XUtil
	win    xproto.Window
	logger *slog.Logger

	mu    sync.Mutex
	bound []Binding
}

var ignoreModsOnce sync.Once

// NewHandler creates a handler for target. CapsLock, NumLock and
// ScrollLock never change which shortcut a key press matches.
func NewHandler(target Target, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	xu := target.XUtil()
	ignoreModsOnce.Do(func() {
		configureIgnoreMods(xu)
	})
	return &Handler{xu: xu, win: target.ID(), logger: logger}
}

// Bind replaces the current shortcuts with bs. A sequence that cannot be
// parsed is skipped and reported; the others still bind.
func (h *Handler) Bind(bs []Binding) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	keybind.Detach(h.xu, h.win)
	h.bound = h.bound[:0]

	var errs []error
	for _, b := range bs {
		if err := h.connect(b); err != nil {
			errs = append(errs, fmt.Errorf("shortcut %s (%q): %w", b.Name, b.Keys, err))
			continue
		}
		h.bound = append(h.bound, b)
		h.logger.Debug("hotkeys: bound", "action", b.Name, "keys", b.Keys)
	}
	return errors.Join(errs...)
}

func (h *Handler) connect(b Binding) error {
	if _, _, err := keybind.ParseString(h.xu, b.Keys); err != nil {
		return err
	}
	return keybind.KeyPressFun(func(_ *xgbutil.XUtil, _ xevent.KeyPressEvent) {
		if err := b.Run(); err != nil {
			h.logger.Warn("hotkeys: action failed", "action", b.Name, "error", err)
			return
		}
		h.logger.Info("hotkeys: action", "action", b.Name)
	}).Connect(h.xu, h.win, b.Keys, false)
}

// Bound returns the names of the active shortcuts.
func (h *Handler) Bound() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, len(h.bound))
	for i, b := range h.bound {
		names[i] = b.Name
	}
	return names
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	unique := make(map[uint16]struct{})
	add := func(mask uint16) {
		unique[mask] = struct{}{}
	}

	add(0)
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		add(mask)
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}

	xevent.IgnoreMods = ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
