package server

import (
	"github.com/1broseidon/winsrv/internal/events"
	"github.com/1broseidon/winsrv/internal/window"
)

// DragMargin is how many pixels of a dragged window stay on screen.
const DragMargin = 3

// InputOptions controls window management driven by raw input.
type InputOptions struct {
	// RaiseOnClick raises a window when it is clicked.
	RaiseOnClick bool `json:"raise_on_click"`
	// MoveModifier, while held, turns a left drag into a window move.
	// Zero disables interactive moves.
	MoveModifier events.Mod `json:"move_modifier"`
}

type dragState struct {
	active bool
	id     window.ID
	offX   int
	offY   int
}

// UpdateInput replaces the input options. A drag in progress ends.
func (s *Server) UpdateInput(opts InputOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = opts
	s.drag = dragState{}
}

// PushPointer feeds raw pointer state from an input driver.
func (s *Server) PushPointer(p events.Pointer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bounds := s.comp.Bounds()
	p.X = min(max(p.X, 0), bounds.Width-1)
	p.Y = min(max(p.Y, 0), bounds.Height-1)

	pressed := p.Buttons &^ s.buttons
	s.buttons = p.Buttons

	if s.drag.active {
		if p.Buttons&events.ButtonLeft == 0 {
			s.logger.Debug("drag finished", "window", s.drag.id)
			s.drag = dragState{}
			return
		}
		s.dragTo(p.X, p.Y)
		return
	}

	if pressed&events.ButtonLeft != 0 {
		if s.beginDrag(p) {
			return
		}
		s.clickFocus(p.X, p.Y)
	}

	s.router.RoutePointer(p)
}

// PushKey feeds a raw key transition from an input driver.
func (s *Server) PushKey(k events.KeyInput) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m := events.ModForKey(k.Key); m != 0 {
		if k.Pressed {
			s.mods |= m
		} else {
			s.mods &^= m
		}
	}
	k.Mods |= s.mods
	s.router.RouteKey(k)
}

func (s *Server) beginDrag(p events.Pointer) bool {
	mod := s.input.MoveModifier
	if mod == 0 || (s.mods|p.Mods)&mod != mod {
		return false
	}
	w, ok := s.comp.WindowAt(scene{s}, p.X, p.Y)
	if !ok || !w.Flags.CanMove {
		return false
	}
	s.drag = dragState{
		active: true,
		id:     w.ID,
		offX:   p.X - w.Bounds.X,
		offY:   p.Y - w.Bounds.Y,
	}
	if s.input.RaiseOnClick {
		if err := s.raise(w.ID); err != nil {
			s.logger.Warn("raise on drag failed", "window", w.ID, "error", err)
		}
	}
	s.logger.Debug("drag started", "window", w.ID)
	return true
}

func (s *Server) dragTo(px, py int) {
	w, err := s.reg.Lookup(s.drag.id)
	if err != nil {
		s.drag = dragState{}
		return
	}
	bounds := s.comp.Bounds()
	x, y := ClampOnScreen(px-s.drag.offX, py-s.drag.offY, w.Bounds.Width, w.Bounds.Height, bounds.Width, bounds.Height)
	if x == w.Bounds.X && y == w.Bounds.Y {
		return
	}
	if err := s.move(w.ID, x, y); err != nil {
		s.logger.Warn("drag move failed", "window", w.ID, "error", err)
	}
}

func (s *Server) clickFocus(x, y int) {
	w, ok := s.comp.WindowAt(scene{s}, x, y)
	if !ok || !w.AcceptsInput {
		return
	}
	s.router.SetFocus(w.ID)
	if s.input.RaiseOnClick {
		if err := s.raise(w.ID); err != nil {
			s.logger.Warn("raise on click failed", "window", w.ID, "error", err)
		}
	}
}

// ClampOnScreen limits a window position so at least DragMargin pixels of
// a w x h window stay inside a screen of sw x sh.
func ClampOnScreen(x, y, w, h, sw, sh int) (int, int) {
	x = min(max(x, DragMargin-w), sw-DragMargin)
	y = min(max(y, DragMargin-h), sh-DragMargin)
	return x, y
}
