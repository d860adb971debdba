package window

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds reported by window operations. Callers test with errors.Is.
var (
	ErrInvalidSize      = errors.New("invalid size")
	ErrInvalidHandle    = errors.New("invalid handle")
	ErrCapabilityDenied = errors.New("capability denied")
)

// MaxDimension bounds window width and height, which keeps a buffer's size
// in bytes within 32 bits.
const MaxDimension = 16384

// ErrIDsExhausted reports that every window ID has been handed out.
var ErrIDsExhausted = errors.New("window ids exhausted")

// CheckSize reports ErrInvalidSize unless both dimensions lie in
// [1, MaxDimension].
func CheckSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if width > MaxDimension || height > MaxDimension {
		return fmt.Errorf("%w: %dx%d exceeds %dx%d", ErrInvalidSize, width, height, MaxDimension, MaxDimension)
	}
	return nil
}

// ID is the client-visible window handle. IDs start at 1, increase
// monotonically and are never reused for the life of the server.
type ID uint32

// Handle references an arena slot. The generation changes every time the
// slot is released, so a Handle held past destroy no longer resolves.
type Handle struct {
	Index uint32
	Gen   uint32
}

// IsZero reports whether h is the zero Handle, which never resolves.
func (h Handle) IsZero() bool {
	return h.Gen == 0
}

// Class tags a window with its role. Classes stack in bands:
// wallpaper below normal windows, bars above them, popups on top.
type Class uint8

const (
	ClassWallpaper Class = iota
	ClassWindow
	ClassBar
	ClassPopup
)

func (c Class) String() string {
	switch c {
	case ClassWallpaper:
		return "wallpaper"
	case ClassWindow:
		return "window"
	case ClassBar:
		return "bar"
	case ClassPopup:
		return "popup"
	default:
		return fmt.Sprintf("class(%d)", uint8(c))
	}
}

// ParseClass converts a class name back to a Class. The empty string is
// the normal window class.
func ParseClass(s string) (Class, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "window":
		return ClassWindow, nil
	case "wallpaper":
		return ClassWallpaper, nil
	case "bar":
		return ClassBar, nil
	case "popup":
		return ClassPopup, nil
	default:
		return ClassWindow, fmt.Errorf("unknown window class %q", s)
	}
}

// Flags are the per-window capability and blending controls.
type Flags struct {
	CanMove   bool
	CanResize bool
	// Transparent blends the window's pixels over what lies beneath.
	Transparent bool
	// TreatAsTransparent removes the window from occlusion and hit-testing
	// (cursor and overlay windows). It does not affect blending.
	TreatAsTransparent bool
}

// Spec describes a window to create.
type Spec struct {
	Width     int
	Height    int
	X         int
	Y         int
	Flags     Flags
	MinWidth  int
	MinHeight int
	Class     Class
	PID       int
	// NoInput keeps the window from receiving routed mouse and keyboard
	// events and from becoming the implicit focus.
	NoInput bool
}

// DefaultSpec is the spec used by the four-argument create call.
func DefaultSpec(width, height int, transparent, treatAsTransparent bool) Spec {
	return Spec{
		Width:  width,
		Height: height,
		Flags: Flags{
			CanMove:            true,
			CanResize:          true,
			Transparent:        transparent,
			TreatAsTransparent: treatAsTransparent,
		},
		MinWidth:  1,
		MinHeight: 1,
		Class:     ClassWindow,
	}
}

// Validate checks the requested size against the limits and the floor.
func (s Spec) Validate() error {
	if err := CheckSize(s.Width, s.Height); err != nil {
		return err
	}
	if s.MinWidth < 0 || s.MinHeight < 0 {
		return fmt.Errorf("%w: negative minimum %dx%d", ErrInvalidSize, s.MinWidth, s.MinHeight)
	}
	if s.Width < s.MinWidth || s.Height < s.MinHeight {
		return fmt.Errorf("%w: %dx%d below minimum %dx%d", ErrInvalidSize, s.Width, s.Height, s.MinWidth, s.MinHeight)
	}
	return nil
}

// Window is a live window record.
type Window struct {
	ID     ID
	Handle Handle
	PID    int
	Class  Class
	Flags  Flags

	// Bounds holds position and size in screen coordinates. The position
	// may be negative or off-screen.
	Bounds Rect

	MinWidth  int
	MinHeight int

	AcceptsInput bool

	// Z is the window's position in the stacking order, 0 being the
	// rearmost. It is filled in when records are reported.
	Z int
}

// Occludes reports whether the window hides what lies beneath it.
func (w *Window) Occludes() bool {
	return !w.Flags.Transparent && !w.Flags.TreatAsTransparent
}

// HitTestable reports whether pointer hit-testing considers the window.
func (w *Window) HitTestable() bool {
	return !w.Flags.TreatAsTransparent
}
