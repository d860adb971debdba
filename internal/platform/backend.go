package platform

import (
	"github.com/1broseidon/winsrv/internal/window"
)

// Display describes a physical display.
type Display struct {
	ID      int
	Name    string
	Bounds  window.Rect
	Primary bool
}

// Backend abstracts the host display system the server runs on.
type Backend interface {
	Displays() ([]Display, error)
	PrimaryDisplay() (Display, error)
}

// PrimaryOrFirst picks the primary display, else the first one listed.
func PrimaryOrFirst(displays []Display) (Display, bool) {
	if len(displays) == 0 {
		return Display{}, false
	}
	for _, d := range displays {
		if d.Primary {
			return d, true
		}
	}
	return displays[0], true
}

// ScreenSize returns the size the server should use: the primary display's
// size when detection succeeds, else the fallback.
func ScreenSize(b Backend, fallbackW, fallbackH int) (int, int, error) {
	if b == nil {
		return fallbackW, fallbackH, nil
	}
	d, err := b.PrimaryDisplay()
	if err != nil {
		return fallbackW, fallbackH, err
	}
	if d.Bounds.Width <= 0 || d.Bounds.Height <= 0 {
		return fallbackW, fallbackH, nil
	}
	return d.Bounds.Width, d.Bounds.Height, nil
}
