// Package workspace saves the geometry of live windows under a name and
// puts it back later in the same daemon session.
package workspace

import (
	"errors"
	"fmt"
	"time"

	"github.com/1broseidon/winsrv/internal/ipc"
	"github.com/1broseidon/winsrv/internal/window"
)

// Entry is the saved geometry of one window.
type Entry struct {
	ID     window.ID `json:"id"`
	Class  string    `json:"class"`
	X      int       `json:"x"`
	Y      int       `json:"y"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
}

// Snapshot is a named set of window geometries, front-most first.
type Snapshot struct {
	Name    string    `json:"name"`
	SavedAt time.Time `json:"saved_at"`
	Windows []Entry   `json:"windows"`
}

// Daemon is the part of the client API a restore needs.
type Daemon interface {
	ListWindows() ([]ipc.WindowInfo, error)
	Move(id window.ID, x, y int) error
	Resize(id window.ID, width, height int) error
}

// Capture records the geometry of wins.
func Capture(name string, wins []ipc.WindowInfo) *Snapshot {
	s := &Snapshot{Name: name, SavedAt: time.Now().UTC(), Windows: make([]Entry, 0, len(wins))}
	for _, w := range wins {
		s.Windows = append(s.Windows, Entry{
			ID: w.ID, Class: w.Class,
			X: w.X, Y: w.Y, Width: w.Width, Height: w.Height,
		})
	}
	return s
}

// RestoreResult counts what a restore did.
type RestoreResult struct {
	Restored int
	// Missing windows were destroyed or changed class since the save.
	Missing int
	// Unchanged windows already had their saved geometry.
	Unchanged int
}

// Restore moves and resizes the live windows in s back to their saved
// geometry. Windows are matched by id and class. Capability errors are
// collected while the remaining windows are still restored.
func Restore(d Daemon, s *Snapshot) (RestoreResult, error) {
	var res RestoreResult
	wins, err := d.ListWindows()
	if err != nil {
		return res, err
	}
	live := make(map[window.ID]ipc.WindowInfo, len(wins))
	for _, w := range wins {
		live[w.ID] = w
	}

	var errs []error
	for _, e := range s.Windows {
		w, ok := live[e.ID]
		if !ok || w.Class != e.Class {
			res.Missing++
			continue
		}
		changed := false
		if w.Width != e.Width || w.Height != e.Height {
			if err := d.Resize(e.ID, e.Width, e.Height); err != nil {
				errs = append(errs, fmt.Errorf("resize window %d: %w", e.ID, err))
				continue
			}
			changed = true
		}
		if w.X != e.X || w.Y != e.Y {
			if err := d.Move(e.ID, e.X, e.Y); err != nil {
				errs = append(errs, fmt.Errorf("move window %d: %w", e.ID, err))
				continue
			}
			changed = true
		}
		if changed {
			res.Restored++
		} else {
			res.Unchanged++
		}
	}
	return res, errors.Join(errs...)
}
