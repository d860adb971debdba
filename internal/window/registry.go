package window

import (
	"fmt"
	"sort"
)

type slot struct {
	gen uint32
	win *Window
}

// Registry owns the live window records. It hands out public IDs and the
// arena Handles other components use to refer to a window without holding
// a pointer to it.
//
// Registry is not safe for concurrent use; the server serializes access.
type Registry struct {
	slots  []slot
	free   []uint32
	byID   map[ID]Handle
	nextID ID
}

// NewRegistry returns an empty registry. The first window gets ID 1.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[ID]Handle),
		nextID: 1,
	}
}

// Insert validates spec and creates a window record for it.
func (r *Registry) Insert(spec Spec) (*Window, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if r.nextID == 0 {
		return nil, ErrIDsExhausted
	}

	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		r.slots = append(r.slots, slot{gen: 1})
		idx = uint32(len(r.slots) - 1)
	}

	s := &r.slots[idx]
	w := &Window{
		ID:     r.nextID,
		Handle: Handle{Index: idx, Gen: s.gen},
		PID:    spec.PID,
		Class:  spec.Class,
		Flags:  spec.Flags,
		Bounds: Rect{
			X:      spec.X,
			Y:      spec.Y,
			Width:  spec.Width,
			Height: spec.Height,
		},
		MinWidth:     spec.MinWidth,
		MinHeight:    spec.MinHeight,
		AcceptsInput: !spec.NoInput,
	}
	s.win = w
	r.byID[w.ID] = w.Handle
	// Wraps to 0 after the last ID, which Insert treats as exhausted.
	r.nextID++
	return w, nil
}

// Lookup returns the live window with the given ID.
func (r *Registry) Lookup(id ID) (*Window, error) {
	h, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: window %d", ErrInvalidHandle, id)
	}
	w, ok := r.Resolve(h)
	if !ok {
		return nil, fmt.Errorf("%w: window %d", ErrInvalidHandle, id)
	}
	return w, nil
}

// Resolve returns the window a Handle refers to. A stale Handle, one whose
// slot has since been released or reused, reports false.
func (r *Registry) Resolve(h Handle) (*Window, bool) {
	if h.IsZero() || int(h.Index) >= len(r.slots) {
		return nil, false
	}
	s := r.slots[h.Index]
	if s.gen != h.Gen || s.win == nil {
		return nil, false
	}
	return s.win, true
}

// Remove deletes the window with the given ID and invalidates its Handle.
func (r *Registry) Remove(id ID) (*Window, error) {
	w, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}
	s := &r.slots[w.Handle.Index]
	s.win = nil
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	r.free = append(r.free, w.Handle.Index)
	delete(r.byID, id)
	return w, nil
}

// Move repositions a window. It requires CanMove.
func (r *Registry) Move(id ID, x, y int) (*Window, error) {
	w, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}
	if !w.Flags.CanMove {
		return nil, fmt.Errorf("%w: window %d cannot move", ErrCapabilityDenied, id)
	}
	w.Bounds.X = x
	w.Bounds.Y = y
	return w, nil
}

// CheckResize reports whether the window may take the new size, without
// applying it.
func (r *Registry) CheckResize(id ID, width, height int) (*Window, error) {
	w, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}
	if !w.Flags.CanResize {
		return nil, fmt.Errorf("%w: window %d cannot resize", ErrCapabilityDenied, id)
	}
	if err := CheckSize(width, height); err != nil {
		return nil, err
	}
	if width < w.MinWidth || height < w.MinHeight {
		return nil, fmt.Errorf("%w: %dx%d below minimum %dx%d", ErrInvalidSize, width, height, w.MinWidth, w.MinHeight)
	}
	return w, nil
}

// Len returns the number of live windows.
func (r *Registry) Len() int {
	return len(r.byID)
}

// Each calls fn for every live window in ID order. fn must not insert or
// remove windows.
func (r *Registry) Each(fn func(*Window)) {
	ids := make([]ID, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if w, ok := r.Resolve(r.byID[id]); ok {
			fn(w)
		}
	}
}

// List returns copies of every live window record in ID order.
func (r *Registry) List() []Window {
	out := make([]Window, 0, len(r.byID))
	r.Each(func(w *Window) {
		out = append(out, *w)
	})
	return out
}
