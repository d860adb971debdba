package compositor

import (
	"fmt"
	"sync/atomic"

	"github.com/1broseidon/winsrv/internal/window"
)

// Layer is one z-order slot.
type Layer struct {
	Handle window.Handle
	Class  window.Class
}

// ZOrder is the stacking order, rearmost first. Every mutation builds a new
// slice and publishes it with one atomic store, so a reader holding a
// Snapshot never sees a partial reorder.
//
// Mutations must be serialized by the caller; Snapshot may be called from
// any goroutine.
type ZOrder struct {
	layers atomic.Pointer[[]Layer]
}

// NewZOrder returns an empty stacking order.
func NewZOrder() *ZOrder {
	z := &ZOrder{}
	empty := []Layer{}
	z.layers.Store(&empty)
	return z
}

// Snapshot returns the current order, rearmost first. The slice must not
// be modified.
func (z *ZOrder) Snapshot() []Layer {
	return *z.layers.Load()
}

// Len returns the number of layers.
func (z *ZOrder) Len() int {
	return len(z.Snapshot())
}

// Index returns h's position, 0 being the rearmost, or -1.
func (z *ZOrder) Index(h window.Handle) int {
	for i, l := range z.Snapshot() {
		if l.Handle == h {
			return i
		}
	}
	return -1
}

// Insert places h at the front of its class band.
func (z *ZOrder) Insert(h window.Handle, class window.Class) error {
	cur := z.Snapshot()
	if z.Index(h) >= 0 {
		return fmt.Errorf("handle %v already stacked", h)
	}
	at := bandEnd(cur, class)
	next := make([]Layer, 0, len(cur)+1)
	next = append(next, cur[:at]...)
	next = append(next, Layer{Handle: h, Class: class})
	next = append(next, cur[at:]...)
	z.layers.Store(&next)
	return nil
}

// Remove drops h. Removing an unknown handle is a no-op.
func (z *ZOrder) Remove(h window.Handle) {
	cur := z.Snapshot()
	i := z.Index(h)
	if i < 0 {
		return
	}
	next := make([]Layer, 0, len(cur)-1)
	next = append(next, cur[:i]...)
	next = append(next, cur[i+1:]...)
	z.layers.Store(&next)
}

// Raise moves h to the front of its class band.
func (z *ZOrder) Raise(h window.Handle) error {
	return z.reposition(h, true)
}

// Lower moves h to the back of its class band.
func (z *ZOrder) Lower(h window.Handle) error {
	return z.reposition(h, false)
}

func (z *ZOrder) reposition(h window.Handle, front bool) error {
	cur := z.Snapshot()
	i := z.Index(h)
	if i < 0 {
		return fmt.Errorf("%w: handle %v not stacked", window.ErrInvalidHandle, h)
	}
	l := cur[i]

	rest := make([]Layer, 0, len(cur))
	rest = append(rest, cur[:i]...)
	rest = append(rest, cur[i+1:]...)

	at := bandStart(rest, l.Class)
	if front {
		at = bandEnd(rest, l.Class)
	}
	next := make([]Layer, 0, len(cur))
	next = append(next, rest[:at]...)
	next = append(next, l)
	next = append(next, rest[at:]...)
	z.layers.Store(&next)
	return nil
}

// bandStart returns the index of the first layer of class c or above.
func bandStart(ls []Layer, c window.Class) int {
	for i, l := range ls {
		if l.Class >= c {
			return i
		}
	}
	return len(ls)
}

// bandEnd returns the index just past the last layer of class c or below.
func bandEnd(ls []Layer, c window.Class) int {
	for i, l := range ls {
		if l.Class > c {
			return i
		}
	}
	return len(ls)
}
