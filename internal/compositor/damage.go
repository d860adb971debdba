package compositor

import "github.com/1broseidon/winsrv/internal/window"

// Damage accumulates screen rectangles awaiting recomposite. Rectangles are
// clipped to the screen and overlapping ones are merged, so the list stays
// short under repeated draws of the same window.
type Damage struct {
	bounds window.Rect
	rects  []window.Rect
}

// NewDamage returns an empty accumulator clipped to bounds.
func NewDamage(bounds window.Rect) *Damage {
	return &Damage{bounds: bounds}
}

// Add marks r dirty.
func (d *Damage) Add(r window.Rect) {
	r = r.Intersect(d.bounds)
	if r.Empty() {
		return
	}
	for {
		merged := false
		kept := d.rects[:0]
		for _, o := range d.rects {
			if o.Overlaps(r) {
				r = r.Union(o)
				merged = true
				continue
			}
			kept = append(kept, o)
		}
		d.rects = kept
		if !merged {
			break
		}
	}
	d.rects = append(d.rects, r)
}

// AddAll marks the whole screen dirty.
func (d *Damage) AddAll() {
	d.rects = append(d.rects[:0], d.bounds)
}

// Rects returns a copy of the pending rectangles.
func (d *Damage) Rects() []window.Rect {
	out := make([]window.Rect, len(d.rects))
	copy(out, d.rects)
	return out
}

// Empty reports whether nothing is pending.
func (d *Damage) Empty() bool { return len(d.rects) == 0 }

// Clear drops every pending rectangle.
func (d *Damage) Clear() { d.rects = d.rects[:0] }
