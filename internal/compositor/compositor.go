// Package compositor flattens the stacked windows into one screen frame.
package compositor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/1broseidon/winsrv/internal/buffer"
	"github.com/1broseidon/winsrv/internal/window"
)

// ErrCorruptZOrder reports a stacking order holding a duplicate or stale
// handle. The frame is not produced when it occurs.
var ErrCorruptZOrder = errors.New("corrupt z-order")

// Scene resolves stacked handles to live windows and their pixels.
type Scene interface {
	Resolve(h window.Handle) (*window.Window, bool)
	Buffer(id window.ID) (*buffer.Buffer, bool)
}

// Sink consumes composited frames. damage lists the screen rectangles that
// changed since the previous Present.
type Sink interface {
	Present(f *Frame, damage []window.Rect) error
}

// Options configures a Compositor.
type Options struct {
	Width      int
	Height     int
	Background uint32
	Logger     *slog.Logger
}

// Stats counts compositor work.
type Stats struct {
	Frames   uint64 `json:"frames"`
	Corrupt  uint64 `json:"corrupt"`
	Occluded uint64 `json:"occluded"`
	Painted  uint64 `json:"painted_pixels"`
	Sinks    int    `json:"sinks"`
}

// Compositor owns the stacking order and the output frame.
//
// Compositor is not safe for concurrent use, except for ZOrder snapshots.
type Compositor struct {
	bounds window.Rect
	bg     uint32
	frame  *Frame
	z      *ZOrder
	damage *Damage
	sinks  []Sink
	stats  Stats
	logger *slog.Logger
}

// New returns a compositor with a background-filled frame.
func New(opts Options) (*Compositor, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("%w: screen %dx%d", window.ErrInvalidSize, opts.Width, opts.Height)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	bounds := window.Rect{Width: opts.Width, Height: opts.Height}
	bg := Opaque(opts.Background)
	return &Compositor{
		bounds: bounds,
		bg:     bg,
		frame:  NewFrame(opts.Width, opts.Height, bg),
		z:      NewZOrder(),
		damage: NewDamage(bounds),
		logger: logger,
	}, nil
}

// Bounds returns the screen rectangle.
func (c *Compositor) Bounds() window.Rect { return c.bounds }

// ZOrder returns the stacking order.
func (c *Compositor) ZOrder() *ZOrder { return c.z }

// Frame returns the current output frame. It is overwritten by the next
// Recomposite.
func (c *Compositor) Frame() *Frame { return c.frame }

// SetBackground changes the fill color and damages the whole screen.
func (c *Compositor) SetBackground(bg uint32) {
	c.bg = Opaque(bg)
	c.damage.AddAll()
}

// Damage marks a screen rectangle for the next composite.
func (c *Compositor) Damage(r window.Rect) { c.damage.Add(r) }

// DamageAll marks the whole screen.
func (c *Compositor) DamageAll() { c.damage.AddAll() }

// Pending returns the damaged rectangles awaiting composite.
func (c *Compositor) Pending() []window.Rect { return c.damage.Rects() }

// Attach adds a sink that receives every composited frame.
func (c *Compositor) Attach(s Sink) {
	c.sinks = append(c.sinks, s)
	c.damage.AddAll()
}

// Detach removes a sink.
func (c *Compositor) Detach(s Sink) {
	kept := c.sinks[:0]
	for _, o := range c.sinks {
		if o != s {
			kept = append(kept, o)
		}
	}
	c.sinks = kept
}

// Stats returns the work counters.
func (c *Compositor) Stats() Stats {
	st := c.stats
	st.Sinks = len(c.sinks)
	return st
}

// layerWindow pairs a stacked layer with its resolved window.
type layerWindow struct {
	win *window.Window
	buf *buffer.Buffer
}

// resolve validates a snapshot and resolves every layer, rearmost first.
func (c *Compositor) resolve(scene Scene, snap []Layer) ([]layerWindow, error) {
	seen := make(map[window.Handle]struct{}, len(snap))
	out := make([]layerWindow, 0, len(snap))
	for i, l := range snap {
		if _, dup := seen[l.Handle]; dup {
			return nil, fmt.Errorf("%w: handle %v repeated at %d", ErrCorruptZOrder, l.Handle, i)
		}
		seen[l.Handle] = struct{}{}

		w, ok := scene.Resolve(l.Handle)
		if !ok {
			return nil, fmt.Errorf("%w: stale handle %v at %d", ErrCorruptZOrder, l.Handle, i)
		}
		b, ok := scene.Buffer(w.ID)
		if !ok {
			return nil, fmt.Errorf("%w: window %d has no buffer", ErrCorruptZOrder, w.ID)
		}
		out = append(out, layerWindow{win: w, buf: b})
	}
	return out, nil
}

// Recomposite repaints the damaged region from one z-order snapshot,
// rearmost window first, then hands the damage to every sink. On a corrupt
// snapshot the previous frame is left untouched and the damage is kept.
func (c *Compositor) Recomposite(scene Scene) error {
	if c.damage.Empty() {
		return nil
	}

	layers, err := c.resolve(scene, c.z.Snapshot())
	if err != nil {
		c.stats.Corrupt++
		c.logger.Error("compositor: frame dropped", "error", err)
		return err
	}

	rects := c.damage.Rects()
	for _, d := range rects {
		c.fill(d)
		for i, lw := range layers {
			clip := lw.win.Bounds.Intersect(d)
			if clip.Empty() {
				continue
			}
			if occluded(layers[i+1:], clip) {
				c.stats.Occluded++
				continue
			}
			c.paint(lw, clip)
		}
	}
	c.damage.Clear()
	c.stats.Frames++

	for _, s := range c.sinks {
		if err := s.Present(c.frame, rects); err != nil {
			c.logger.Warn("compositor: sink present failed", "error", err)
		}
	}
	return nil
}

func occluded(above []layerWindow, clip window.Rect) bool {
	for _, lw := range above {
		if lw.win.Occludes() && lw.win.Bounds.Covers(clip) {
			return true
		}
	}
	return false
}

func (c *Compositor) fill(r window.Rect) {
	f := c.frame
	for y := r.Y; y < r.Bottom(); y++ {
		row := f.Pix[y*f.Width+r.X : y*f.Width+r.Right()]
		for i := range row {
			row[i] = c.bg
		}
	}
}

func (c *Compositor) paint(lw layerWindow, clip window.Rect) {
	f := c.frame
	w, b := lw.win, lw.buf
	// A buffer can only disagree with its window's size mid-resize; paint
	// the overlap.
	clip = clip.Intersect(window.Rect{X: w.Bounds.X, Y: w.Bounds.Y, Width: b.Width, Height: b.Height})
	blend := w.Flags.Transparent

	for y := clip.Y; y < clip.Bottom(); y++ {
		sy := y - w.Bounds.Y
		src := b.Pix[sy*b.Stride+(clip.X-w.Bounds.X) : sy*b.Stride+(clip.Right()-w.Bounds.X)]
		dst := f.Pix[y*f.Width+clip.X : y*f.Width+clip.Right()]
		if blend {
			for i, p := range src {
				dst[i] = Over(dst[i], p)
			}
		} else {
			for i, p := range src {
				dst[i] = Opaque(p)
			}
		}
	}
	c.stats.Painted += uint64(clip.Width * clip.Height)
}

// WindowAt returns the frontmost hit-testable window containing the point.
func (c *Compositor) WindowAt(scene Scene, x, y int) (*window.Window, bool) {
	snap := c.z.Snapshot()
	for i := len(snap) - 1; i >= 0; i-- {
		w, ok := scene.Resolve(snap[i].Handle)
		if !ok || !w.HitTestable() {
			continue
		}
		if w.Bounds.Contains(x, y) {
			return w, true
		}
	}
	return nil, false
}

// FocusCandidate returns the frontmost window that may take keyboard focus.
func (c *Compositor) FocusCandidate(scene Scene) (*window.Window, bool) {
	snap := c.z.Snapshot()
	for i := len(snap) - 1; i >= 0; i-- {
		w, ok := scene.Resolve(snap[i].Handle)
		if ok && w.HitTestable() && w.AcceptsInput {
			return w, true
		}
	}
	return nil, false
}
