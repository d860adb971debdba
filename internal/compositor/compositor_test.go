package compositor

import (
	"errors"
	"sync"
	"testing"

	"github.com/1broseidon/winsrv/internal/buffer"
	"github.com/1broseidon/winsrv/internal/window"
)

type fakeScene struct {
	reg  *window.Registry
	bufs map[window.ID]*buffer.Buffer
}

func newFakeScene() *fakeScene {
	return &fakeScene{reg: window.NewRegistry(), bufs: make(map[window.ID]*buffer.Buffer)}
}

func (s *fakeScene) Resolve(h window.Handle) (*window.Window, bool) { return s.reg.Resolve(h) }

func (s *fakeScene) Buffer(id window.ID) (*buffer.Buffer, bool) {
	b, ok := s.bufs[id]
	return b, ok
}

func (s *fakeScene) add(t *testing.T, c *Compositor, spec window.Spec, fill uint32) *window.Window {
	t.Helper()
	w, err := s.reg.Insert(spec)
	if err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	b := buffer.New(spec.Width, spec.Height)
	b.Fill(fill)
	s.bufs[w.ID] = b
	if err := c.ZOrder().Insert(w.Handle, w.Class); err != nil {
		t.Fatalf("ZOrder.Insert() error: %v", err)
	}
	c.Damage(w.Bounds)
	return w
}

func at(x, y, w, h int) window.Spec {
	s := window.DefaultSpec(w, h, false, false)
	s.X, s.Y = x, y
	return s
}

func newTestCompositor(t *testing.T) *Compositor {
	t.Helper()
	c, err := New(Options{Width: 20, Height: 20, Background: 0xFF000000})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func TestRecomposite_OpaqueStacking(t *testing.T) {
	c := newTestCompositor(t)
	s := newFakeScene()
	s.add(t, c, at(0, 0, 10, 10), 0x00FF0000)
	s.add(t, c, at(5, 5, 10, 10), 0xFF00FF00)

	if err := c.Recomposite(s); err != nil {
		t.Fatalf("Recomposite() error: %v", err)
	}
	f := c.Frame()
	tests := []struct {
		x, y int
		want uint32
	}{
		{x: 1, y: 1, want: 0xFFFF0000}, // opaque alpha forced to 255
		{x: 6, y: 6, want: 0xFF00FF00},
		{x: 14, y: 14, want: 0xFF00FF00},
		{x: 18, y: 1, want: 0xFF000000},
	}
	for _, tt := range tests {
		if got := f.Pixel(tt.x, tt.y); got != tt.want {
			t.Fatalf("Pixel(%d,%d) = %#x, want %#x", tt.x, tt.y, got, tt.want)
		}
	}
	if len(c.Pending()) != 0 {
		t.Fatalf("damage not cleared")
	}
}

func TestRecomposite_TransparentBlends(t *testing.T) {
	c := newTestCompositor(t)
	s := newFakeScene()
	s.add(t, c, at(0, 0, 10, 10), 0xFFFFFFFF)
	spec := at(0, 0, 10, 10)
	spec.Flags.Transparent = true
	s.add(t, c, spec, 0x80000000)

	if err := c.Recomposite(s); err != nil {
		t.Fatalf("Recomposite() error: %v", err)
	}
	got := c.Frame().Pixel(3, 3)
	if got>>24 != 0xFF {
		t.Fatalf("alpha = %#x, want opaque", got>>24)
	}
	if r := (got >> 16) & 0xFF; r < 0x7E || r > 0x80 {
		t.Fatalf("red channel = %#x, want about half", r)
	}
}

func TestRecomposite_TreatAsTransparentDoesNotOcclude(t *testing.T) {
	c := newTestCompositor(t)
	s := newFakeScene()
	s.add(t, c, at(0, 0, 10, 10), 0xFFFF0000)
	cursor := at(0, 0, 10, 10)
	cursor.Flags.TreatAsTransparent = true
	cursor.Flags.Transparent = true
	s.add(t, c, cursor, 0x00000000)

	if err := c.Recomposite(s); err != nil {
		t.Fatalf("Recomposite() error: %v", err)
	}
	if got := c.Frame().Pixel(2, 2); got != 0xFFFF0000 {
		t.Fatalf("Pixel() = %#x, window below was not painted", got)
	}
	if c.Stats().Occluded != 0 {
		t.Fatalf("Occluded = %d, want 0", c.Stats().Occluded)
	}
}

func TestRecomposite_SkipsOccludedAndOffscreen(t *testing.T) {
	c := newTestCompositor(t)
	s := newFakeScene()
	s.add(t, c, at(2, 2, 4, 4), 0xFF0000FF)
	s.add(t, c, at(-50, -50, 10, 10), 0xFF00FF00)
	s.add(t, c, at(0, 0, 10, 10), 0xFFFF0000)

	if err := c.Recomposite(s); err != nil {
		t.Fatalf("Recomposite() error: %v", err)
	}
	if c.Stats().Occluded == 0 {
		t.Fatalf("covered window was painted")
	}
	if c.Frame().Pixel(3, 3) != 0xFFFF0000 {
		t.Fatalf("front window not on top")
	}
}

func TestRecomposite_CorruptZOrderKeepsPreviousFrame(t *testing.T) {
	c := newTestCompositor(t)
	s := newFakeScene()
	w := s.add(t, c, at(0, 0, 5, 5), 0xFF123456)
	if err := c.Recomposite(s); err != nil {
		t.Fatalf("Recomposite() error: %v", err)
	}
	before := c.Frame().Clone()

	// Drop the window behind the compositor's back to leave a stale layer.
	if _, err := s.reg.Remove(w.ID); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	c.DamageAll()
	err := c.Recomposite(s)
	if !errors.Is(err, ErrCorruptZOrder) {
		t.Fatalf("Recomposite() error = %v, want ErrCorruptZOrder", err)
	}
	for i := range before.Pix {
		if before.Pix[i] != c.Frame().Pix[i] {
			t.Fatalf("frame changed at %d after corrupt composite", i)
		}
	}
	if c.Stats().Corrupt != 1 {
		t.Fatalf("Corrupt = %d", c.Stats().Corrupt)
	}
}

type recordingSink struct {
	frames int
	damage []window.Rect
}

func (r *recordingSink) Present(_ *Frame, damage []window.Rect) error {
	r.frames++
	r.damage = damage
	return nil
}

func TestRecomposite_PresentsToSinks(t *testing.T) {
	c := newTestCompositor(t)
	s := newFakeScene()
	sink := &recordingSink{}
	c.Attach(sink)
	if err := c.Recomposite(s); err != nil {
		t.Fatalf("Recomposite() error: %v", err)
	}
	if sink.frames != 1 || len(sink.damage) != 1 || sink.damage[0] != c.Bounds() {
		t.Fatalf("sink got %d frames, damage %+v", sink.frames, sink.damage)
	}

	// Nothing damaged, nothing presented.
	if err := c.Recomposite(s); err != nil {
		t.Fatalf("Recomposite() error: %v", err)
	}
	if sink.frames != 1 {
		t.Fatalf("undamaged composite presented a frame")
	}
}

func TestWindowAt_SkipsTreatAsTransparent(t *testing.T) {
	c := newTestCompositor(t)
	s := newFakeScene()
	a := s.add(t, c, at(0, 0, 10, 10), 0)
	overlay := at(0, 0, 10, 10)
	overlay.Flags.TreatAsTransparent = true
	s.add(t, c, overlay, 0)

	w, ok := c.WindowAt(s, 5, 5)
	if !ok || w.ID != a.ID {
		t.Fatalf("WindowAt() = %v, %v; want window %d", w, ok, a.ID)
	}
	if _, ok := c.WindowAt(s, 15, 15); ok {
		t.Fatalf("WindowAt() outside every window hit something")
	}
	if fw, _ := c.FocusCandidate(s); fw.ID != a.ID {
		t.Fatalf("FocusCandidate() = %d, want %d", fw.ID, a.ID)
	}
}

func TestZOrder_Bands(t *testing.T) {
	z := NewZOrder()
	h := func(i uint32) window.Handle { return window.Handle{Index: i, Gen: 1} }

	mustInsert := func(hh window.Handle, c window.Class) {
		if err := z.Insert(hh, c); err != nil {
			t.Fatalf("Insert() error: %v", err)
		}
	}
	mustInsert(h(0), window.ClassWindow)
	mustInsert(h(1), window.ClassBar)
	mustInsert(h(2), window.ClassWindow)
	mustInsert(h(3), window.ClassWallpaper)
	mustInsert(h(4), window.ClassPopup)

	order := func() []uint32 {
		var out []uint32
		for _, l := range z.Snapshot() {
			out = append(out, l.Handle.Index)
		}
		return out
	}
	assert := func(want ...uint32) {
		t.Helper()
		got := order()
		if len(got) != len(want) {
			t.Fatalf("order = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("order = %v, want %v", got, want)
			}
		}
	}

	assert(3, 0, 2, 1, 4)
	if err := z.Raise(h(0)); err != nil {
		t.Fatalf("Raise() error: %v", err)
	}
	assert(3, 2, 0, 1, 4)
	if err := z.Lower(h(0)); err != nil {
		t.Fatalf("Lower() error: %v", err)
	}
	assert(3, 0, 2, 1, 4)

	if err := z.Insert(h(0), window.ClassWindow); err == nil {
		t.Fatalf("duplicate Insert() succeeded")
	}
	z.Remove(h(2))
	assert(3, 0, 1, 4)
	if err := z.Raise(h(2)); !errors.Is(err, window.ErrInvalidHandle) {
		t.Fatalf("Raise(removed) error = %v", err)
	}
}

func TestZOrder_SnapshotsAreNeverPartial(t *testing.T) {
	z := NewZOrder()
	const n = 16
	for i := uint32(0); i < n; i++ {
		if err := z.Insert(window.Handle{Index: i, Gen: 1}, window.ClassWindow); err != nil {
			t.Fatalf("Insert() error: %v", err)
		}
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := z.Snapshot()
			if len(snap) != n {
				t.Errorf("snapshot has %d layers, want %d", len(snap), n)
				return
			}
			seen := make(map[uint32]bool, n)
			for _, l := range snap {
				if seen[l.Handle.Index] {
					t.Errorf("snapshot repeats handle %d", l.Handle.Index)
					return
				}
				seen[l.Handle.Index] = true
			}
		}
	}()

	for i := 0; i < 2000; i++ {
		h := window.Handle{Index: uint32(i % n), Gen: 1}
		if i%2 == 0 {
			_ = z.Raise(h)
		} else {
			_ = z.Lower(h)
		}
	}
	close(stop)
	wg.Wait()
}

func TestDamage_MergesOverlaps(t *testing.T) {
	d := NewDamage(window.Rect{Width: 100, Height: 100})
	d.Add(window.Rect{X: 0, Y: 0, Width: 10, Height: 10})
	d.Add(window.Rect{X: 50, Y: 50, Width: 10, Height: 10})
	d.Add(window.Rect{X: 5, Y: 5, Width: 50, Height: 50})
	if got := d.Rects(); len(got) != 1 || got[0] != (window.Rect{X: 0, Y: 0, Width: 60, Height: 60}) {
		t.Fatalf("Rects() = %+v", got)
	}

	d.Clear()
	d.Add(window.Rect{X: -10, Y: 90, Width: 20, Height: 20})
	if got := d.Rects(); len(got) != 1 || got[0] != (window.Rect{X: 0, Y: 90, Width: 10, Height: 10}) {
		t.Fatalf("clipped Rects() = %+v", got)
	}
	d.Clear()
	d.Add(window.Rect{X: 200, Y: 200, Width: 5, Height: 5})
	if !d.Empty() {
		t.Fatalf("off-screen damage was kept")
	}
}

func TestOver(t *testing.T) {
	tests := []struct {
		name     string
		dst, src uint32
		want     uint32
	}{
		{name: "clear source", dst: 0xFF102030, src: 0x00FFFFFF, want: 0xFF102030},
		{name: "opaque source", dst: 0xFF102030, src: 0xFFABCDEF, want: 0xFFABCDEF},
		{name: "over empty", dst: 0x00000000, src: 0x80FF0000, want: 0x80FF0000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Over(tt.dst, tt.src); got != tt.want {
				t.Fatalf("Over(%#x, %#x) = %#x, want %#x", tt.dst, tt.src, got, tt.want)
			}
		})
	}
}
