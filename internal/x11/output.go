package x11

import (
	"fmt"
	"image"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xgraphics"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/1broseidon/winsrv/internal/compositor"
	"github.com/1broseidon/winsrv/internal/window"
)

const outputEventMask = xproto.EventMaskExposure |
	xproto.EventMaskStructureNotify |
	xproto.EventMaskKeyPress |
	xproto.EventMaskKeyRelease |
	xproto.EventMaskButtonPress |
	xproto.EventMaskButtonRelease |
	xproto.EventMaskPointerMotion

// Output is a fixed-size X11 window showing the composited screen. It
// implements compositor.Sink.
type Output struct {
	conn   *Connection
	win    *xwindow.Window
	width  int
	height int

	mu  sync.Mutex
	img *xgraphics.Image
}

var _ compositor.Sink = (*Output)(nil)

// OpenOutput creates and maps the output window.
func (c *Connection) OpenOutput(title string, width, height int) (*Output, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("output size %dx%d: %w", width, height, window.ErrInvalidSize)
	}
	win, err := xwindow.Generate(c.XUtil)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate output window: %w", err)
	}
	win.Create(c.Root, 0, 0, width, height,
		xproto.CwBackPixel|xproto.CwEventMask,
		0, uint32(outputEventMask))

	if err := ewmh.WmNameSet(c.XUtil, win.Id, title); err != nil {
		// Not every window manager supports EWMH names.
		_ = icccm.WmNameSet(c.XUtil, win.Id, title)
	}
	_ = icccm.WmClassSet(c.XUtil, win.Id, &icccm.WmClass{Instance: "winsrv", Class: "Winsrv"})
	_ = icccm.WmNormalHintsSet(c.XUtil, win.Id, &icccm.NormalHints{
		Flags:     icccm.SizeHintPMinSize | icccm.SizeHintPMaxSize,
		MinWidth:  uint(width),
		MinHeight: uint(height),
		MaxWidth:  uint(width),
		MaxHeight: uint(height),
	})

	img := xgraphics.New(c.XUtil, image.Rect(0, 0, width, height))
	if err := img.XSurfaceSet(win.Id); err != nil {
		win.Destroy()
		return nil, fmt.Errorf("failed to attach output surface: %w", err)
	}

	o := &Output{conn: c, win: win, width: width, height: height, img: img}
	xevent.ExposeFun(func(_ *xgbutil.XUtil, ev xevent.ExposeEvent) {
		if ev.Count == 0 {
			o.repaint()
		}
	}).Connect(c.XUtil, win.Id)

	win.Map()
	return o, nil
}

// ID returns the X window id.
func (o *Output) ID() xproto.Window {
	return o.win.Id
}

// XUtil returns the connection the output window lives on.
func (o *Output) XUtil() *xgbutil.XUtil {
	return o.conn.XUtil
}

// OnClose runs fn when the window manager asks the output window to close.
func (o *Output) OnClose(fn func()) {
	o.win.WMGracefulClose(func(w *xwindow.Window) {
		xevent.Detach(w.X, w.Id)
		fn()
	})
}

// Present copies the damaged rectangles of f into the window.
func (o *Output) Present(f *compositor.Frame, damage []window.Rect) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.img == nil {
		return fmt.Errorf("output closed")
	}

	screen := window.Rect{Width: min(o.width, f.Width), Height: min(o.height, f.Height)}
	for _, r := range damage {
		r = r.Intersect(screen)
		if r.Empty() {
			continue
		}
		copyFrameRect(o.img.Pix, o.img.Stride, f, r)
		sub, ok := o.img.SubImage(image.Rect(r.X, r.Y, r.Right(), r.Bottom())).(*xgraphics.Image)
		if ok {
			sub.XDraw()
		}
	}
	o.img.XPaint(o.win.Id)
	return nil
}

func (o *Output) repaint() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.img != nil {
		o.img.XPaint(o.win.Id)
	}
}

// copyFrameRect writes r of f into a BGRA pixel slice, forcing opacity.
func copyFrameRect(pix []uint8, stride int, f *compositor.Frame, r window.Rect) {
	for y := r.Y; y < r.Bottom(); y++ {
		src := f.Pix[y*f.Width+r.X : y*f.Width+r.Right()]
		off := y*stride + r.X*4
		for _, p := range src {
			pix[off+0] = byte(p)
			pix[off+1] = byte(p >> 8)
			pix[off+2] = byte(p >> 16)
			pix[off+3] = 0xFF
			off += 4
		}
	}
}

// Close destroys the output window.
func (o *Output) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.img == nil {
		return
	}
	o.img.Destroy()
	o.img = nil
	xevent.Detach(o.conn.XUtil, o.win.Id)
	o.win.Destroy()
}
