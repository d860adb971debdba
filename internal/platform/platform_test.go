package platform

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/1broseidon/winsrv/internal/compositor"
	"github.com/1broseidon/winsrv/internal/window"
)

type fakeBackend struct {
	displays []Display
	err      error
}

func (f fakeBackend) Displays() ([]Display, error) { return f.displays, f.err }

func (f fakeBackend) PrimaryDisplay() (Display, error) {
	if f.err != nil {
		return Display{}, f.err
	}
	d, ok := PrimaryOrFirst(f.displays)
	if !ok {
		return Display{}, errors.New("no displays")
	}
	return d, nil
}

func TestPrimaryOrFirst(t *testing.T) {
	if _, ok := PrimaryOrFirst(nil); ok {
		t.Fatalf("expected no display")
	}
	ds := []Display{{ID: 0, Name: "a"}, {ID: 1, Name: "b", Primary: true}}
	d, ok := PrimaryOrFirst(ds)
	if !ok || d.Name != "b" {
		t.Fatalf("PrimaryOrFirst = %+v", d)
	}
	d, _ = PrimaryOrFirst(ds[:1])
	if d.Name != "a" {
		t.Fatalf("expected first display, got %+v", d)
	}
}

func TestScreenSize(t *testing.T) {
	b := fakeBackend{displays: []Display{{Bounds: window.Rect{Width: 1920, Height: 1080}}}}
	w, h, err := ScreenSize(b, 640, 480)
	if err != nil || w != 1920 || h != 1080 {
		t.Fatalf("ScreenSize = %d x %d, %v", w, h, err)
	}

	w, h, err = ScreenSize(fakeBackend{err: errors.New("no x")}, 640, 480)
	if err == nil || w != 640 || h != 480 {
		t.Fatalf("expected fallback with error, got %d x %d, %v", w, h, err)
	}

	w, h, _ = ScreenSize(nil, 640, 480)
	if w != 640 || h != 480 {
		t.Fatalf("nil backend = %d x %d", w, h)
	}
}

func TestFitSize(t *testing.T) {
	tests := []struct {
		w, h, maxW, maxH int
		wantW, wantH     int
	}{
		{w: 1000, h: 500, wantW: 1000, wantH: 500},
		{w: 1000, h: 500, maxW: 200, wantW: 200, wantH: 100},
		{w: 1000, h: 500, maxW: 800, maxH: 100, wantW: 200, wantH: 100},
		{w: 100, h: 50, maxW: 400, maxH: 400, wantW: 100, wantH: 50},
	}
	for _, tt := range tests {
		gotW, gotH := FitSize(tt.w, tt.h, tt.maxW, tt.maxH)
		if gotW != tt.wantW || gotH != tt.wantH {
			t.Fatalf("FitSize(%d,%d,%d,%d) = %d x %d, want %d x %d",
				tt.w, tt.h, tt.maxW, tt.maxH, gotW, gotH, tt.wantW, tt.wantH)
		}
	}
}

func TestEncodePNG_Scales(t *testing.T) {
	f := compositor.NewFrame(8, 4, 0xFF336699)
	data, err := EncodePNG(f, 4, 2)
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 2 {
		t.Fatalf("bounds = %v", b)
	}
	r, g, bl, a := img.At(1, 1).RGBA()
	if r>>8 != 0x33 || g>>8 != 0x66 || bl>>8 != 0x99 || a>>8 != 0xFF {
		t.Fatalf("pixel = %x %x %x %x", r>>8, g>>8, bl>>8, a>>8)
	}
}

func TestPNGSink_WritesFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "frame.png")
	sink, err := NewPNGSink(path)
	if err != nil {
		t.Fatalf("NewPNGSink: %v", err)
	}
	f := compositor.NewFrame(3, 3, 0xFF000000)
	if err := sink.Present(f, []window.Rect{{Width: 3, Height: 3}}); err != nil {
		t.Fatalf("Present: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestHeadless_KeepsCopy(t *testing.T) {
	h := NewHeadless()
	f := compositor.NewFrame(2, 2, 0xFF000000)
	_ = h.Present(f, []window.Rect{{X: 1, Y: 1, Width: 1, Height: 1}})
	f.Pix[0] = 0xFFFFFFFF

	last, damage := h.Last()
	if h.Frames() != 1 || last.Pix[0] != 0xFF000000 || len(damage) != 1 {
		t.Fatalf("frames=%d pix=%#x damage=%v", h.Frames(), last.Pix[0], damage)
	}
}
