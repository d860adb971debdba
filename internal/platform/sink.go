package platform

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/image/draw"

	"github.com/1broseidon/winsrv/internal/compositor"
	"github.com/1broseidon/winsrv/internal/window"
)

// Headless is a sink that keeps the most recent frame in memory.
type Headless struct {
	mu      sync.Mutex
	frames  uint64
	last    *compositor.Frame
	damaged []window.Rect
}

var _ compositor.Sink = (*Headless)(nil)

func NewHeadless() *Headless {
	return &Headless{}
}

// Present records a copy of the frame.
func (h *Headless) Present(f *compositor.Frame, damage []window.Rect) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frames++
	h.last = f.Clone()
	h.damaged = append(h.damaged[:0], damage...)
	return nil
}

// Frames returns how many frames were presented.
func (h *Headless) Frames() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frames
}

// Last returns the latest frame and the rectangles it changed.
func (h *Headless) Last() (*compositor.Frame, []window.Rect) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last, append([]window.Rect(nil), h.damaged...)
}

// PNGSink writes every presented frame to a PNG file, replacing it
// atomically so readers never see a partial image.
type PNGSink struct {
	mu   sync.Mutex
	path string
}

var _ compositor.Sink = (*PNGSink)(nil)

func NewPNGSink(path string) (*PNGSink, error) {
	if path == "" {
		return nil, fmt.Errorf("png sink: path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("png sink: %w", err)
	}
	return &PNGSink{path: path}, nil
}

// Path returns the output file.
func (s *PNGSink) Path() string {
	return s.path
}

func (s *PNGSink) Present(f *compositor.Frame, _ []window.Rect) error {
	data, err := EncodePNG(f, f.Width, f.Height)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("png sink: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("png sink: %w", err)
	}
	return nil
}

// FitSize scales w x h to fit inside maxW x maxH keeping the aspect ratio.
// A zero bound is unconstrained; the result never upscales.
func FitSize(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return w, h
	}
	scale := 1.0
	if maxW > 0 && maxW < w {
		scale = float64(maxW) / float64(w)
	}
	if maxH > 0 && maxH < h {
		if s := float64(maxH) / float64(h); s < scale {
			scale = s
		}
	}
	outW := max(1, int(float64(w)*scale))
	outH := max(1, int(float64(h)*scale))
	return outW, outH
}

// Scale resamples img to width x height.
func Scale(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// EncodePNG encodes an opaque copy of the frame, scaled when width x height
// differs from the frame's size.
func EncodePNG(f *compositor.Frame, width, height int) ([]byte, error) {
	var img image.Image = f.RGBA()
	if width != f.Width || height != f.Height {
		img = Scale(img, width, height)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
