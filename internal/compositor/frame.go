package compositor

import (
	"image"
	"image/color"
)

// Frame is the composited screen image. Pixels are ARGB words, row-major.
type Frame struct {
	Width  int
	Height int
	Pix    []uint32
}

var _ image.Image = (*Frame)(nil)

// NewFrame returns a frame filled with bg.
func NewFrame(width, height int, bg uint32) *Frame {
	f := &Frame{Width: width, Height: height, Pix: make([]uint32, width*height)}
	for i := range f.Pix {
		f.Pix[i] = bg
	}
	return f
}

// ColorModel implements image.Image.
func (f *Frame) ColorModel() color.Model { return color.NRGBAModel }

// Bounds implements image.Image.
func (f *Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.Width, f.Height) }

// At implements image.Image.
func (f *Frame) At(x, y int) color.Color {
	return ToNRGBA(f.Pixel(x, y))
}

// Pixel returns the raw ARGB value at x, y, or 0 outside the frame.
func (f *Frame) Pixel(x, y int) uint32 {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return 0
	}
	return f.Pix[y*f.Width+x]
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	out := &Frame{Width: f.Width, Height: f.Height, Pix: make([]uint32, len(f.Pix))}
	copy(out.Pix, f.Pix)
	return out
}

// RGBA converts the frame to an *image.RGBA.
func (f *Frame) RGBA() *image.RGBA {
	img := image.NewRGBA(f.Bounds())
	for i, p := range f.Pix {
		o := i * 4
		img.Pix[o+0] = byte(p >> 16)
		img.Pix[o+1] = byte(p >> 8)
		img.Pix[o+2] = byte(p)
		img.Pix[o+3] = 0xFF
	}
	return img
}

// ToNRGBA converts an ARGB word to a color.
func ToNRGBA(p uint32) color.NRGBA {
	return color.NRGBA{R: byte(p >> 16), G: byte(p >> 8), B: byte(p), A: byte(p >> 24)}
}

// FromColor converts any color to an ARGB word.
func FromColor(c color.Color) uint32 {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return uint32(n.A)<<24 | uint32(n.R)<<16 | uint32(n.G)<<8 | uint32(n.B)
}
