// Package buffer owns window pixel memory.
package buffer

import (
	"encoding/binary"
	"fmt"
)

// PixelSize is the number of bytes per pixel.
const PixelSize = 4

// Buffer is a window's pixel memory. Pixels are ARGB words, row-major,
// Stride pixels per row.
type Buffer struct {
	Width  int
	Height int
	Stride int
	Pix    []uint32
}

// New allocates a zeroed width x height buffer.
func New(width, height int) *Buffer {
	return &Buffer{
		Width:  width,
		Height: height,
		Stride: width,
		Pix:    make([]uint32, width*height),
	}
}

// Bytes returns the size of the pixel memory in bytes.
func (b *Buffer) Bytes() int {
	return len(b.Pix) * PixelSize
}

// At returns the pixel at x, y. Coordinates outside the buffer read as 0.
func (b *Buffer) At(x, y int) uint32 {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return 0
	}
	return b.Pix[y*b.Stride+x]
}

// Set writes one pixel. Coordinates outside the buffer are ignored.
func (b *Buffer) Set(x, y int, c uint32) {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return
	}
	b.Pix[y*b.Stride+x] = c
}

// Fill sets every pixel to c.
func (b *Buffer) Fill(c uint32) {
	for i := range b.Pix {
		b.Pix[i] = c
	}
}

// FillRect sets the pixels of the given rectangle, clipped to the buffer.
func (b *Buffer) FillRect(x, y, w, h int, c uint32) {
	x0, y0 := max(x, 0), max(y, 0)
	x1, y1 := min(x+w, b.Width), min(y+h, b.Height)
	for yy := y0; yy < y1; yy++ {
		row := b.Pix[yy*b.Stride : yy*b.Stride+b.Width]
		for xx := x0; xx < x1; xx++ {
			row[xx] = c
		}
	}
}

// CopyFrom copies src's pixels into b. Both buffers must have the same size.
func (b *Buffer) CopyFrom(src *Buffer) error {
	if src.Width != b.Width || src.Height != b.Height {
		return fmt.Errorf("buffer size mismatch: %dx%d into %dx%d", src.Width, src.Height, b.Width, b.Height)
	}
	for y := 0; y < b.Height; y++ {
		copy(b.Pix[y*b.Stride:y*b.Stride+b.Width], src.Pix[y*src.Stride:y*src.Stride+src.Width])
	}
	return nil
}

// MarshalPixels encodes the pixels little-endian, row by row, without
// stride padding.
func (b *Buffer) MarshalPixels() []byte {
	out := make([]byte, b.Width*b.Height*PixelSize)
	i := 0
	for y := 0; y < b.Height; y++ {
		for _, p := range b.Pix[y*b.Stride : y*b.Stride+b.Width] {
			binary.LittleEndian.PutUint32(out[i:], p)
			i += PixelSize
		}
	}
	return out
}

// UnmarshalPixels decodes data produced by MarshalPixels into b.
func (b *Buffer) UnmarshalPixels(data []byte) error {
	want := b.Width * b.Height * PixelSize
	if len(data) != want {
		return fmt.Errorf("pixel data is %d bytes, want %d", len(data), want)
	}
	i := 0
	for y := 0; y < b.Height; y++ {
		row := b.Pix[y*b.Stride : y*b.Stride+b.Width]
		for x := range row {
			row[x] = binary.LittleEndian.Uint32(data[i:])
			i += PixelSize
		}
	}
	return nil
}
