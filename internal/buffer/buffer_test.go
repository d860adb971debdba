package buffer

import (
	"errors"
	"testing"

	"github.com/1broseidon/winsrv/internal/window"
)

func TestManager_AllocateResizeFree(t *testing.T) {
	m := NewManager()

	b, err := m.Allocate(1, 100, 100)
	if err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}
	if b.Bytes() != 40000 {
		t.Fatalf("Bytes() = %d, want 40000", b.Bytes())
	}
	for i, p := range b.Pix {
		if p != 0 {
			t.Fatalf("pixel %d = %#x, want zero", i, p)
		}
	}

	b.Fill(0xFFFF0000)
	nb, err := m.Resize(1, 50, 20)
	if err != nil {
		t.Fatalf("Resize() error: %v", err)
	}
	if nb.Bytes() != 50*20*PixelSize {
		t.Fatalf("Bytes() after resize = %d", nb.Bytes())
	}
	if got, _ := m.Get(1); got != nb {
		t.Fatalf("Get() did not return resized buffer")
	}
	if st := m.Stats(); st.Buffers != 1 || st.Bytes != 4000 {
		t.Fatalf("Stats() = %+v", st)
	}

	m.Free(1)
	if _, err := m.Get(1); !errors.Is(err, window.ErrInvalidHandle) {
		t.Fatalf("Get() after Free error = %v, want ErrInvalidHandle", err)
	}
	if st := m.Stats(); st.Buffers != 0 || st.Bytes != 0 {
		t.Fatalf("Stats() after free = %+v", st)
	}
}

func TestManager_RejectsOutOfRangeSizes(t *testing.T) {
	m := NewManager()
	for _, size := range [][2]int{{0, 5}, {1 << 32, 1 << 32}, {window.MaxDimension + 1, 1}} {
		if _, err := m.Allocate(1, size[0], size[1]); !errors.Is(err, window.ErrInvalidSize) {
			t.Fatalf("Allocate(%dx%d) error = %v, want ErrInvalidSize", size[0], size[1], err)
		}
	}
	if _, err := m.Allocate(1, 4, 4); err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}
	if _, err := m.Resize(1, 4, 1<<32); !errors.Is(err, window.ErrInvalidSize) {
		t.Fatalf("Resize() error = %v, want ErrInvalidSize", err)
	}
	if st := m.Stats(); st.Buffers != 1 || st.Bytes != 4*4*PixelSize {
		t.Fatalf("Stats() = %+v after rejected resize", st)
	}
}

func TestBuffer_FillRectClips(t *testing.T) {
	b := New(4, 4)
	b.FillRect(-2, 2, 4, 10, 7)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := uint32(0)
			if y >= 2 && x < 2 {
				want = 7
			}
			if got := b.At(x, y); got != want {
				t.Fatalf("At(%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestBuffer_PixelEncoding(t *testing.T) {
	b := New(3, 2)
	b.Set(0, 0, 0x11223344)
	b.Set(2, 1, 0xAABBCCDD)

	data := b.MarshalPixels()
	if len(data) != b.Bytes() {
		t.Fatalf("encoded %d bytes, want %d", len(data), b.Bytes())
	}
	if data[0] != 0x44 || data[3] != 0x11 {
		t.Fatalf("pixels are not little-endian: % x", data[:4])
	}

	out := New(3, 2)
	if err := out.UnmarshalPixels(data); err != nil {
		t.Fatalf("UnmarshalPixels() error: %v", err)
	}
	if out.At(2, 1) != 0xAABBCCDD {
		t.Fatalf("At(2,1) = %#x", out.At(2, 1))
	}
	if err := out.UnmarshalPixels(data[:5]); err == nil {
		t.Fatalf("UnmarshalPixels(short) expected error")
	}
}
