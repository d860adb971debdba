// Package events defines the window event model and per-window queues.
package events

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Type discriminates an event record.
type Type uint32

const (
	TypeMouse Type = iota
	TypeKeyboard
	TypeResize
	TypeRedraw
	// TypeNone means no event was pending. It is never queued.
	TypeNone
)

func (t Type) String() string {
	switch t {
	case TypeMouse:
		return "MOUSE"
	case TypeKeyboard:
		return "KEYBOARD"
	case TypeResize:
		return "RESIZE"
	case TypeRedraw:
		return "REDRAW"
	case TypeNone:
		return "NONE"
	default:
		return fmt.Sprintf("Type(%d)", uint32(t))
	}
}

// RecordSize is the length of a binary-encoded Record.
const RecordSize = 20

// ErrShortRecord is returned when decoding fewer than RecordSize bytes.
var ErrShortRecord = errors.New("short event record")

// Record is the flat client-facing event layout.
type Record struct {
	Type Type   `json:"type"`
	Arg1 uint32 `json:"arg1"`
	Arg2 uint32 `json:"arg2"`
	Arg3 uint32 `json:"arg3"`
	Arg4 uint32 `json:"arg4"`
}

// NoneRecord is what a poll on an empty queue yields.
var NoneRecord = Record{Type: TypeNone}

// MarshalBinary encodes r as five little-endian uint32 words.
func (r Record) MarshalBinary() ([]byte, error) {
	out := make([]byte, RecordSize)
	binary.LittleEndian.PutUint32(out[0:], uint32(r.Type))
	binary.LittleEndian.PutUint32(out[4:], r.Arg1)
	binary.LittleEndian.PutUint32(out[8:], r.Arg2)
	binary.LittleEndian.PutUint32(out[12:], r.Arg3)
	binary.LittleEndian.PutUint32(out[16:], r.Arg4)
	return out, nil
}

// UnmarshalBinary decodes the layout written by MarshalBinary.
func (r *Record) UnmarshalBinary(data []byte) error {
	if len(data) < RecordSize {
		return ErrShortRecord
	}
	r.Type = Type(binary.LittleEndian.Uint32(data[0:]))
	r.Arg1 = binary.LittleEndian.Uint32(data[4:])
	r.Arg2 = binary.LittleEndian.Uint32(data[8:])
	r.Arg3 = binary.LittleEndian.Uint32(data[12:])
	r.Arg4 = binary.LittleEndian.Uint32(data[16:])
	return nil
}

// Event is one queued window event.
type Event interface {
	Type() Type
	Record() Record
}

// Mouse reports pointer state in window-local coordinates.
type Mouse struct {
	X       uint32
	Y       uint32
	Buttons Button
	Scroll  int8
}

func (Mouse) Type() Type { return TypeMouse }

func (m Mouse) Record() Record {
	return Record{
		Type: TypeMouse,
		Arg1: m.X,
		Arg2: m.Y,
		Arg3: uint32(m.Buttons),
		Arg4: uint32(uint8(m.Scroll)),
	}
}

// Keyboard reports a key transition. Repeat is at least 1.
type Keyboard struct {
	Key     Key
	Pressed bool
	Repeat  uint32
	Mods    Mod
}

func (Keyboard) Type() Type { return TypeKeyboard }

func (k Keyboard) Record() Record {
	var pressed uint32
	if k.Pressed {
		pressed = 1
	}
	return Record{
		Type: TypeKeyboard,
		Arg1: uint32(k.Key),
		Arg2: pressed,
		Arg3: k.Repeat,
		Arg4: uint32(k.Mods),
	}
}

// Resize tells a window its buffer was reallocated at a new size.
type Resize struct {
	Width  uint32
	Height uint32
}

func (Resize) Type() Type { return TypeResize }

func (r Resize) Record() Record {
	return Record{Type: TypeResize, Arg1: r.Width, Arg2: r.Height}
}

// Redraw asks a window to repaint a region. A zero-sized region means the
// whole window.
type Redraw struct {
	X      uint32
	Y      uint32
	Width  uint32
	Height uint32
}

func (Redraw) Type() Type { return TypeRedraw }

func (r Redraw) Record() Record {
	return Record{Type: TypeRedraw, Arg1: r.X, Arg2: r.Y, Arg3: r.Width, Arg4: r.Height}
}

// Whole reports whether the redraw covers the entire window.
func (r Redraw) Whole() bool {
	return r.Width == 0 || r.Height == 0
}

// Decode converts a flat record back into its Event. NONE and unknown
// types are errors.
func Decode(r Record) (Event, error) {
	switch r.Type {
	case TypeMouse:
		return Mouse{X: r.Arg1, Y: r.Arg2, Buttons: Button(r.Arg3), Scroll: int8(uint8(r.Arg4))}, nil
	case TypeKeyboard:
		return Keyboard{Key: Key(r.Arg1), Pressed: r.Arg2 != 0, Repeat: r.Arg3, Mods: Mod(r.Arg4)}, nil
	case TypeResize:
		return Resize{Width: r.Arg1, Height: r.Arg2}, nil
	case TypeRedraw:
		return Redraw{X: r.Arg1, Y: r.Arg2, Width: r.Arg3, Height: r.Arg4}, nil
	default:
		return nil, fmt.Errorf("cannot decode %s record", r.Type)
	}
}
