package events

import (
	"fmt"
	"strings"
)

// Key is a keycode. Printable and control characters use their ASCII
// value; the remaining keys live above the Unicode range.
type Key uint32

const (
	KeyBackspace Key = 0x08
	KeyTab       Key = 0x09
	KeyEnter     Key = 0x0D
	KeyEscape    Key = 0x1B
	KeySpace     Key = 0x20

	KeyLeft  Key = 0x110001
	KeyRight Key = 0x110002
	KeyUp    Key = 0x110003
	KeyDown  Key = 0x110004
	KeyCtrl  Key = 0x110005
	KeyAlt   Key = 0x110006
	KeyShift Key = 0x110007
	KeySuper Key = 0x110008
)

var keyNames = map[string]Key{
	"backspace": KeyBackspace,
	"tab":       KeyTab,
	"enter":     KeyEnter,
	"return":    KeyEnter,
	"escape":    KeyEscape,
	"esc":       KeyEscape,
	"space":     KeySpace,
	"left":      KeyLeft,
	"right":     KeyRight,
	"up":        KeyUp,
	"down":      KeyDown,
	"ctrl":      KeyCtrl,
	"alt":       KeyAlt,
	"shift":     KeyShift,
	"super":     KeySuper,
}

// ParseKey accepts a key name ("enter", "left") or a single character.
func ParseKey(s string) (Key, error) {
	if k, ok := keyNames[strings.ToLower(s)]; ok {
		return k, nil
	}
	r := []rune(s)
	if len(r) == 1 && r[0] < 0x110000 {
		return Key(r[0]), nil
	}
	return 0, fmt.Errorf("unknown key %q", s)
}

func (k Key) String() string {
	for name, v := range keyNames {
		if v == k && name != "return" && name != "esc" {
			return name
		}
	}
	if k > 0x20 && k < 0x110000 {
		return string(rune(k))
	}
	return fmt.Sprintf("0x%X", uint32(k))
}

// Button is a mouse button mask.
type Button uint8

const (
	ButtonLeft   Button = 1 << 0
	ButtonRight  Button = 1 << 1
	ButtonMiddle Button = 1 << 2
)

// Mod is a keyboard modifier mask.
type Mod uint32

const (
	ModShift Mod = 1 << 0
	ModCtrl  Mod = 1 << 1
	ModAlt   Mod = 1 << 2
	ModSuper Mod = 1 << 3
)

// ParseMod maps a modifier name to its mask. "none" maps to 0.
func ParseMod(s string) (Mod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return 0, nil
	case "shift":
		return ModShift, nil
	case "ctrl", "control":
		return ModCtrl, nil
	case "alt", "mod1":
		return ModAlt, nil
	case "super", "mod4", "win":
		return ModSuper, nil
	default:
		return 0, fmt.Errorf("unknown modifier %q", s)
	}
}

// ModForKey returns the modifier a modifier key toggles, or 0.
func ModForKey(k Key) Mod {
	switch k {
	case KeyShift:
		return ModShift
	case KeyCtrl:
		return ModCtrl
	case KeyAlt:
		return ModAlt
	case KeySuper:
		return ModSuper
	}
	return 0
}
