package x11

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/winsrv/internal/events"
)

// BindInput forwards pointer and keyboard input on the output window to inj.
// Coordinates are window-relative, which equals screen coordinates because
// the output window shows the whole screen at 1:1.
func (o *Output) BindInput(inj events.Injector) {
	xu := o.conn.XUtil
	var mu sync.Mutex
	held := make(map[events.Key]bool)

	xevent.ButtonPressFun(func(_ *xgbutil.XUtil, ev xevent.ButtonPressEvent) {
		b, scroll := buttonForDetail(ev.Detail)
		inj.PushPointer(events.Pointer{
			X:       int(ev.EventX),
			Y:       int(ev.EventY),
			Buttons: buttonsFromState(ev.State) | b,
			Scroll:  scroll,
			Mods:    modsFromState(ev.State),
		})
	}).Connect(xu, o.win.Id)

	xevent.ButtonReleaseFun(func(_ *xgbutil.XUtil, ev xevent.ButtonReleaseEvent) {
		b, scroll := buttonForDetail(ev.Detail)
		if scroll != 0 {
			return
		}
		inj.PushPointer(events.Pointer{
			X:       int(ev.EventX),
			Y:       int(ev.EventY),
			Buttons: buttonsFromState(ev.State) &^ b,
			Mods:    modsFromState(ev.State),
		})
	}).Connect(xu, o.win.Id)

	xevent.MotionNotifyFun(func(_ *xgbutil.XUtil, ev xevent.MotionNotifyEvent) {
		inj.PushPointer(events.Pointer{
			X:       int(ev.EventX),
			Y:       int(ev.EventY),
			Buttons: buttonsFromState(ev.State),
			Mods:    modsFromState(ev.State),
		})
	}).Connect(xu, o.win.Id)

	xevent.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		key, ok := translateKeysym(keybind.LookupString(xu, ev.State, ev.Detail))
		if !ok {
			return
		}
		mu.Lock()
		repeat := uint32(1)
		if held[key] {
			// X auto-repeat delivers further presses without a release.
			repeat = 2
		}
		held[key] = true
		mu.Unlock()
		inj.PushKey(events.KeyInput{Key: key, Pressed: true, Repeat: repeat, Mods: modsFromState(ev.State)})
	}).Connect(xu, o.win.Id)

	xevent.KeyReleaseFun(func(xu *xgbutil.XUtil, ev xevent.KeyReleaseEvent) {
		key, ok := translateKeysym(keybind.LookupString(xu, ev.State, ev.Detail))
		if !ok {
			return
		}
		mu.Lock()
		delete(held, key)
		mu.Unlock()
		inj.PushKey(events.KeyInput{Key: key, Pressed: false, Repeat: 1, Mods: modsFromState(ev.State)})
	}).Connect(xu, o.win.Id)
}

// buttonForDetail maps an X button number. Wheel buttons 4 and 5 become a
// scroll step instead of a held button.
func buttonForDetail(detail xproto.Button) (events.Button, int8) {
	switch detail {
	case xproto.ButtonIndex1:
		return events.ButtonLeft, 0
	case xproto.ButtonIndex2:
		return events.ButtonMiddle, 0
	case xproto.ButtonIndex3:
		return events.ButtonRight, 0
	case xproto.ButtonIndex4:
		return 0, 1
	case xproto.ButtonIndex5:
		return 0, -1
	default:
		return 0, 0
	}
}

func buttonsFromState(state uint16) events.Button {
	var b events.Button
	if state&xproto.KeyButMaskButton1 != 0 {
		b |= events.ButtonLeft
	}
	if state&xproto.KeyButMaskButton2 != 0 {
		b |= events.ButtonMiddle
	}
	if state&xproto.KeyButMaskButton3 != 0 {
		b |= events.ButtonRight
	}
	return b
}

func modsFromState(state uint16) events.Mod {
	var m events.Mod
	if state&xproto.KeyButMaskShift != 0 {
		m |= events.ModShift
	}
	if state&xproto.KeyButMaskControl != 0 {
		m |= events.ModCtrl
	}
	if state&xproto.KeyButMaskMod1 != 0 {
		m |= events.ModAlt
	}
	if state&xproto.KeyButMaskMod4 != 0 {
		m |= events.ModSuper
	}
	return m
}

var keysymNames = map[string]events.Key{
	"return":    events.KeyEnter,
	"kp_enter":  events.KeyEnter,
	"escape":    events.KeyEscape,
	"backspace": events.KeyBackspace,
	"tab":       events.KeyTab,
	"space":     events.KeySpace,
	"left":      events.KeyLeft,
	"right":     events.KeyRight,
	"up":        events.KeyUp,
	"down":      events.KeyDown,
	"control_l": events.KeyCtrl,
	"control_r": events.KeyCtrl,
	"alt_l":     events.KeyAlt,
	"alt_r":     events.KeyAlt,
	"meta_l":    events.KeyAlt,
	"shift_l":   events.KeyShift,
	"shift_r":   events.KeyShift,
	"super_l":   events.KeySuper,
	"super_r":   events.KeySuper,
}

// translateKeysym maps the string keybind reports for a key to a key code.
// Single printable characters map to their ASCII value.
func translateKeysym(name string) (events.Key, bool) {
	if name == "" {
		return 0, false
	}
	if utf8.RuneCountInString(name) == 1 {
		r, _ := utf8.DecodeRuneInString(name)
		if r >= 0x20 && r < 0x7F {
			return events.Key(r), true
		}
		return 0, false
	}
	k, ok := keysymNames[strings.ToLower(name)]
	return k, ok
}
