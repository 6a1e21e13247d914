//go:build linux

package backend

import (
	"github.com/holoplot/go-evdev"

	"github.com/Alia5/homerow/device/keyboard"
)

// evdevToHID maps Linux KEY_* codes to HID keyboard usages.
var evdevToHID = map[evdev.EvCode]uint8{
	evdev.KEY_A: keyboard.KeyA, evdev.KEY_B: keyboard.KeyB, evdev.KEY_C: keyboard.KeyC,
	evdev.KEY_D: keyboard.KeyD, evdev.KEY_E: keyboard.KeyE, evdev.KEY_F: keyboard.KeyF,
	evdev.KEY_G: keyboard.KeyG, evdev.KEY_H: keyboard.KeyH, evdev.KEY_I: keyboard.KeyI,
	evdev.KEY_J: keyboard.KeyJ, evdev.KEY_K: keyboard.KeyK, evdev.KEY_L: keyboard.KeyL,
	evdev.KEY_M: keyboard.KeyM, evdev.KEY_N: keyboard.KeyN, evdev.KEY_O: keyboard.KeyO,
	evdev.KEY_P: keyboard.KeyP, evdev.KEY_Q: keyboard.KeyQ, evdev.KEY_R: keyboard.KeyR,
	evdev.KEY_S: keyboard.KeyS, evdev.KEY_T: keyboard.KeyT, evdev.KEY_U: keyboard.KeyU,
	evdev.KEY_V: keyboard.KeyV, evdev.KEY_W: keyboard.KeyW, evdev.KEY_X: keyboard.KeyX,
	evdev.KEY_Y: keyboard.KeyY, evdev.KEY_Z: keyboard.KeyZ,

	evdev.KEY_1: keyboard.Key1, evdev.KEY_2: keyboard.Key2, evdev.KEY_3: keyboard.Key3,
	evdev.KEY_4: keyboard.Key4, evdev.KEY_5: keyboard.Key5, evdev.KEY_6: keyboard.Key6,
	evdev.KEY_7: keyboard.Key7, evdev.KEY_8: keyboard.Key8, evdev.KEY_9: keyboard.Key9,
	evdev.KEY_0: keyboard.Key0,

	evdev.KEY_ENTER:      keyboard.KeyEnter,
	evdev.KEY_ESC:        keyboard.KeyEscape,
	evdev.KEY_BACKSPACE:  keyboard.KeyBackspace,
	evdev.KEY_TAB:        keyboard.KeyTab,
	evdev.KEY_SPACE:      keyboard.KeySpace,
	evdev.KEY_MINUS:      keyboard.KeyMinus,
	evdev.KEY_EQUAL:      keyboard.KeyEqual,
	evdev.KEY_LEFTBRACE:  keyboard.KeyLeftBrace,
	evdev.KEY_RIGHTBRACE: keyboard.KeyRightBrace,
	evdev.KEY_BACKSLASH:  keyboard.KeyBackslash,
	evdev.KEY_SEMICOLON:  keyboard.KeySemicolon,
	evdev.KEY_APOSTROPHE: keyboard.KeyApostrophe,
	evdev.KEY_GRAVE:      keyboard.KeyGrave,
	evdev.KEY_COMMA:      keyboard.KeyComma,
	evdev.KEY_DOT:        keyboard.KeyPeriod,
	evdev.KEY_SLASH:      keyboard.KeySlash,
	evdev.KEY_CAPSLOCK:   keyboard.KeyCapsLock,

	evdev.KEY_F1: keyboard.KeyF1, evdev.KEY_F2: keyboard.KeyF2, evdev.KEY_F3: keyboard.KeyF3,
	evdev.KEY_F4: keyboard.KeyF4, evdev.KEY_F5: keyboard.KeyF5, evdev.KEY_F6: keyboard.KeyF6,
	evdev.KEY_F7: keyboard.KeyF7, evdev.KEY_F8: keyboard.KeyF8, evdev.KEY_F9: keyboard.KeyF9,
	evdev.KEY_F10: keyboard.KeyF10, evdev.KEY_F11: keyboard.KeyF11, evdev.KEY_F12: keyboard.KeyF12,
	evdev.KEY_F13: keyboard.KeyF13, evdev.KEY_F14: keyboard.KeyF14, evdev.KEY_F15: keyboard.KeyF15,
	evdev.KEY_F16: keyboard.KeyF16, evdev.KEY_F17: keyboard.KeyF17, evdev.KEY_F18: keyboard.KeyF18,
	evdev.KEY_F19: keyboard.KeyF19, evdev.KEY_F20: keyboard.KeyF20, evdev.KEY_F21: keyboard.KeyF21,
	evdev.KEY_F22: keyboard.KeyF22, evdev.KEY_F23: keyboard.KeyF23, evdev.KEY_F24: keyboard.KeyF24,

	evdev.KEY_SYSRQ:      keyboard.KeyPrintScreen,
	evdev.KEY_SCROLLLOCK: keyboard.KeyScrollLock,
	evdev.KEY_PAUSE:      keyboard.KeyPause,
	evdev.KEY_INSERT:     keyboard.KeyInsert,
	evdev.KEY_HOME:       keyboard.KeyHome,
	evdev.KEY_PAGEUP:     keyboard.KeyPageUp,
	evdev.KEY_DELETE:     keyboard.KeyDelete,
	evdev.KEY_END:        keyboard.KeyEnd,
	evdev.KEY_PAGEDOWN:   keyboard.KeyPageDown,
	evdev.KEY_RIGHT:      keyboard.KeyRight,
	evdev.KEY_LEFT:       keyboard.KeyLeft,
	evdev.KEY_DOWN:       keyboard.KeyDown,
	evdev.KEY_UP:         keyboard.KeyUp,

	evdev.KEY_NUMLOCK:    keyboard.KeyNumLock,
	evdev.KEY_KPSLASH:    keyboard.KeyKpSlash,
	evdev.KEY_KPASTERISK: keyboard.KeyKpAsterisk,
	evdev.KEY_KPMINUS:    keyboard.KeyKpMinus,
	evdev.KEY_KPPLUS:     keyboard.KeyKpPlus,
	evdev.KEY_KPENTER:    keyboard.KeyKpEnter,
	evdev.KEY_KP1:        keyboard.KeyKp1,
	evdev.KEY_KP2:        keyboard.KeyKp2,
	evdev.KEY_KP3:        keyboard.KeyKp3,
	evdev.KEY_KP4:        keyboard.KeyKp4,
	evdev.KEY_KP5:        keyboard.KeyKp5,
	evdev.KEY_KP6:        keyboard.KeyKp6,
	evdev.KEY_KP7:        keyboard.KeyKp7,
	evdev.KEY_KP8:        keyboard.KeyKp8,
	evdev.KEY_KP9:        keyboard.KeyKp9,
	evdev.KEY_KP0:        keyboard.KeyKp0,
	evdev.KEY_KPDOT:      keyboard.KeyKpDot,
	evdev.KEY_KPEQUAL:    keyboard.KeyKpEqual,

	evdev.KEY_102ND:      keyboard.KeyNonUSBackslash,
	evdev.KEY_COMPOSE:    keyboard.KeyApplication,
	evdev.KEY_MUTE:       keyboard.KeyMute,
	evdev.KEY_VOLUMEUP:   keyboard.KeyVolumeUp,
	evdev.KEY_VOLUMEDOWN: keyboard.KeyVolumeDown,

	evdev.KEY_LEFTCTRL:   keyboard.KeyLeftCtrl,
	evdev.KEY_LEFTSHIFT:  keyboard.KeyLeftShift,
	evdev.KEY_LEFTALT:    keyboard.KeyLeftAlt,
	evdev.KEY_LEFTMETA:   keyboard.KeyLeftGUI,
	evdev.KEY_RIGHTCTRL:  keyboard.KeyRightCtrl,
	evdev.KEY_RIGHTSHIFT: keyboard.KeyRightShift,
	evdev.KEY_RIGHTALT:   keyboard.KeyRightAlt,
	evdev.KEY_RIGHTMETA:  keyboard.KeyRightGUI,
}

var hidToEvdev = func() map[uint8]evdev.EvCode {
	m := make(map[uint8]evdev.EvCode, len(evdevToHID))
	for ev, hid := range evdevToHID {
		m[hid] = ev
	}
	return m
}()
