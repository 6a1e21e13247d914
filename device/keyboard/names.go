package keyboard

import (
	"fmt"
	"strings"
)

// KeyName maps HID usage codes to the names accepted by ParseKey.
var KeyName = map[uint8]string{
	KeyA: "a", KeyB: "b", KeyC: "c", KeyD: "d", KeyE: "e", KeyF: "f", KeyG: "g",
	KeyH: "h", KeyI: "i", KeyJ: "j", KeyK: "k", KeyL: "l", KeyM: "m", KeyN: "n",
	KeyO: "o", KeyP: "p", KeyQ: "q", KeyR: "r", KeyS: "s", KeyT: "t", KeyU: "u",
	KeyV: "v", KeyW: "w", KeyX: "x", KeyY: "y", KeyZ: "z",

	Key1: "1", Key2: "2", Key3: "3", Key4: "4", Key5: "5",
	Key6: "6", Key7: "7", Key8: "8", Key9: "9", Key0: "0",

	KeyEnter:      "enter",
	KeyEscape:     "escape",
	KeyBackspace:  "backspace",
	KeyTab:        "tab",
	KeySpace:      "space",
	KeyMinus:      "minus",
	KeyEqual:      "equal",
	KeyLeftBrace:  "leftbrace",
	KeyRightBrace: "rightbrace",
	KeyBackslash:  "backslash",
	KeySemicolon:  "semicolon",
	KeyApostrophe: "apostrophe",
	KeyGrave:      "grave",
	KeyComma:      "comma",
	KeyPeriod:     "period",
	KeySlash:      "slash",
	KeyCapsLock:   "capslock",

	KeyF1: "f1", KeyF2: "f2", KeyF3: "f3", KeyF4: "f4", KeyF5: "f5", KeyF6: "f6",
	KeyF7: "f7", KeyF8: "f8", KeyF9: "f9", KeyF10: "f10", KeyF11: "f11", KeyF12: "f12",
	KeyF13: "f13", KeyF14: "f14", KeyF15: "f15", KeyF16: "f16", KeyF17: "f17", KeyF18: "f18",
	KeyF19: "f19", KeyF20: "f20", KeyF21: "f21", KeyF22: "f22", KeyF23: "f23", KeyF24: "f24",

	KeyPrintScreen: "printscreen",
	KeyScrollLock:  "scrolllock",
	KeyPause:       "pause",
	KeyInsert:      "insert",
	KeyHome:        "home",
	KeyPageUp:      "pageup",
	KeyDelete:      "delete",
	KeyEnd:         "end",
	KeyPageDown:    "pagedown",

	KeyRight: "right",
	KeyLeft:  "left",
	KeyDown:  "down",
	KeyUp:    "up",

	KeyNumLock:    "numlock",
	KeyKpSlash:    "kpslash",
	KeyKpAsterisk: "kpasterisk",
	KeyKpMinus:    "kpminus",
	KeyKpPlus:     "kpplus",
	KeyKpEnter:    "kpenter",
	KeyKp1:        "kp1",
	KeyKp2:        "kp2",
	KeyKp3:        "kp3",
	KeyKp4:        "kp4",
	KeyKp5:        "kp5",
	KeyKp6:        "kp6",
	KeyKp7:        "kp7",
	KeyKp8:        "kp8",
	KeyKp9:        "kp9",
	KeyKp0:        "kp0",
	KeyKpDot:      "kpdot",
	KeyKpEqual:    "kpequal",

	KeyNonUSBackslash: "102nd",
	KeyApplication:    "application",
	KeyMute:           "mute",
	KeyVolumeUp:       "volumeup",
	KeyVolumeDown:     "volumedown",

	KeyLeftCtrl:   "leftctrl",
	KeyLeftShift:  "leftshift",
	KeyLeftAlt:    "leftalt",
	KeyLeftGUI:    "leftgui",
	KeyRightCtrl:  "rightctrl",
	KeyRightShift: "rightshift",
	KeyRightAlt:   "rightalt",
	KeyRightGUI:   "rightgui",
}

// aliases are extra spellings accepted by ParseKey.
var aliases = map[string]uint8{
	"esc":    KeyEscape,
	"return": KeyEnter,
	"bksp":   KeyBackspace,
	"scln":   KeySemicolon,
	";":      KeySemicolon,
	"'":      KeyApostrophe,
	",":      KeyComma,
	".":      KeyPeriod,
	"/":      KeySlash,
	"-":      KeyMinus,
	"=":      KeyEqual,
	"[":      KeyLeftBrace,
	"]":      KeyRightBrace,
	"`":      KeyGrave,
	"\\":     KeyBackslash,
	"dot":    KeyPeriod,
	"lctrl":  KeyLeftCtrl,
	"lshift": KeyLeftShift,
	"lalt":   KeyLeftAlt,
	"lgui":   KeyLeftGUI,
	"lcmd":   KeyLeftGUI,
	"lmeta":  KeyLeftGUI,
	"rctrl":  KeyRightCtrl,
	"rshift": KeyRightShift,
	"ralt":   KeyRightAlt,
	"rgui":   KeyRightGUI,
	"rcmd":   KeyRightGUI,
	"rmeta":  KeyRightGUI,
	"ctrl":   KeyLeftCtrl,
	"shift":  KeyLeftShift,
	"alt":    KeyLeftAlt,
	"opt":    KeyLeftAlt,
	"option": KeyLeftAlt,
	"gui":    KeyLeftGUI,
	"cmd":    KeyLeftGUI,
	"meta":   KeyLeftGUI,
	"super":  KeyLeftGUI,
}

var byName = func() map[string]uint8 {
	m := make(map[string]uint8, len(KeyName)+len(aliases))
	for code, name := range KeyName {
		m[name] = code
	}
	for name, code := range aliases {
		m[name] = code
	}
	return m
}()

// ParseKey resolves a key name (case-insensitive) or a 0x-prefixed usage
// code to its HID usage.
func ParseKey(name string) (uint8, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return 0, fmt.Errorf("empty key name")
	}
	if code, ok := byName[n]; ok {
		return code, nil
	}
	if strings.HasPrefix(n, "0x") {
		var v uint8
		if _, err := fmt.Sscanf(n, "0x%x", &v); err == nil && v != 0 {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown key %q", name)
}

// ParseChord parses "leftalt+backspace" into a modifier mask and a key.
// Every element but the last must be a modifier.
func ParseChord(s string) (mods uint8, code uint8, err error) {
	parts := strings.Split(s, "+")
	for i, p := range parts {
		c, err := ParseKey(p)
		if err != nil {
			return 0, 0, err
		}
		if i == len(parts)-1 {
			code = c
			break
		}
		if !IsModifier(c) {
			return 0, 0, fmt.Errorf("%q in %q is not a modifier", p, s)
		}
		mods |= ModifierMask(c)
	}
	return mods, code, nil
}

// Name returns the canonical name for a usage code, or its hex form.
func Name(code uint8) string {
	if n, ok := KeyName[code]; ok {
		return n
	}
	return fmt.Sprintf("0x%02x", code)
}
