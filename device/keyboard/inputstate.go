// Package keyboard models a HID keyboard with full N-key rollover: usages,
// report encodings and a reporter that turns key actions into reports.
package keyboard

import (
	"io"
)

// InputReportSize is the length of the NKRO report built by BuildReport.
const InputReportSize = 34

// BootReportSize is the length of the boot protocol report.
const BootReportSize = 8

// InputState represents the keyboard state used to build a report.
// Internally uses a 256-bit bitmap for N-key rollover support.
type InputState struct {
	Modifiers uint8     // bit 0-7: LCtrl, LShift, LAlt, LGui, RCtrl, RShift, RAlt, RGui
	KeyBitmap [32]uint8 // 256 bits for HID usage codes 0x00-0xFF
}

// KeyEvent is a single physical key transition expressed as a HID usage.
type KeyEvent struct {
	Code    uint8
	Pressed bool
	Repeat  bool
}

// Pressed reports whether code is down. Modifier usages are answered from
// the modifier byte.
func (st InputState) Pressed(code uint8) bool {
	if IsModifier(code) {
		return st.Modifiers&ModifierMask(code) != 0
	}
	return st.KeyBitmap[code/8]&(1<<(code%8)) != 0
}

func (st *InputState) set(code uint8, down bool) {
	if IsModifier(code) {
		if down {
			st.Modifiers |= ModifierMask(code)
		} else {
			st.Modifiers &^= ModifierMask(code)
		}
		return
	}
	if down {
		st.KeyBitmap[code/8] |= 1 << (code % 8)
	} else {
		st.KeyBitmap[code/8] &^= 1 << (code % 8)
	}
}

// Keys returns the non-modifier usages that are down, in ascending order.
func (st InputState) Keys() []uint8 {
	var keys []uint8
	for i := 0; i < 256; i++ {
		if st.KeyBitmap[i/8]&(1<<uint(i%8)) != 0 {
			keys = append(keys, uint8(i))
		}
	}
	return keys
}

// BuildReport encodes an InputState into the 34-byte HID keyboard report.
//
// Report layout (34 bytes):
//
//	Byte 0: Modifiers (8 bits)
//	Byte 1: Reserved (0x00)
//	Bytes 2-33: Key bitmap (256 bits, 32 bytes)
func (st InputState) BuildReport() []byte {
	b := make([]byte, InputReportSize)
	b[0] = st.Modifiers
	copy(b[2:InputReportSize], st.KeyBitmap[:])
	return b
}

// BuildBootReport encodes the state as an 8-byte boot protocol report.
// Only the six lowest pressed usages fit; the rest are dropped.
func (st InputState) BuildBootReport() []byte {
	b := make([]byte, BootReportSize)
	b[0] = st.Modifiers
	keys := st.Keys()
	if len(keys) > 6 {
		keys = keys[:6]
	}
	copy(b[2:], keys)
	return b
}

// MarshalBinary encodes InputState to variable-length wire format.
//
// Wire format:
//
//	Byte 0: Modifiers
//	Byte 1: Key count
//	Bytes 2+: Key codes (HID usage codes of pressed keys)
func (st *InputState) MarshalBinary() ([]byte, error) {
	keys := st.Keys()
	b := make([]byte, 2+len(keys))
	b[0] = st.Modifiers
	b[1] = uint8(len(keys))
	copy(b[2:], keys)
	return b, nil
}

// UnmarshalBinary decodes the wire format produced by MarshalBinary.
func (st *InputState) UnmarshalBinary(data []byte) error {
	if len(data) < 2 {
		return io.ErrUnexpectedEOF
	}
	keyCount := int(data[1])
	if len(data) < 2+keyCount {
		return io.ErrUnexpectedEOF
	}

	st.Modifiers = data[0]
	st.KeyBitmap = [32]uint8{}
	for _, code := range data[2 : 2+keyCount] {
		st.KeyBitmap[code/8] |= 1 << (code % 8)
	}
	return nil
}
