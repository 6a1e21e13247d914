package keyboard_test

import (
	"errors"
	"io"
	"testing"

	"github.com/Alia5/homerow/device/keyboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputReports(t *testing.T) {

	type testCase struct {
		name         string
		inputState   keyboard.InputState
		expectedNKRO []byte
		expectedBoot []byte
	}

	withKeys := func(mods uint8, codes ...uint8) keyboard.InputState {
		var st keyboard.InputState
		st.Modifiers = mods
		for _, c := range codes {
			st.KeyBitmap[c/8] |= 1 << (c % 8)
		}
		return st
	}

	cases := []testCase{
		{
			name:         "no inputs",
			inputState:   keyboard.InputState{},
			expectedNKRO: make([]byte, keyboard.InputReportSize),
			expectedBoot: make([]byte, keyboard.BootReportSize),
		},
		{
			name:       "shift+a",
			inputState: withKeys(keyboard.ModLeftShift, keyboard.KeyA),
			expectedNKRO: func() []byte {
				b := make([]byte, keyboard.InputReportSize)
				b[0] = 0x02
				b[2] = 0x10
				return b
			}(),
			expectedBoot: []byte{0x02, 0x00, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00},
		},
		{
			name:       "boot report keeps six lowest keys",
			inputState: withKeys(0, keyboard.KeyZ, keyboard.KeyA, keyboard.KeyB, keyboard.KeyC, keyboard.KeyD, keyboard.KeyE, keyboard.KeyF),
			expectedNKRO: func() []byte {
				b := make([]byte, keyboard.InputReportSize)
				b[2] = 0xF0 // a b c d
				b[3] = 0x03 // e f
				b[5] = 0x20 // z
				return b
			}(),
			expectedBoot: []byte{0x00, 0x00, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expectedNKRO, tc.inputState.BuildReport())
			assert.Equal(t, tc.expectedBoot, tc.inputState.BuildBootReport())
		})
	}
}

func TestInputStateWireFormat(t *testing.T) {
	var st keyboard.InputState
	st.Modifiers = keyboard.ModLeftCtrl | keyboard.ModRightAlt
	st.KeyBitmap[keyboard.KeyJ/8] |= 1 << (keyboard.KeyJ % 8)
	st.KeyBitmap[keyboard.KeySpace/8] |= 1 << (keyboard.KeySpace % 8)

	b, err := st.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x41, 2, keyboard.KeyJ, keyboard.KeySpace}, b)

	var got keyboard.InputState
	require.NoError(t, got.UnmarshalBinary(b))
	assert.Equal(t, st, got)
	assert.True(t, got.Pressed(keyboard.KeyLeftCtrl))
	assert.False(t, got.Pressed(keyboard.KeyLeftShift))

	assert.ErrorIs(t, got.UnmarshalBinary([]byte{0}), io.ErrUnexpectedEOF)
	assert.ErrorIs(t, got.UnmarshalBinary([]byte{0, 3, 4}), io.ErrUnexpectedEOF)
}

func TestParseKey(t *testing.T) {

	type testCase struct {
		name     string
		input    string
		expected uint8
		wantErr  bool
	}

	cases := []testCase{
		{name: "letter", input: "a", expected: keyboard.KeyA},
		{name: "upper case", input: "SEMICOLON", expected: keyboard.KeySemicolon},
		{name: "punctuation alias", input: ";", expected: keyboard.KeySemicolon},
		{name: "modifier", input: "leftctrl", expected: keyboard.KeyLeftCtrl},
		{name: "modifier alias", input: "lgui", expected: keyboard.KeyLeftGUI},
		{name: "short modifier", input: "shift", expected: keyboard.KeyLeftShift},
		{name: "hex usage", input: "0x2c", expected: keyboard.KeySpace},
		{name: "whitespace", input: "  enter ", expected: keyboard.KeyEnter},
		{name: "empty", input: "", wantErr: true},
		{name: "zero usage", input: "0x00", wantErr: true},
		{name: "unknown", input: "hyper", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, err := keyboard.ParseKey(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, code)
		})
	}
}

func TestParseChord(t *testing.T) {
	mods, code, err := keyboard.ParseChord("leftalt+backspace")
	require.NoError(t, err)
	assert.Equal(t, uint8(keyboard.ModLeftAlt), mods)
	assert.Equal(t, uint8(keyboard.KeyBackspace), code)

	mods, code, err = keyboard.ParseChord("shift+grave")
	require.NoError(t, err)
	assert.Equal(t, uint8(keyboard.ModLeftShift), mods)
	assert.Equal(t, uint8(keyboard.KeyGrave), code)

	mods, code, err = keyboard.ParseChord("9")
	require.NoError(t, err)
	assert.Zero(t, mods)
	assert.Equal(t, uint8(keyboard.Key9), code)

	_, _, err = keyboard.ParseChord("a+b")
	assert.Error(t, err)
	_, _, err = keyboard.ParseChord("ctrl+")
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "semicolon", keyboard.Name(keyboard.KeySemicolon))
	assert.Equal(t, "leftshift", keyboard.Name(keyboard.KeyLeftShift))
	assert.Equal(t, "0xf0", keyboard.Name(0xF0))
	assert.Equal(t, []uint8{keyboard.KeyLeftCtrl, keyboard.KeyRightGUI}, keyboard.ModifierCodes(keyboard.ModLeftCtrl|keyboard.ModRightGUI))
	assert.Zero(t, keyboard.ModifierMask(keyboard.KeyA))
}

type recordingSink struct {
	reports []keyboard.InputState
	err     error
}

func (s *recordingSink) WriteReport(st keyboard.InputState) error {
	s.reports = append(s.reports, st)
	return s.err
}

func (s *recordingSink) modifiers() []uint8 {
	out := make([]uint8, len(s.reports))
	for i, r := range s.reports {
		out[i] = r.Modifiers
	}
	return out
}

func TestReporterTap(t *testing.T) {
	sink := &recordingSink{}
	r := keyboard.NewReporter(sink, nil)

	r.Tap(keyboard.KeyA)
	require.Len(t, sink.reports, 2)
	assert.Equal(t, []uint8{keyboard.KeyA}, sink.reports[0].Keys())
	assert.Empty(t, sink.reports[1].Keys())

	sink.reports = nil
	r.ShiftedTap(keyboard.KeyA)
	require.Len(t, sink.reports, 4)
	assert.Equal(t, []uint8{keyboard.ModLeftShift, keyboard.ModLeftShift, keyboard.ModLeftShift, 0}, sink.modifiers())
	assert.Equal(t, []uint8{keyboard.KeyA}, sink.reports[1].Keys())
	assert.Equal(t, keyboard.InputState{}, r.State())
}

func TestReporterShiftedTapWhileShiftHeld(t *testing.T) {
	sink := &recordingSink{}
	r := keyboard.NewReporter(sink, nil)

	r.ActivateModifier(keyboard.KeyLeftShift)
	sink.reports = nil
	r.ShiftedTap(keyboard.KeyJ)
	require.Len(t, sink.reports, 2)
	assert.Equal(t, []uint8{keyboard.ModLeftShift, keyboard.ModLeftShift}, sink.modifiers())
	assert.True(t, r.State().Pressed(keyboard.KeyLeftShift))
}

func TestReporterModifierRefcount(t *testing.T) {
	sink := &recordingSink{}
	r := keyboard.NewReporter(sink, nil)

	// f and j both hold shift
	r.ActivateModifier(keyboard.KeyLeftShift)
	r.ActivateModifier(keyboard.KeyLeftShift)
	assert.Len(t, sink.reports, 1)

	r.DeactivateModifier(keyboard.KeyLeftShift)
	assert.Len(t, sink.reports, 1)
	assert.True(t, r.State().Pressed(keyboard.KeyLeftShift))

	r.DeactivateModifier(keyboard.KeyLeftShift)
	assert.Len(t, sink.reports, 2)
	assert.False(t, r.State().Pressed(keyboard.KeyLeftShift))

	// unbalanced release is ignored
	r.DeactivateModifier(keyboard.KeyLeftShift)
	assert.Len(t, sink.reports, 2)

	// non-modifier activation is ignored
	r.ActivateModifier(keyboard.KeyA)
	assert.Len(t, sink.reports, 2)
}

func TestReporterPassThrough(t *testing.T) {
	sink := &recordingSink{}
	r := keyboard.NewReporter(sink, nil)

	r.Press(keyboard.KeyQ)
	r.Press(keyboard.KeyQ)
	r.Press(keyboard.KeyLeftCtrl)
	r.ActivateModifier(keyboard.KeyLeftCtrl)
	r.Release(keyboard.KeyLeftCtrl)
	assert.True(t, r.State().Pressed(keyboard.KeyLeftCtrl))
	assert.Len(t, sink.reports, 2)

	r.Release(keyboard.KeyQ)
	r.Release(keyboard.KeyQ)
	assert.Len(t, sink.reports, 3)

	r.ReleaseAll()
	assert.Equal(t, keyboard.InputState{}, sink.reports[len(sink.reports)-1])
	r.DeactivateModifier(keyboard.KeyLeftCtrl)
	assert.Equal(t, keyboard.InputState{}, r.State())
}

func TestReporterSinkErrors(t *testing.T) {
	sink := &recordingSink{err: errors.New("broken pipe")}
	r := keyboard.NewReporter(sink, nil)

	var failures int
	r.OnError(func(error) { failures++ })
	r.Tap(keyboard.KeyA)
	assert.Equal(t, 2, failures)
	assert.Equal(t, keyboard.InputState{}, r.State())
}
