package hrm_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/homerow/device/keyboard"
	"github.com/Alia5/homerow/hrm"
)

func TestParseKeySpec(t *testing.T) {

	type testCase struct {
		name     string
		input    string
		expected hrm.KeySpec
		wantErr  bool
	}

	cases := []testCase{
		{name: "letter and modifier", input: "a=leftctrl", expected: hrm.KeySpec{Letter: keyboard.KeyA, Modifier: keyboard.KeyLeftCtrl}},
		{name: "alias", input: ";=rctrl", expected: hrm.KeySpec{Letter: keyboard.KeySemicolon, Modifier: keyboard.KeyRightCtrl}},
		{name: "tap only", input: "g", expected: hrm.KeySpec{Letter: keyboard.KeyG}},
		{name: "unknown letter", input: "hyper=shift", wantErr: true},
		{name: "unknown modifier", input: "a=hyper", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spec, err := hrm.ParseKeySpec(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, hrm.ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, spec)
		})
	}
}

func TestParseDualKey(t *testing.T) {
	d, err := hrm.ParseDualKey("r=leftalt+backspace/leftctrl")
	require.NoError(t, err)
	assert.Equal(t, hrm.DualKey{
		Trigger: keyboard.KeyR,
		TapCode: keyboard.KeyBackspace,
		TapMods: keyboard.ModLeftAlt,
		Hold:    keyboard.KeyLeftCtrl,
	}, d)

	for _, bad := range []string{"r", "r=backspace", "r=a+b/ctrl", "hyper=a/ctrl", "r=a/hyper"} {
		_, err := hrm.ParseDualKey(bad)
		assert.ErrorIs(t, err, hrm.ErrInvalidConfig, bad)
	}
}

func TestOverridesApply(t *testing.T) {
	off := time.Duration(0)
	cfg, err := hrm.Overrides{
		Policy:           "auto-shift",
		TappingTerm:      180 * time.Millisecond,
		AutoShiftTimeout: &off,
		Keys:             []string{"f=shift", "j=shift"},
		ThumbKeys:        []string{"space"},
		DualKeys:         []string{"u=shift+grave/leftalt"},
	}.Apply(hrm.DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, hrm.PolicyAutoShift, cfg.Policy)
	assert.Equal(t, 180*time.Millisecond, cfg.TappingTerm)
	assert.Zero(t, cfg.AutoShiftTimeout)
	assert.Len(t, cfg.Keys, 2)
	assert.Equal(t, []uint8{keyboard.KeySpace}, cfg.ThumbKeys)
	require.Len(t, cfg.DualKeys, 1)
	assert.Equal(t, uint8(keyboard.KeyGrave), cfg.DualKeys[0].TapCode)

	// zero overrides keep the base
	cfg, err = hrm.Overrides{}.Apply(hrm.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, hrm.DefaultConfig(), cfg)

	// the result is validated
	_, err = hrm.Overrides{ThumbKeys: []string{"f"}}.Apply(hrm.DefaultConfig())
	assert.ErrorIs(t, err, hrm.ErrInvalidConfig)
	_, err = hrm.Overrides{Policy: "c"}.Apply(hrm.DefaultConfig())
	assert.ErrorIs(t, err, hrm.ErrInvalidConfig)
}
