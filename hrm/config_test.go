package hrm_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Alia5/homerow/device/keyboard"
	"github.com/Alia5/homerow/hrm"
)

func TestConfigValidate(t *testing.T) {

	type testCase struct {
		name    string
		mutate  func(*hrm.Config)
		wantErr bool
	}

	cases := []testCase{
		{name: "default", mutate: func(*hrm.Config) {}},
		{name: "zero tapping term", mutate: func(c *hrm.Config) { c.TappingTerm = 0 }, wantErr: true},
		{name: "negative auto-shift", mutate: func(c *hrm.Config) { c.AutoShiftTimeout = -time.Millisecond }, wantErr: true},
		{name: "disabled auto-shift", mutate: func(c *hrm.Config) { c.AutoShiftTimeout = 0 }},
		{name: "unknown policy", mutate: func(c *hrm.Config) { c.Policy = hrm.Policy(7) }, wantErr: true},
		{name: "no keys", mutate: func(c *hrm.Config) { c.Keys = nil }, wantErr: true},
		{name: "no thumb keys", mutate: func(c *hrm.Config) { c.ThumbKeys = nil }},
		{
			name:    "modifier as letter",
			mutate:  func(c *hrm.Config) { c.Keys[0].Letter = keyboard.KeyLeftCtrl },
			wantErr: true,
		},
		{
			name:    "letter as modifier",
			mutate:  func(c *hrm.Config) { c.Keys[0].Modifier = keyboard.KeyB },
			wantErr: true,
		},
		{
			name:    "duplicate letter",
			mutate:  func(c *hrm.Config) { c.Keys[1].Letter = keyboard.KeyA },
			wantErr: true,
		},
		{
			name:    "thumb key is home-row key",
			mutate:  func(c *hrm.Config) { c.ThumbKeys = []uint8{keyboard.KeyF} },
			wantErr: true,
		},
		{
			name:    "zero thumb key",
			mutate:  func(c *hrm.Config) { c.ThumbKeys = []uint8{0} },
			wantErr: true,
		},
		{
			name: "dual key",
			mutate: func(c *hrm.Config) {
				c.DualKeys = []hrm.DualKey{{Trigger: keyboard.KeyR, TapCode: keyboard.KeyBackspace, TapMods: keyboard.ModLeftAlt, Hold: keyboard.KeyLeftShift}}
			},
		},
		{
			name: "dual key without modifier hold",
			mutate: func(c *hrm.Config) {
				c.DualKeys = []hrm.DualKey{{Trigger: keyboard.KeyR, TapCode: keyboard.KeyR, Hold: keyboard.KeyQ}}
			},
			wantErr: true,
		},
		{
			name: "dual key without tap",
			mutate: func(c *hrm.Config) {
				c.DualKeys = []hrm.DualKey{{Trigger: keyboard.KeyR, Hold: keyboard.KeyLeftAlt}}
			},
			wantErr: true,
		},
		{
			name: "dual trigger on thumb",
			mutate: func(c *hrm.Config) {
				c.DualKeys = []hrm.DualKey{{Trigger: keyboard.KeySpace, TapCode: keyboard.KeySpace, Hold: keyboard.KeyLeftAlt}}
			},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := hrm.DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, hrm.ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := hrm.DefaultConfig()
	cfg.TappingTerm = -1
	_, err := hrm.New(cfg, nil, nil)
	assert.ErrorIs(t, err, hrm.ErrInvalidConfig)
}

func TestParsePolicy(t *testing.T) {
	p, err := hrm.ParsePolicy("auto-shift")
	assert.NoError(t, err)
	assert.Equal(t, hrm.PolicyAutoShift, p)

	p, err = hrm.ParsePolicy("Layer-Gated")
	assert.NoError(t, err)
	assert.Equal(t, hrm.PolicyLayerGated, p)

	_, err = hrm.ParsePolicy("tap-dance")
	assert.ErrorIs(t, err, hrm.ErrInvalidConfig)
}

func TestThumbMonitor(t *testing.T) {
	var edges []string
	m := hrm.NewThumbMonitor([]uint8{keyboard.KeyEnter, keyboard.KeySpace},
		func() { edges = append(edges, "rise") },
		func() { edges = append(edges, "fall") })

	assert.False(t, m.Update(keyboard.KeyA, true))
	assert.True(t, m.Handles(keyboard.KeySpace))
	assert.True(t, m.Update(keyboard.KeyEnter, true))
	assert.True(t, m.Update(keyboard.KeySpace, true))
	assert.True(t, m.Update(keyboard.KeyEnter, false))
	assert.True(t, m.Active())
	assert.True(t, m.Update(keyboard.KeySpace, false))
	assert.False(t, m.Active())
	assert.True(t, m.Update(keyboard.KeySpace, false))
	assert.Equal(t, []string{"rise", "fall"}, edges)

	m.Update(keyboard.KeyEnter, true)
	m.Reset()
	assert.False(t, m.Active())
	assert.Equal(t, []string{"rise", "fall", "rise"}, edges)
}
