package replay_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/homerow/device/keyboard"
	"github.com/Alia5/homerow/hrm"
	"github.com/Alia5/homerow/internal/replay"
)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func TestRun(t *testing.T) {

	type testCase struct {
		name     string
		script   string
		expected []replay.Action
	}

	cases := []testCase{
		{
			name: "quick tap",
			script: `
events:
  - {at: 0s, key: a, down: true}
  - {at: 50ms, key: a, down: false}
`,
			expected: []replay.Action{
				{At: ms(50), Kind: replay.KindTap, Code: keyboard.KeyA},
			},
		},
		{
			name: "hold under thumb layer",
			script: `
events:
  - {at: 100ms, key: space, down: true}
  - {at: 120ms, key: f, down: true}
  - {at: 400ms, key: q, down: true}
  - {at: 420ms, key: q, down: false}
  - {at: 500ms, key: f, down: false}
  - {at: 520ms, key: space, down: false}
`,
			expected: []replay.Action{
				{At: ms(320), Kind: replay.KindModifierDown, Code: keyboard.KeyLeftShift},
				{At: ms(400), Kind: replay.KindPassDown, Code: keyboard.KeyQ},
				{At: ms(420), Kind: replay.KindPassUp, Code: keyboard.KeyQ},
				{At: ms(500), Kind: replay.KindModifierUp, Code: keyboard.KeyLeftShift},
			},
		},
		{
			name: "slow tap is shifted",
			script: `
events:
  - {at: 0s, key: a, down: true}
  - {at: 170ms, key: a, down: false}
`,
			expected: []replay.Action{
				{At: ms(170), Kind: replay.KindShiftedTap, Code: keyboard.KeyA},
			},
		},
		{
			name: "auto-shift fires at the tapping term",
			script: `
config:
  policy: auto-shift
events:
  - {at: 0s, key: a, down: true}
  - {at: 250ms, key: a, down: false}
`,
			expected: []replay.Action{
				{At: ms(200), Kind: replay.KindShiftedTap, Code: keyboard.KeyA},
			},
		},
		{
			name: "thumb released before decision invalidates",
			script: `
events:
  - {at: 0s, key: space, down: true}
  - {at: 10ms, key: f, down: true}
  - {at: 100ms, key: space, down: false}
  - {at: 150ms, key: f, down: false}
`,
			expected: nil,
		},
		{
			name: "thumb key tap",
			script: `
events:
  - {at: 0s, key: space, down: true}
  - {at: 80ms, key: space, down: false}
`,
			expected: []replay.Action{
				{At: ms(80), Kind: replay.KindTap, Code: keyboard.KeySpace},
			},
		},
		{
			name: "held key resolves after the last event",
			script: `
config:
  tapping_term: 100ms
events:
  - {at: 0s, key: enter, down: true}
  - {at: 10ms, key: d, down: true}
`,
			expected: []replay.Action{
				{At: ms(110), Kind: replay.KindModifierDown, Code: keyboard.KeyLeftGUI},
			},
		},
		{
			name: "dual key tap",
			script: `
config:
  dual_keys: ["r=leftalt+backspace/leftctrl"]
events:
  - {at: 0s, key: r, down: true}
  - {at: 30ms, key: r, down: false}
`,
			expected: []replay.Action{
				{At: ms(30), Kind: replay.KindModifierDown, Code: keyboard.KeyLeftAlt},
				{At: ms(30), Kind: replay.KindTap, Code: keyboard.KeyBackspace},
				{At: ms(30), Kind: replay.KindModifierUp, Code: keyboard.KeyLeftAlt},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := replay.Parse(strings.NewReader(tc.script))
			require.NoError(t, err)
			actions, err := replay.Run(s, hrm.DefaultConfig(), nil)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, actions)
		})
	}
}

func TestRunRejectsBadScripts(t *testing.T) {

	type testCase struct {
		name   string
		script string
	}

	cases := []testCase{
		{name: "out of order", script: "events:\n  - {at: 20ms, key: a, down: true}\n  - {at: 10ms, key: a, down: false}\n"},
		{name: "unknown key", script: "events:\n  - {at: 0s, key: hyper, down: true}\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := replay.Parse(strings.NewReader(tc.script))
			require.NoError(t, err)
			_, err = replay.Run(s, hrm.DefaultConfig(), nil)
			assert.ErrorIs(t, err, replay.ErrBadScript)
		})
	}

	s, err := replay.Parse(strings.NewReader("config:\n  thumb_keys: [f]\nevents: []\n"))
	require.NoError(t, err)
	_, err = replay.Run(s, hrm.DefaultConfig(), nil)
	assert.ErrorIs(t, err, hrm.ErrInvalidConfig)
}

func TestParse(t *testing.T) {
	_, err := replay.Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, replay.ErrBadScript)

	_, err = replay.Parse(strings.NewReader("evnets: []\n"))
	assert.ErrorIs(t, err, replay.ErrBadScript)

	path := filepath.Join(t.TempDir(), "tap.yaml")
	require.NoError(t, os.WriteFile(path, []byte("events:\n  - {at: 5ms, key: j, down: true}\n"), 0o644))
	s, err := replay.Load(path)
	require.NoError(t, err)
	require.Len(t, s.Events, 1)
	assert.Equal(t, replay.Step{At: ms(5), Key: "j", Down: true}, s.Events[0])

	_, err = replay.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestActionString(t *testing.T) {
	a := replay.Action{At: ms(200), Kind: replay.KindShiftedTap, Code: keyboard.KeyA}
	assert.Equal(t, "200ms shifted-tap a", a.String())
}
