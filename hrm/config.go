package hrm

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Alia5/homerow/device/keyboard"
)

// Policy selects how a pending home-row key is resolved.
type Policy int

const (
	// PolicyLayerGated holds the modifier only while a thumb key is down.
	// Releasing the thumb key before a pending key resolves invalidates it.
	PolicyLayerGated Policy = iota
	// PolicyAutoShift emits the shifted letter once the tapping term
	// passes, whatever the layer state. A thumb key pressed within the
	// tapping term still upgrades the key to a hold.
	PolicyAutoShift
)

func (p Policy) String() string {
	switch p {
	case PolicyLayerGated:
		return "layer-gated"
	case PolicyAutoShift:
		return "auto-shift"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy parses the String form of a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "layer-gated", "layergated", "a", "":
		return PolicyLayerGated, nil
	case "auto-shift", "autoshift", "b":
		return PolicyAutoShift, nil
	}
	return 0, fmt.Errorf("%w: unknown policy %q", ErrInvalidConfig, s)
}

// KeySpec binds a home-row letter to the modifier it holds. A zero Modifier
// makes the key tap-only; it still takes part in auto-shift.
type KeySpec struct {
	Letter   uint8
	Modifier uint8
}

// DualKey taps TapCode (with TapMods applied) when released within the
// tapping term and holds the Hold modifier otherwise.
type DualKey struct {
	Trigger uint8
	TapCode uint8
	TapMods uint8
	Hold    uint8
}

// Config is fixed for the lifetime of an Engine.
type Config struct {
	TappingTerm time.Duration
	// AutoShiftTimeout applies to PolicyLayerGated only: a tap held at least
	// this long is shifted. Zero disables it.
	AutoShiftTimeout time.Duration
	Policy           Policy
	Keys             []KeySpec
	ThumbKeys        []uint8
	DualKeys         []DualKey
}

// ErrInvalidConfig is wrapped by every error returned from Config.Validate.
var ErrInvalidConfig = errors.New("invalid engine config")

const (
	DefaultTappingTerm      = 200 * time.Millisecond
	DefaultAutoShiftTimeout = 150 * time.Millisecond
)

// DefaultKeys is the mirrored home-row layout: ctrl, alt, gui, shift from
// the outside in on both hands.
func DefaultKeys() []KeySpec {
	return []KeySpec{
		{Letter: keyboard.KeyA, Modifier: keyboard.KeyLeftCtrl},
		{Letter: keyboard.KeyS, Modifier: keyboard.KeyLeftAlt},
		{Letter: keyboard.KeyD, Modifier: keyboard.KeyLeftGUI},
		{Letter: keyboard.KeyF, Modifier: keyboard.KeyLeftShift},
		{Letter: keyboard.KeyJ, Modifier: keyboard.KeyLeftShift},
		{Letter: keyboard.KeyK, Modifier: keyboard.KeyLeftGUI},
		{Letter: keyboard.KeyL, Modifier: keyboard.KeyLeftAlt},
		{Letter: keyboard.KeySemicolon, Modifier: keyboard.KeyLeftCtrl},
	}
}

// DefaultConfig returns the layer-gated policy over DefaultKeys with enter
// and space as thumb keys.
func DefaultConfig() Config {
	return Config{
		TappingTerm:      DefaultTappingTerm,
		AutoShiftTimeout: DefaultAutoShiftTimeout,
		Policy:           PolicyLayerGated,
		Keys:             DefaultKeys(),
		ThumbKeys:        []uint8{keyboard.KeyEnter, keyboard.KeySpace},
	}
}

func (c Config) Validate() error {
	if c.TappingTerm <= 0 {
		return fmt.Errorf("%w: tapping term must be positive, got %s", ErrInvalidConfig, c.TappingTerm)
	}
	if c.AutoShiftTimeout < 0 {
		return fmt.Errorf("%w: auto-shift timeout must not be negative, got %s", ErrInvalidConfig, c.AutoShiftTimeout)
	}
	if c.Policy != PolicyLayerGated && c.Policy != PolicyAutoShift {
		return fmt.Errorf("%w: unknown policy %d", ErrInvalidConfig, int(c.Policy))
	}
	if len(c.Keys) == 0 {
		return fmt.Errorf("%w: no home-row keys", ErrInvalidConfig)
	}

	seen := make(map[uint8]string)
	claim := func(code uint8, role string) error {
		if code == keyboard.KeyNone {
			return fmt.Errorf("%w: %s has no key code", ErrInvalidConfig, role)
		}
		if prev, ok := seen[code]; ok {
			return fmt.Errorf("%w: %s used as %s and %s", ErrInvalidConfig, keyboard.Name(code), prev, role)
		}
		seen[code] = role
		return nil
	}

	for _, k := range c.Keys {
		if keyboard.IsModifier(k.Letter) {
			return fmt.Errorf("%w: home-row key %s is a modifier", ErrInvalidConfig, keyboard.Name(k.Letter))
		}
		if err := claim(k.Letter, "home-row key"); err != nil {
			return err
		}
		if k.Modifier != keyboard.KeyNone && !keyboard.IsModifier(k.Modifier) {
			return fmt.Errorf("%w: %s is not a modifier (home-row key %s)", ErrInvalidConfig, keyboard.Name(k.Modifier), keyboard.Name(k.Letter))
		}
	}
	for _, code := range c.ThumbKeys {
		if err := claim(code, "thumb key"); err != nil {
			return err
		}
	}
	for _, d := range c.DualKeys {
		if err := claim(d.Trigger, "dual key"); err != nil {
			return err
		}
		if d.TapCode == keyboard.KeyNone {
			return fmt.Errorf("%w: dual key %s has no tap code", ErrInvalidConfig, keyboard.Name(d.Trigger))
		}
		if !keyboard.IsModifier(d.Hold) {
			return fmt.Errorf("%w: dual key %s holds %s, which is not a modifier", ErrInvalidConfig, keyboard.Name(d.Trigger), keyboard.Name(d.Hold))
		}
	}
	return nil
}
