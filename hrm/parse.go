package hrm

import (
	"fmt"
	"strings"
	"time"

	"github.com/Alia5/homerow/device/keyboard"
)

// ParseKeySpec parses "a=leftctrl". A bare letter is tap-only.
func ParseKeySpec(s string) (KeySpec, error) {
	letter, mod, hasMod := strings.Cut(s, "=")
	l, err := keyboard.ParseKey(letter)
	if err != nil {
		return KeySpec{}, fmt.Errorf("%w: home-row key %q: %v", ErrInvalidConfig, s, err)
	}
	spec := KeySpec{Letter: l}
	if hasMod {
		m, err := keyboard.ParseKey(mod)
		if err != nil {
			return KeySpec{}, fmt.Errorf("%w: home-row key %q: %v", ErrInvalidConfig, s, err)
		}
		spec.Modifier = m
	}
	return spec, nil
}

// ParseDualKey parses "trigger=tap/hold" where tap is a chord such as
// "leftalt+backspace" and hold is a modifier.
func ParseDualKey(s string) (DualKey, error) {
	trigger, rest, ok := strings.Cut(s, "=")
	if !ok {
		return DualKey{}, fmt.Errorf("%w: dual key %q: want trigger=tap/hold", ErrInvalidConfig, s)
	}
	tap, hold, ok := strings.Cut(rest, "/")
	if !ok {
		return DualKey{}, fmt.Errorf("%w: dual key %q: want trigger=tap/hold", ErrInvalidConfig, s)
	}

	var d DualKey
	var err error
	if d.Trigger, err = keyboard.ParseKey(trigger); err != nil {
		return DualKey{}, fmt.Errorf("%w: dual key %q: %v", ErrInvalidConfig, s, err)
	}
	if d.TapMods, d.TapCode, err = keyboard.ParseChord(tap); err != nil {
		return DualKey{}, fmt.Errorf("%w: dual key %q: %v", ErrInvalidConfig, s, err)
	}
	if d.Hold, err = keyboard.ParseKey(hold); err != nil {
		return DualKey{}, fmt.Errorf("%w: dual key %q: %v", ErrInvalidConfig, s, err)
	}
	return d, nil
}

// ParseKeys parses a list of key names.
func ParseKeys(names []string) ([]uint8, error) {
	out := make([]uint8, 0, len(names))
	for _, n := range names {
		c, err := keyboard.ParseKey(n)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// Overrides replace Config fields from their textual form. Zero values
// keep the base setting.
type Overrides struct {
	Policy           string         `yaml:"policy"`
	TappingTerm      time.Duration  `yaml:"tapping_term"`
	AutoShiftTimeout *time.Duration `yaml:"auto_shift_timeout"`
	Keys             []string       `yaml:"keys"`
	ThumbKeys        []string       `yaml:"thumb_keys"`
	DualKeys         []string       `yaml:"dual_keys"`
}

// Apply returns base with the overrides applied and validated.
func (o Overrides) Apply(base Config) (Config, error) {
	cfg := base
	if o.Policy != "" {
		p, err := ParsePolicy(o.Policy)
		if err != nil {
			return Config{}, err
		}
		cfg.Policy = p
	}
	if o.TappingTerm != 0 {
		cfg.TappingTerm = o.TappingTerm
	}
	if o.AutoShiftTimeout != nil {
		cfg.AutoShiftTimeout = *o.AutoShiftTimeout
	}
	if len(o.Keys) > 0 {
		cfg.Keys = make([]KeySpec, 0, len(o.Keys))
		for _, s := range o.Keys {
			k, err := ParseKeySpec(s)
			if err != nil {
				return Config{}, err
			}
			cfg.Keys = append(cfg.Keys, k)
		}
	}
	if len(o.ThumbKeys) > 0 {
		thumbs, err := ParseKeys(o.ThumbKeys)
		if err != nil {
			return Config{}, err
		}
		cfg.ThumbKeys = thumbs
	}
	if len(o.DualKeys) > 0 {
		cfg.DualKeys = make([]DualKey, 0, len(o.DualKeys))
		for _, s := range o.DualKeys {
			d, err := ParseDualKey(s)
			if err != nil {
				return Config{}, err
			}
			cfg.DualKeys = append(cfg.DualKeys, d)
		}
	}
	return cfg, cfg.Validate()
}
