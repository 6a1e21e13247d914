// Package replay drives the engine from a recorded key script in virtual
// time.
package replay

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Alia5/homerow/deferred"
	"github.com/Alia5/homerow/device/keyboard"
	"github.com/Alia5/homerow/hrm"
)

// Step is one physical key transition, At after the script start.
type Step struct {
	At   time.Duration `yaml:"at"`
	Key  string        `yaml:"key"`
	Down bool          `yaml:"down"`
}

// Script is a replay file. Config overrides the engine config the script is
// run with.
type Script struct {
	Config hrm.Overrides `yaml:"config"`
	Events []Step        `yaml:"events"`
}

var ErrBadScript = errors.New("invalid replay script")

// Parse decodes a YAML script.
func Parse(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s Script
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty script", ErrBadScript)
		}
		return nil, fmt.Errorf("%w: %v", ErrBadScript, err)
	}
	return &s, nil
}

// Load reads and parses the script at path.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(bytes.NewReader(data))
}

type Kind string

const (
	KindTap          Kind = "tap"
	KindShiftedTap   Kind = "shifted-tap"
	KindModifierDown Kind = "modifier-down"
	KindModifierUp   Kind = "modifier-up"
	KindPassDown     Kind = "pass-down"
	KindPassUp       Kind = "pass-up"
)

// Action is one output of the engine, or a key the engine passed through.
type Action struct {
	At   time.Duration
	Kind Kind
	Code uint8
}

func (a Action) String() string {
	return fmt.Sprintf("%s %s %s", a.At, a.Kind, keyboard.Name(a.Code))
}

// recorder implements hrm.Output in virtual time.
type recorder struct {
	sched   *deferred.Manual
	start   time.Time
	actions []Action
}

func (r *recorder) add(kind Kind, code uint8) {
	r.actions = append(r.actions, Action{At: r.sched.Now().Sub(r.start), Kind: kind, Code: code})
}

func (r *recorder) Tap(code uint8)                { r.add(KindTap, code) }
func (r *recorder) ShiftedTap(code uint8)         { r.add(KindShiftedTap, code) }
func (r *recorder) ActivateModifier(code uint8)   { r.add(KindModifierDown, code) }
func (r *recorder) DeactivateModifier(code uint8) { r.add(KindModifierUp, code) }

// Run plays s against an engine built from base plus the script's config
// and returns every action in order. Timers still pending after the last
// step are run to completion.
func Run(s *Script, base hrm.Config, logger *slog.Logger) ([]Action, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg, err := s.Config.Apply(base)
	if err != nil {
		return nil, err
	}

	start := time.Unix(0, 0).UTC()
	sched := deferred.NewManual(start)
	rec := &recorder{sched: sched, start: start}
	engine, err := hrm.New(cfg, rec, sched, hrm.WithClock(sched.Clock()), hrm.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	var last time.Duration
	for i, step := range s.Events {
		if step.At < last {
			return nil, fmt.Errorf("%w: event %d at %s is before %s", ErrBadScript, i, step.At, last)
		}
		last = step.At
		code, err := keyboard.ParseKey(step.Key)
		if err != nil {
			return nil, fmt.Errorf("%w: event %d: %v", ErrBadScript, i, err)
		}

		sched.AdvanceTo(start.Add(step.At))
		if engine.HandleEvent(hrm.Event{Code: code, Pressed: step.Down}) {
			continue
		}
		if step.Down {
			rec.add(KindPassDown, code)
		} else {
			rec.add(KindPassUp, code)
		}
	}
	for sched.Pending() > 0 {
		sched.Advance(cfg.TappingTerm)
	}
	return rec.actions, nil
}
