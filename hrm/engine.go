// Package hrm decides whether a home-row key press is a tap, a shifted tap
// or a held modifier.
//
// An Engine is a single-threaded state machine. Key events and timer
// expiries must be delivered from one goroutine, normally a deferred.Loop,
// and every transition checks the current state before acting so that a
// late timer or a duplicate event degrades to a no-op.
package hrm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Alia5/homerow/deferred"
	"github.com/Alia5/homerow/device/keyboard"
	"github.com/Alia5/homerow/internal/log"
)

// State is the decision state of one key.
type State int

const (
	StateIdle State = iota
	StatePending
	StateTap
	StateHold
	StateInvalidated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateTap:
		return "tap"
	case StateHold:
		return "hold"
	case StateInvalidated:
		return "invalidated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Decision is how a pending key was resolved.
type Decision int

const (
	DecisionTap Decision = iota
	DecisionShiftedTap
	DecisionHold
	DecisionInvalidated
)

func (d Decision) String() string {
	switch d {
	case DecisionTap:
		return "tap"
	case DecisionShiftedTap:
		return "shifted-tap"
	case DecisionHold:
		return "hold"
	case DecisionInvalidated:
		return "invalidated"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Output receives the synthesized key actions. Calls are fire-and-forget.
type Output interface {
	Tap(code uint8)
	ShiftedTap(code uint8)
	ActivateModifier(code uint8)
	DeactivateModifier(code uint8)
}

// Scheduler runs one-shot callbacks on the engine's goroutine.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) deferred.Handle
	Cancel(h deferred.Handle)
}

// Recorder observes decisions and layer transitions.
type Recorder interface {
	RecordDecision(key string, d Decision, elapsed time.Duration)
	RecordLayer(active bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordDecision(string, Decision, time.Duration) {}
func (nopRecorder) RecordLayer(bool)                               {}

// Event is a physical key transition.
type Event struct {
	Code    uint8
	Pressed bool
}

type homeRowKey struct {
	letter       uint8
	modifier     uint8
	pressedAt    time.Time
	layerAtPress bool
	state        State
	timer        deferred.Handle
	gen          uint64
}

// Engine resolves home-row, dual-function and thumb layer keys.
type Engine struct {
	cfg    Config
	out    Output
	sched  Scheduler
	clock  clockwork.Clock
	logger *slog.Logger
	rec    Recorder
	thumb  *ThumbMonitor

	keys     []homeRowKey
	keyIndex map[uint8]int

	duals     []dualKey
	dualIndex map[uint8]int

	thumbs     []thumbKey
	thumbIndex map[uint8]int
}

type Option func(*Engine)

// WithClock sets the clock used to measure how long keys are held.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.rec = r }
}

// New validates cfg and returns an engine writing to out.
func New(cfg Config, out Output, sched Scheduler, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:        cfg,
		out:        out,
		sched:      sched,
		clock:      clockwork.NewRealClock(),
		logger:     slog.Default(),
		rec:        nopRecorder{},
		keyIndex:   make(map[uint8]int, len(cfg.Keys)),
		dualIndex:  make(map[uint8]int, len(cfg.DualKeys)),
		thumbIndex: make(map[uint8]int, len(cfg.ThumbKeys)),
	}
	for _, o := range opts {
		o(e)
	}

	e.keys = make([]homeRowKey, len(cfg.Keys))
	for i, k := range cfg.Keys {
		e.keys[i] = homeRowKey{letter: k.Letter, modifier: k.Modifier}
		e.keyIndex[k.Letter] = i
	}
	e.duals = make([]dualKey, len(cfg.DualKeys))
	for i, d := range cfg.DualKeys {
		e.duals[i] = dualKey{DualKey: d}
		e.dualIndex[d.Trigger] = i
	}
	e.thumbs = make([]thumbKey, len(cfg.ThumbKeys))
	for i, c := range cfg.ThumbKeys {
		e.thumbs[i] = thumbKey{code: c}
		e.thumbIndex[c] = i
	}
	e.thumb = NewThumbMonitor(cfg.ThumbKeys, e.layerOn, e.layerOff)
	return e, nil
}

// Policy returns the policy the engine was built with.
func (e *Engine) Policy() Policy {
	return e.cfg.Policy
}

// LayerActive reports whether a thumb key is held.
func (e *Engine) LayerActive() bool {
	return e.thumb.Active()
}

// Owns reports whether HandleEvent consumes events for code.
func (e *Engine) Owns(code uint8) bool {
	_, hr := e.keyIndex[code]
	_, dual := e.dualIndex[code]
	_, thumb := e.thumbIndex[code]
	return hr || dual || thumb
}

// HandleEvent processes one key transition. It returns true when the event
// was consumed. Thumb keys are consumed too: they drive the layer while
// held and are only sent to the host as a tap.
func (e *Engine) HandleEvent(ev Event) bool {
	e.logger.Log(context.Background(), log.LevelTrace, "key event", "key", keyboard.Name(ev.Code), "pressed", ev.Pressed)

	if i, ok := e.thumbIndex[ev.Code]; ok {
		if ev.Pressed {
			e.pressThumb(i)
		} else {
			e.releaseThumb(i)
		}
		return true
	}
	if ev.Pressed {
		// any other key turns held thumb keys into layer keys
		e.useLayer()
	}
	if i, ok := e.keyIndex[ev.Code]; ok {
		if ev.Pressed {
			e.press(i)
		} else {
			e.release(i)
		}
		return true
	}
	if i, ok := e.dualIndex[ev.Code]; ok {
		if ev.Pressed {
			e.pressDual(i)
		} else {
			e.releaseDual(i)
		}
		return true
	}
	return false
}

// State returns the decision state of a home-row or dual key. Other codes
// report StateIdle.
func (e *Engine) State(code uint8) State {
	if i, ok := e.keyIndex[code]; ok {
		return e.keys[i].state
	}
	if i, ok := e.dualIndex[code]; ok {
		return e.duals[i].state
	}
	return StateIdle
}

// Reset cancels every timer, releases every held modifier and returns all
// keys to idle.
func (e *Engine) Reset() {
	for i := range e.keys {
		k := &e.keys[i]
		e.cancel(&k.timer)
		if k.state == StateHold {
			e.out.DeactivateModifier(k.modifier)
		}
		k.state = StateIdle
	}
	for i := range e.duals {
		d := &e.duals[i]
		e.cancel(&d.timer)
		if d.state == StateHold {
			e.out.DeactivateModifier(d.Hold)
		}
		d.state = StateIdle
	}
	for i := range e.thumbs {
		e.thumbs[i].down = false
	}
	e.thumb.Reset()
}

func (e *Engine) cancel(h *deferred.Handle) {
	if *h != 0 {
		e.sched.Cancel(*h)
		*h = 0
	}
}

func (e *Engine) press(i int) {
	k := &e.keys[i]
	e.cancel(&k.timer)
	if k.state == StateHold {
		// repeated press without a release
		e.out.DeactivateModifier(k.modifier)
	}
	k.gen++
	k.pressedAt = e.clock.Now()
	k.layerAtPress = e.thumb.Active()
	k.state = StatePending
	tok := token{kind: tokenHomeRow, index: i, gen: k.gen}
	k.timer = e.sched.Schedule(e.cfg.TappingTerm, func() { e.expire(tok) })

	if e.cfg.Policy == PolicyAutoShift && k.modifier != keyboard.KeyNone && k.layerAtPress {
		e.hold(i)
	}
}

func (e *Engine) expire(tok token) {
	k, ok := e.homeRowKey(tok)
	if !ok {
		return
	}
	k.timer = 0
	switch e.cfg.Policy {
	case PolicyLayerGated:
		if e.thumb.Active() && k.modifier != keyboard.KeyNone {
			e.hold(tok.index)
		}
	case PolicyAutoShift:
		k.state = StateTap
		e.out.ShiftedTap(k.letter)
		e.decided(k.letter, DecisionShiftedTap, e.clock.Since(k.pressedAt))
	}
}

func (e *Engine) homeRowKey(tok token) (*homeRowKey, bool) {
	if tok.kind != tokenHomeRow || tok.index < 0 || tok.index >= len(e.keys) {
		e.logger.Log(context.Background(), log.LevelTrace, "ignoring invalid timer token", "token", tok)
		return nil, false
	}
	k := &e.keys[tok.index]
	if k.gen != tok.gen || k.state != StatePending {
		e.logger.Log(context.Background(), log.LevelTrace, "ignoring stale timer", "key", keyboard.Name(k.letter), "state", k.state)
		return nil, false
	}
	return k, true
}

func (e *Engine) hold(i int) {
	k := &e.keys[i]
	e.cancel(&k.timer)
	k.state = StateHold
	e.useLayer()
	e.out.ActivateModifier(k.modifier)
	e.decided(k.letter, DecisionHold, e.clock.Since(k.pressedAt))
}

func (e *Engine) release(i int) {
	k := &e.keys[i]
	e.cancel(&k.timer)
	elapsed := e.clock.Since(k.pressedAt)

	switch k.state {
	case StateIdle:
		return
	case StateHold:
		e.out.DeactivateModifier(k.modifier)
	case StatePending:
		switch {
		case e.cfg.Policy == PolicyLayerGated && e.thumb.Active() && k.modifier != keyboard.KeyNone:
			// the layer came up but nothing resolved the key in time
			e.useLayer()
			e.out.ActivateModifier(k.modifier)
			e.out.DeactivateModifier(k.modifier)
			e.decided(k.letter, DecisionHold, elapsed)
		case e.shifted(elapsed):
			e.out.ShiftedTap(k.letter)
			e.decided(k.letter, DecisionShiftedTap, elapsed)
		default:
			e.out.Tap(k.letter)
			e.decided(k.letter, DecisionTap, elapsed)
		}
	}
	k.state = StateIdle
}

// shifted reports whether a pending key released after elapsed is
// auto-shifted.
func (e *Engine) shifted(elapsed time.Duration) bool {
	if e.cfg.Policy == PolicyAutoShift {
		return elapsed >= e.cfg.TappingTerm
	}
	return !e.thumb.Active() && e.cfg.AutoShiftTimeout > 0 && elapsed >= e.cfg.AutoShiftTimeout
}

// layerOn upgrades keys still inside their decision window to holds.
func (e *Engine) layerOn() {
	e.rec.RecordLayer(true)
	for i := range e.keys {
		k := &e.keys[i]
		if k.state != StatePending || k.modifier == keyboard.KeyNone {
			continue
		}
		if e.clock.Since(k.pressedAt) < e.cfg.TappingTerm {
			e.hold(i)
		}
	}
}

// layerOff drops keys that were still pending when the layer went away.
func (e *Engine) layerOff() {
	e.rec.RecordLayer(false)
	if e.cfg.Policy != PolicyLayerGated {
		return
	}
	for i := range e.keys {
		k := &e.keys[i]
		if k.state != StatePending {
			continue
		}
		e.cancel(&k.timer)
		k.state = StateInvalidated
		e.decided(k.letter, DecisionInvalidated, e.clock.Since(k.pressedAt))
	}
}

func (e *Engine) decided(code uint8, d Decision, elapsed time.Duration) {
	name := keyboard.Name(code)
	e.logger.Debug("key decided", "key", name, "decision", d, "elapsed", elapsed)
	e.rec.RecordDecision(name, d, elapsed)
}
