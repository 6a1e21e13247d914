package hrm

import (
	"context"
	"time"

	"github.com/Alia5/homerow/deferred"
	"github.com/Alia5/homerow/device/keyboard"
	"github.com/Alia5/homerow/internal/log"
)

// dualKey is a DualKey and its decision state. Dual keys ignore the thumb
// layer: only the tapping term separates tap from hold.
type dualKey struct {
	DualKey
	pressedAt time.Time
	state     State
	timer     deferred.Handle
	gen       uint64
}

func (e *Engine) pressDual(i int) {
	d := &e.duals[i]
	e.cancel(&d.timer)
	if d.state == StateHold {
		e.out.DeactivateModifier(d.Hold)
	}
	d.gen++
	d.pressedAt = e.clock.Now()
	d.state = StatePending
	tok := token{kind: tokenDual, index: i, gen: d.gen}
	d.timer = e.sched.Schedule(e.cfg.TappingTerm, func() { e.expireDual(tok) })
}

func (e *Engine) expireDual(tok token) {
	if tok.kind != tokenDual || tok.index < 0 || tok.index >= len(e.duals) {
		e.logger.Log(context.Background(), log.LevelTrace, "ignoring invalid timer token", "token", tok)
		return
	}
	d := &e.duals[tok.index]
	if d.gen != tok.gen || d.state != StatePending {
		e.logger.Log(context.Background(), log.LevelTrace, "ignoring stale timer", "key", keyboard.Name(d.Trigger), "state", d.state)
		return
	}
	d.timer = 0
	d.state = StateHold
	e.out.ActivateModifier(d.Hold)
	e.decided(d.Trigger, DecisionHold, e.clock.Since(d.pressedAt))
}

func (e *Engine) releaseDual(i int) {
	d := &e.duals[i]
	e.cancel(&d.timer)

	switch d.state {
	case StateIdle:
		return
	case StateHold:
		e.out.DeactivateModifier(d.Hold)
	case StatePending:
		mods := keyboard.ModifierCodes(d.TapMods)
		for _, m := range mods {
			e.out.ActivateModifier(m)
		}
		e.out.Tap(d.TapCode)
		for j := len(mods) - 1; j >= 0; j-- {
			e.out.DeactivateModifier(mods[j])
		}
		e.decided(d.Trigger, DecisionTap, e.clock.Since(d.pressedAt))
	}
	d.state = StateIdle
}
