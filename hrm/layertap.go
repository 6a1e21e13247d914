package hrm

import (
	"time"

	"github.com/Alia5/homerow/device/keyboard"
)

// thumbKey is a layer-tap key. While held it keeps the modifier layer up;
// it reaches the host only as a tap, and only when it was released within
// the tapping term without being used as a layer key.
type thumbKey struct {
	code      uint8
	pressedAt time.Time
	down      bool
	used      bool
}

func (e *Engine) pressThumb(i int) {
	e.useLayer()
	t := &e.thumbs[i]
	t.down = true
	t.used = false
	t.pressedAt = e.clock.Now()
	e.thumb.Update(t.code, true)
}

func (e *Engine) releaseThumb(i int) {
	t := &e.thumbs[i]
	tap := t.down && !t.used && e.clock.Since(t.pressedAt) < e.cfg.TappingTerm
	t.down = false
	e.thumb.Update(t.code, false)
	if tap {
		e.logger.Debug("thumb key tapped", "key", keyboard.Name(t.code))
		e.out.Tap(t.code)
	}
}

// useLayer marks every held thumb key as a layer key.
func (e *Engine) useLayer() {
	for i := range e.thumbs {
		if e.thumbs[i].down {
			e.thumbs[i].used = true
		}
	}
}
