package keyboard

import (
	"log/slog"
)

// Sink receives every report produced by a Reporter.
type Sink interface {
	WriteReport(st InputState) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(st InputState) error

func (f SinkFunc) WriteReport(st InputState) error { return f(st) }

// Reporter turns key actions into a stream of keyboard reports.
//
// Modifiers are reference counted: two holders of the same modifier keep it
// down until both have released it. A Reporter is not safe for concurrent
// use; it is driven from the event loop goroutine.
type Reporter struct {
	sink    Sink
	logger  *slog.Logger
	state   InputState
	modRefs [8]int
	onError func(error)
}

// NewReporter returns a Reporter writing to sink.
func NewReporter(sink Sink, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{sink: sink, logger: logger}
}

// OnError registers a callback invoked for every failed sink write.
func (r *Reporter) OnError(f func(error)) {
	r.onError = f
}

// State returns the last state written to the sink.
func (r *Reporter) State() InputState {
	return r.state
}

func (r *Reporter) flush() {
	if err := r.sink.WriteReport(r.state); err != nil {
		r.logger.Warn("failed to write keyboard report", "error", err)
		if r.onError != nil {
			r.onError(err)
		}
	}
}

// Press forwards a physical key press. Modifier usages are counted like
// any other modifier holder.
func (r *Reporter) Press(code uint8) {
	if IsModifier(code) {
		r.ActivateModifier(code)
		return
	}
	if code == KeyNone || r.state.Pressed(code) {
		return
	}
	r.state.set(code, true)
	r.flush()
}

// Release forwards a physical key release.
func (r *Reporter) Release(code uint8) {
	if IsModifier(code) {
		r.DeactivateModifier(code)
		return
	}
	if !r.state.Pressed(code) {
		return
	}
	r.state.set(code, false)
	r.flush()
}

// Tap sends a press and a release of code.
func (r *Reporter) Tap(code uint8) {
	if code == KeyNone {
		return
	}
	if IsModifier(code) {
		r.ActivateModifier(code)
		r.DeactivateModifier(code)
		return
	}
	if r.state.Pressed(code) {
		r.state.set(code, false)
		r.flush()
	}
	r.state.set(code, true)
	r.flush()
	r.state.set(code, false)
	r.flush()
}

// ShiftedTap taps code with left shift applied, unless a shift is already
// held, in which case it is a plain tap.
func (r *Reporter) ShiftedTap(code uint8) {
	if r.state.Modifiers&(ModLeftShift|ModRightShift) != 0 {
		r.Tap(code)
		return
	}
	r.ActivateModifier(KeyLeftShift)
	r.Tap(code)
	r.DeactivateModifier(KeyLeftShift)
}

// ActivateModifier adds a holder for a modifier usage.
func (r *Reporter) ActivateModifier(code uint8) {
	if !IsModifier(code) {
		r.logger.Debug("ignoring non-modifier activation", "code", Name(code))
		return
	}
	i := code - KeyLeftCtrl
	r.modRefs[i]++
	if r.modRefs[i] == 1 {
		r.state.set(code, true)
		r.flush()
	}
}

// DeactivateModifier drops a holder for a modifier usage. The modifier is
// released once no holder remains.
func (r *Reporter) DeactivateModifier(code uint8) {
	if !IsModifier(code) {
		return
	}
	i := code - KeyLeftCtrl
	if r.modRefs[i] == 0 {
		return
	}
	r.modRefs[i]--
	if r.modRefs[i] == 0 {
		r.state.set(code, false)
		r.flush()
	}
}

// ReleaseAll drops every key and modifier and writes an empty report.
func (r *Reporter) ReleaseAll() {
	r.modRefs = [8]int{}
	r.state = InputState{}
	r.flush()
}
