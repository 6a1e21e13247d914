// Package daemon runs the decision engine against a live keyboard.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/Alia5/homerow/deferred"
	"github.com/Alia5/homerow/device/keyboard"
	"github.com/Alia5/homerow/hrm"
	"github.com/Alia5/homerow/internal/log"
)

// Source yields physical key events. Close must unblock a pending
// ReadEvent.
type Source interface {
	ReadEvent() (keyboard.KeyEvent, error)
	Close() error
}

// EventRecorder is implemented by recorders that count input events.
type EventRecorder interface {
	RecordEvent(handled bool)
}

// ReportErrorRecorder is implemented by recorders that count failed
// report writes.
type ReportErrorRecorder interface {
	RecordReportError(err error)
}

type Daemon struct {
	src      Source
	loop     *deferred.Loop
	reporter *keyboard.Reporter
	engine   *hrm.Engine
	logger   *slog.Logger
	raw      log.RawLogger
	events   EventRecorder
}

type options struct {
	clock    clockwork.Clock
	logger   *slog.Logger
	raw      log.RawLogger
	recorder hrm.Recorder
}

type Option func(*options)

func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRawLogger logs every input event and every report written.
func WithRawLogger(r log.RawLogger) Option {
	return func(o *options) { o.raw = r }
}

// WithRecorder receives engine decisions. If it also implements
// EventRecorder or ReportErrorRecorder those hooks are wired too.
func WithRecorder(r hrm.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

type nopRaw struct{}

func (nopRaw) Log(bool, []byte) {}

// rawSink logs each report before passing it on.
type rawSink struct {
	sink keyboard.Sink
	raw  log.RawLogger
}

func (s rawSink) WriteReport(st keyboard.InputState) error {
	if b, err := st.MarshalBinary(); err == nil {
		s.raw.Log(false, b)
	}
	return s.sink.WriteReport(st)
}

// New builds the loop, reporter and engine around src and sink.
func New(cfg hrm.Config, src Source, sink keyboard.Sink, opts ...Option) (*Daemon, error) {
	o := options{
		clock:  clockwork.NewRealClock(),
		logger: slog.Default(),
		raw:    nopRaw{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	d := &Daemon{
		src:    src,
		logger: o.logger,
		raw:    o.raw,
		loop:   deferred.NewLoop(o.clock, o.logger),
	}
	d.reporter = keyboard.NewReporter(rawSink{sink: sink, raw: o.raw}, o.logger)

	engineOpts := []hrm.Option{hrm.WithClock(o.clock), hrm.WithLogger(o.logger)}
	if o.recorder != nil {
		engineOpts = append(engineOpts, hrm.WithRecorder(o.recorder))
		if er, ok := o.recorder.(EventRecorder); ok {
			d.events = er
		}
		if rr, ok := o.recorder.(ReportErrorRecorder); ok {
			d.reporter.OnError(rr.RecordReportError)
		}
	}
	engine, err := hrm.New(cfg, d.reporter, d.loop, engineOpts...)
	if err != nil {
		return nil, err
	}
	d.engine = engine
	return d, nil
}

// Run processes events until ctx is done or the source fails. Before
// returning it releases every key on the output and closes the source.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	readErr := make(chan error, 1)
	go func() {
		readErr <- d.read(ctx)
		cancel()
	}()

	d.logger.Info("homerow running", "policy", d.engine.Policy())
	if err := d.loop.Run(ctx); err != nil {
		return err
	}

	// the loop has stopped; engine and reporter are ours again
	d.engine.Reset()
	d.reporter.ReleaseAll()
	closeErr := d.src.Close()
	err := <-readErr
	d.logger.Info("homerow stopped")

	return errors.Join(err, closeErr)
}

func (d *Daemon) read(ctx context.Context) error {
	for {
		ev, err := d.src.ReadEvent()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
		var value byte
		if ev.Pressed {
			value = 1
		}
		if ev.Repeat {
			value = 2
		}
		d.raw.Log(true, []byte{ev.Code, value})

		if err := d.loop.Post(ctx, func() { d.dispatch(ev) }); err != nil {
			return nil
		}
	}
}

// dispatch runs on the loop goroutine.
func (d *Daemon) dispatch(ev keyboard.KeyEvent) {
	if ev.Repeat {
		// held keys stay down in the report and the host repeats them
		return
	}
	handled := d.engine.HandleEvent(hrm.Event{Code: ev.Code, Pressed: ev.Pressed})
	if d.events != nil {
		d.events.RecordEvent(handled)
	}
	if handled {
		return
	}
	if ev.Pressed {
		d.reporter.Press(ev.Code)
	} else {
		d.reporter.Release(ev.Code)
	}
}
