// Package deferred provides one-shot deferred execution for code that must
// run on a single goroutine.
//
// Loop is the production dispatcher: events posted from any goroutine and
// timer expiries are delivered in FIFO order on the goroutine running Run.
// Manual runs callbacks in virtual time and is used for replays and tests.
package deferred

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Alia5/homerow/internal/log"
)

// Handle identifies a scheduled callback. The zero Handle is never issued.
type Handle uint64

// ErrLoopClosed is returned when posting to a loop that has stopped.
var ErrLoopClosed = errors.New("deferred: loop closed")

// DefaultQueueSize is the capacity of a Loop's event queue.
const DefaultQueueSize = 256

type message struct {
	fn    func()
	timer Handle
}

// Loop is a single-consumer event loop with timers.
//
// Post may be called from any goroutine. Schedule and Cancel must only be
// called from callbacks running on the loop.
type Loop struct {
	clock  clockwork.Clock
	logger *slog.Logger
	queue  chan message
	done   chan struct{}

	next   Handle
	timers map[Handle]clockwork.Timer
}

// NewLoop creates a loop driven by clock.
func NewLoop(clock clockwork.Clock, logger *slog.Logger) *Loop {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		clock:  clock,
		logger: logger,
		queue:  make(chan message, DefaultQueueSize),
		done:   make(chan struct{}),
		timers: make(map[Handle]clockwork.Timer),
	}
}

// Clock returns the clock the loop schedules on.
func (l *Loop) Clock() clockwork.Clock {
	return l.clock
}

// Post queues fn for execution on the loop. It blocks while the queue is
// full.
func (l *Loop) Post(ctx context.Context, fn func()) error {
	return l.send(ctx, message{fn: fn})
}

func (l *Loop) send(ctx context.Context, m message) error {
	select {
	case <-l.done:
		return ErrLoopClosed
	default:
	}
	select {
	case l.queue <- m:
		return nil
	case <-l.done:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Schedule arranges for fn to run on the loop after delay.
func (l *Loop) Schedule(delay time.Duration, fn func()) Handle {
	l.next++
	h := l.next
	l.timers[h] = l.clock.AfterFunc(delay, func() {
		if err := l.send(context.Background(), message{fn: fn, timer: h}); err != nil {
			l.logger.Log(context.Background(), log.LevelTrace, "dropping timer expiry", "handle", h, "error", err)
		}
	})
	return h
}

// Cancel stops a scheduled callback. Cancelling a fired, cancelled or zero
// handle does nothing.
func (l *Loop) Cancel(h Handle) {
	t, ok := l.timers[h]
	if !ok {
		return
	}
	t.Stop()
	delete(l.timers, h)
}

// Pending returns the number of outstanding timers.
func (l *Loop) Pending() int {
	return len(l.timers)
}

// Run dispatches queued callbacks until ctx is done. Outstanding timers are
// stopped on return. A loop can only be run once.
func (l *Loop) Run(ctx context.Context) error {
	select {
	case <-l.done:
		return ErrLoopClosed
	default:
	}
	defer func() {
		for h, t := range l.timers {
			t.Stop()
			delete(l.timers, h)
		}
		close(l.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-l.queue:
			if m.timer != 0 {
				if _, ok := l.timers[m.timer]; !ok {
					// cancelled after the timer already posted its expiry
					l.logger.Log(ctx, log.LevelTrace, "discarding cancelled timer", "handle", m.timer)
					continue
				}
				delete(l.timers, m.timer)
			}
			m.fn()
		}
	}
}
