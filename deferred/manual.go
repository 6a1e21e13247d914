package deferred

import (
	"time"

	"github.com/jonboulle/clockwork"
)

type entry struct {
	h  Handle
	at time.Time
	fn func()
}

// Manual is a scheduler that only moves when Advance is called. Callbacks
// run synchronously on the caller's goroutine, so a Manual must not be
// shared between goroutines.
type Manual struct {
	clock   *clockwork.FakeClock
	next    Handle
	entries []entry
}

// NewManual returns a Manual whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{clock: clockwork.NewFakeClockAt(start)}
}

// Clock returns the virtual clock. Its time only changes through Advance.
func (m *Manual) Clock() clockwork.Clock {
	return m.clock
}

// Now returns the current virtual time.
func (m *Manual) Now() time.Time {
	return m.clock.Now()
}

// Schedule registers fn to run once the virtual clock reaches now+delay.
func (m *Manual) Schedule(delay time.Duration, fn func()) Handle {
	if delay < 0 {
		delay = 0
	}
	m.next++
	m.entries = append(m.entries, entry{h: m.next, at: m.clock.Now().Add(delay), fn: fn})
	return m.next
}

// Cancel removes a scheduled callback.
func (m *Manual) Cancel(h Handle) {
	for i, e := range m.entries {
		if e.h == h {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return
		}
	}
}

// Pending returns the number of callbacks that have not fired yet.
func (m *Manual) Pending() int {
	return len(m.entries)
}

// Advance moves the clock forward by d, running every callback that falls
// due on the way in deadline order. Callbacks with equal deadlines run in
// the order they were scheduled. The clock reads each callback's deadline
// while it runs. Advance returns the number of callbacks run.
func (m *Manual) Advance(d time.Duration) int {
	end := m.clock.Now().Add(d)
	fired := 0
	for {
		i := m.due(end)
		if i < 0 {
			break
		}
		e := m.entries[i]
		m.entries = append(m.entries[:i], m.entries[i+1:]...)
		if step := e.at.Sub(m.clock.Now()); step > 0 {
			m.clock.Advance(step)
		}
		e.fn()
		fired++
	}
	if step := end.Sub(m.clock.Now()); step > 0 {
		m.clock.Advance(step)
	}
	return fired
}

// AdvanceTo moves the clock to t. Times in the past only run callbacks that
// are already due.
func (m *Manual) AdvanceTo(t time.Time) int {
	d := t.Sub(m.clock.Now())
	if d < 0 {
		d = 0
	}
	return m.Advance(d)
}

// due returns the index of the earliest entry at or before end, or -1.
func (m *Manual) due(end time.Time) int {
	best := -1
	for i, e := range m.entries {
		if e.at.After(end) {
			continue
		}
		if best < 0 || e.at.Before(m.entries[best].at) ||
			(e.at.Equal(m.entries[best].at) && e.h < m.entries[best].h) {
			best = i
		}
	}
	return best
}
