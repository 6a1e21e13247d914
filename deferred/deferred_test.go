package deferred_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/homerow/deferred"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManualOrdering(t *testing.T) {
	m := deferred.NewManual(epoch)
	var got []string
	at := func(name string) func() {
		return func() { got = append(got, name+"@"+m.Now().Sub(epoch).String()) }
	}

	m.Schedule(30*time.Millisecond, at("c"))
	m.Schedule(10*time.Millisecond, at("a"))
	m.Schedule(10*time.Millisecond, at("b"))
	cancelled := m.Schedule(20*time.Millisecond, at("x"))
	m.Cancel(cancelled)
	m.Cancel(cancelled)
	m.Cancel(0)
	assert.Equal(t, 3, m.Pending())

	assert.Equal(t, 2, m.Advance(15*time.Millisecond))
	assert.Equal(t, epoch.Add(15*time.Millisecond), m.Now())
	assert.Equal(t, 1, m.Advance(time.Second))
	assert.Equal(t, []string{"a@10ms", "b@10ms", "c@30ms"}, got)
	assert.Zero(t, m.Pending())
}

func TestManualNestedSchedule(t *testing.T) {
	m := deferred.NewManual(epoch)
	var fired []time.Duration
	m.Schedule(5*time.Millisecond, func() {
		fired = append(fired, m.Now().Sub(epoch))
		m.Schedule(5*time.Millisecond, func() {
			fired = append(fired, m.Now().Sub(epoch))
		})
	})
	assert.Equal(t, 2, m.Advance(20*time.Millisecond))
	assert.Equal(t, []time.Duration{5 * time.Millisecond, 10 * time.Millisecond}, fired)

	m.Schedule(0, func() { fired = append(fired, 0) })
	assert.Equal(t, 1, m.AdvanceTo(epoch))
	assert.Equal(t, epoch.Add(20*time.Millisecond), m.Clock().Now())
}

func runLoop(t *testing.T, l *deferred.Loop) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()
	return cancel, errCh
}

func TestLoopFIFO(t *testing.T) {
	l := deferred.NewLoop(clockwork.NewFakeClock(), nil)
	cancel, errCh := runLoop(t, l)

	var mu sync.Mutex
	var got []int
	for i := 0; i < 50; i++ {
		require.NoError(t, l.Post(context.Background(), func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 50
	}, time.Second, time.Millisecond)
	for i, v := range got {
		assert.Equal(t, i, v)
	}

	cancel()
	assert.NoError(t, <-errCh)
	assert.ErrorIs(t, l.Post(context.Background(), func() {}), deferred.ErrLoopClosed)
	assert.ErrorIs(t, l.Run(context.Background()), deferred.ErrLoopClosed)
}

func TestLoopTimers(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := deferred.NewLoop(clock, nil)
	cancel, errCh := runLoop(t, l)
	defer func() {
		cancel()
		<-errCh
	}()

	fired := make(chan string, 4)
	post := func(fn func()) {
		require.NoError(t, l.Post(context.Background(), fn))
	}

	var stale deferred.Handle
	post(func() {
		l.Schedule(100*time.Millisecond, func() { fired <- "kept" })
		stale = l.Schedule(50*time.Millisecond, func() { fired <- "cancelled" })
	})
	require.NoError(t, clock.BlockUntilContext(context.Background(), 2))

	post(func() { l.Cancel(stale) })
	done := make(chan int)
	post(func() { done <- l.Pending() })
	assert.Equal(t, 1, <-done)

	clock.Advance(200 * time.Millisecond)
	select {
	case name := <-fired:
		assert.Equal(t, "kept", name)
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	post(func() { done <- l.Pending() })
	assert.Equal(t, 0, <-done)
	assert.Empty(t, fired)
}

func TestLoopDropsExpiryCancelledAfterFiring(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := deferred.NewLoop(clock, nil)
	cancel, errCh := runLoop(t, l)
	defer func() {
		cancel()
		<-errCh
	}()

	release := make(chan struct{})
	ran := make(chan struct{}, 1)
	var h deferred.Handle
	require.NoError(t, l.Post(context.Background(), func() {
		h = l.Schedule(10*time.Millisecond, func() { ran <- struct{}{} })
	}))
	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))

	// hold the loop so the expiry queues up behind the cancel
	require.NoError(t, l.Post(context.Background(), func() { <-release }))
	require.NoError(t, l.Post(context.Background(), func() { l.Cancel(h) }))
	clock.Advance(10 * time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)

	done := make(chan struct{})
	require.NoError(t, l.Post(context.Background(), func() { close(done) }))
	<-done
	select {
	case <-ran:
		t.Fatal("cancelled timer ran")
	default:
	}
}
