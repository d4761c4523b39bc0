package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocksSerializePerSession(t *testing.T) {
	l := newLocks()

	var (
		wg      sync.WaitGroup
		inside  atomic.Int32
		overlap atomic.Bool
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.lock("s1")
			defer unlock()
			if inside.Add(1) > 1 {
				overlap.Store(true)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
		}()
	}
	wg.Wait()

	assert.False(t, overlap.Load())
	assert.Equal(t, 0, l.len())
}

func TestLocksIndependentSessions(t *testing.T) {
	l := newLocks()
	unlockA := l.lock("a")

	done := make(chan struct{})
	go func() {
		unlock := l.lock("b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
	assert.Equal(t, 1, l.len())
	unlockA()
	assert.Equal(t, 0, l.len())
}

func TestTimersReplaceAndFire(t *testing.T) {
	tm := newTimers()
	defer tm.stopAll()

	var first, second atomic.Int32
	tm.arm("s1", 20*time.Millisecond, func() { first.Add(1) })
	tm.arm("s1", 20*time.Millisecond, func() { second.Add(1) })
	assert.Equal(t, 1, tm.pending())

	require.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
	assert.Equal(t, 0, tm.pending())
}

func TestTimersCancel(t *testing.T) {
	tm := newTimers()
	defer tm.stopAll()

	var fired atomic.Bool
	tm.arm("s1", 10*time.Millisecond, func() { fired.Store(true) })
	tm.cancel("s1")
	time.Sleep(30 * time.Millisecond)

	assert.False(t, fired.Load())
	assert.Equal(t, 0, tm.pending())
}

func TestTimersStopAllRejectsNewWork(t *testing.T) {
	tm := newTimers()
	tm.arm("s1", time.Hour, func() {})
	tm.stopAll()

	tm.arm("s2", time.Millisecond, func() { t.Error("fired after stopAll") })
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, tm.pending())
}

func TestTimersArmIdleKeepsPending(t *testing.T) {
	tm := newTimers()
	defer tm.stopAll()

	var first, second atomic.Int32
	assert.True(t, tm.armIdle("s1", 20*time.Millisecond, func() { first.Add(1) }))
	assert.False(t, tm.armIdle("s1", time.Millisecond, func() { second.Add(1) }))
	assert.Equal(t, 1, tm.pending())

	require.Eventually(t, func() bool { return first.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), second.Load())

	tm.stopAll()
	assert.False(t, tm.armIdle("s1", time.Millisecond, func() {}))
}
