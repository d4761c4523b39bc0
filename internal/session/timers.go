package session

import (
	"sync"
	"time"
)

// timers owns at most one pending challenge timer per session. Arming a new
// timer replaces the old one, and stopAll cancels everything and waits for
// callbacks already running.
type timers struct {
	mu     sync.Mutex
	tasks  map[string]*time.Timer
	closed bool
	wg     sync.WaitGroup
}

func newTimers() *timers {
	return &timers{tasks: make(map[string]*time.Timer)}
}

func (t *timers) arm(sessionID string, d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if old, ok := t.tasks[sessionID]; ok {
		old.Stop()
	}
	t.schedule(sessionID, d, fn)
}

// armIdle arms a timer only when the session has none pending.
func (t *timers) armIdle(sessionID string, d time.Duration, fn func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.tasks[sessionID]; ok {
		return false
	}
	return t.schedule(sessionID, d, fn)
}

// schedule must be called with t.mu held.
func (t *timers) schedule(sessionID string, d time.Duration, fn func()) bool {
	if t.closed {
		return false
	}

	var tm *time.Timer
	tm = time.AfterFunc(d, func() {
		t.mu.Lock()
		if t.closed || t.tasks[sessionID] != tm {
			t.mu.Unlock()
			return
		}
		delete(t.tasks, sessionID)
		t.wg.Add(1)
		t.mu.Unlock()

		defer t.wg.Done()
		fn()
	})
	t.tasks[sessionID] = tm
	return true
}

func (t *timers) cancel(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tm, ok := t.tasks[sessionID]; ok {
		tm.Stop()
		delete(t.tasks, sessionID)
	}
}

func (t *timers) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tasks)
}

func (t *timers) stopAll() {
	t.mu.Lock()
	t.closed = true
	for id, tm := range t.tasks {
		tm.Stop()
		delete(t.tasks, id)
	}
	t.mu.Unlock()

	t.wg.Wait()
}
