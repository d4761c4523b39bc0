package session

import "sync"

// locks hands out one mutex per session id. Entries are reference counted
// and dropped once nobody holds or waits on them.
type locks struct {
	mu sync.Mutex
	m  map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newLocks() *locks {
	return &locks{m: make(map[string]*sessionLock)}
}

// lock blocks until the session's mutex is held and returns its release.
func (l *locks) lock(sessionID string) (unlock func()) {
	l.mu.Lock()
	sl, ok := l.m[sessionID]
	if !ok {
		sl = &sessionLock{}
		l.m[sessionID] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()

		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.m, sessionID)
		}
		l.mu.Unlock()
	}
}

func (l *locks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
