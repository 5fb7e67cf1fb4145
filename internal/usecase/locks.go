package usecase

import (
	"context"
	"sync"
)

// userLocks serializes turns per user. Entries are reference counted and
// removed once no turn holds or waits on them.
type userLocks struct {
	mu      sync.Mutex
	entries map[string]*userLock
}

type userLock struct {
	sem  chan struct{}
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{entries: make(map[string]*userLock)}
}

// acquire blocks until the user's lock is held or ctx is done.
func (l *userLocks) acquire(ctx context.Context, userID string) (release func(), err error) {
	l.mu.Lock()
	e, ok := l.entries[userID]
	if !ok {
		e = &userLock{sem: make(chan struct{}, 1)}
		l.entries[userID] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		return func() {
			<-e.sem
			l.drop(userID, e)
		}, nil
	case <-ctx.Done():
		l.drop(userID, e)
		return nil, ctx.Err()
	}
}

func (l *userLocks) drop(userID string, e *userLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, userID)
	}
}

func (l *userLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
