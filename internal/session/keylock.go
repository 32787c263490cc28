package session

import (
	"context"
	"sync"
)

// keyLocks hands out one mutex per user id.  Entries are reference
// counted and dropped once nobody holds or waits for them, so idle users
// cost nothing.  The outer mutex only guards the map, never a transition.
type keyLocks struct {
	mu      sync.Mutex
	entries map[int64]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{entries: make(map[int64]*keyLock)}
}

// lock blocks until the lock for id is held or ctx is done.  On success
// the returned func releases it.
func (k *keyLocks) lock(ctx context.Context, id int64) (func(), error) {
	k.mu.Lock()
	e, ok := k.entries[id]
	if !ok {
		e = &keyLock{sem: make(chan struct{}, 1)}
		k.entries[id] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		return func() {
			<-e.sem
			k.release(id, e)
		}, nil
	case <-ctx.Done():
		k.release(id, e)
		return nil, ErrLockTimeout
	}
}

func (k *keyLocks) release(id int64, e *keyLock) {
	k.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, id)
	}
	k.mu.Unlock()
}

func (k *keyLocks) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
