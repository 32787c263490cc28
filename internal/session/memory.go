package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory.  Sessions never expire;
// a restart forgets every session, including language choices.
type MemoryStore struct {
	locks *keyLocks

	mu       sync.RWMutex
	sessions map[int64]Session

	now func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locks:    newKeyLocks(),
		sessions: make(map[int64]Session),
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, userID int64) (Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	return s, ok, nil
}

// Update loads the session of userID (a new one if absent), applies fn
// and saves the result, all while holding the user's lock.
func (m *MemoryStore) Update(ctx context.Context, userID int64, fn func(*Session) error) (Session, error) {
	unlock, err := m.locks.lock(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	defer unlock()

	m.mu.RLock()
	current, ok := m.sessions[userID]
	m.mu.RUnlock()
	if !ok {
		current = New(userID)
	}

	next := current
	if err := fn(&next); err != nil {
		if errors.Is(err, ErrSkipSave) {
			return current, nil
		}
		return current, err
	}
	next.UserID = userID
	next.UpdatedAt = m.now().UTC()

	m.mu.Lock()
	m.sessions[userID] = next
	m.mu.Unlock()
	return next, nil
}

func (m *MemoryStore) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
	return nil
}

// Len reports how many sessions are stored.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
