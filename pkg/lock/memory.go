package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLock is an in-process Locker used when Redis is disabled. It only
// serialises callers inside one API instance.
type MemoryLock struct {
	mu      sync.Mutex
	holders map[string]*memoryLease
	now     func() time.Time
}

// NewMemoryLock constructs an empty in-process locker.
func NewMemoryLock() *MemoryLock {
	return &MemoryLock{holders: make(map[string]*memoryLease), now: time.Now}
}

// Lock implements Locker.
func (m *MemoryLock) Lock(_ context.Context, key string, ttl time.Duration) (Lease, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if held, ok := m.holders[key]; ok && now.Before(held.expires) {
		return nil, false, nil
	}
	lease := &memoryLease{owner: m, key: key, expires: now.Add(ttl)}
	m.holders[key] = lease
	return lease, true, nil
}

type memoryLease struct {
	owner   *MemoryLock
	key     string
	expires time.Time
}

func (l *memoryLease) Unlock(context.Context) error {
	l.owner.mu.Lock()
	defer l.owner.mu.Unlock()

	if l.owner.holders[l.key] != l {
		return ErrNotHeld
	}
	delete(l.owner.holders, l.key)
	return nil
}
