// Package lock provides short-lived mutual exclusion keyed by string.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrNotHeld is returned when releasing a lease that expired or belongs to someone else.
var ErrNotHeld = errors.New("lock not held")

// Locker acquires exclusive leases for a key.
type Locker interface {
	// Lock tries once to acquire key for ttl. A false result means another holder owns it.
	Lock(ctx context.Context, key string, ttl time.Duration) (Lease, bool, error)
}

// Lease is an acquired lock.
type Lease interface {
	Unlock(ctx context.Context) error
}
