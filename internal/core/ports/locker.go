package ports

import (
	"context"
	"time"
)

// Locker guards a pool against concurrent settlement attempts across
// processes. Acquire fails with domain.ErrLockHeld when someone else holds
// the key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
	Close() error
}
