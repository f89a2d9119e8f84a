package inmemorylocker

import (
	"context"
	"sync"
	"time"

	"github.com/ark-network/wager/internal/core/domain"
	"github.com/ark-network/wager/internal/core/ports"
)

type lease struct {
	token     uint64
	expiresAt time.Time
}

// locker guards keys within a single process. Leases expire after their
// ttl so a stuck holder cannot block a key forever.
type locker struct {
	lock   sync.Mutex
	leases map[string]lease
	next   uint64
	now    func() time.Time
}

func NewLocker() ports.Locker {
	return newLocker(time.Now)
}

func newLocker(now func() time.Time) *locker {
	return &locker{leases: make(map[string]lease), now: now}
}

func (l *locker) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	now := l.now()
	if held, ok := l.leases[key]; ok && now.Before(held.expiresAt) {
		return nil, domain.ErrLockHeld
	}

	l.next++
	token := l.next
	l.leases[key] = lease{token, now.Add(ttl)}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.lock.Lock()
			defer l.lock.Unlock()
			if held, ok := l.leases[key]; ok && held.token == token {
				delete(l.leases, key)
			}
		})
	}, nil
}

func (l *locker) Close() error {
	return nil
}
