// Package lock serialises ledger mutations per user within one process.
// Across processes the store's conditional write decides which claim wins.
package lock

import (
	"context"
	"sync"
	"time"

	"rewards-hub/internal/model"
)

// UserLock hands out one mutex per user ID.
type UserLock struct {
	locks sync.Map // map[model.UserID]*sync.Mutex
	pool  sync.Pool
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{
		pool: sync.Pool{
			New: func() any {
				return &sync.Mutex{}
			},
		},
	}
}

func (ul *UserLock) getLock(userID model.UserID) *sync.Mutex {
	if v, ok := ul.locks.Load(userID); ok {
		return v.(*sync.Mutex)
	}

	fresh := ul.pool.Get().(*sync.Mutex)
	actual, loaded := ul.locks.LoadOrStore(userID, fresh)
	if loaded {
		ul.pool.Put(fresh)
	}
	return actual.(*sync.Mutex)
}

// acquire waits up to timeout (or until ctx is done) for the user's mutex.
// It returns nil once the mutex is held.
func (ul *UserLock) acquire(ctx context.Context, userID model.UserID, timeout time.Duration) *sync.Mutex {
	m := ul.getLock(userID)
	if m.TryLock() {
		return m
	}

	done := make(chan struct{})
	go func() {
		m.Lock()
		close(done)
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-done:
		return m
	case <-timeoutCtx.Done():
		// The waiter still gets the mutex eventually; hand it straight back.
		go func() {
			<-done
			m.Unlock()
		}()
		return nil
	}
}

// WithLockContext runs fn while holding the user's lock. It gives up with
// ErrLockTimeout if the lock is not acquired within timeout, or with the
// context's error if ctx ends first.
func (ul *UserLock) WithLockContext(ctx context.Context, userID model.UserID, timeout time.Duration, fn func() error) error {
	m := ul.acquire(ctx, userID, timeout)
	if m == nil {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrLockTimeout
	}
	defer m.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fn()
	}
}
