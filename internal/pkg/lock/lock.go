// Package lock provides per-group locking. Every load-modify-save of a
// group's record (a user action or a rollover job) runs under that
// group's mutex, so actions within one group serialize while different
// groups proceed concurrently.
package lock

import (
	"context"
	"sync"
	"time"
)

// groupMutex wraps a mutex with reference counting for pooling.
type groupMutex struct {
	mu       sync.Mutex
	refCount int
}

// GroupLock provides a mutex per group id.
type GroupLock struct {
	locks sync.Map // map[string]*groupMutex
	pool  sync.Pool
}

// NewGroupLock creates a new GroupLock instance.
func NewGroupLock() *GroupLock {
	return &GroupLock{
		pool: sync.Pool{
			New: func() any {
				return &groupMutex{}
			},
		},
	}
}

// getLock retrieves or creates the mutex for the given group id.
func (gl *GroupLock) getLock(groupID string) *groupMutex {
	if v, ok := gl.locks.Load(groupID); ok {
		return v.(*groupMutex)
	}

	newLock := gl.pool.Get().(*groupMutex)
	newLock.refCount = 0

	actual, loaded := gl.locks.LoadOrStore(groupID, newLock)
	if loaded {
		// Another goroutine created it first, return ours to the pool.
		gl.pool.Put(newLock)
	}
	return actual.(*groupMutex)
}

// Lock acquires the lock for a group.
func (gl *GroupLock) Lock(groupID string) {
	l := gl.getLock(groupID)
	l.mu.Lock()
	l.refCount++
}

// Unlock releases the lock for a group.
func (gl *GroupLock) Unlock(groupID string) {
	if v, ok := gl.locks.Load(groupID); ok {
		l := v.(*groupMutex)
		l.refCount--
		l.mu.Unlock()
	}
}

// TryLock attempts to acquire the lock without blocking.
func (gl *GroupLock) TryLock(groupID string) bool {
	l := gl.getLock(groupID)
	if l.mu.TryLock() {
		l.refCount++
		return true
	}
	return false
}

// LockWithTimeout attempts to acquire the lock within the timeout.
// Returns false if the timeout elapsed first.
func (gl *GroupLock) LockWithTimeout(ctx context.Context, groupID string, timeout time.Duration) bool {
	l := gl.getLock(groupID)

	done := make(chan struct{})
	go func() {
		l.mu.Lock()
		close(done)
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-done:
		l.refCount++
		return true
	case <-timeoutCtx.Done():
		// The waiting goroutine will still acquire the mutex eventually;
		// release it as soon as it does.
		go func() {
			<-done
			l.mu.Unlock()
		}()
		return false
	}
}

// WithLock executes fn while holding the group's lock.
func (gl *GroupLock) WithLock(groupID string, fn func() error) error {
	gl.Lock(groupID)
	defer gl.Unlock(groupID)
	return fn()
}

// WithLockContext executes fn while holding the group's lock, failing
// with ErrLockTimeout when the lock cannot be acquired in time.
func (gl *GroupLock) WithLockContext(ctx context.Context, groupID string, timeout time.Duration, fn func() error) error {
	if !gl.LockWithTimeout(ctx, groupID, timeout) {
		return ErrLockTimeout
	}
	defer gl.Unlock(groupID)

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fn()
	}
}
