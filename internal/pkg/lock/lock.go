// Package lock provides per-player locking for lifecycle transitions.
// Connect and disconnect of the same player never overlap; different
// players lock independently.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// playerMutex wraps a mutex with a reference count. refs counts the
// holder plus every waiter; the entry is dropped when it reaches zero.
type playerMutex struct {
	mu   sync.Mutex
	refs int
}

// PlayerLock provides one mutex per player ID. Only players that are
// locked or waited on have an entry.
type PlayerLock struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*playerMutex
}

// NewPlayerLock creates a new PlayerLock instance.
func NewPlayerLock() *PlayerLock {
	return &PlayerLock{
		locks: make(map[uuid.UUID]*playerMutex),
	}
}

// acquire returns the mutex for id and takes a reference on it.
func (pl *PlayerLock) acquire(id uuid.UUID) *playerMutex {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	m, ok := pl.locks[id]
	if !ok {
		m = &playerMutex{}
		pl.locks[id] = m
	}
	m.refs++
	return m
}

// release drops a reference taken by acquire.
func (pl *PlayerLock) release(id uuid.UUID, m *playerMutex) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	m.refs--
	if m.refs == 0 {
		delete(pl.locks, id)
	}
}

// Lock acquires the lock for a player.
func (pl *PlayerLock) Lock(id uuid.UUID) {
	pl.acquire(id).mu.Lock()
}

// Unlock releases the lock for a player.
func (pl *PlayerLock) Unlock(id uuid.UUID) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	m, ok := pl.locks[id]
	if !ok {
		return
	}
	m.mu.Unlock()
	m.refs--
	if m.refs == 0 {
		delete(pl.locks, id)
	}
}

// TryLock attempts to acquire the lock without blocking.
func (pl *PlayerLock) TryLock(id uuid.UUID) bool {
	m := pl.acquire(id)
	if m.mu.TryLock() {
		return true
	}
	pl.release(id, m)
	return false
}

// LockWithTimeout waits for the lock until timeout elapses or ctx is done.
// It reports whether the lock was acquired.
func (pl *PlayerLock) LockWithTimeout(ctx context.Context, id uuid.UUID, timeout time.Duration) bool {
	m := pl.acquire(id)

	done := make(chan struct{})
	go func() {
		m.mu.Lock()
		close(done)
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-done:
		return true
	case <-timeoutCtx.Done():
		// The waiter still gets the mutex eventually; hand it straight back.
		go func() {
			<-done
			m.mu.Unlock()
			pl.release(id, m)
		}()
		return false
	}
}

// WithLockContext runs fn while holding the player's lock. It returns
// ErrLockTimeout when the lock is not acquired within timeout, and the
// context error when ctx ended while waiting.
func (pl *PlayerLock) WithLockContext(ctx context.Context, id uuid.UUID, timeout time.Duration, fn func() error) error {
	if !pl.LockWithTimeout(ctx, id, timeout) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrLockTimeout
	}
	defer pl.Unlock(id)

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fn()
	}
}
