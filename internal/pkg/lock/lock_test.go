package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// entries returns how many players currently have a mutex.
func entries(pl *PlayerLock) int {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return len(pl.locks)
}

func TestWithLockContext_TimesOutWhileHeld(t *testing.T) {
	pl := NewPlayerLock()
	id := uuid.New()

	pl.Lock(id)
	ran := false
	err := pl.WithLockContext(context.Background(), id, 20*time.Millisecond, func() error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.False(t, ran)

	pl.Unlock(id)

	// The abandoned waiter releases the mutex and its reference again.
	require.Eventually(t, func() bool { return entries(pl) == 0 }, time.Second, 5*time.Millisecond)

	err = pl.WithLockContext(context.Background(), id, time.Second, func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestWithLockContext_CancelledContext(t *testing.T) {
	pl := NewPlayerLock()
	id := uuid.New()

	pl.Lock(id)
	defer pl.Unlock(id)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pl.WithLockContext(ctx, id, time.Second, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithLockContext_PropagatesError(t *testing.T) {
	pl := NewPlayerLock()
	id := uuid.New()
	boom := errors.New("boom")

	err := pl.WithLockContext(context.Background(), id, time.Second, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.True(t, pl.TryLock(id))
	pl.Unlock(id)
}

func TestTryLock(t *testing.T) {
	pl := NewPlayerLock()
	id := uuid.New()

	require.True(t, pl.TryLock(id))
	assert.False(t, pl.TryLock(id))
	assert.True(t, pl.TryLock(uuid.New()), "other players are independent")
	assert.Equal(t, 2, entries(pl))

	pl.Unlock(id)
	assert.True(t, pl.TryLock(id))
	pl.Unlock(id)
}

func TestPlayerLock_DropsReleasedEntries(t *testing.T) {
	pl := NewPlayerLock()
	ctx := context.Background()

	for i := 0; i < 5000; i++ {
		err := pl.WithLockContext(ctx, uuid.New(), time.Second, func() error { return nil })
		require.NoError(t, err)
	}
	assert.Equal(t, 0, entries(pl))

	// A failed TryLock leaves only the holder's entry behind.
	id := uuid.New()
	require.True(t, pl.TryLock(id))
	assert.False(t, pl.TryLock(id))
	assert.Equal(t, 1, entries(pl))
	pl.Unlock(id)
	assert.Equal(t, 0, entries(pl))

	// Unlock of a player nobody holds is a no-op.
	pl.Unlock(uuid.New())
	assert.Equal(t, 0, entries(pl))
}

func TestPlayerLock_DropsEntryAfterContention(t *testing.T) {
	pl := NewPlayerLock()
	id := uuid.New()
	ctx := context.Background()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pl.WithLockContext(ctx, id, 5*time.Second, func() error {
				counter++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 200, counter)
	assert.Equal(t, 0, entries(pl))
}
