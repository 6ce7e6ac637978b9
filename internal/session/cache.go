// Package session holds the state of connected players in memory.
//
// A Cache keeps at most one Session per player. Every operation on a player
// is atomic with respect to other operations on the same player, and
// operations on different players never wait on each other: membership is a
// sync.Map and each Session carries its own mutex.
//
// Reading through two separate calls (Balance followed by SetBalance) is not
// atomic. Balance changes that depend on the current value must go through
// ApplyDelta or Transfer.
package session

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"player-session/internal/model"
	"player-session/internal/pkg/clock"
)

// Cache maps player IDs to their active Session.
// It is created once per process and shared by every caller.
type Cache struct {
	entries sync.Map // map[uuid.UUID]*Session
	clock   clock.Clock
}

// NewCache creates an empty Cache using clk for live playtime.
func NewCache(clk clock.Clock) *Cache {
	if clk == nil {
		clk = clock.New()
	}
	return &Cache{clock: clk}
}

// Now returns the cache's current time.
func (c *Cache) Now() time.Time {
	return c.clock.Now()
}

// lock returns the live session for id with its mutex held.
// Sessions that left the cache while the caller waited are skipped.
func (c *Cache) lock(id uuid.UUID) (*Session, bool) {
	for {
		v, ok := c.entries.Load(id)
		if !ok {
			return nil, false
		}
		s := v.(*Session)
		s.mu.Lock()
		if !s.closed {
			return s, true
		}
		s.mu.Unlock()

		// A closed session is never left in the map, so a second load either
		// misses or finds its replacement.
		if cur, ok := c.entries.Load(id); !ok || cur == v {
			return nil, false
		}
	}
}

// Insert stores s as the session for id, replacing any existing one.
// A replaced session is closed so late writers cannot update it.
// Inserting a session that was already removed returns ErrSessionClosed
// and leaves the cache unchanged.
func (c *Cache) Insert(id uuid.UUID, s *Session) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("failed to insert session of %s: %w", id, ErrSessionClosed)
	}
	s.id = id
	s.mu.Unlock()

	prev, loaded := c.entries.Swap(id, s)
	if loaded && prev != s {
		old := prev.(*Session)
		old.mu.Lock()
		old.closed = true
		old.mu.Unlock()
	}
	return nil
}

// Remove detaches the session for id and returns its final state.
// Removing an absent player is a no-op that reports false.
func (c *Cache) Remove(id uuid.UUID) (model.Snapshot, bool) {
	v, ok := c.entries.LoadAndDelete(id)
	if !ok {
		return model.Snapshot{}, false
	}
	s := v.(*Session)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.snapshotLocked(c.clock.Now()), true
}

// Contains reports whether id has an active session.
func (c *Cache) Contains(id uuid.UUID) bool {
	_, ok := c.entries.Load(id)
	return ok
}

// Len returns the number of active sessions.
func (c *Cache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// IDs returns the IDs of all active sessions in no particular order.
func (c *Cache) IDs() []uuid.UUID {
	var ids []uuid.UUID
	c.entries.Range(func(k, _ any) bool {
		ids = append(ids, k.(uuid.UUID))
		return true
	})
	return ids
}

// Snapshot returns a copy of the session for id without removing it.
func (c *Cache) Snapshot(id uuid.UUID) (model.Snapshot, bool) {
	s, ok := c.lock(id)
	if !ok {
		return model.Snapshot{}, false
	}
	defer s.mu.Unlock()
	return s.snapshotLocked(c.clock.Now()), true
}

// Nickname returns the cached nickname, or model.UnknownNickname.
func (c *Cache) Nickname(id uuid.UUID) string {
	s, ok := c.lock(id)
	if !ok {
		return model.UnknownNickname
	}
	defer s.mu.Unlock()
	return s.nickname
}

// SetNickname replaces the nickname of an active session.
func (c *Cache) SetNickname(id uuid.UUID, nickname string) error {
	s, ok := c.lock(id)
	if !ok {
		return fmt.Errorf("failed to set nickname of %s: %w", id, ErrNoActiveSession)
	}
	defer s.mu.Unlock()
	s.nickname = nickname
	return nil
}

// Balance returns the cached balance, or zero without a session.
func (c *Cache) Balance(id uuid.UUID) model.Amount {
	s, ok := c.lock(id)
	if !ok {
		return 0
	}
	defer s.mu.Unlock()
	return s.balance
}

// SetBalance overwrites the balance of an active session.
func (c *Cache) SetBalance(id uuid.UUID, amount model.Amount) error {
	s, ok := c.lock(id)
	if !ok {
		return fmt.Errorf("failed to set balance of %s: %w", id, ErrNoActiveSession)
	}
	defer s.mu.Unlock()
	s.balance = amount
	return nil
}

// ApplyDelta adds delta to the balance in one atomic step and returns the
// new balance. Unless allowNegative is set, a result below zero is rejected
// with ErrInsufficientBalance and the balance is left unchanged.
func (c *Cache) ApplyDelta(id uuid.UUID, delta model.Amount, allowNegative bool) (model.Amount, error) {
	s, ok := c.lock(id)
	if !ok {
		return 0, fmt.Errorf("failed to update balance of %s: %w", id, ErrNoActiveSession)
	}
	defer s.mu.Unlock()

	next, ok := s.balance.Add(delta)
	if !ok {
		return s.balance, fmt.Errorf("%w: balance overflow", model.ErrInvalidAmount)
	}
	if next < 0 && !allowNegative {
		return s.balance, ErrInsufficientBalance
	}
	s.balance = next
	return next, nil
}

// Playtime returns live playtime for id, or zero without a session.
func (c *Cache) Playtime(id uuid.UUID) int64 {
	s, ok := c.lock(id)
	if !ok {
		return 0
	}
	defer s.mu.Unlock()
	return s.playtimeLocked(c.clock.Now())
}

// Transfer moves amount from one session to another. Both balances change
// or neither does; an overdraft is rejected before any mutation.
func (c *Cache) Transfer(from, to uuid.UUID, amount model.Amount) error {
	if amount <= 0 {
		return fmt.Errorf("%w: must be positive", model.ErrInvalidAmount)
	}
	if from == to {
		return ErrSelfTransfer
	}

	src, dst, ok := c.lockPair(from, to)
	if !ok {
		return fmt.Errorf("failed to transfer from %s to %s: %w", from, to, ErrNoActiveSession)
	}
	defer src.mu.Unlock()
	defer dst.mu.Unlock()

	if src.balance < amount {
		return ErrInsufficientBalance
	}
	credited, ok := dst.balance.Add(amount)
	if !ok {
		return fmt.Errorf("%w: balance overflow", model.ErrInvalidAmount)
	}
	src.balance -= amount
	dst.balance = credited
	return nil
}

// lockPair locks the sessions of a and b in a fixed order so two opposing
// transfers cannot deadlock.
func (c *Cache) lockPair(a, b uuid.UUID) (*Session, *Session, bool) {
	first, second := a, b
	swapped := bytes.Compare(a[:], b[:]) > 0
	if swapped {
		first, second = b, a
	}

	s1, ok := c.lock(first)
	if !ok {
		return nil, nil, false
	}
	s2, ok := c.lock(second)
	if !ok {
		s1.mu.Unlock()
		return nil, nil, false
	}

	if swapped {
		return s2, s1, true
	}
	return s1, s2, true
}
