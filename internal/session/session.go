package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"player-session/internal/model"
	"player-session/internal/playtime"
)

// Session is the in-memory state of one connected player.
// The identity, baseline playtime and join time never change after New.
type Session struct {
	id       uuid.UUID
	baseline int64
	joinedAt time.Time

	mu       sync.Mutex
	nickname string
	balance  model.Amount
	peak     int64 // highest elapsed seconds observed
	closed   bool  // set once the session has left the cache
}

// New creates a session for a player whose durable playtime is baseline.
func New(id uuid.UUID, nickname string, baseline int64, balance model.Amount, joinedAt time.Time) *Session {
	if baseline < 0 {
		baseline = 0
	}
	return &Session{
		id:       id,
		nickname: nickname,
		baseline: baseline,
		balance:  balance,
		joinedAt: joinedAt,
	}
}

// ID returns the player identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Baseline returns the playtime captured when the session started.
func (s *Session) Baseline() int64 { return s.baseline }

// JoinedAt returns the session start time.
func (s *Session) JoinedAt() time.Time { return s.joinedAt }

// playtimeLocked returns live playtime, holding it at the highest value
// already reported so a regressing clock cannot make it go down.
func (s *Session) playtimeLocked(now time.Time) int64 {
	elapsed := playtime.Elapsed(s.joinedAt, now)
	if elapsed < s.peak {
		elapsed = s.peak
	}
	s.peak = elapsed
	return s.baseline + elapsed
}

func (s *Session) snapshotLocked(now time.Time) model.Snapshot {
	return model.Snapshot{
		ID:               s.id,
		Nickname:         s.nickname,
		BaselinePlaytime: s.baseline,
		JoinedAt:         s.joinedAt,
		Balance:          s.balance,
		Playtime:         s.playtimeLocked(now),
		TakenAt:          now,
	}
}
