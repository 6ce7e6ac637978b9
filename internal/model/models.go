// Package model defines the data models for the player session core.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Player is the durable record of a player, one row per ever-seen player.
// It is authoritative only while no session is active for the player.
type Player struct {
	ID        uuid.UUID `db:"uuid"`
	Nickname  string    `db:"nickname"`
	Balance   Amount    `db:"balance"`
	Playtime  int64     `db:"playtime"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Snapshot is an immutable copy of an active session.
// Playtime holds the live playtime at the moment the snapshot was taken.
type Snapshot struct {
	ID               uuid.UUID
	Nickname         string
	BaselinePlaytime int64
	JoinedAt         time.Time
	Balance          Amount
	Playtime         int64
	TakenAt          time.Time
}

// UnknownNickname is reported for players without an active session.
const UnknownNickname = "Unknown"
