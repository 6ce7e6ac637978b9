package service

import (
	"context"

	"github.com/google/uuid"

	"player-session/internal/model"
)

// PlayerStore is the durable storage contract of the session layer.
// Find reports a missing player as found=false with a nil error.
// Create returns repository.ErrPlayerExists when the ID is taken.
type PlayerStore interface {
	Find(ctx context.Context, id uuid.UUID) (*model.Player, bool, error)
	Create(ctx context.Context, id uuid.UUID, nickname string, balance model.Amount) (*model.Player, error)
	Update(ctx context.Context, id uuid.UUID, nickname string, playtime int64, balance model.Amount) error
}

// LeaderboardStore lists stored players by rank.
type LeaderboardStore interface {
	TopByBalance(ctx context.Context, limit int) ([]*model.Player, error)
	TopByPlaytime(ctx context.Context, limit int) ([]*model.Player, error)
}
