package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"player-session/internal/model"
)

// MemoryPlayerRepository keeps player records in process memory.
// It backs the "memory" driver and tests; nothing survives a restart.
type MemoryPlayerRepository struct {
	mu      sync.RWMutex
	players map[uuid.UUID]model.Player
}

// NewMemoryPlayerRepository creates an empty in-memory repository.
func NewMemoryPlayerRepository() *MemoryPlayerRepository {
	return &MemoryPlayerRepository{players: make(map[uuid.UUID]model.Player)}
}

// Find looks up a player by ID.
func (r *MemoryPlayerRepository) Find(ctx context.Context, id uuid.UUID) (*model.Player, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.players[id]
	if !ok {
		return nil, false, nil
	}
	return &p, true, nil
}

// Create inserts a new player with zero playtime and the given balance.
func (r *MemoryPlayerRepository) Create(ctx context.Context, id uuid.UUID, nickname string, balance model.Amount) (*model.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[id]; ok {
		return nil, ErrPlayerExists
	}
	now := time.Now().UTC()
	p := model.Player{
		ID:        id,
		Nickname:  nickname,
		Balance:   balance,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.players[id] = p
	return &p, nil
}

// Update writes nickname, playtime and balance of an existing player.
func (r *MemoryPlayerRepository) Update(ctx context.Context, id uuid.UUID, nickname string, playtime int64, balance model.Amount) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok {
		return ErrPlayerNotFound
	}
	p.Nickname = nickname
	p.Playtime = playtime
	p.Balance = balance
	p.UpdatedAt = time.Now().UTC()
	r.players[id] = p
	return nil
}

// TopByBalance returns up to limit players ordered by balance.
func (r *MemoryPlayerRepository) TopByBalance(ctx context.Context, limit int) ([]*model.Player, error) {
	return r.top(ctx, limit, func(a, b *model.Player) bool { return a.Balance > b.Balance })
}

// TopByPlaytime returns up to limit players ordered by playtime.
func (r *MemoryPlayerRepository) TopByPlaytime(ctx context.Context, limit int) ([]*model.Player, error) {
	return r.top(ctx, limit, func(a, b *model.Player) bool { return a.Playtime > b.Playtime })
}

func (r *MemoryPlayerRepository) top(ctx context.Context, limit int, greater func(a, b *model.Player) bool) ([]*model.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	players := make([]*model.Player, 0, len(r.players))
	for _, p := range r.players {
		p := p
		players = append(players, &p)
	}
	r.mu.RUnlock()

	sort.Slice(players, func(i, j int) bool {
		if greater(players[i], players[j]) {
			return true
		}
		if greater(players[j], players[i]) {
			return false
		}
		return players[i].Nickname < players[j].Nickname
	})
	if limit >= 0 && len(players) > limit {
		players = players[:limit]
	}
	return players, nil
}

// Len returns the number of stored players.
func (r *MemoryPlayerRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}
