package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"player-session/internal/model"
	"player-session/internal/session"
)

// RankingService builds leaderboards from durable records overlaid with
// the live values of connected players.
type RankingService struct {
	store LeaderboardStore
	cache *session.Cache
}

// NewRankingService creates a new RankingService instance.
func NewRankingService(store LeaderboardStore, cache *session.Cache) *RankingService {
	return &RankingService{store: store, cache: cache}
}

// Entry is one leaderboard row.
type Entry struct {
	ID       uuid.UUID
	Nickname string
	Balance  model.Amount
	Playtime int64
	Online   bool
}

// TopBalances returns up to limit players by balance.
// A limit of zero or less yields an empty result.
func (s *RankingService) TopBalances(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return []Entry{}, nil
	}
	stored, err := s.store.TopByBalance(ctx, limit+s.cache.Len())
	if err != nil {
		return nil, fmt.Errorf("failed to get top balances: %w", err)
	}
	return s.merge(stored, limit, func(a, b Entry) bool { return a.Balance > b.Balance }), nil
}

// TopPlaytime returns up to limit players by playtime.
func (s *RankingService) TopPlaytime(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return []Entry{}, nil
	}
	stored, err := s.store.TopByPlaytime(ctx, limit+s.cache.Len())
	if err != nil {
		return nil, fmt.Errorf("failed to get top playtime: %w", err)
	}
	return s.merge(stored, limit, func(a, b Entry) bool { return a.Playtime > b.Playtime }), nil
}

// merge replaces stale stored rows with live session values, adds
// connected players the store did not return, and keeps the best limit.
// Stored rows are fetched with limit plus the session count, which is
// enough for every offline player of the true top to be present.
func (s *RankingService) merge(stored []*model.Player, limit int, greater func(a, b Entry) bool) []Entry {
	byID := make(map[uuid.UUID]Entry, len(stored))
	for _, p := range stored {
		byID[p.ID] = Entry{ID: p.ID, Nickname: p.Nickname, Balance: p.Balance, Playtime: p.Playtime}
	}
	for _, id := range s.cache.IDs() {
		snap, ok := s.cache.Snapshot(id)
		if !ok {
			continue
		}
		byID[id] = Entry{
			ID:       id,
			Nickname: snap.Nickname,
			Balance:  snap.Balance,
			Playtime: snap.Playtime,
			Online:   true,
		}
	}

	entries := make([]Entry, 0, len(byID))
	for _, e := range byID {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if greater(entries[i], entries[j]) {
			return true
		}
		if greater(entries[j], entries[i]) {
			return false
		}
		return entries[i].Nickname < entries[j].Nickname
	})
	if limit >= 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
