package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"player-session/internal/model"
	"player-session/internal/pkg/clock"
	"player-session/internal/repository"
	"player-session/internal/session"
)

func TestRankingService_OverlaysLiveSessions(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewManual(epoch)
	cache := session.NewCache(clk)
	db := repository.NewMemoryPlayerRepository()
	ranking := NewRankingService(db, cache)

	seed := func(name string, balance model.Amount, playtime int64) uuid.UUID {
		id := uuid.New()
		_, err := db.Create(ctx, id, name, 0)
		require.NoError(t, err)
		require.NoError(t, db.Update(ctx, id, name, playtime, balance))
		return id
	}
	seed("alice", 3000, 100)
	seed("bob", 2000, 500)
	carol := seed("carol", 1000, 50)

	// Carol is online and richer than the stored row says.
	cache.Insert(carol, session.New(carol, "carol", 50, 9000, cache.Now()))
	// Dave is online and not in storage yet.
	dave := uuid.New()
	cache.Insert(dave, session.New(dave, "dave", 0, 10, cache.Now()))
	clk.Advance(1000 * time.Second)

	top, err := ranking.TopBalances(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "carol", top[0].Nickname)
	assert.True(t, top[0].Online)
	assert.Equal(t, model.Amount(9000), top[0].Balance)
	assert.Equal(t, "alice", top[1].Nickname)
	assert.False(t, top[1].Online)

	top, err = ranking.TopPlaytime(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 4)
	assert.Equal(t, "carol", top[0].Nickname)
	assert.Equal(t, int64(1050), top[0].Playtime)
	assert.Equal(t, "dave", top[1].Nickname)
	assert.Equal(t, "bob", top[2].Nickname)
	assert.Equal(t, "alice", top[3].Nickname)
}

// countingLeaderboard records how often storage was asked for a ranking.
type countingLeaderboard struct {
	calls int
}

func (c *countingLeaderboard) TopByBalance(context.Context, int) ([]*model.Player, error) {
	c.calls++
	return nil, nil
}

func (c *countingLeaderboard) TopByPlaytime(context.Context, int) ([]*model.Player, error) {
	c.calls++
	return nil, nil
}

func TestRankingService_NonPositiveLimitIsEmpty(t *testing.T) {
	ctx := context.Background()
	cache := session.NewCache(clock.NewManual(epoch))
	id := uuid.New()
	require.NoError(t, cache.Insert(id, session.New(id, "steve", 10, 500, cache.Now())))

	store := &countingLeaderboard{}
	ranking := NewRankingService(store, cache)

	for _, limit := range []int{0, -1, -100} {
		top, err := ranking.TopBalances(ctx, limit)
		require.NoError(t, err)
		assert.Empty(t, top)

		top, err = ranking.TopPlaytime(ctx, limit)
		require.NoError(t, err)
		assert.Empty(t, top)
	}
	assert.Equal(t, 0, store.calls)
}
