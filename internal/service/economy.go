package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"player-session/internal/metrics"
	"player-session/internal/model"
	"player-session/internal/playtime"
	"player-session/internal/session"
)

// EconomyService applies balance operations to connected players.
// Every mutation is a single atomic cache operation.
type EconomyService struct {
	cache           *session.Cache
	metrics         *metrics.Recorder
	startingBalance model.Amount
	symbol          string
}

// NewEconomyService creates a new EconomyService instance.
func NewEconomyService(
	cache *session.Cache,
	rec *metrics.Recorder,
	startingBalance model.Amount,
	symbol string,
) *EconomyService {
	return &EconomyService{
		cache:           cache,
		metrics:         rec,
		startingBalance: startingBalance,
		symbol:          symbol,
	}
}

// Pay moves amount from one player to another. Both must be connected,
// amount must be positive, and the payer must be able to cover it.
// A rejected payment changes neither balance.
func (s *EconomyService) Pay(ctx context.Context, from, to uuid.UUID, amount model.Amount) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.cache.Transfer(from, to, amount); err != nil {
		s.reject(err)
		return err
	}

	log.Info().
		Str("from", from.String()).
		Str("to", to.String()).
		Str("amount", amount.String()).
		Msg("Payment completed")
	return nil
}

// Add credits amount to a connected player and returns the new balance.
func (s *EconomyService) Add(ctx context.Context, id uuid.UUID, amount model.Amount) (model.Amount, error) {
	if amount < 0 {
		return 0, s.negative()
	}
	return s.apply(ctx, id, amount, "add")
}

// Remove debits amount from a connected player and returns the new balance.
// The balance may go negative.
func (s *EconomyService) Remove(ctx context.Context, id uuid.UUID, amount model.Amount) (model.Amount, error) {
	if amount < 0 {
		return 0, s.negative()
	}
	return s.apply(ctx, id, -amount, "remove")
}

func (s *EconomyService) negative() error {
	err := fmt.Errorf("%w: must not be negative", model.ErrInvalidAmount)
	s.reject(err)
	return err
}

func (s *EconomyService) apply(ctx context.Context, id uuid.UUID, delta model.Amount, op string) (model.Amount, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	balance, err := s.cache.ApplyDelta(id, delta, true)
	if err != nil {
		s.reject(err)
		return 0, err
	}

	log.Info().
		Str("player_id", id.String()).
		Str("op", op).
		Str("balance", balance.String()).
		Msg("Balance adjusted")
	return balance, nil
}

// Set overwrites the balance of a connected player.
func (s *EconomyService) Set(ctx context.Context, id uuid.UUID, amount model.Amount) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.cache.SetBalance(id, amount); err != nil {
		s.reject(err)
		return err
	}
	log.Info().Str("player_id", id.String()).Str("balance", amount.String()).Msg("Balance set")
	return nil
}

// Reset sets the balance of a connected player to the starting balance.
func (s *EconomyService) Reset(ctx context.Context, id uuid.UUID) error {
	return s.Set(ctx, id, s.startingBalance)
}

// Balance returns the live balance, or zero for a player without a session.
func (s *EconomyService) Balance(id uuid.UUID) model.Amount {
	return s.cache.Balance(id)
}

// BalanceDisplay renders the live balance with the currency symbol.
func (s *EconomyService) BalanceDisplay(id uuid.UUID) string {
	return s.cache.Balance(id).Format(s.symbol)
}

// Playtime returns live playtime in seconds.
func (s *EconomyService) Playtime(id uuid.UUID) int64 {
	return s.cache.Playtime(id)
}

// PlaytimeDisplay renders live playtime as days, hours, minutes and seconds.
func (s *EconomyService) PlaytimeDisplay(id uuid.UUID) string {
	return playtime.Format(s.cache.Playtime(id))
}

func (s *EconomyService) reject(err error) {
	switch {
	case errors.Is(err, session.ErrInsufficientBalance):
		s.metrics.EconomyRejected("insufficient_balance")
	case errors.Is(err, session.ErrNoActiveSession):
		s.metrics.EconomyRejected("no_active_session")
	case errors.Is(err, session.ErrSelfTransfer):
		s.metrics.EconomyRejected("self_transfer")
	case errors.Is(err, model.ErrInvalidAmount):
		s.metrics.EconomyRejected("invalid_amount")
	}
}
