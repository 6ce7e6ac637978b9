package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"pgregory.net/rapid"

	"player-session/internal/model"
	"player-session/internal/pkg/clock"
	"player-session/internal/session"
)

// For any payment, either both balances move by exactly the amount or
// neither moves, and the rejection reason matches the inputs.
func TestPayOutcomeProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payerBalance := model.Amount(rapid.Int64Range(0, 1_000_000).Draw(t, "payerBalance"))
		payeeBalance := model.Amount(rapid.Int64Range(0, 1_000_000).Draw(t, "payeeBalance"))
		amount := model.Amount(rapid.Int64Range(-1000, 2_000_000).Draw(t, "amount"))

		cache := session.NewCache(clock.NewManual(epoch))
		eco := NewEconomyService(cache, nil, 0, "$")
		a := connectPlayer(cache, "a", payerBalance)
		b := connectPlayer(cache, "b", payeeBalance)

		err := eco.Pay(context.Background(), a, b, amount)

		switch {
		case amount <= 0:
			if !errors.Is(err, model.ErrInvalidAmount) {
				t.Fatalf("expected ErrInvalidAmount, got %v", err)
			}
		case amount > payerBalance:
			if !errors.Is(err, session.ErrInsufficientBalance) {
				t.Fatalf("expected ErrInsufficientBalance, got %v", err)
			}
		default:
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if eco.Balance(a) != payerBalance-amount || eco.Balance(b) != payeeBalance+amount {
				t.Fatalf("balances %d/%d after paying %d from %d/%d",
					eco.Balance(a), eco.Balance(b), amount, payerBalance, payeeBalance)
			}
			return
		}

		if eco.Balance(a) != payerBalance || eco.Balance(b) != payeeBalance {
			t.Fatalf("rejected payment changed balances: %d/%d", eco.Balance(a), eco.Balance(b))
		}
	})
}

// For any set of concurrent payments among connected players, the total
// is conserved and no balance goes negative.
func TestConcurrentPaymentsConserveTotalProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 6).Draw(t, "players")
		cache := session.NewCache(clock.NewManual(epoch))
		eco := NewEconomyService(cache, nil, 0, "$")

		ids := make([]uuid.UUID, n)
		var total model.Amount
		for i := range ids {
			balance := model.Amount(rapid.Int64Range(0, 10_000).Draw(t, "balance"))
			ids[i] = connectPlayer(cache, "p", balance)
			total += balance
		}

		type payment struct {
			from, to int
			amount   model.Amount
		}
		payments := rapid.SliceOfN(rapid.Custom(func(t *rapid.T) payment {
			return payment{
				from:   rapid.IntRange(0, n-1).Draw(t, "from"),
				to:     rapid.IntRange(0, n-1).Draw(t, "to"),
				amount: model.Amount(rapid.Int64Range(1, 5_000).Draw(t, "amount")),
			}
		}), 1, 50).Draw(t, "payments")

		var wg sync.WaitGroup
		wg.Add(len(payments))
		for _, p := range payments {
			go func(p payment) {
				defer wg.Done()
				_ = eco.Pay(context.Background(), ids[p.from], ids[p.to], p.amount)
			}(p)
		}
		wg.Wait()

		var after model.Amount
		for _, id := range ids {
			b := eco.Balance(id)
			if b < 0 {
				t.Fatalf("negative balance %d", b)
			}
			after += b
		}
		if after != total {
			t.Fatalf("total changed from %d to %d", total, after)
		}
	})
}
