package lock

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"pgregory.net/rapid"
)

func drawID(t *rapid.T, label string) uuid.UUID {
	var id uuid.UUID
	copy(id[:], rapid.SliceOfN(rapid.Byte(), 16, 16).Draw(t, label))
	return id
}

// For any set of concurrent read-modify-write steps guarded by the lock of
// one player, the result matches sequential execution.
func TestPlayerLockSerializesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(0, 100000).Draw(t, "initial")
		steps := rapid.SliceOfN(rapid.Int64Range(-500, 500), 2, 20).Draw(t, "steps")
		id := drawID(t, "id")

		expected := initial
		for _, s := range steps {
			expected += s
		}

		pl := NewPlayerLock()
		value := initial

		var wg sync.WaitGroup
		wg.Add(len(steps))
		for _, s := range steps {
			go func(delta int64) {
				defer wg.Done()
				pl.Lock(id)
				defer pl.Unlock(id)
				value += delta
			}(s)
		}
		wg.Wait()

		if value != expected {
			t.Fatalf("expected %d, got %d", expected, value)
		}
	})
}

func TestPlayerLockIndependentPlayersProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numPlayers := rapid.IntRange(2, 10).Draw(t, "numPlayers")
		opsPerPlayer := rapid.IntRange(5, 20).Draw(t, "opsPerPlayer")

		pl := NewPlayerLock()
		ids := make([]uuid.UUID, numPlayers)
		counts := make([]int, numPlayers)
		for i := range ids {
			ids[i] = uuid.New()
		}

		var wg sync.WaitGroup
		wg.Add(numPlayers * opsPerPlayer)
		for i := range ids {
			for j := 0; j < opsPerPlayer; j++ {
				go func(idx int) {
					defer wg.Done()
					pl.Lock(ids[idx])
					defer pl.Unlock(ids[idx])
					counts[idx]++
				}(i)
			}
		}
		wg.Wait()

		for i, c := range counts {
			if c != opsPerPlayer {
				t.Fatalf("player %d: expected %d, got %d", i, opsPerPlayer, c)
			}
		}
	})
}

func TestTryLockExclusiveProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := drawID(t, "id")
		attempts := rapid.IntRange(5, 20).Draw(t, "attempts")

		pl := NewPlayerLock()
		var inside atomic.Int32
		var wg sync.WaitGroup
		start := make(chan struct{})
		overlap := make(chan struct{}, attempts)

		wg.Add(attempts)
		for i := 0; i < attempts; i++ {
			go func() {
				defer wg.Done()
				<-start
				if pl.TryLock(id) {
					if inside.Add(1) > 1 {
						overlap <- struct{}{}
					}
					inside.Add(-1)
					pl.Unlock(id)
				}
			}()
		}
		close(start)
		wg.Wait()

		if len(overlap) > 0 {
			t.Fatal("two holders of the same player lock")
		}
		if !pl.TryLock(id) {
			t.Fatal("lock should be free after all holders released")
		}
		pl.Unlock(id)
		if n := entries(pl); n != 0 {
			t.Fatalf("expected no entries after release, got %d", n)
		}
	})
}

func TestLockUnlockSymmetryProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := drawID(t, "id")
		cycles := rapid.IntRange(1, 50).Draw(t, "cycles")

		pl := NewPlayerLock()
		for i := 0; i < cycles; i++ {
			pl.Lock(id)
			pl.Unlock(id)
		}

		if n := entries(pl); n != 0 {
			t.Fatalf("expected no entries after symmetric cycles, got %d", n)
		}
		if !pl.TryLock(id) {
			t.Fatal("lock should be available after symmetric cycles")
		}
		pl.Unlock(id)
	})
}
