package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"player-session/internal/metrics"
	"player-session/internal/model"
	"player-session/internal/pkg/lock"
	"player-session/internal/repository"
	"player-session/internal/session"
)

// SessionOptions configures a SessionService.
type SessionOptions struct {
	StartingBalance model.Amount
	LockTimeout     time.Duration
	WriteTimeout    time.Duration
}

// SessionService moves players between durable storage and the cache.
// Connect and Disconnect of the same player are serialized; different
// players proceed independently.
type SessionService struct {
	cache   *session.Cache
	store   PlayerStore
	locks   *lock.PlayerLock
	metrics *metrics.Recorder

	startingBalance model.Amount
	lockTimeout     time.Duration
	writeTimeout    time.Duration
}

// NewSessionService creates a new SessionService instance.
func NewSessionService(
	cache *session.Cache,
	store PlayerStore,
	rec *metrics.Recorder,
	opts SessionOptions,
) *SessionService {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 5 * time.Second
	}
	return &SessionService{
		cache:           cache,
		store:           store,
		locks:           lock.NewPlayerLock(),
		metrics:         rec,
		startingBalance: opts.StartingBalance,
		lockTimeout:     opts.LockTimeout,
		writeTimeout:    opts.WriteTimeout,
	}
}

// Connect loads the durable record of id, creating it on first sight, and
// starts a session. It reports whether the record was created.
// On any storage error no session is created.
func (s *SessionService) Connect(ctx context.Context, id uuid.UUID, displayName string) (bool, error) {
	var (
		created  bool
		nickname string
	)
	err := s.locks.WithLockContext(ctx, id, s.lockTimeout, func() error {
		// A session left over from a missed disconnect is written first so
		// its state is part of the baseline we are about to load.
		if s.cache.Contains(id) {
			log.Warn().Str("player_id", id.String()).Msg("Connect with an active session, flushing it first")
			if err := s.detach(ctx, id); err != nil && !errors.Is(err, session.ErrNoActiveSession) {
				return err
			}
		}

		player, isNew, err := s.loadOrCreate(ctx, id, displayName)
		if err != nil {
			return err
		}

		nickname = displayName
		if nickname == "" {
			nickname = player.Nickname
		}
		if err := s.cache.Insert(id, session.New(id, nickname, player.Playtime, player.Balance, s.cache.Now())); err != nil {
			return err
		}
		created = isNew
		return nil
	})
	if err != nil {
		s.metrics.Connect(metrics.OutcomeFailed)
		log.Error().Err(err).Str("player_id", id.String()).Msg("Failed to connect player")
		return false, fmt.Errorf("failed to connect %s: %w", id, err)
	}

	if created {
		s.metrics.Connect(metrics.OutcomeNew)
	} else {
		s.metrics.Connect(metrics.OutcomeReturning)
	}
	log.Info().
		Str("player_id", id.String()).
		Str("nickname", nickname).
		Bool("new", created).
		Msg("Player connected")
	return created, nil
}

// loadOrCreate returns the durable record of id, creating it when absent.
func (s *SessionService) loadOrCreate(ctx context.Context, id uuid.UUID, nickname string) (*model.Player, bool, error) {
	player, found, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load player: %w: %w", ErrStorageUnavailable, err)
	}
	if found {
		return player, false, nil
	}

	player, err = s.store.Create(ctx, id, nickname, s.startingBalance)
	if err == nil {
		return player, true, nil
	}
	if !errors.Is(err, repository.ErrPlayerExists) {
		return nil, false, fmt.Errorf("failed to create player: %w: %w", ErrStorageUnavailable, err)
	}

	// Another writer created the row between Find and Create.
	player, found, err = s.store.Find(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load player: %w: %w", ErrStorageUnavailable, err)
	}
	if !found {
		return nil, false, fmt.Errorf("failed to load player after create conflict: %w", ErrStorageUnavailable)
	}
	return player, false, nil
}

// Disconnect ends the session of id and writes its final nickname,
// playtime and balance in one update. The session is removed from the
// cache before the write, so no update can land after the final values
// are taken. A failed write returns a *WriteBackError carrying those
// values; the session stays removed.
//
// When the lifecycle lock stays busy past the lock timeout the session is
// still removed, without a write, and the returned *WriteBackError wraps
// lock.ErrLockTimeout.
func (s *SessionService) Disconnect(ctx context.Context, id uuid.UUID) error {
	err := s.locks.WithLockContext(ctx, id, s.lockTimeout, func() error {
		return s.detach(ctx, id)
	})
	if errors.Is(err, lock.ErrLockTimeout) {
		if snap, ok := s.cache.Remove(id); ok {
			s.metrics.Disconnect()
			log.Warn().
				Str("player_id", id.String()).
				Int64("playtime", snap.Playtime).
				Str("balance", snap.Balance.String()).
				Msg("Lifecycle lock busy, session removed without write-back")
			err = &WriteBackError{Snapshot: snap, Err: err}
		}
	}
	if err != nil {
		return fmt.Errorf("failed to disconnect %s: %w", id, err)
	}
	return nil
}

// detach removes the session of id and writes it back.
// The caller holds the player's lifecycle lock.
func (s *SessionService) detach(ctx context.Context, id uuid.UUID) error {
	snap, ok := s.cache.Remove(id)
	if !ok {
		return session.ErrNoActiveSession
	}
	s.metrics.Disconnect()

	if err := s.Flush(ctx, snap); err != nil {
		log.Error().
			Err(err).
			Str("player_id", id.String()).
			Int64("playtime", snap.Playtime).
			Str("balance", snap.Balance.String()).
			Msg("Failed to write back session")
		return err
	}

	log.Info().
		Str("player_id", id.String()).
		Int64("playtime", snap.Playtime).
		Msg("Player disconnected")
	return nil
}

// Flush writes snap to durable storage. It is the retry path for a
// WriteBackError.
func (s *SessionService) Flush(ctx context.Context, snap model.Snapshot) error {
	if s.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.writeTimeout)
		defer cancel()
	}

	started := time.Now()
	err := s.store.Update(ctx, snap.ID, snap.Nickname, snap.Playtime, snap.Balance)
	s.metrics.WriteBack(started, err)
	if err != nil {
		return &WriteBackError{Snapshot: snap, Err: err}
	}
	return nil
}

// Checkpoint writes the live values of every active session without ending
// it. It returns how many sessions were written. Players whose lifecycle
// lock is busy are skipped; their connect or disconnect writes them anyway.
func (s *SessionService) Checkpoint(ctx context.Context) (int, error) {
	var (
		written int
		skipped int
		errs    []error
	)
	for _, id := range s.cache.IDs() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if !s.locks.TryLock(id) {
			skipped++
			continue
		}
		if snap, ok := s.cache.Snapshot(id); ok {
			if err := s.Flush(ctx, snap); err != nil {
				errs = append(errs, fmt.Errorf("failed to checkpoint %s: %w", id, err))
			} else {
				written++
			}
		}
		s.locks.Unlock(id)
	}

	s.metrics.Checkpointed(written)
	if len(errs) > 0 {
		err := errors.Join(errs...)
		log.Warn().Err(err).Int("written", written).Int("skipped", skipped).Int("failed", len(errs)).Msg("Checkpoint incomplete")
		return written, err
	}
	log.Debug().Int("written", written).Int("skipped", skipped).Msg("Checkpoint complete")
	return written, nil
}

// RunCheckpoints calls Checkpoint every interval until ctx is done.
func (s *SessionService) RunCheckpoints(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.Checkpoint(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Sweep disconnects every cached player that online reports as gone.
// It returns how many sessions were ended.
func (s *SessionService) Sweep(ctx context.Context, online func(uuid.UUID) bool) int {
	ended := 0
	for _, id := range s.cache.IDs() {
		if online(id) {
			continue
		}
		err := s.Disconnect(ctx, id)
		switch {
		case err == nil:
			ended++
		case errors.Is(err, session.ErrNoActiveSession):
		default:
			// The session is gone either way; a write-back failure is logged in detach.
			var wb *WriteBackError
			if errors.As(err, &wb) {
				ended++
			}
			log.Warn().Err(err).Str("player_id", id.String()).Msg("Sweep could not end session cleanly")
		}
	}
	if ended > 0 {
		log.Info().Int("ended", ended).Msg("Swept stale sessions")
	}
	return ended
}

// Shutdown disconnects every active session and returns the joined
// write-back errors.
func (s *SessionService) Shutdown(ctx context.Context) error {
	ids := s.cache.IDs()
	log.Info().Int("sessions", len(ids)).Msg("Flushing sessions before shutdown")

	var errs []error
	for _, id := range ids {
		if err := s.Disconnect(ctx, id); err != nil && !errors.Is(err, session.ErrNoActiveSession) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Active reports whether id has a session.
func (s *SessionService) Active(id uuid.UUID) bool {
	return s.cache.Contains(id)
}
