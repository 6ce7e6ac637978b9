// Package app wires the session layer from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"player-session/internal/config"
	"player-session/internal/metrics"
	"player-session/internal/pkg/clock"
	"player-session/internal/pkg/db"
	"player-session/internal/repository"
	"player-session/internal/service"
	"player-session/internal/session"
)

// Store is a durable player store that can also rank players.
type Store interface {
	service.PlayerStore
	service.LeaderboardStore
}

// App holds the process-wide session layer. The host game server calls
// Sessions on join and quit, and Economy from its commands.
type App struct {
	Config   *config.Config
	Cache    *session.Cache
	Store    Store
	Metrics  *metrics.Recorder
	Sessions *service.SessionService
	Economy  *service.EconomyService
	Ranking  *service.RankingService

	closers []func()
	health  func(context.Context) error
}

// Options overrides parts of the wiring, mainly for tests.
type Options struct {
	Clock clock.Clock
	Store Store
}

// New opens storage for cfg.Database.Driver, applies migrations and
// builds the services around one shared cache.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	startingBalance, err := cfg.Economy.ParsedStartingBalance()
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg}

	a.Store = opts.Store
	if a.Store == nil {
		if a.Store, err = a.openStore(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Cache = session.NewCache(opts.Clock)
	a.Metrics = metrics.New(a.Cache.Len)
	a.Sessions = service.NewSessionService(a.Cache, a.Store, a.Metrics, service.SessionOptions{
		StartingBalance: startingBalance,
		LockTimeout:     cfg.Session.LockTimeout,
		WriteTimeout:    cfg.Session.WriteTimeout,
	})
	a.Economy = service.NewEconomyService(a.Cache, a.Metrics, startingBalance, cfg.Economy.Symbol)
	a.Ranking = service.NewRankingService(a.Store, a.Cache)

	log.Info().
		Str("driver", cfg.Database.Driver).
		Str("starting_balance", startingBalance.String()).
		Msg("Session layer ready")
	return a, nil
}

func (a *App) openStore(ctx context.Context) (Store, error) {
	switch a.Config.Database.Driver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, &a.Config.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		a.health = pool.HealthCheck
		if err := repository.Migrate(ctx, pool.Pool); err != nil {
			return nil, err
		}
		return repository.NewPlayerRepository(pool.Pool), nil

	case config.DriverMySQL:
		handle, err := db.OpenMySQL(ctx, &a.Config.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = handle.Close() })
		a.health = handle.PingContext
		if err := repository.MigrateMySQL(ctx, handle); err != nil {
			return nil, err
		}
		return repository.NewMySQLPlayerRepository(handle), nil

	case config.DriverMemory:
		log.Warn().Msg("Using in-memory storage, player data will not survive a restart")
		return repository.NewMemoryPlayerRepository(), nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", a.Config.Database.Driver)
	}
}

// Run serves metrics and periodic checkpoints until ctx is done, then
// flushes every session.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	if a.Config.Metrics.Enabled {
		go func() {
			if err := a.Metrics.Serve(ctx, a.Config.Metrics.Addr, a.HealthCheck); err != nil {
				errCh <- fmt.Errorf("metrics endpoint: %w", err)
			}
		}()
	}

	go a.Sessions.RunCheckpoints(ctx, a.Config.Session.CheckpointInterval)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	// ctx is already done; flush with a fresh one.
	flushTimeout := a.Config.Session.WriteTimeout * 2
	if flushTimeout <= 0 {
		flushTimeout = 30 * time.Second
	}
	flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := a.Sessions.Shutdown(flushCtx); err != nil {
		log.Error().Err(err).Msg("Some sessions were not written back")
		runErr = errors.Join(runErr, err)
	}
	return runErr
}

// HealthCheck pings the database behind the store. Stores without a
// connection, such as the in-memory one, are always healthy.
func (a *App) HealthCheck(ctx context.Context) error {
	if a.health == nil {
		return nil
	}
	if err := a.health(ctx); err != nil {
		return fmt.Errorf("failed to reach %s database: %w", a.Config.Database.Driver, err)
	}
	return nil
}

// Close releases storage connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
