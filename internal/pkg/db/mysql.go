package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"player-session/internal/config"
)

// OpenMySQL opens a MySQL/MariaDB handle sized from cfg and verifies it.
func OpenMySQL(ctx context.Context, cfg *config.DatabaseConfig) (*sql.DB, error) {
	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Int("pool_size", cfg.PoolSize).
		Msg("Connecting to MySQL")

	handle, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}

	handle.SetMaxOpenConns(cfg.PoolSize)
	handle.SetMaxIdleConns(max(cfg.PoolSize/4, 1))
	handle.SetConnMaxLifetime(orDefault(cfg.MaxConnLifetime, time.Hour))
	handle.SetConnMaxIdleTime(orDefault(cfg.MaxConnIdleTime, 30*time.Minute))

	pingCtx, cancel := context.WithTimeout(ctx, orDefault(cfg.ConnectTimeout, 10*time.Second))
	defer cancel()
	if err := handle.PingContext(pingCtx); err != nil {
		handle.Close()
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}

	log.Info().Msg("Successfully connected to MySQL")
	return handle, nil
}
