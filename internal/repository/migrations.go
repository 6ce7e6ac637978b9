package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresPlayersTable = `
	CREATE TABLE IF NOT EXISTS players (
		uuid UUID PRIMARY KEY,
		nickname TEXT NOT NULL,
		balance BIGINT NOT NULL DEFAULT 0,
		playtime BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

const mysqlPlayersTable = `
	CREATE TABLE IF NOT EXISTS players (
		uuid CHAR(36) NOT NULL PRIMARY KEY,
		nickname VARCHAR(255) NOT NULL,
		balance BIGINT NOT NULL DEFAULT 0,
		playtime BIGINT NOT NULL DEFAULT 0,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
`

// Migrate creates the players table in PostgreSQL.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, postgresPlayersTable); err != nil {
		return fmt.Errorf("failed to create players table: %w", err)
	}
	return nil
}

// MigrateMySQL creates the players table in MySQL/MariaDB.
func MigrateMySQL(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, mysqlPlayersTable); err != nil {
		return fmt.Errorf("failed to create players table: %w", err)
	}
	return nil
}
