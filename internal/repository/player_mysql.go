package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"player-session/internal/model"
)

// mysqlDuplicateEntry is the MySQL error number for a duplicate key.
const mysqlDuplicateEntry = 1062

// MySQLPlayerRepository handles player persistence in MySQL/MariaDB.
// The DSN must set clientFoundRows so Update can tell a missing row from
// an unchanged one.
type MySQLPlayerRepository struct {
	db *sql.DB
}

// NewMySQLPlayerRepository creates a repository over an open handle.
func NewMySQLPlayerRepository(db *sql.DB) *MySQLPlayerRepository {
	return &MySQLPlayerRepository{db: db}
}

const mysqlSelectPlayer = `SELECT uuid, nickname, balance, playtime, created_at, updated_at FROM players`

func scanPlayer(row interface{ Scan(dest ...any) error }) (*model.Player, error) {
	var p model.Player
	if err := row.Scan(&p.ID, &p.Nickname, &p.Balance, &p.Playtime, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// Find looks up a player by ID.
func (r *MySQLPlayerRepository) Find(ctx context.Context, id uuid.UUID) (*model.Player, bool, error) {
	p, err := scanPlayer(r.db.QueryRowContext(ctx, mysqlSelectPlayer+` WHERE uuid = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get player: %w", err)
	}
	return p, true, nil
}

// Create inserts a new player with zero playtime and the given balance.
func (r *MySQLPlayerRepository) Create(ctx context.Context, id uuid.UUID, nickname string, balance model.Amount) (*model.Player, error) {
	const insert = `
		INSERT INTO players (uuid, nickname, balance, playtime, created_at, updated_at)
		VALUES (?, ?, ?, 0, CURRENT_TIMESTAMP(6), CURRENT_TIMESTAMP(6))
	`

	if _, err := r.db.ExecContext(ctx, insert, id.String(), nickname, int64(balance)); err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return nil, ErrPlayerExists
		}
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	// MySQL has no RETURNING; read the row back for the server timestamps.
	p, err := scanPlayer(r.db.QueryRowContext(ctx, mysqlSelectPlayer+` WHERE uuid = ?`, id.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to read created player: %w", err)
	}
	return p, nil
}

// Update writes nickname, playtime and balance in a single statement.
func (r *MySQLPlayerRepository) Update(ctx context.Context, id uuid.UUID, nickname string, playtime int64, balance model.Amount) error {
	const update = `
		UPDATE players
		SET nickname = ?, playtime = ?, balance = ?, updated_at = CURRENT_TIMESTAMP(6)
		WHERE uuid = ?
	`

	result, err := r.db.ExecContext(ctx, update, nickname, playtime, int64(balance), id.String())
	if err != nil {
		return fmt.Errorf("failed to update player: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update player: %w", err)
	}
	if n == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// TopByBalance returns up to limit players ordered by stored balance.
func (r *MySQLPlayerRepository) TopByBalance(ctx context.Context, limit int) ([]*model.Player, error) {
	return r.top(ctx, mysqlSelectPlayer+` ORDER BY balance DESC, nickname LIMIT ?`, limit)
}

// TopByPlaytime returns up to limit players ordered by stored playtime.
func (r *MySQLPlayerRepository) TopByPlaytime(ctx context.Context, limit int) ([]*model.Player, error) {
	return r.top(ctx, mysqlSelectPlayer+` ORDER BY playtime DESC, nickname LIMIT ?`, limit)
}

func (r *MySQLPlayerRepository) top(ctx context.Context, query string, limit int) ([]*model.Player, error) {
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top players: %w", err)
	}
	defer rows.Close()

	var players []*model.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}
	return players, nil
}
