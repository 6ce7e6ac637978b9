package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"player-session/internal/model"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

// PlayerRepository handles player persistence in PostgreSQL.
type PlayerRepository struct {
	pool *pgxpool.Pool
}

// NewPlayerRepository creates a new PlayerRepository instance.
func NewPlayerRepository(pool *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{pool: pool}
}

// Find looks up a player by ID. A missing row is reported as found=false
// with a nil error.
func (r *PlayerRepository) Find(ctx context.Context, id uuid.UUID) (*model.Player, bool, error) {
	const query = `
		SELECT uuid, nickname, balance, playtime, created_at, updated_at
		FROM players
		WHERE uuid = $1
	`

	var p model.Player
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Nickname,
		&p.Balance,
		&p.Playtime,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get player: %w", err)
	}

	return &p, true, nil
}

// Create inserts a new player with zero playtime and the given balance.
// Returns ErrPlayerExists if a row with the same ID is already present.
func (r *PlayerRepository) Create(ctx context.Context, id uuid.UUID, nickname string, balance model.Amount) (*model.Player, error) {
	const query = `
		INSERT INTO players (uuid, nickname, balance, playtime, created_at, updated_at)
		VALUES ($1, $2, $3, 0, NOW(), NOW())
		RETURNING uuid, nickname, balance, playtime, created_at, updated_at
	`

	var p model.Player
	err := r.pool.QueryRow(ctx, query, id, nickname, balance).Scan(
		&p.ID,
		&p.Nickname,
		&p.Balance,
		&p.Playtime,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrPlayerExists
		}
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	return &p, nil
}

// Update writes nickname, playtime and balance in a single statement.
func (r *PlayerRepository) Update(ctx context.Context, id uuid.UUID, nickname string, playtime int64, balance model.Amount) error {
	const query = `
		UPDATE players
		SET nickname = $2, playtime = $3, balance = $4, updated_at = NOW()
		WHERE uuid = $1
	`

	result, err := r.pool.Exec(ctx, query, id, nickname, playtime, balance)
	if err != nil {
		return fmt.Errorf("failed to update player: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}

	return nil
}

// TopByBalance returns up to limit players ordered by stored balance.
func (r *PlayerRepository) TopByBalance(ctx context.Context, limit int) ([]*model.Player, error) {
	return r.top(ctx, `
		SELECT uuid, nickname, balance, playtime, created_at, updated_at
		FROM players
		ORDER BY balance DESC, nickname
		LIMIT $1
	`, limit)
}

// TopByPlaytime returns up to limit players ordered by stored playtime.
func (r *PlayerRepository) TopByPlaytime(ctx context.Context, limit int) ([]*model.Player, error) {
	return r.top(ctx, `
		SELECT uuid, nickname, balance, playtime, created_at, updated_at
		FROM players
		ORDER BY playtime DESC, nickname
		LIMIT $1
	`, limit)
}

func (r *PlayerRepository) top(ctx context.Context, query string, limit int) ([]*model.Player, error) {
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top players: %w", err)
	}
	defer rows.Close()

	var players []*model.Player
	for rows.Next() {
		var p model.Player
		err := rows.Scan(
			&p.ID,
			&p.Nickname,
			&p.Balance,
			&p.Playtime,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}

	return players, nil
}
