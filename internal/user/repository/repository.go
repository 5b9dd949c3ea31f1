package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Repository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewRepository(db *pgxpool.Pool, logger *zap.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

type User struct {
	ID         int64
	TelegramID int64
	Name       string
	CreatedAt  time.Time
}

// GetOrCreate returns the user for a telegram id, creating it on first
// contact. The second return value reports whether the row was just created.
// Existing users are never updated.
func (r *Repository) GetOrCreate(ctx context.Context, telegramID int64, name string) (*User, bool, error) {
	var user User

	insert := `
		INSERT INTO users (telegram_id, name)
		VALUES ($1, $2)
		ON CONFLICT (telegram_id) DO NOTHING
		RETURNING id, telegram_id, name, created_at
	`

	err := r.db.QueryRow(ctx, insert, telegramID, name).Scan(
		&user.ID,
		&user.TelegramID,
		&user.Name,
		&user.CreatedAt,
	)
	if err == nil {
		return &user, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("failed to create user", zap.Error(err))
		return nil, false, err
	}

	existing, err := r.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *Repository) GetByTelegramID(ctx context.Context, telegramID int64) (*User, error) {
	var user User

	query := `
		SELECT id, telegram_id, name, created_at
		FROM users
		WHERE telegram_id = $1
	`

	err := r.db.QueryRow(ctx, query, telegramID).Scan(
		&user.ID,
		&user.TelegramID,
		&user.Name,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("failed to get user by telegram id", zap.Error(err))
		return nil, err
	}

	return &user, nil
}
