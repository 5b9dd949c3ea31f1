package repository

import (
	"context"
	"time"

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

type Budget struct {
	ID          int64
	UserID      int64
	Category    string
	LimitAmount float64
	Month       string
	CreatedAt   time.Time
}

// Upsert creates the budget for (user, category, month) or updates its limit
// when the row already exists.
func (r *Repository) Upsert(ctx context.Context, userID int64, category string, limitAmount float64, month string) (*Budget, error) {
	var b Budget

	query := `
		INSERT INTO budgets (user_id, category, limit_amount, month)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, category, month) DO UPDATE
		SET limit_amount = EXCLUDED.limit_amount
		RETURNING id, user_id, category, limit_amount, month, created_at
	`

	err := r.db.QueryRow(ctx, query, userID, category, limitAmount, month).Scan(
		&b.ID,
		&b.UserID,
		&b.Category,
		&b.LimitAmount,
		&b.Month,
		&b.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to upsert budget", zap.Error(err))
		return nil, err
	}

	return &b, nil
}

func (r *Repository) ListByMonth(ctx context.Context, userID int64, month string) ([]*Budget, error) {
	query := `
		SELECT id, user_id, category, limit_amount, month, created_at
		FROM budgets
		WHERE user_id = $1 AND month = $2
		ORDER BY category
	`

	rows, err := r.db.Query(ctx, query, userID, month)
	if err != nil {
		r.logger.Error("failed to list budgets", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var budgets []*Budget
	for rows.Next() {
		var b Budget
		if err := rows.Scan(
			&b.ID,
			&b.UserID,
			&b.Category,
			&b.LimitAmount,
			&b.Month,
			&b.CreatedAt,
		); err != nil {
			return nil, err
		}
		budgets = append(budgets, &b)
	}
	return budgets, rows.Err()
}
