package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mgiraudo/gastosbot/internal/pkg/crypto"
	"go.uber.org/zap"
)

type Repository struct {
	db     *pgxpool.Pool
	cipher *crypto.Cipher
	logger *zap.Logger
}

func NewRepository(db *pgxpool.Pool, cipher *crypto.Cipher, logger *zap.Logger) *Repository {
	return &Repository{
		db:     db,
		cipher: cipher,
		logger: logger,
	}
}

type Recurring struct {
	ID          int64
	UserID      int64
	Amount      float64
	Category    string
	Description string
	Frequency   string
	NextDate    time.Time
	Active      bool
}

const recColumns = `id, user_id, amount, category, description, frequency, next_date, active`

func (r *Repository) scanRecurring(row pgx.Row) (*Recurring, error) {
	var rec Recurring
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Amount,
		&rec.Category,
		&rec.Description,
		&rec.Frequency,
		&rec.NextDate,
		&rec.Active,
	)
	if err != nil {
		return nil, err
	}
	if rec.Description != "" {
		if plain, err := r.cipher.Decrypt(rec.Description); err == nil {
			rec.Description = plain
		}
	}
	return &rec, nil
}

func (r *Repository) Create(ctx context.Context, rec *Recurring) (*Recurring, error) {
	sealed, err := r.cipher.Encrypt(rec.Description)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt description: %w", err)
	}

	query := `
		INSERT INTO recurring (user_id, amount, category, description, frequency, next_date, active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING ` + recColumns

	created, err := r.scanRecurring(r.db.QueryRow(ctx, query,
		rec.UserID,
		rec.Amount,
		rec.Category,
		sealed,
		rec.Frequency,
		rec.NextDate,
	))
	if err != nil {
		r.logger.Error("failed to create recurring entry", zap.Error(err))
		return nil, err
	}
	return created, nil
}

func (r *Repository) ListActive(ctx context.Context, userID int64) ([]*Recurring, error) {
	query := `
		SELECT ` + recColumns + `
		FROM recurring
		WHERE user_id = $1 AND active = TRUE
		ORDER BY next_date
	`
	return r.list(ctx, query, userID)
}

// ListDue returns every active entry, for any user, whose next_date is on or
// before asOf. The sweep walks this list.
func (r *Repository) ListDue(ctx context.Context, asOf time.Time) ([]*Recurring, error) {
	query := `
		SELECT ` + recColumns + `
		FROM recurring
		WHERE active = TRUE AND next_date <= $1
		ORDER BY user_id, next_date
	`
	return r.list(ctx, query, asOf)
}

func (r *Repository) list(ctx context.Context, query string, args ...interface{}) ([]*Recurring, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list recurring entries", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var recs []*Recurring
	for rows.Next() {
		rec, err := r.scanRecurring(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (r *Repository) UpdateNextDate(ctx context.Context, recurringID int64, nextDate time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE recurring SET next_date = $1 WHERE id = $2`, nextDate, recurringID)
	if err != nil {
		r.logger.Error("failed to update next date", zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) Deactivate(ctx context.Context, recurringID, userID int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE recurring SET active = FALSE WHERE id = $1 AND user_id = $2 AND active = TRUE`,
		recurringID, userID)
	if err != nil {
		r.logger.Error("failed to deactivate recurring entry", zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
