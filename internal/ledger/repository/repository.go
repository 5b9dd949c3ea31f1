package repository

import (
	"context"
	"database/sql"
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

// NewRepository builds the transactions repository. The cipher seals the
// description column on write and opens it on read; plaintext legacy rows are
// returned as stored.
func NewRepository(db *pgxpool.Pool, cipher *crypto.Cipher, logger *zap.Logger) *Repository {
	return &Repository{
		db:     db,
		cipher: cipher,
		logger: logger,
	}
}

type Transaction struct {
	ID                    int64
	UserID                int64
	Amount                float64
	Category              string
	Description           string
	Type                  string
	Date                  time.Time
	InstallmentCurrent    sql.NullInt64
	InstallmentTotal      sql.NullInt64
	InstallmentsRemaining sql.NullInt64
	CreatedAt             time.Time
}

const txColumns = `id, user_id, amount, category, description, type, date,
		installment_current, installment_total, installments_remaining, created_at`

func (r *Repository) scanTransaction(row pgx.Row) (*Transaction, error) {
	var tx Transaction
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Amount,
		&tx.Category,
		&tx.Description,
		&tx.Type,
		&tx.Date,
		&tx.InstallmentCurrent,
		&tx.InstallmentTotal,
		&tx.InstallmentsRemaining,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	tx.Description = r.openDescription(tx.Description)
	return &tx, nil
}

func (r *Repository) openDescription(stored string) string {
	if stored == "" {
		return ""
	}
	plain, err := r.cipher.Decrypt(stored)
	if err != nil {
		// Legacy plaintext row, keep as stored.
		return stored
	}
	return plain
}

func (r *Repository) Create(ctx context.Context, tx *Transaction) (*Transaction, error) {
	sealed, err := r.cipher.Encrypt(tx.Description)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt description: %w", err)
	}

	query := `
		INSERT INTO transactions (user_id, amount, category, description, type, date,
			installment_current, installment_total, installments_remaining)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + txColumns

	row := r.db.QueryRow(ctx, query,
		tx.UserID,
		tx.Amount,
		tx.Category,
		sealed,
		tx.Type,
		tx.Date,
		tx.InstallmentCurrent,
		tx.InstallmentTotal,
		tx.InstallmentsRemaining,
	)

	created, err := r.scanTransaction(row)
	if err != nil {
		r.logger.Error("failed to create transaction", zap.Error(err))
		return nil, err
	}
	return created, nil
}

// FindDuplicate looks for an existing transaction with the same user, date,
// amount and type, then compares descriptions after opening the stored
// ciphertext. Returns nil when no match exists.
func (r *Repository) FindDuplicate(ctx context.Context, userID int64, date time.Time, amount float64, txType, description string) (*Transaction, error) {
	query := `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE user_id = $1 AND date = $2 AND amount = $3 AND type = $4
	`

	rows, err := r.db.Query(ctx, query, userID, date, amount, txType)
	if err != nil {
		r.logger.Error("failed to search duplicates", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		tx, err := r.scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		if tx.Description == description {
			return tx, nil
		}
	}
	return nil, rows.Err()
}

// monthRange turns "YYYY-MM" into [first day, first day of next month).
func monthRange(month string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month %q: %w", month, err)
	}
	return start, start.AddDate(0, 1, 0), nil
}

func (r *Repository) ListByMonth(ctx context.Context, userID int64, month string) ([]*Transaction, error) {
	start, end, err := monthRange(month)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE user_id = $1 AND date >= $2 AND date < $3
		ORDER BY date DESC, id DESC
	`
	return r.list(ctx, query, userID, start, end)
}

func (r *Repository) ListByCategory(ctx context.Context, userID int64, category, month string) ([]*Transaction, error) {
	if month == "" {
		query := `
			SELECT ` + txColumns + `
			FROM transactions
			WHERE user_id = $1 AND category = $2
			ORDER BY date DESC, id DESC
		`
		return r.list(ctx, query, userID, category)
	}

	start, end, err := monthRange(month)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE user_id = $1 AND category = $2 AND date >= $3 AND date < $4
		ORDER BY date DESC, id DESC
	`
	return r.list(ctx, query, userID, category, start, end)
}

// ListLastNMonths returns every transaction since the first day of the month
// n months back, oldest first.
func (r *Repository) ListLastNMonths(ctx context.Context, userID int64, n int) ([]*Transaction, error) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -n, 0)

	query := `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE user_id = $1 AND date >= $2
		ORDER BY date ASC, id ASC
	`
	return r.list(ctx, query, userID, start)
}

func (r *Repository) ListAll(ctx context.Context, userID int64) ([]*Transaction, error) {
	query := `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY date DESC, id DESC
	`
	return r.list(ctx, query, userID)
}

func (r *Repository) list(ctx context.Context, query string, args ...interface{}) ([]*Transaction, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list transactions", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var txs []*Transaction
	for rows.Next() {
		tx, err := r.scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (r *Repository) Delete(ctx context.Context, transactionID, userID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, transactionID, userID)
	if err != nil {
		r.logger.Error("failed to delete transaction", zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
