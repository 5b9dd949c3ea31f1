package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mgiraudo/gastosbot/internal/ledger/repository"
	"go.uber.org/zap"
)

// Store is the slice of the transactions repository the service needs.
type Store interface {
	Create(ctx context.Context, tx *repository.Transaction) (*repository.Transaction, error)
	FindDuplicate(ctx context.Context, userID int64, date time.Time, amount float64, txType, description string) (*repository.Transaction, error)
	ListByMonth(ctx context.Context, userID int64, month string) ([]*repository.Transaction, error)
	ListLastNMonths(ctx context.Context, userID int64, n int) ([]*repository.Transaction, error)
	ListAll(ctx context.Context, userID int64) ([]*repository.Transaction, error)
	Delete(ctx context.Context, transactionID, userID int64) (bool, error)
}

type Service struct {
	store    Store
	validate *validator.Validate
	logger   *zap.Logger
}

func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		validate: validator.New(),
		logger:   logger,
	}
}

// Draft is a transaction candidate coming out of any ingestion path (text,
// voice, photo, statement import) before validation and persistence.
type Draft struct {
	Amount                float64 `validate:"required,gt=0"`
	Type                  string  `validate:"required,oneof=income expense"`
	Category              string
	Description           string
	Date                  time.Time
	InstallmentCurrent    int
	InstallmentTotal      int
	InstallmentsRemaining int
}

const DefaultExpenseCategory = "otros"

// Add validates a draft, checks for a duplicate in the same day window and
// persists it. When an identical transaction already exists the stored one is
// returned with duplicate=true and nothing new is written.
func (s *Service) Add(ctx context.Context, userID int64, draft Draft) (tx *repository.Transaction, duplicate bool, err error) {
	if err := s.validate.Struct(draft); err != nil {
		return nil, false, fmt.Errorf("invalid transaction: %w", err)
	}

	if draft.Category == "" {
		draft.Category = DefaultExpenseCategory
	}
	if draft.Date.IsZero() {
		draft.Date = time.Now()
	}
	y, m, d := draft.Date.Date()
	draft.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	existing, err := s.store.FindDuplicate(ctx, userID, draft.Date, draft.Amount, draft.Type, draft.Description)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check duplicates: %w", err)
	}
	if existing != nil {
		s.logger.Info("duplicate transaction skipped",
			zap.Int64("user_id", userID),
			zap.Float64("amount", draft.Amount),
			zap.String("category", draft.Category))
		return existing, true, nil
	}

	rec := &repository.Transaction{
		UserID:      userID,
		Amount:      draft.Amount,
		Category:    draft.Category,
		Description: draft.Description,
		Type:        draft.Type,
		Date:        draft.Date,
	}
	if draft.InstallmentTotal > 0 {
		rec.InstallmentCurrent = sql.NullInt64{Int64: int64(draft.InstallmentCurrent), Valid: true}
		rec.InstallmentTotal = sql.NullInt64{Int64: int64(draft.InstallmentTotal), Valid: true}
		rec.InstallmentsRemaining = sql.NullInt64{Int64: int64(draft.InstallmentsRemaining), Valid: true}
	}

	created, err := s.store.Create(ctx, rec)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create transaction: %w", err)
	}
	return created, false, nil
}

type CategoryAmount struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

type Summary struct {
	Month     string           `json:"month"`
	Income    float64          `json:"income"`
	Expense   float64          `json:"expense"`
	Balance   float64          `json:"balance"`
	Breakdown []CategoryAmount `json:"breakdown"`
}

// MonthlySummary sums the month's movements and breaks expenses down by
// category, largest first.
func (s *Service) MonthlySummary(ctx context.Context, userID int64, month string) (*Summary, error) {
	if month == "" {
		month = time.Now().Format("2006-01")
	}

	txs, err := s.store.ListByMonth(ctx, userID, month)
	if err != nil {
		return nil, fmt.Errorf("failed to list month transactions: %w", err)
	}

	summary := &Summary{Month: month}
	perCategory := make(map[string]float64)
	for _, tx := range txs {
		switch tx.Type {
		case "income":
			summary.Income += tx.Amount
		case "expense":
			summary.Expense += tx.Amount
			perCategory[tx.Category] += tx.Amount
		}
	}
	summary.Balance = summary.Income - summary.Expense

	for cat, amount := range perCategory {
		summary.Breakdown = append(summary.Breakdown, CategoryAmount{Category: cat, Amount: amount})
	}
	sort.Slice(summary.Breakdown, func(i, j int) bool {
		return summary.Breakdown[i].Amount > summary.Breakdown[j].Amount
	})

	return summary, nil
}

type MonthTotal struct {
	Month   string  `json:"month"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Balance float64 `json:"balance"`
}

// MonthlyTotals aggregates income and expense per month over the last n
// months, oldest first.
func (s *Service) MonthlyTotals(ctx context.Context, userID int64, n int) ([]MonthTotal, error) {
	txs, err := s.store.ListLastNMonths(ctx, userID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	perMonth := make(map[string]*MonthTotal)
	for _, tx := range txs {
		key := tx.Date.Format("2006-01")
		mt, ok := perMonth[key]
		if !ok {
			mt = &MonthTotal{Month: key}
			perMonth[key] = mt
		}
		switch tx.Type {
		case "income":
			mt.Income += tx.Amount
		case "expense":
			mt.Expense += tx.Amount
		}
	}

	totals := make([]MonthTotal, 0, len(perMonth))
	for _, mt := range perMonth {
		mt.Balance = mt.Income - mt.Expense
		totals = append(totals, *mt)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Month < totals[j].Month })
	return totals, nil
}

// ListRecent returns the latest transactions of a month, capped at limit.
func (s *Service) ListRecent(ctx context.Context, userID int64, month string, limit int) ([]*repository.Transaction, error) {
	if month == "" {
		month = time.Now().Format("2006-01")
	}
	txs, err := s.store.ListByMonth(ctx, userID, month)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

func (s *Service) ListByMonth(ctx context.Context, userID int64, month string) ([]*repository.Transaction, error) {
	if month == "" {
		month = time.Now().Format("2006-01")
	}
	return s.store.ListByMonth(ctx, userID, month)
}

func (s *Service) ListAll(ctx context.Context, userID int64) ([]*repository.Transaction, error) {
	return s.store.ListAll(ctx, userID)
}

func (s *Service) Delete(ctx context.Context, transactionID, userID int64) (bool, error) {
	deleted, err := s.store.Delete(ctx, transactionID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete transaction: %w", err)
	}
	return deleted, nil
}
