package service

import (
	"context"
	"fmt"
	"time"

	ledgerrepo "github.com/mgiraudo/gastosbot/internal/ledger/repository"
	ledger "github.com/mgiraudo/gastosbot/internal/ledger/service"
	"github.com/mgiraudo/gastosbot/internal/recurring/repository"
	"go.uber.org/zap"
)

type Store interface {
	Create(ctx context.Context, rec *repository.Recurring) (*repository.Recurring, error)
	ListActive(ctx context.Context, userID int64) ([]*repository.Recurring, error)
	ListDue(ctx context.Context, asOf time.Time) ([]*repository.Recurring, error)
	UpdateNextDate(ctx context.Context, recurringID int64, nextDate time.Time) error
	Deactivate(ctx context.Context, recurringID, userID int64) (bool, error)
}

// TransactionAdder is the part of the transaction service the sweep needs to
// spawn the generated transactions. The duplicate flag means the entry was
// already materialized for that date.
type TransactionAdder interface {
	Add(ctx context.Context, userID int64, draft ledger.Draft) (*ledgerrepo.Transaction, bool, error)
}

type Service struct {
	store  Store
	ledger TransactionAdder
	logger *zap.Logger
}

func NewService(store Store, adder TransactionAdder, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		ledger: adder,
		logger: logger,
	}
}

var validFrequencies = map[string]bool{
	"daily":   true,
	"weekly":  true,
	"monthly": true,
	"yearly":  true,
}

func (s *Service) Add(ctx context.Context, userID int64, amount float64, category, description, frequency string, startDate time.Time) (*repository.Recurring, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	if !validFrequencies[frequency] {
		return nil, fmt.Errorf("invalid frequency %q", frequency)
	}
	if startDate.IsZero() {
		startDate = time.Now()
	}

	rec := &repository.Recurring{
		UserID:      userID,
		Amount:      amount,
		Category:    category,
		Description: description,
		Frequency:   frequency,
		NextDate:    startDate,
	}

	created, err := s.store.Create(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("failed to create recurring entry: %w", err)
	}
	return created, nil
}

func (s *Service) ListActive(ctx context.Context, userID int64) ([]*repository.Recurring, error) {
	return s.store.ListActive(ctx, userID)
}

func (s *Service) Deactivate(ctx context.Context, recurringID, userID int64) (bool, error) {
	return s.store.Deactivate(ctx, recurringID, userID)
}

// ProcessDue spawns a transaction for every active entry whose next_date is
// on or before asOf and advances next_date by the entry's frequency. It
// returns the number of transactions generated. A failing entry is logged and
// skipped so one broken row cannot stall the whole sweep.
func (s *Service) ProcessDue(ctx context.Context, asOf time.Time) (int, error) {
	due, err := s.store.ListDue(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to list due entries: %w", err)
	}

	created := 0
	for _, rec := range due {
		draft := ledger.Draft{
			Amount:      rec.Amount,
			Type:        "expense",
			Category:    rec.Category,
			Description: "[Auto] " + rec.Description,
			Date:        rec.NextDate,
		}

		if _, _, err := s.ledger.Add(ctx, rec.UserID, draft); err != nil {
			s.logger.Error("failed to spawn recurring transaction",
				zap.Int64("recurring_id", rec.ID),
				zap.Error(err))
			continue
		}

		next := NextDate(rec.NextDate, rec.Frequency)
		if err := s.store.UpdateNextDate(ctx, rec.ID, next); err != nil {
			s.logger.Error("failed to advance recurring entry",
				zap.Int64("recurring_id", rec.ID),
				zap.Error(err))
			continue
		}
		created++
	}

	return created, nil
}

// NextDate advances a date by one period of the given frequency using
// calendar arithmetic. Unknown frequencies advance by one month.
func NextDate(current time.Time, frequency string) time.Time {
	switch frequency {
	case "daily":
		return current.AddDate(0, 0, 1)
	case "weekly":
		return current.AddDate(0, 0, 7)
	case "yearly":
		return current.AddDate(1, 0, 0)
	case "monthly":
		return current.AddDate(0, 1, 0)
	default:
		return current.AddDate(0, 1, 0)
	}
}
