package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/mgiraudo/gastosbot/internal/budget/repository"
	ledgerrepo "github.com/mgiraudo/gastosbot/internal/ledger/repository"
	"go.uber.org/zap"
)

type BudgetStore interface {
	Upsert(ctx context.Context, userID int64, category string, limitAmount float64, month string) (*repository.Budget, error)
	ListByMonth(ctx context.Context, userID int64, month string) ([]*repository.Budget, error)
}

type LedgerStore interface {
	ListByCategory(ctx context.Context, userID int64, category, month string) ([]*ledgerrepo.Transaction, error)
}

type Service struct {
	budgets BudgetStore
	ledger  LedgerStore
	logger  *zap.Logger
}

func NewService(budgets BudgetStore, ledger LedgerStore, logger *zap.Logger) *Service {
	return &Service{
		budgets: budgets,
		ledger:  ledger,
		logger:  logger,
	}
}

func (s *Service) Set(ctx context.Context, userID int64, category string, limitAmount float64, month string) (*repository.Budget, error) {
	if limitAmount <= 0 {
		return nil, fmt.Errorf("limit amount must be positive")
	}
	if category == "" {
		return nil, fmt.Errorf("category cannot be empty")
	}
	if month == "" {
		month = time.Now().Format("2006-01")
	}
	if _, err := time.Parse("2006-01", month); err != nil {
		return nil, fmt.Errorf("invalid month %q: %w", month, err)
	}

	b, err := s.budgets.Upsert(ctx, userID, category, limitAmount, month)
	if err != nil {
		return nil, fmt.Errorf("failed to set budget: %w", err)
	}
	return b, nil
}

// Status is the spend position of one budget within its month.
type Status struct {
	Category   string  `json:"category"`
	Limit      float64 `json:"limit"`
	Spent      float64 `json:"spent"`
	Remaining  float64 `json:"remaining"`
	Percentage float64 `json:"percentage"`
}

func (s *Service) MonthStatus(ctx context.Context, userID int64, month string) ([]Status, error) {
	if month == "" {
		month = time.Now().Format("2006-01")
	}

	budgets, err := s.budgets.ListByMonth(ctx, userID, month)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}

	statuses := make([]Status, 0, len(budgets))
	for _, b := range budgets {
		spent, err := s.categorySpend(ctx, userID, b.Category, month)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, buildStatus(b.Category, b.LimitAmount, spent))
	}
	return statuses, nil
}

// CategoryStatus returns the status for a single category, or nil when no
// budget is defined for it.
func (s *Service) CategoryStatus(ctx context.Context, userID int64, category, month string) (*Status, error) {
	statuses, err := s.MonthStatus(ctx, userID, month)
	if err != nil {
		return nil, err
	}
	for i := range statuses {
		if statuses[i].Category == category {
			return &statuses[i], nil
		}
	}
	return nil, nil
}

// Alert is emitted when month-to-date spend crosses one of the fixed
// thresholds of a budget.
type Alert struct {
	Category  string
	Threshold int // 80 or 100
	Status    Status
}

// EvaluateExpense reports which thresholds a new expense crossed for its
// category budget. The crossing is detected by comparing spend before and
// after the expense, so each threshold fires exactly once no matter how many
// further expenses pile on top.
func (s *Service) EvaluateExpense(ctx context.Context, userID int64, category string, amount float64, month string) ([]Alert, error) {
	if month == "" {
		month = time.Now().Format("2006-01")
	}

	budgets, err := s.budgets.ListByMonth(ctx, userID, month)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}

	var budget *repository.Budget
	for _, b := range budgets {
		if b.Category == category {
			budget = b
			break
		}
	}
	if budget == nil {
		return nil, nil
	}

	spentAfter, err := s.categorySpend(ctx, userID, category, month)
	if err != nil {
		return nil, err
	}
	spentBefore := spentAfter - amount

	var alerts []Alert
	for _, threshold := range CrossedThresholds(spentBefore, spentAfter, budget.LimitAmount) {
		alerts = append(alerts, Alert{
			Category:  category,
			Threshold: threshold,
			Status:    buildStatus(category, budget.LimitAmount, spentAfter),
		})
	}
	return alerts, nil
}

// CrossedThresholds lists the alert thresholds (80, 100) that the spend
// crossed when moving from before to after against a limit.
func CrossedThresholds(before, after, limit float64) []int {
	if limit <= 0 || after <= before {
		return nil
	}

	var crossed []int
	for _, pct := range []int{80, 100} {
		mark := limit * float64(pct) / 100
		if before < mark && after >= mark {
			crossed = append(crossed, pct)
		}
	}
	return crossed
}

func (s *Service) categorySpend(ctx context.Context, userID int64, category, month string) (float64, error) {
	txs, err := s.ledger.ListByCategory(ctx, userID, category, month)
	if err != nil {
		return 0, fmt.Errorf("failed to list category transactions: %w", err)
	}

	var spent float64
	for _, tx := range txs {
		if tx.Type == "expense" {
			spent += tx.Amount
		}
	}
	return spent, nil
}

func buildStatus(category string, limit, spent float64) Status {
	pct := 0.0
	if limit > 0 {
		pct = math.Round(spent/limit*1000) / 10
	}
	return Status{
		Category:   category,
		Limit:      limit,
		Spent:      spent,
		Remaining:  limit - spent,
		Percentage: pct,
	}
}
