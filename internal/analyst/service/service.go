package service

import (
	"context"
	"fmt"
	"time"

	budget "github.com/mgiraudo/gastosbot/internal/budget/service"
	ledgerrepo "github.com/mgiraudo/gastosbot/internal/ledger/repository"
	ledger "github.com/mgiraudo/gastosbot/internal/ledger/service"
	recurringrepo "github.com/mgiraudo/gastosbot/internal/recurring/repository"
	"go.uber.org/zap"
)

// Answerer is the AI surface the analyst needs.
type Answerer interface {
	AnswerQuestion(ctx context.Context, question, userName string, data any) string
	DetectAnalystIntent(ctx context.Context, text string) bool
}

type Ledger interface {
	MonthlyTotals(ctx context.Context, userID int64, n int) ([]ledger.MonthTotal, error)
	ListByMonth(ctx context.Context, userID int64, month string) ([]*ledgerrepo.Transaction, error)
	ListAll(ctx context.Context, userID int64) ([]*ledgerrepo.Transaction, error)
}

type Recurring interface {
	ListActive(ctx context.Context, userID int64) ([]*recurringrepo.Recurring, error)
}

type Budgets interface {
	MonthStatus(ctx context.Context, userID int64, month string) ([]budget.Status, error)
}

// Service gathers a user's complete financial picture and hands it to the
// model together with the question.
type Service struct {
	ai        Answerer
	ledger    Ledger
	recurring Recurring
	budgets   Budgets
	logger    *zap.Logger
}

func NewService(ai Answerer, ledger Ledger, recurring Recurring, budgets Budgets, logger *zap.Logger) *Service {
	return &Service{
		ai:        ai,
		ledger:    ledger,
		recurring: recurring,
		budgets:   budgets,
		logger:    logger,
	}
}

// IsQuestion reports whether a free-text message should be routed here.
func (s *Service) IsQuestion(ctx context.Context, text string) bool {
	return s.ai.DetectAnalystIntent(ctx, text)
}

type transactionView struct {
	Date                  string  `json:"date"`
	Type                  string  `json:"type"`
	Category              string  `json:"category"`
	Description           string  `json:"description"`
	Amount                float64 `json:"amount"`
	InstallmentCurrent    *int64  `json:"installment_current,omitempty"`
	InstallmentTotal      *int64  `json:"installment_total,omitempty"`
	InstallmentsRemaining *int64  `json:"installments_remaining,omitempty"`
}

type recurringView struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Frequency   string  `json:"frequency"`
	NextDate    string  `json:"next_date"`
}

type analystContext struct {
	UserName           string              `json:"user_name"`
	Today              string              `json:"today"`
	CurrentMonth       string              `json:"current_month"`
	MonthlyTotals      []ledger.MonthTotal `json:"monthly_totals_last_6_months"`
	CurrentMonthTxs    []transactionView   `json:"current_month_transactions"`
	AllTransactions    []transactionView   `json:"all_transactions"`
	InstallmentsActive []transactionView   `json:"installments_active"`
	Recurring          []recurringView     `json:"recurring_subscriptions"`
	BudgetStatus       []budget.Status     `json:"budget_status"`
}

// Answer collects six months of totals, the current month's movements, the
// full history with installments, active recurring entries and budget status,
// then asks the model.
func (s *Service) Answer(ctx context.Context, userID int64, userName, question string) (string, error) {
	now := time.Now()
	month := now.Format("2006-01")

	totals, err := s.ledger.MonthlyTotals(ctx, userID, 6)
	if err != nil {
		return "", fmt.Errorf("failed to load monthly totals: %w", err)
	}

	currentTxs, err := s.ledger.ListByMonth(ctx, userID, month)
	if err != nil {
		return "", fmt.Errorf("failed to load current month: %w", err)
	}

	allTxs, err := s.ledger.ListAll(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load history: %w", err)
	}

	recs, err := s.recurring.ListActive(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load recurring entries: %w", err)
	}

	budgets, err := s.budgets.MonthStatus(ctx, userID, month)
	if err != nil {
		return "", fmt.Errorf("failed to load budget status: %w", err)
	}

	all := viewTransactions(allTxs)
	data := analystContext{
		UserName:           userName,
		Today:              now.Format("2006-01-02"),
		CurrentMonth:       month,
		MonthlyTotals:      totals,
		CurrentMonthTxs:    viewTransactions(currentTxs),
		AllTransactions:    all,
		InstallmentsActive: activeInstallments(all),
		Recurring:          viewRecurring(recs),
		BudgetStatus:       budgets,
	}

	s.logger.Info("answering analyst question",
		zap.Int64("user_id", userID),
		zap.Int("transactions", len(all)))

	return s.ai.AnswerQuestion(ctx, question, userName, data), nil
}

func viewTransactions(txs []*ledgerrepo.Transaction) []transactionView {
	out := make([]transactionView, 0, len(txs))
	for _, tx := range txs {
		v := transactionView{
			Date:        tx.Date.Format("2006-01-02"),
			Type:        tx.Type,
			Category:    tx.Category,
			Description: tx.Description,
			Amount:      tx.Amount,
		}
		if tx.InstallmentCurrent.Valid {
			v.InstallmentCurrent = &tx.InstallmentCurrent.Int64
		}
		if tx.InstallmentTotal.Valid {
			v.InstallmentTotal = &tx.InstallmentTotal.Int64
		}
		if tx.InstallmentsRemaining.Valid {
			v.InstallmentsRemaining = &tx.InstallmentsRemaining.Int64
		}
		out = append(out, v)
	}
	return out
}

func activeInstallments(txs []transactionView) []transactionView {
	var out []transactionView
	for _, tx := range txs {
		if tx.InstallmentTotal != nil && tx.InstallmentsRemaining != nil && *tx.InstallmentsRemaining > 0 {
			out = append(out, tx)
		}
	}
	return out
}

func viewRecurring(recs []*recurringrepo.Recurring) []recurringView {
	out := make([]recurringView, 0, len(recs))
	for _, r := range recs {
		out = append(out, recurringView{
			Description: r.Description,
			Amount:      r.Amount,
			Category:    r.Category,
			Frequency:   r.Frequency,
			NextDate:    r.NextDate.Format("2006-01-02"),
		})
	}
	return out
}
