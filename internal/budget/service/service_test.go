package service

import (
	"context"
	"testing"
	"time"

	"github.com/mgiraudo/gastosbot/internal/budget/repository"
	ledgerrepo "github.com/mgiraudo/gastosbot/internal/ledger/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBudgetStore struct {
	budgets []*repository.Budget
}

func (f *fakeBudgetStore) Upsert(_ context.Context, userID int64, category string, limitAmount float64, month string) (*repository.Budget, error) {
	for _, b := range f.budgets {
		if b.UserID == userID && b.Category == category && b.Month == month {
			b.LimitAmount = limitAmount
			return b, nil
		}
	}
	b := &repository.Budget{
		ID:          int64(len(f.budgets) + 1),
		UserID:      userID,
		Category:    category,
		LimitAmount: limitAmount,
		Month:       month,
	}
	f.budgets = append(f.budgets, b)
	return b, nil
}

func (f *fakeBudgetStore) ListByMonth(_ context.Context, userID int64, month string) ([]*repository.Budget, error) {
	var out []*repository.Budget
	for _, b := range f.budgets {
		if b.UserID == userID && b.Month == month {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeLedgerStore struct {
	txs []*ledgerrepo.Transaction
}

func (f *fakeLedgerStore) ListByCategory(_ context.Context, userID int64, category, month string) ([]*ledgerrepo.Transaction, error) {
	var out []*ledgerrepo.Transaction
	for _, tx := range f.txs {
		if tx.UserID == userID && tx.Category == category && tx.Date.Format("2006-01") == month {
			out = append(out, tx)
		}
	}
	return out, nil
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return d
}

func TestCrossedThresholds(t *testing.T) {
	cases := []struct {
		name          string
		before, after float64
		limit         float64
		want          []int
	}{
		{"below everything", 0, 500, 1000, nil},
		{"crosses 80", 700, 850, 1000, []int{80}},
		{"lands exactly on 80", 700, 800, 1000, []int{80}},
		{"already past 80, stays under 100", 850, 950, 1000, nil},
		{"crosses 100", 950, 1100, 1000, []int{100}},
		{"lands exactly on limit", 900, 1000, 1000, []int{100}},
		{"single expense crosses both", 500, 1200, 1000, []int{80, 100}},
		{"already over limit", 1200, 1500, 1000, nil},
		{"no limit", 0, 100, 0, nil},
		{"no movement", 500, 500, 1000, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CrossedThresholds(tc.before, tc.after, tc.limit))
		})
	}
}

func TestEvaluateExpenseEmitsEachAlertOnce(t *testing.T) {
	budgets := &fakeBudgetStore{}
	ledger := &fakeLedgerStore{}
	svc := NewService(budgets, ledger, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Set(ctx, 1, "alimentación", 1000, "2026-02")
	require.NoError(t, err)

	spend := func(amount float64) []Alert {
		t.Helper()
		ledger.txs = append(ledger.txs, &ledgerrepo.Transaction{
			UserID:   1,
			Amount:   amount,
			Category: "alimentación",
			Type:     "expense",
			Date:     mustDate(t, "2026-02-10"),
		})
		alerts, err := svc.EvaluateExpense(ctx, 1, "alimentación", amount, "2026-02")
		require.NoError(t, err)
		return alerts
	}

	// 0 -> 500: nothing.
	assert.Empty(t, spend(500))

	// 500 -> 850: crosses 80%.
	alerts := spend(350)
	require.Len(t, alerts, 1)
	assert.Equal(t, 80, alerts[0].Threshold)
	assert.Equal(t, 850.0, alerts[0].Status.Spent)

	// 850 -> 950: still between 80% and 100%, no repeat.
	assert.Empty(t, spend(100))

	// 950 -> 1050: crosses 100%.
	alerts = spend(100)
	require.Len(t, alerts, 1)
	assert.Equal(t, 100, alerts[0].Threshold)

	// Over the limit already, no more alerts.
	assert.Empty(t, spend(200))
}

func TestEvaluateExpenseWithoutBudget(t *testing.T) {
	svc := NewService(&fakeBudgetStore{}, &fakeLedgerStore{}, zap.NewNop())
	alerts, err := svc.EvaluateExpense(context.Background(), 1, "transporte", 100, "2026-02")
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestMonthStatusPercentage(t *testing.T) {
	budgets := &fakeBudgetStore{}
	ledger := &fakeLedgerStore{}
	svc := NewService(budgets, ledger, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Set(ctx, 1, "transporte", 3000, "2026-02")
	require.NoError(t, err)
	ledger.txs = append(ledger.txs, &ledgerrepo.Transaction{
		UserID: 1, Amount: 500, Category: "transporte", Type: "expense",
		Date: mustDate(t, "2026-02-03"),
	})

	statuses, err := svc.MonthStatus(ctx, 1, "2026-02")
	require.NoError(t, err)
	require.Len(t, statuses, 1)

	assert.Equal(t, 500.0, statuses[0].Spent)
	assert.Equal(t, 2500.0, statuses[0].Remaining)
	assert.InDelta(t, 16.7, statuses[0].Percentage, 0.01)
}

func TestSetRejectsBadInput(t *testing.T) {
	svc := NewService(&fakeBudgetStore{}, &fakeLedgerStore{}, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Set(ctx, 1, "hogar", -10, "2026-02")
	assert.Error(t, err)

	_, err = svc.Set(ctx, 1, "", 100, "2026-02")
	assert.Error(t, err)

	_, err = svc.Set(ctx, 1, "hogar", 100, "febrero")
	assert.Error(t, err)
}
