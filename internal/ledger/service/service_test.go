package service

import (
	"context"
	"testing"
	"time"

	"github.com/mgiraudo/gastosbot/internal/ledger/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	txs    []*repository.Transaction
	nextID int64
}

func (f *fakeStore) Create(_ context.Context, tx *repository.Transaction) (*repository.Transaction, error) {
	f.nextID++
	cp := *tx
	cp.ID = f.nextID
	f.txs = append(f.txs, &cp)
	return &cp, nil
}

func (f *fakeStore) FindDuplicate(_ context.Context, userID int64, date time.Time, amount float64, txType, description string) (*repository.Transaction, error) {
	for _, tx := range f.txs {
		if tx.UserID == userID && tx.Date.Equal(date) && tx.Amount == amount && tx.Type == txType && tx.Description == description {
			return tx, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListByMonth(_ context.Context, userID int64, month string) ([]*repository.Transaction, error) {
	var out []*repository.Transaction
	for _, tx := range f.txs {
		if tx.UserID == userID && tx.Date.Format("2006-01") == month {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeStore) ListLastNMonths(_ context.Context, userID int64, n int) ([]*repository.Transaction, error) {
	return f.ListAll(context.Background(), userID)
}

func (f *fakeStore) ListAll(_ context.Context, userID int64) ([]*repository.Transaction, error) {
	var out []*repository.Transaction
	for _, tx := range f.txs {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeStore) Delete(_ context.Context, transactionID, userID int64) (bool, error) {
	for i, tx := range f.txs {
		if tx.ID == transactionID && tx.UserID == userID {
			f.txs = append(f.txs[:i], f.txs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddValidation(t *testing.T) {
	svc := NewService(&fakeStore{}, zap.NewNop())
	ctx := context.Background()

	_, _, err := svc.Add(ctx, 1, Draft{Amount: 0, Type: "expense"})
	assert.Error(t, err)

	_, _, err = svc.Add(ctx, 1, Draft{Amount: -50, Type: "expense"})
	assert.Error(t, err)

	_, _, err = svc.Add(ctx, 1, Draft{Amount: 100, Type: "transfer"})
	assert.Error(t, err)
}

func TestAddDefaults(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, zap.NewNop())

	tx, dup, err := svc.Add(context.Background(), 1, Draft{
		Amount:      1500,
		Type:        "expense",
		Description: "taxi",
		Date:        time.Date(2026, time.February, 10, 18, 42, 11, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.False(t, dup)

	assert.Equal(t, DefaultExpenseCategory, tx.Category)
	// Time of day is dropped, only the calendar date matters.
	assert.Equal(t, date(2026, time.February, 10), tx.Date)
}

func TestAddDeduplicates(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, zap.NewNop())
	ctx := context.Background()

	draft := Draft{
		Amount:      3423.50,
		Type:        "expense",
		Category:    "alimentación",
		Description: "supermercado",
		Date:        date(2026, time.February, 10),
	}

	first, dup, err := svc.Add(ctx, 1, draft)
	require.NoError(t, err)
	assert.False(t, dup)

	second, dup, err := svc.Add(ctx, 1, draft)
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, store.txs, 1)

	// Same movement on another day is a fresh transaction.
	draft.Date = date(2026, time.February, 11)
	_, dup, err = svc.Add(ctx, 1, draft)
	require.NoError(t, err)
	assert.False(t, dup)
	assert.Len(t, store.txs, 2)
}

func TestAddInstallments(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, zap.NewNop())

	tx, _, err := svc.Add(context.Background(), 1, Draft{
		Amount:                25000,
		Type:                  "expense",
		Category:              "compras",
		Description:           "heladera",
		Date:                  date(2026, time.February, 1),
		InstallmentCurrent:    2,
		InstallmentTotal:      12,
		InstallmentsRemaining: 10,
	})
	require.NoError(t, err)

	require.True(t, tx.InstallmentTotal.Valid)
	assert.EqualValues(t, 2, tx.InstallmentCurrent.Int64)
	assert.EqualValues(t, 12, tx.InstallmentTotal.Int64)
	assert.EqualValues(t, 10, tx.InstallmentsRemaining.Int64)
}

func TestMonthlySummary(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, zap.NewNop())
	ctx := context.Background()

	add := func(amount float64, txType, category string) {
		t.Helper()
		_, _, err := svc.Add(ctx, 1, Draft{
			Amount:      amount,
			Type:        txType,
			Category:    category,
			Description: category + " movimiento",
			Date:        date(2026, time.February, 5),
		})
		require.NoError(t, err)
	}

	add(500000, "income", "salario")
	add(120000, "expense", "alimentación")
	add(30000, "expense", "transporte")
	add(180000, "expense", "alimentación")

	sum, err := svc.MonthlySummary(ctx, 1, "2026-02")
	require.NoError(t, err)

	assert.Equal(t, 500000.0, sum.Income)
	assert.Equal(t, 330000.0, sum.Expense)
	assert.Equal(t, 170000.0, sum.Balance)

	require.Len(t, sum.Breakdown, 2)
	assert.Equal(t, "alimentación", sum.Breakdown[0].Category)
	assert.Equal(t, 300000.0, sum.Breakdown[0].Amount)
	assert.Equal(t, "transporte", sum.Breakdown[1].Category)
}

func TestDelete(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, zap.NewNop())
	ctx := context.Background()

	tx, _, err := svc.Add(ctx, 1, Draft{Amount: 100, Type: "expense", Date: date(2026, time.February, 1)})
	require.NoError(t, err)

	ok, err := svc.Delete(ctx, tx.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Delete(ctx, tx.ID, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}
